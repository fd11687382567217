//go:build faiss && cgo

package vector

import (
	"bytes"
	"testing"
)

func TestFAISSIndex_MatchesFlatIndex(t *testing.T) {
	vectors := [][]float32{{0, 0}, {3, 4}, {1, 1}, {1, 1}}
	flat, _ := NewFlatIndex(2)
	fx, err := NewFAISSIndex(2)
	if err != nil {
		t.Fatal(err)
	}
	defer fx.Close()

	for _, idx := range []Index{flat, fx} {
		first, err := idx.Add(vectors)
		if err != nil || first != 0 {
			t.Fatalf("%s Add: first=%d err=%v", idx.Type(), first, err)
		}
	}

	want, _ := flat.Search([]float32{1, 1}, 10)
	got, err := fx.Search([]float32{1, 1}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(want) {
		t.Fatalf("len: got %d want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Position != want[i].Position {
			t.Errorf("rank %d: position %d, want %d", i, got[i].Position, want[i].Position)
		}
		if d := got[i].Distance - want[i].Distance; d > 1e-4 || d < -1e-4 {
			t.Errorf("rank %d: distance %v, want %v", i, got[i].Distance, want[i].Distance)
		}
	}
}

func TestFAISSIndex_TruncateAndSnapshot(t *testing.T) {
	fx, err := NewFAISSIndex(1)
	if err != nil {
		t.Fatal(err)
	}
	defer fx.Close()
	_, _ = fx.Add([][]float32{{1}, {2}, {3}})
	if err := fx.Truncate(2); err != nil {
		t.Fatal(err)
	}
	if fx.Count() != 2 {
		t.Fatalf("count after truncate: %d", fx.Count())
	}

	data, err := EncodeSnapshot(fx)
	if err != nil {
		t.Fatal(err)
	}
	flat, _ := NewFlatIndex(1)
	if err := DecodeSnapshot(bytes.NewReader(data), flat); err != nil {
		t.Fatal(err)
	}
	if v := flat.Vector(1); len(v) != 1 || v[0] != 2 {
		t.Errorf("Vector(1) = %v", v)
	}
}
