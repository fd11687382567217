package vector

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/hyperjump/oncovec/internal/models"
)

// Snapshot layout, little-endian: magic "OVIX", version uint32, dimensions
// uint32, count uint64, then count*dimensions float32 values.
var snapshotMagic = [4]byte{'O', 'V', 'I', 'X'}

const snapshotVersion uint32 = 1

// ErrCorruptSnapshot means a snapshot could not be decoded.
var ErrCorruptSnapshot = errors.New("corrupt vector snapshot")

// EncodeSnapshot serializes every vector in idx.
func EncodeSnapshot(idx Index) ([]byte, error) {
	data, err := idx.Vectors()
	if err != nil {
		return nil, fmt.Errorf("read index vectors: %w", err)
	}
	dims := idx.Dimensions()
	count := uint64(len(data) / dims)
	buf := bytes.NewBuffer(make([]byte, 0, 20+len(data)*4))
	buf.Write(snapshotMagic[:])
	_ = binary.Write(buf, binary.LittleEndian, snapshotVersion)
	_ = binary.Write(buf, binary.LittleEndian, uint32(dims))
	_ = binary.Write(buf, binary.LittleEndian, count)
	word := make([]byte, 4)
	for _, v := range data {
		binary.LittleEndian.PutUint32(word, math.Float32bits(v))
		buf.Write(word)
	}
	return buf.Bytes(), nil
}

// DecodeSnapshot reads a snapshot written by EncodeSnapshot into dst, which
// must be empty. The stored dimension must equal dst's. Nothing is added to
// dst unless the whole snapshot decodes.
func DecodeSnapshot(r io.Reader, dst Index) error {
	dimensions := dst.Dimensions()
	if n := dst.Count(); n != 0 {
		return fmt.Errorf("decode snapshot into non-empty index (%d vectors)", n)
	}
	br := bufio.NewReader(r)
	var header struct {
		Magic      [4]byte
		Version    uint32
		Dimensions uint32
		Count      uint64
	}
	if err := binary.Read(br, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("%w: read header: %v", ErrCorruptSnapshot, err)
	}
	if header.Magic != snapshotMagic {
		return fmt.Errorf("%w: bad magic %q", ErrCorruptSnapshot, header.Magic[:])
	}
	if header.Version != snapshotVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrCorruptSnapshot, header.Version)
	}
	if int(header.Dimensions) != dimensions {
		return fmt.Errorf("%w: snapshot has %d, index expects %d", models.ErrDimensionMismatch, header.Dimensions, dimensions)
	}
	vectors := make([][]float32, 0, min(header.Count, 1<<20))
	word := make([]byte, 4)
	for i := uint64(0); i < header.Count; i++ {
		v := make([]float32, dimensions)
		for j := range v {
			if _, err := io.ReadFull(br, word); err != nil {
				return fmt.Errorf("%w: vector data truncated in vector %d of %d", ErrCorruptSnapshot, i, header.Count)
			}
			v[j] = math.Float32frombits(binary.LittleEndian.Uint32(word))
		}
		vectors = append(vectors, v)
	}
	if _, err := dst.Add(vectors); err != nil {
		return fmt.Errorf("load snapshot vectors: %w", err)
	}
	return nil
}
