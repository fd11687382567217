package blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiError struct {
	code string
}

func (e *apiError) Error() string                 { return e.code }
func (e *apiError) ErrorCode() string             { return e.code }
func (e *apiError) ErrorMessage() string          { return e.code }
func (e *apiError) ErrorFault() smithy.ErrorFault { return smithy.FaultClient }

// fakeS3 is an in-memory bucket.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[*in.Key]
	if !ok {
		return nil, &apiError{code: "NoSuchKey"}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[*in.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[*in.Key]
	if !ok {
		return nil, &apiError{code: "NotFound"}
	}
	now := time.Now()
	return &s3.HeadObjectOutput{ContentLength: aws.Int64(int64(len(data))), LastModified: &now}, nil
}

func TestS3_PutOpenUsesPrefix(t *testing.T) {
	fake := newFakeS3()
	store := NewS3(fake, "bucket", "/oncovec/")
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "vectors.ovix", []byte("snapshot")))
	_, ok := fake.objects["oncovec/vectors.ovix"]
	assert.True(t, ok, "object key should carry the prefix")

	r, err := store.Open(ctx, "vectors.ovix")
	require.NoError(t, err)
	defer r.Close()
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "snapshot", string(got))

	info, err := store.Stat(ctx, "vectors.ovix")
	require.NoError(t, err)
	assert.Equal(t, int64(8), info.Size)
	assert.Equal(t, "s3://bucket/oncovec", store.Location())
}

func TestS3_NotFoundMapsToErrNotExist(t *testing.T) {
	store := NewS3(newFakeS3(), "bucket", "")
	ctx := context.Background()

	_, err := store.Open(ctx, "missing")
	assert.True(t, errors.Is(err, os.ErrNotExist))

	_, err = store.Stat(ctx, "missing")
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestS3_PutError(t *testing.T) {
	fake := newFakeS3()
	fake.putErr = errors.New("access denied")
	store := NewS3(fake, "bucket", "")

	err := store.Put(context.Background(), "x", []byte("y"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, os.ErrNotExist))
	assert.Contains(t, err.Error(), "access denied")
}

func TestS3_Remove(t *testing.T) {
	fake := newFakeS3()
	store := NewS3(fake, "bucket", "")
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "x", []byte("y")))
	require.NoError(t, store.Remove(ctx, "x"))
	require.NoError(t, store.Remove(ctx, "x"))
	_, err := store.Stat(ctx, "x")
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
