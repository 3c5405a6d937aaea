package blob

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilesystemRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewFilesystem(t.TempDir())
	require.NoError(t, err)

	info, err := s.Put(ctx, "invoices/1/po.pdf", strings.NewReader("%PDF-1.4"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, int64(8), info.Size)

	_, err = s.Put(ctx, "invoices/1/po.pdf", strings.NewReader("again"), "application/pdf")
	assert.ErrorIs(t, err, ErrExists)

	got, rc, err := s.Get(ctx, "invoices/1/po.pdf")
	require.NoError(t, err)
	body, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "%PDF-1.4", string(body))
	assert.Equal(t, "application/pdf", got.ContentType)

	require.NoError(t, s.Delete(ctx, "invoices/1/po.pdf"))
	_, _, err = s.Get(ctx, "invoices/1/po.pdf")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFilesystemRejectsTraversal(t *testing.T) {
	s, err := NewFilesystem(t.TempDir())
	require.NoError(t, err)
	_, err = s.Put(context.Background(), "../escape", strings.NewReader("x"), "")
	assert.Error(t, err)
	_, err = s.Put(context.Background(), "/abs", strings.NewReader("x"), "")
	assert.Error(t, err)
}

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeS3) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[*in.Key]; !ok {
		return nil, &s3types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.objects[*in.Key] = b
	f.mu.Unlock()
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.objects[*in.Key]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(b)), ContentLength: aws.Int64(int64(len(b)))}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	delete(f.objects, *in.Key)
	f.mu.Unlock()
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3StorePrefixAndCreateOnly(t *testing.T) {
	ctx := context.Background()
	fake := &fakeS3{objects: map[string][]byte{}}
	s := NewS3WithClient(fake, "lims", "invoices")

	_, err := s.Put(ctx, "7/po.pdf", strings.NewReader("abc"), "application/pdf")
	require.NoError(t, err)
	assert.Contains(t, fake.objects, "invoices/7/po.pdf")

	_, err = s.Put(ctx, "7/po.pdf", strings.NewReader("abc"), "application/pdf")
	assert.ErrorIs(t, err, ErrExists)

	info, rc, err := s.Get(ctx, "7/po.pdf")
	require.NoError(t, err)
	rc.Close()
	assert.Equal(t, int64(3), info.Size)

	_, _, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
