package s3store

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paythru/internal/ocr/providers"
)

type fakeS3 struct {
	puts    []*s3.PutObjectInput
	deletes []*s3.DeleteObjectInput
	putErr  error
	delErr  error
	body    []byte
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.puts = append(f.puts, in)
	if f.putErr != nil {
		return nil, f.putErr
	}
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deletes = append(f.deletes, in)
	if f.delErr != nil {
		return nil, f.delErr
	}
	return &s3.DeleteObjectOutput{}, nil
}

func TestStore_Put(t *testing.T) {
	t.Run("uploads body with content type", func(t *testing.T) {
		api := &fakeS3{}
		store, err := New(api)
		require.NoError(t, err)

		err = store.Put(context.Background(), "kyc-tmp", "textract/1-a-doc.pdf", bytes.NewReader([]byte("%PDF")), "application/pdf")
		require.NoError(t, err)

		require.Len(t, api.puts, 1)
		assert.Equal(t, "kyc-tmp", aws.ToString(api.puts[0].Bucket))
		assert.Equal(t, "textract/1-a-doc.pdf", aws.ToString(api.puts[0].Key))
		assert.Equal(t, "application/pdf", aws.ToString(api.puts[0].ContentType))
		assert.Equal(t, []byte("%PDF"), api.body)
	})

	t.Run("failure is an upload error", func(t *testing.T) {
		cause := errors.New("access denied")
		store, err := New(&fakeS3{putErr: cause})
		require.NoError(t, err)

		err = store.Put(context.Background(), "kyc-tmp", "k", bytes.NewReader(nil), "")
		require.Error(t, err)
		assert.Equal(t, providers.ErrorUpload, providers.KindOf(err))
		assert.ErrorIs(t, err, cause)
	})
}

func TestStore_Delete(t *testing.T) {
	api := &fakeS3{}
	store, err := New(api)
	require.NoError(t, err)

	require.NoError(t, store.Delete(context.Background(), "kyc-tmp", "k"))
	require.Len(t, api.deletes, 1)
	assert.Equal(t, "k", aws.ToString(api.deletes[0].Key))

	api.delErr = errors.New("timeout")
	err = store.Delete(context.Background(), "kyc-tmp", "k")
	assert.ErrorContains(t, err, "delete s3://kyc-tmp/k")
}

func TestNew_RequiresAPI(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}
