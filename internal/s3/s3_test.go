package s3_test

import (
	"bytes"
	"context"
	"os"
	"testing"

	"resume-ranker/internal/s3"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setUpS3(t *testing.T) (*s3.FileStore, string) {
	t.Helper()

	endpoint := os.Getenv("MINIO_ENDPOINT")
	accessKey := os.Getenv("MINIO_ACCESS_KEY")
	secretKey := os.Getenv("MINIO_SECRET_KEY")
	bucket := os.Getenv("MINIO_BUCKET")

	if endpoint == "" || accessKey == "" || secretKey == "" {
		t.Skip("MinIO configuration not set (MINIO_ENDPOINT, MINIO_ACCESS_KEY, MINIO_SECRET_KEY), skipping integration test")
	}

	if bucket == "" {
		bucket = "resume-bucket"
	}

	ctx := context.Background()

	s3Store, err := s3.NewFileStore(ctx, s3.S3Config{
		EndpointURL: endpoint,
		Region:      "us-east-1",
		AccessKey:   accessKey,
		SecretKey:   secretKey,
	})
	require.NoError(t, err, "Failed creating FileStore")

	require.NoError(t, s3Store.EnsureBucket(ctx, bucket))

	return s3Store, bucket
}

func TestEnsureBucket_Idempotent(t *testing.T) {
	s3Store, bucket := setUpS3(t)

	assert.NoError(t, s3Store.EnsureBucket(context.Background(), bucket))
}

func TestUploadAndDownload(t *testing.T) {
	s3Store, bucket := setUpS3(t)
	ctx := context.Background()

	content := []byte("%PDF-1.4\n%Mock PDF content for testing\n%%EOF")
	key := "test-resumes/test-resume-" + uuid.New().String() + ".pdf"

	location, err := s3Store.Upload(ctx, bytes.NewReader(content), bucket, key, "application/pdf")
	require.NoError(t, err)
	assert.NotEmpty(t, location)

	downloaded, err := s3Store.Download(ctx, bucket, key)
	require.NoError(t, err)
	assert.Equal(t, content, downloaded)
}

func TestUploadMultiplePDFs(t *testing.T) {
	s3Store, bucket := setUpS3(t)
	ctx := context.Background()

	testCases := []struct {
		name    string
		content string
	}{
		{name: "small-pdf", content: "%PDF-1.4\nSmall test PDF\n%%EOF"},
		{name: "large-pdf", content: "%PDF-1.4\n" + string(make([]byte, 1024*100)) + "\n%%EOF"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			key := "test-resumes/" + tc.name + "-" + uuid.New().String() + ".pdf"

			output, err := s3Store.Upload(ctx, bytes.NewReader([]byte(tc.content)), bucket, key, "application/pdf")
			require.NoError(t, err)
			assert.NotEmpty(t, output)
		})
	}
}

func TestUploadInvalidBucket(t *testing.T) {
	s3Store, _ := setUpS3(t)

	invalidBucket := "non-existent-bucket-" + uuid.New().String()

	_, err := s3Store.Upload(context.Background(), bytes.NewReader([]byte("%PDF-1.4\n%%EOF")), invalidBucket, "test-file.pdf", "application/pdf")
	assert.Error(t, err)
}

func TestDownloadMissingKey(t *testing.T) {
	s3Store, bucket := setUpS3(t)

	_, err := s3Store.Download(context.Background(), bucket, "missing/"+uuid.New().String()+".pdf")
	assert.Error(t, err)
}

func TestDelete(t *testing.T) {
	s3Store, bucket := setUpS3(t)
	ctx := context.Background()

	key := "test-resumes/delete-" + uuid.New().String() + ".pdf"
	_, err := s3Store.Upload(ctx, bytes.NewReader([]byte("%PDF-1.4\n%%EOF")), bucket, key, "application/pdf")
	require.NoError(t, err)

	require.NoError(t, s3Store.Delete(ctx, bucket, key))

	_, err = s3Store.Download(ctx, bucket, key)
	assert.Error(t, err)

	assert.NoError(t, s3Store.Delete(ctx, bucket, key), "deleting a missing key succeeds")
}
