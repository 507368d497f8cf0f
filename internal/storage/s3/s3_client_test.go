package s3

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/smallbiznis/ledgercraft/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresignDoesNotCallNetwork(t *testing.T) {
	client, err := NewS3Client(context.Background(), config.StorageConfig{
		Bucket:    "ledgercraft-test",
		Region:    "ap-southeast-2",
		Endpoint:  "http://localhost:9000",
		AccessKey: "minio",
		SecretKey: "minio123",
	})
	require.NoError(t, err)

	url, err := client.GetPresignedURL(context.Background(), "invoices/INV-202404-0001.pdf", 10*time.Minute)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "http://localhost:9000/ledgercraft-test/invoices/INV-202404-0001.pdf"))
	assert.Contains(t, url, "X-Amz-Expires=600")
}
