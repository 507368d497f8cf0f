package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()

	out, err := s.Upload(ctx, UploadInput{Key: "invoices/1.pdf", ContentType: "application/pdf", Body: strings.NewReader("pdf")})
	require.NoError(t, err)
	assert.Equal(t, "memory://invoices/1.pdf", out.Location)

	body, err := s.Download(ctx, "invoices/1.pdf")
	require.NoError(t, err)
	assert.Equal(t, "pdf", string(body))

	url, err := s.GetPresignedURL(ctx, "invoices/1.pdf", 15*time.Minute)
	require.NoError(t, err)
	assert.Contains(t, url, "expires=900")

	require.NoError(t, s.Delete(ctx, "invoices/1.pdf"))
	_, err = s.Download(ctx, "invoices/1.pdf")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}
