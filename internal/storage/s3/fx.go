package s3

import (
	"context"

	"github.com/smallbiznis/ledgercraft/internal/config"
	"github.com/smallbiznis/ledgercraft/internal/storage"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("storage.s3",
	fx.Provide(Provide),
)

// Provide returns nil when no bucket is configured; consumers treat a nil
// ObjectStorage as publishing disabled.
func Provide(cfg config.Config, log *zap.Logger) (storage.ObjectStorage, error) {
	if !cfg.Storage.Enabled() {
		log.Info("object storage disabled")
		return nil, nil
	}
	client, err := NewS3Client(context.Background(), cfg.Storage)
	if err != nil {
		return nil, err
	}
	log.Info("object storage initialized",
		zap.String("bucket", cfg.Storage.Bucket),
		zap.String("region", cfg.Storage.Region),
	)
	return client, nil
}
