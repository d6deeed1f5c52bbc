package main

import (
	"context"
	"fmt"

	"mserapports/internal/blob"
	"mserapports/pkg/types"

	"github.com/kelseyhightower/envconfig"
)

func loadConfig() (*types.Config, error) {
	c := new(types.Config)
	if err := envconfig.Process("", c); err != nil {
		return nil, fmt.Errorf("process environment config: %w", err)
	}

	return c, nil
}

// loadBlobStore picks the photo storage backend: S3 when a bucket is
// configured, local content-addressed files otherwise.
func loadBlobStore(ctx context.Context, config *types.Config) (blob.Store, error) {
	if config.BlobS3Bucket != "" {
		return blob.NewS3Store(ctx, config)
	}

	return blob.NewFSStore(config.BlobDir)
}
