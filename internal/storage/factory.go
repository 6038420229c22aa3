package storage

import (
	"fmt"

	appconfig "membership/internal/config"
)

type Factory struct {
	config StorageConfig
}

func NewFactory(config StorageConfig) *Factory {
	return &Factory{
		config: config,
	}
}

func (f *Factory) CreateStorage() (Storage, error) {
	switch f.config.Type {
	case StorageTypeLocal:
		basePath := f.config.LocalPath
		if basePath == "" {
			basePath = "./data/imports"
		}
		return NewLocalStorage(basePath)

	case StorageTypeS3:
		if f.config.S3 == nil {
			return nil, fmt.Errorf("S3 configuration is required for S3 storage type")
		}
		return NewS3Storage(*f.config.S3)

	default:
		return nil, fmt.Errorf("unknown storage type: %s", f.config.Type)
	}
}

// NewStorageFromConfig creates a storage backend from the application config.
func NewStorageFromConfig(cfg appconfig.StorageConfig) (Storage, error) {
	config := StorageConfig{
		Type:      StorageType(cfg.Type),
		LocalPath: cfg.LocalPath,
	}

	if config.Type == StorageTypeS3 {
		if cfg.S3Bucket == "" || cfg.S3Region == "" {
			return nil, fmt.Errorf("S3 storage requires STORAGE_S3_BUCKET and STORAGE_S3_REGION")
		}
		config.S3 = &S3Config{
			Bucket: cfg.S3Bucket,
			Region: cfg.S3Region,
		}
	}

	factory := NewFactory(config)
	return factory.CreateStorage()
}
