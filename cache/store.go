// cache/store.go
package cache

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/gewnthar/countries/backend/config"
)

// SummaryImage is the name of the rendered summary artifact.
const SummaryImage = "summary.png"

var ErrArtifactNotFound = errors.New("artifact not found")

// Store keeps generated artifacts by name. Writes replace whatever was there.
type Store interface {
	Put(ctx context.Context, name string, data []byte) error
	Get(ctx context.Context, name string) ([]byte, error)
	Close() error
}

// New builds the store selected by cfg.Backend.
func New(ctx context.Context, cfg config.CacheConfig, logger *zap.Logger) (Store, error) {
	switch cfg.Backend {
	case "redis":
		store, err := NewRedisStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
		logger.Info("artifact store ready", zap.String("backend", "redis"), zap.String("addr", cfg.RedisAddr))
		return store, nil
	case "file", "":
		logger.Info("artifact store ready", zap.String("backend", "file"), zap.String("dir", cfg.Dir))
		return NewFileStore(cfg.Dir), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

func validateName(name string) error {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("invalid artifact name %q", name)
	}
	return nil
}
