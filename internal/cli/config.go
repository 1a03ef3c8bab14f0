// Package cli holds the wiring shared by the hmm commands: global flags,
// store selection and terminal output.
package cli

import (
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/hmm"
	"github.com/aretw0/hmm/internal/logging"
	"github.com/aretw0/hmm/pkg/adapters/file"
	"github.com/aretw0/hmm/pkg/adapters/redis"
	"github.com/aretw0/hmm/pkg/catalog"
	"github.com/aretw0/hmm/pkg/persistence/middleware"
	"github.com/aretw0/hmm/pkg/ports"
)

// Globals are the persistent flags of the root command.
type Globals struct {
	StorePath string
	Format    string
	RedisAddr string
	LogLevel  string
	LogFormat string
	// StoreKey is a hex-encoded AES-256 key. When set, models are sealed
	// before they reach the store.
	StoreKey string
}

// Logger builds the process logger. Logs go to stderr so stdout stays
// reserved for command output.
func (g Globals) Logger() (*slog.Logger, error) {
	return g.loggerTo(os.Stderr)
}

func (g Globals) loggerTo(w io.Writer) (*slog.Logger, error) {
	level, err := logging.ParseLevel(g.LogLevel)
	if err != nil {
		return nil, err
	}
	return logging.New(w, level, g.LogFormat), nil
}

// Store opens the configured model store. The returned closer is never nil
// when err is nil.
func (g Globals) Store() (ports.ModelStore, func() error, error) {
	store, _, closer, err := g.open()
	return store, closer, err
}

// Catalog opens the store and wraps it in a catalog. Redis-backed catalogs
// also coordinate writers through a Redis lock.
func (g Globals) Catalog(logger *slog.Logger, modelOpts ...hmm.Option) (*catalog.Catalog, func() error, error) {
	store, rs, closer, err := g.open()
	if err != nil {
		return nil, nil, err
	}
	opts := []catalog.Option{
		catalog.WithLogger(logger),
		catalog.WithModelOptions(append([]hmm.Option{hmm.WithLogger(logger)}, modelOpts...)...),
	}
	if rs != nil {
		opts = append(opts, catalog.WithLocker(redis.NewLocker(rs.Client(), "hmm:")))
	}
	return catalog.New(store, opts...), closer, nil
}

// open selects the backend (Redis takes precedence over the file store) and
// applies the encryption middleware. rs is non-nil for Redis backends.
func (g Globals) open() (store ports.ModelStore, rs *redis.Store, closer func() error, err error) {
	if g.RedisAddr != "" {
		rs = redis.New(g.RedisAddr, os.Getenv("HMM_REDIS_PASSWORD"), 0)
		store, closer = rs, rs.Close
	} else {
		var opts []file.Option
		switch g.Format {
		case "", string(file.YAML):
		case string(file.JSON):
			opts = append(opts, file.WithFormat(file.JSON))
		default:
			return nil, nil, nil, fmt.Errorf("unknown store format %q", g.Format)
		}
		store, closer = file.New(g.StorePath, opts...), func() error { return nil }
	}

	if g.StoreKey == "" {
		return store, rs, closer, nil
	}
	key, err := hex.DecodeString(g.StoreKey)
	if err != nil {
		_ = closer()
		return nil, nil, nil, fmt.Errorf("store key is not hex: %w", err)
	}
	mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})
	if err != nil {
		_ = closer()
		return nil, nil, nil, err
	}
	return mw(store), rs, closer, nil
}
