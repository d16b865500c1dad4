package cli

import (
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kharven/refract"
	"github.com/kharven/refract/pkg/adapters/file"
	"github.com/kharven/refract/pkg/adapters/redis"
	"github.com/kharven/refract/pkg/domain"
	"github.com/kharven/refract/pkg/observability"
	"github.com/kharven/refract/pkg/persistence/middleware"
	"github.com/kharven/refract/pkg/ports"
	"github.com/kharven/refract/pkg/protocol"
)

// EngineOptions carries the flag values every command shares when it needs a
// running engine.
type EngineOptions struct {
	ProtocolPath string
	ConfigPath   string
	StateDir     string
	RedisURL     string
	Debug        bool

	// EncryptionKey enables at-rest encryption of persisted sessions when
	// non-empty. Populated from REFRACT_ENCRYPTION_KEY, never from a flag.
	EncryptionKey string
	// RedactPII strips free-text response fields before persistence.
	RedactPII bool

	// Hooks are chained in front of the debug logging hooks, letting
	// commands attach metrics or event streams.
	Hooks domain.LifecycleHooks
}

// CreateEngine initializes a refract engine with standard CLI conventions:
// embedded protocol and clinical defaults unless files are given, a file
// store under the state directory, or Redis when a URL is set.
func CreateEngine(opts EngineOptions, logger *slog.Logger) (*refract.Engine, error) {
	proto, err := loadProtocol(opts.ProtocolPath)
	if err != nil {
		return nil, err
	}

	cfg, err := LoadConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	store, locker, err := CreateStore(opts)
	if err != nil {
		return nil, err
	}

	hooks := opts.Hooks
	if opts.Debug {
		hooks = observability.Chain(hooks, observability.LoggingHooks(logger))
	}

	engineOpts := []refract.Option{
		refract.WithProtocol(proto),
		refract.WithConfig(cfg),
		refract.WithStore(store),
		refract.WithLogger(logger),
		refract.WithLifecycleHooks(hooks),
	}
	if locker != nil {
		engineOpts = append(engineOpts, refract.WithLocker(locker))
	}

	engine, err := refract.New(engineOpts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	return engine, nil
}

func loadProtocol(path string) (*domain.Protocol, error) {
	if path == "" {
		return protocol.Default()
	}
	return protocol.Load(path)
}

// LoadConfig reads a clinical envelope file over the defaults, so partial
// files only override the keys they name. An empty path returns the defaults.
func LoadConfig(path string) (domain.Config, error) {
	cfg := domain.DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, &domain.ConfigurationError{Detail: fmt.Sprintf("config yaml: %v", err)}
	}
	return cfg, nil
}

// CreateStore picks the persistence backend and wraps it with the configured
// middleware. Redis also supplies a distributed locker so concurrent writers
// on the same session serialize across processes.
func CreateStore(opts EngineOptions) (ports.StateStore, ports.DistributedLocker, error) {
	var store ports.StateStore
	var locker ports.DistributedLocker

	if opts.RedisURL != "" {
		rs, err := redis.NewFromURL(opts.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("redis store: %w", err)
		}
		store = rs
		locker = redis.NewLocker(rs.Client(), "refract:lock")
	} else {
		store = file.New(opts.StateDir)
	}

	if opts.EncryptionKey != "" {
		// The env value is a passphrase; derive the fixed-size AES key
		// from it.
		key := sha256.Sum256([]byte(opts.EncryptionKey))
		enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key[:]})
		if err != nil {
			return nil, nil, fmt.Errorf("encryption middleware: %w", err)
		}
		store = enc(store)
	}
	// PII wraps outermost so masking happens before sealing.
	if opts.RedactPII {
		store = middleware.NewPIIMiddleware()(store)
	}
	return store, locker, nil
}
