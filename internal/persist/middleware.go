package persist

import (
	"context"
	"log/slog"

	"github.com/roach88/hafiza/internal/action"
	"github.com/roach88/hafiza/internal/middleware"
	"github.com/roach88/hafiza/internal/state"
)

// Config selects where and how snapshots are persisted.
type Config struct {
	// Key is the storage key for the snapshot.
	Key string

	Storage Storage

	// Serialize and Deserialize default to JSONCodec.
	Serialize   func(*state.Object) (string, error)
	Deserialize func(string) (*state.Object, error)

	// Logger receives persistence failures. Defaults to slog.Default().
	Logger *slog.Logger
}

// WithCodec returns a copy of c using codec for both directions.
func (c Config) WithCodec(codec Codec) Config {
	c.Serialize = codec.Serialize
	c.Deserialize = codec.Deserialize
	return c
}

func (c Config) withDefaults() Config {
	if c.Serialize == nil {
		c.Serialize = JSONCodec.Serialize
	}
	if c.Deserialize == nil {
		c.Deserialize = JSONCodec.Deserialize
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Middleware writes the store's state to cfg.Storage after every
// successful dispatch. Write failures are logged, never returned.
func Middleware(cfg Config) middleware.Middleware {
	cfg = cfg.withDefaults()
	return func(api middleware.API) func(middleware.Next) middleware.Next {
		return func(next middleware.Next) middleware.Next {
			return func(ctx context.Context, a action.Action) error {
				if err := next(ctx, a); err != nil {
					return err
				}
				save(ctx, cfg, api.GetState())
				return nil
			}
		}
	}
}

func save(ctx context.Context, cfg Config, s *state.Object) {
	encoded, err := cfg.Serialize(s)
	if err != nil {
		cfg.Logger.ErrorContext(ctx, "failed to serialize state", "key", cfg.Key, "error", err)
		return
	}
	if err := cfg.Storage.SetItem(cfg.Key, encoded); err != nil {
		cfg.Logger.ErrorContext(ctx, "failed to persist state", "key", cfg.Key, "error", err)
	}
}

// Load reads and decodes the snapshot stored under cfg.Key. It returns
// false when the key is missing or the stored value cannot be read or
// decoded; failures are logged.
func Load(cfg Config) (*state.Object, bool) {
	cfg = cfg.withDefaults()

	raw, ok, err := cfg.Storage.GetItem(cfg.Key)
	if err != nil {
		cfg.Logger.Error("failed to load persisted state", "key", cfg.Key, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	s, err := cfg.Deserialize(raw)
	if err != nil || s == nil {
		cfg.Logger.Error("failed to decode persisted state", "key", cfg.Key, "error", err)
		return nil, false
	}
	return s, true
}
