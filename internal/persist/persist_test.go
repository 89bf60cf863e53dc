package persist

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hafiza/internal/action"
	"github.com/roach88/hafiza/internal/state"
	"github.com/roach88/hafiza/internal/store"
)

func todoReducer(prev *state.Object, a action.Action) *state.Object {
	if a.Kind != "add" {
		return prev
	}
	v, _ := prev.Get("todos")
	todos, _ := v.(state.Array)
	item := state.NewObject(
		state.P("text", state.String(a.Payload.(string))),
		state.P("done", state.Bool(false)),
	)
	return prev.Set("todos", todos.Append(item))
}

func initialTodos() *state.Object {
	return state.NewObject(state.P("todos", state.Array{}), state.P("owner", state.String("ada")))
}

// dispatchAll builds a store around mw and runs the given adds.
func dispatchAll(t *testing.T, mw func(*testing.T) store.Option, texts ...string) *state.Object {
	t.Helper()
	s, err := store.New(initialTodos(), todoReducer, mw(t))
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	for _, text := range texts {
		require.NoError(t, s.Dispatch(ctx, action.New("add", text)).Wait(ctx))
	}
	return s.State()
}

func TestMiddleware_RoundTrip(t *testing.T) {
	codecs := []Codec{JSONCodec, CanonicalCodec, YAMLCodec}

	for _, codec := range codecs {
		t.Run(codec.Name, func(t *testing.T) {
			cfg := Config{Key: "todos", Storage: NewMemoryStorage()}.WithCodec(codec)

			final := dispatchAll(t, func(*testing.T) store.Option {
				return store.WithMiddleware(Middleware(cfg))
			}, "write tests", "ship it")

			loaded, ok := Load(cfg)
			require.True(t, ok)
			assert.True(t, state.Equal(final, loaded), "loaded %s", state.CanonicalString(loaded))
		})
	}
}

func TestMiddleware_CustomCodec(t *testing.T) {
	const prefix = "v1:"
	cfg := Config{
		Key:     "todos",
		Storage: NewMemoryStorage(),
		Serialize: func(o *state.Object) (string, error) {
			data, err := state.MarshalCanonical(o)
			return prefix + string(data), err
		},
		Deserialize: func(s string) (*state.Object, error) {
			if !strings.HasPrefix(s, prefix) {
				return nil, errors.New("missing version prefix")
			}
			return state.DecodeObject([]byte(strings.TrimPrefix(s, prefix)))
		},
	}

	final := dispatchAll(t, func(*testing.T) store.Option {
		return store.WithMiddleware(Middleware(cfg))
	}, "one")

	raw, ok, err := cfg.Storage.GetItem("todos")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(raw, prefix))

	loaded, ok := Load(cfg)
	require.True(t, ok)
	assert.True(t, state.Equal(final, loaded))
}

type failingStorage struct {
	err error
}

func (f failingStorage) GetItem(string) (string, bool, error) { return "", false, f.err }
func (f failingStorage) SetItem(string, string) error        { return f.err }

func TestMiddleware_StorageFailureIsLogged(t *testing.T) {
	var logs bytes.Buffer
	cfg := Config{
		Key:     "todos",
		Storage: failingStorage{err: errors.New("disk full")},
		Logger:  slog.New(slog.NewTextHandler(&logs, nil)),
	}

	final := dispatchAll(t, func(*testing.T) store.Option {
		return store.WithMiddleware(Middleware(cfg))
	}, "still works")

	v, _ := final.Get("todos")
	assert.Len(t, v.(state.Array), 1, "transition is not rolled back")
	assert.Contains(t, logs.String(), "failed to persist state")
	assert.Contains(t, logs.String(), "disk full")

	_, ok := Load(cfg)
	assert.False(t, ok)
	assert.Contains(t, logs.String(), "failed to load persisted state")
}

func TestLoad_MissingAndCorrupt(t *testing.T) {
	storage := NewMemoryStorage()
	quiet := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	_, ok := Load(Config{Key: "absent", Storage: storage, Logger: quiet})
	assert.False(t, ok)

	require.NoError(t, storage.SetItem("bad", "{not json"))
	_, ok = Load(Config{Key: "bad", Storage: storage, Logger: quiet})
	assert.False(t, ok)

	require.NoError(t, storage.SetItem("float", `{"x":1.5}`))
	_, ok = Load(Config{Key: "float", Storage: storage, Logger: quiet})
	assert.False(t, ok)

	assert.Equal(t, []string{"bad", "float"}, storage.Keys())
}

func TestCodecByName(t *testing.T) {
	for _, name := range []string{"", "json", "canonical", "yaml"} {
		_, err := CodecByName(name)
		assert.NoError(t, err, name)
	}
	_, err := CodecByName("xml")
	assert.Error(t, err)
}

func TestSQLiteStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	db, err := OpenSQLite(path)
	require.NoError(t, err)

	version, err := db.schemaVersion()
	require.NoError(t, err)
	assert.Equal(t, currentSchemaVersion, version)

	_, ok, err := db.GetItem("k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, db.SetItem("k", "one"))
	require.NoError(t, db.SetItem("k", "two"))
	v, ok, err := db.GetItem("k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "two", v)

	items, err := db.Items()
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "k", items[0].Key)
	assert.Equal(t, int64(2), items[0].Version)
	assert.Equal(t, 3, items[0].Size)
	require.NoError(t, db.Close())

	// Reopening is idempotent and keeps data.
	db, err = OpenSQLite(path)
	require.NoError(t, err)
	defer db.Close()
	v, ok, err = db.GetItem("k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "two", v)
}

func TestSQLiteStorage_WithStore(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	defer db.Close()

	cfg := Config{Key: "todos", Storage: db}.WithCodec(CanonicalCodec)
	final := dispatchAll(t, func(*testing.T) store.Option {
		return store.WithMiddleware(Middleware(cfg))
	}, "a", "b", "c")

	loaded, ok := Load(cfg)
	require.True(t, ok)
	assert.True(t, state.Equal(final, loaded))

	raw, _, err := db.GetItem("todos")
	require.NoError(t, err)
	assert.Equal(t, state.CanonicalString(final), raw)
}
