// Package registry persists trained model sets in an embedded BadgerDB
// store. Each set is written under a fresh version key and the per-name
// active pointer is repointed in the same transaction, so readers always see
// either the previous complete set or the new complete set, never a mix.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/nimb-ou/peer-review-system/internal/ml"
)

const (
	modelPrefix  = "model/"
	activePrefix = "active/"
)

// Config holds open options for the registry store.
type Config struct {
	// Path is the directory for the badger files. Ignored when InMemory.
	Path string

	// InMemory disables disk persistence; used by tests.
	InMemory bool

	// SyncWrites forces fsync on publish. Model publishes are rare and must
	// survive a crash, so production keeps this on.
	SyncWrites bool

	Logger *slog.Logger
}

// Registry is a versioned, atomically published model store.
type Registry struct {
	db     *badger.DB
	logger *slog.Logger
}

// Open initialises the badger-backed registry.
func Open(cfg Config) (*Registry, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	opts := badger.DefaultOptions(cfg.Path).
		WithInMemory(cfg.InMemory).
		WithSyncWrites(cfg.SyncWrites).
		WithLogger(&badgerLogger{logger: cfg.Logger})
	if cfg.InMemory {
		opts = opts.WithDir("").WithValueDir("")
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open model registry: %w", err)
	}
	return &Registry{db: db, logger: cfg.Logger}, nil
}

// Close releases the underlying store.
func (r *Registry) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Save persists the set under its version and repoints the active pointer in
// one transaction. A failed save leaves the previous active version serving.
func (r *Registry) Save(ctx context.Context, set *ml.ModelSet) error {
	if err := set.Validate(); err != nil {
		return fmt.Errorf("refuse to publish: %w", err)
	}
	if set.Version == "" {
		return fmt.Errorf("refuse to publish %q: empty version", set.Name)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("encode model set: %w", err)
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(modelKey(set.Name, set.Version), payload); err != nil {
			return err
		}
		return txn.Set(activeKey(set.Name), []byte(set.Version))
	})
	if err != nil {
		return fmt.Errorf("publish model set %q: %w", set.Name, err)
	}

	r.logger.Info("model set published",
		slog.String("name", set.Name),
		slog.String("version", set.Version),
	)
	return nil
}

// Active loads the currently published set for a name. A name with no
// published version returns (nil, nil): absence, not an error.
func (r *Registry) Active(ctx context.Context, name string) (*ml.ModelSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var set *ml.ModelSet
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(activeKey(name))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		version, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}

		modelItem, err := txn.Get(modelKey(name, string(version)))
		if err != nil {
			return fmt.Errorf("active pointer %q dangles: %w", version, err)
		}
		return modelItem.Value(func(payload []byte) error {
			decoded := &ml.ModelSet{}
			if err := json.Unmarshal(payload, decoded); err != nil {
				return fmt.Errorf("decode model set: %w", err)
			}
			set = decoded
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("load model set %q: %w", name, err)
	}
	return set, nil
}

// Versions lists all persisted versions for a name, sorted for stable output.
func (r *Registry) Versions(ctx context.Context, name string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := modelKey(name, "")
	var versions []string
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := string(it.Item().Key())
			versions = append(versions, strings.TrimPrefix(key, string(prefix)))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list versions for %q: %w", name, err)
	}
	sort.Strings(versions)
	return versions, nil
}

func modelKey(name, version string) []byte {
	return []byte(modelPrefix + name + "/" + version)
}

func activeKey(name string) []byte {
	return []byte(activePrefix + name)
}

// badgerLogger adapts slog to badger's logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
