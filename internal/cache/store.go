package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v3"

	"github.com/yndnr/syncmesh-go/internal/telemetry/logger"
	"github.com/yndnr/syncmesh-go/internal/telemetry/metric"
)

// ErrMiss reports that no usable entry exists for the requested key.
var ErrMiss = errors.New("cache: entry not found")

const (
	// DefaultGCInterval is the value log garbage collection period.
	DefaultGCInterval = 10 * time.Minute

	// gcDiscardRatio is the rewrite threshold passed to Badger's value
	// log GC.
	gcDiscardRatio = 0.5

	keyPrefix = "dt/"
)

// Config holds cache construction parameters.
type Config struct {
	// Dir is the database directory. Required.
	Dir string

	// TTL bounds entry lifetime. Zero keeps entries until overwritten
	// or evicted.
	TTL time.Duration

	// Encryption enables at-rest encryption when a passphrase is set.
	Encryption EncryptionConfig

	// GCInterval is the value log GC period. Zero means DefaultGCInterval.
	GCInterval time.Duration

	// Logger receives cache diagnostics. Nil means the process default.
	Logger logger.Logger

	// Metrics receives hit, miss, and GC instrumentation. Nil disables it.
	Metrics *metric.Registry
}

// Entry is one cached snapshot.
type Entry struct {
	Type    string    `json:"type"`
	Value   any       `json:"value"`
	Context string    `json:"context,omitempty"`
	SavedAt time.Time `json:"saved_at"`
}

// Store is a Badger-backed snapshot cache.
//
// It is safe for concurrent use.
type Store struct {
	db      *badger.DB
	box     *secretBox
	ttl     time.Duration
	log     logger.Logger
	metrics *metric.Registry

	stopCh chan struct{}
	doneCh chan struct{}
}

// Open creates or opens the cache database under cfg.Dir.
func Open(cfg Config) (*Store, error) {
	if cfg.Dir == "" {
		return nil, errors.New("cache: dir is required")
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Default()
	}

	// The directory must exist before the salt can be written.
	if err := os.MkdirAll(cfg.Dir, 0o700); err != nil {
		return nil, fmt.Errorf("cache: create dir: %w", err)
	}

	box, err := newSecretBox(cfg.Encryption, cfg.Dir)
	if err != nil {
		return nil, err
	}

	opts := badger.DefaultOptions(cfg.Dir)
	opts.Logger = &badgerLogger{log: log}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("cache: open db: %w", err)
	}

	interval := cfg.GCInterval
	if interval <= 0 {
		interval = DefaultGCInterval
	}

	s := &Store{
		db:      db,
		box:     box,
		ttl:     cfg.TTL,
		log:     log,
		metrics: cfg.Metrics,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	go s.gcLoop(interval)

	log.Info("snapshot cache opened",
		"dir", cfg.Dir,
		"ttl", cfg.TTL,
		"encrypted", box != nil)

	return s, nil
}

// Put stores a snapshot entry, stamping its save time.
func (s *Store) Put(bucketType, bucket, key string, e Entry) error {
	e.SavedAt = time.Now().UTC()

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("cache: encode entry: %w", err)
	}

	k := storageKey(bucketType, bucket, key)
	if s.box != nil {
		data, err = s.box.seal(data, k)
		if err != nil {
			return fmt.Errorf("cache: seal entry: %w", err)
		}
	}

	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(k, data)
		if s.ttl > 0 {
			entry = entry.WithTTL(s.ttl)
		}
		return txn.SetEntry(entry)
	})
}

// Get returns the cached entry for a datatype address, or ErrMiss. An
// entry that cannot be decrypted or decoded is evicted and reported as
// a miss.
func (s *Store) Get(bucketType, bucket, key string) (*Entry, error) {
	k := storageKey(bucketType, bucket, key)

	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(k)
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			s.metrics.IncCacheMiss()
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("cache: read entry: %w", err)
	}

	if s.box != nil {
		raw, err = s.box.open(raw, k)
		if err != nil {
			return nil, s.evictUnreadable(k, err)
		}
	}

	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, s.evictUnreadable(k, err)
	}

	s.metrics.IncCacheHit()
	return &e, nil
}

// Evict removes one entry. Evicting an absent entry is not an error.
func (s *Store) Evict(bucketType, bucket, key string) error {
	k := storageKey(bucketType, bucket, key)
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(k)
	})
}

// Close stops the GC loop and closes the database.
func (s *Store) Close() error {
	close(s.stopCh)
	<-s.doneCh

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("cache: close db: %w", err)
	}
	s.log.Info("snapshot cache closed")
	return nil
}

// evictUnreadable drops a corrupt or undecryptable entry and reports a
// miss.
func (s *Store) evictUnreadable(k []byte, cause error) error {
	s.log.Warn("evicting unreadable cache entry", "key", string(k), "error", cause)
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(k)
	})
	if err != nil {
		s.log.Warn("evicting cache entry failed", "key", string(k), "error", err)
	}
	s.metrics.IncCacheMiss()
	return ErrMiss
}

// gcLoop runs periodic value log garbage collection.
func (s *Store) gcLoop(interval time.Duration) {
	defer close(s.doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.gc()
		case <-s.stopCh:
			return
		}
	}
}

// gc compacts the value log until Badger reports nothing left to rewrite.
func (s *Store) gc() {
	for {
		err := s.db.RunValueLogGC(gcDiscardRatio)
		if err != nil {
			if !errors.Is(err, badger.ErrNoRewrite) {
				s.log.Warn("cache value log gc failed", "error", err)
			}
			return
		}
		s.metrics.IncCacheGCRun()
	}
}

// storageKey is the database key for a datatype address.
func storageKey(bucketType, bucket, key string) []byte {
	return []byte(keyPrefix + bucketType + "/" + bucket + "/" + key)
}

// badgerLogger adapts the application logger to Badger's Logger interface.
type badgerLogger struct {
	log logger.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.log.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.log.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.log.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.log.Debug(fmt.Sprintf(format, args...))
}
