package boltdb

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.etcd.io/bbolt"
	berrors "go.etcd.io/bbolt/errors"

	"github.com/XavierGuerrero1989/sistema-impo/internal/client/storage"
)

var (
	// BoltDB bucket names
	bucketAuth        = []byte("auth")
	bucketOperaciones = []byte("operaciones")
	bucketOutbox      = []byte("outbox")
	bucketMeta        = []byte("meta")
)

// openTimeout ограничивает ожидание файловой блокировки BoltDB
const openTimeout = 2 * time.Second

var _ storage.LocalStorage = (*Storage)(nil)

// Storage represents BoltDB storage implementation for client.
//
// Файл открывается на время одной транзакции, поэтому фоновый
// `client run` и команды CLI работают с одной базой одновременно.
// Внутри процесса транзакции сериализуются mu.
type Storage struct {
	path    string
	timeout time.Duration
	mu      sync.Mutex
	closed  bool
}

// New creates a new BoltDB storage instance
// dbPath is the path to the BoltDB database file
func New(ctx context.Context, dbPath string) (*Storage, error) {
	s := &Storage{path: dbPath, timeout: openTimeout}

	if err := s.update(initBuckets); err != nil {
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return s, nil
}

// Close запрещает дальнейшие операции. Файл между транзакциями не удерживается.
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// initBuckets создает необходимые buckets если они не существуют
func initBuckets(tx *bbolt.Tx) error {
	for _, name := range [][]byte{bucketAuth, bucketOperaciones, bucketOutbox, bucketMeta} {
		if _, err := tx.CreateBucketIfNotExists(name); err != nil {
			return fmt.Errorf("failed to create %s bucket: %w", name, err)
		}
	}
	return nil
}

// withDB открывает файл, выполняет fn и сразу освобождает блокировку
func (s *Storage) withDB(readOnly bool, fn func(db *bbolt.DB) error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrStorageClosed
	}

	db, err := bbolt.Open(s.path, 0600, &bbolt.Options{Timeout: s.timeout, ReadOnly: readOnly})
	if err != nil {
		if errors.Is(err, berrors.ErrTimeout) {
			return fmt.Errorf("%w: %w", storage.ErrStorageBusy, err)
		}
		return fmt.Errorf("failed to open boltdb: %w", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close boltdb: %w", cerr)
		}
	}()

	return fn(db)
}

func (s *Storage) view(fn func(tx *bbolt.Tx) error) error {
	return s.withDB(true, func(db *bbolt.DB) error { return db.View(fn) })
}

func (s *Storage) update(fn func(tx *bbolt.Tx) error) error {
	return s.withDB(false, func(db *bbolt.DB) error { return db.Update(fn) })
}

func bucket(tx *bbolt.Tx, name []byte) (*bbolt.Bucket, error) {
	b := tx.Bucket(name)
	if b == nil {
		return nil, fmt.Errorf("%s bucket not found", name)
	}
	return b, nil
}
