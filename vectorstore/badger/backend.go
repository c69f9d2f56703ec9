package badger

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
)

// Backend wraps a BadgerDB instance and provides low-level operations.
type Backend struct {
	db     *badger.DB
	logger *slog.Logger
}

// slogAdapter routes badger's printf style logging to slog.
type slogAdapter struct{ *slog.Logger }

var _ badger.Logger = slogAdapter{}

func (a slogAdapter) Errorf(format string, args ...any) { a.Error(fmt.Sprintf(format, args...)) }

func (a slogAdapter) Warningf(format string, args ...any) { a.Warn(fmt.Sprintf(format, args...)) }

// Infof logs at debug: every DropPrefix emits several info lines.
func (a slogAdapter) Infof(format string, args ...any) { a.Debug(fmt.Sprintf(format, args...)) }

func (a slogAdapter) Debugf(format string, args ...any) { a.Debug(fmt.Sprintf(format, args...)) }

// OpenBackend opens a BadgerDB database at the specified path.
// Creates the directory if it doesn't exist.
func OpenBackend(filePath string, inMemory bool, logger *slog.Logger) (*Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var opts badger.Options
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := ensureDir(filePath); err != nil {
			return nil, err
		}
		opts = badger.DefaultOptions(filePath)
	}

	logger = logger.With("component", "badger")
	opts.Logger = slogAdapter{logger}
	// Float vectors barely compress
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Backend{
		db:     db,
		logger: logger,
	}, nil
}

func ensureDir(filePath string) error {
	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(filePath, 0755); err != nil {
			return err
		}
		info, err = os.Stat(filePath)
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", filePath)
	}
	return nil
}

// Close closes the BadgerDB database.
func (b *Backend) Close() error {
	return b.db.Close()
}

// IsClosed returns true if the database is closed.
func (b *Backend) IsClosed() bool {
	return b.db.IsClosed()
}

// WithTx executes a function within a BadgerDB transaction.
// If isWrite is true, creates a read-write transaction that is committed
// when fn succeeds. The transaction is discarded if fn returns an error.
func (b *Backend) WithTx(fn func(tx *badger.Txn) error, isWrite bool) error {
	tx := b.db.NewTransaction(isWrite)
	defer tx.Discard()
	if err := fn(tx); err != nil {
		return err
	}
	if isWrite {
		return tx.Commit()
	}
	return nil
}

// WriteBatch writes every key/value pair in one batch.
func (b *Backend) WriteBatch(keys, values [][]byte) error {
	wb := b.db.NewWriteBatch()
	defer wb.Cancel()
	for i := range keys {
		if err := wb.Set(keys[i], values[i]); err != nil {
			return err
		}
	}
	return wb.Flush()
}

// DropPrefix removes every key starting with prefix.
func (b *Backend) DropPrefix(prefix []byte) error {
	return b.db.DropPrefix(prefix)
}

// ScanKeys visits every key starting with prefix without reading values.
func (b *Backend) ScanKeys(prefix []byte, fn func(key []byte)) error {
	return b.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			fn(iter.Item().Key())
		}
		return nil
	}, false)
}
