package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
)

// Key layout: outbox:{createdAt unix nanos, zero padded}:{id}. Lexical key
// order is delivery order.
const outboxPrefix = "outbox:"

func outboxKey(n Notification) []byte {
	return fmt.Appendf(nil, "%s%020d:%s", outboxPrefix, n.CreatedAt.UnixNano(), n.ID)
}

// Entry is a stored notification and its key.
type Entry struct {
	Key          []byte
	Notification Notification
}

// Outbox is a durable FIFO of undelivered notifications.
type Outbox struct {
	db     *badger.DB
	logger *slog.Logger
}

// OpenOutbox opens or creates the outbox at path.
func OpenOutbox(path string, logger *slog.Logger) (*Outbox, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	opts.SyncWrites = true
	return openOutbox(opts, logger)
}

// OpenInMemoryOutbox opens an outbox that lives only in memory.
func OpenInMemoryOutbox(logger *slog.Logger) (*Outbox, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	return openOutbox(opts, logger)
}

func openOutbox(opts badger.Options, logger *slog.Logger) (*Outbox, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open outbox: %w", err)
	}
	return &Outbox{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (o *Outbox) Close() error {
	return o.db.Close()
}

// Put stores n and returns its key.
func (o *Outbox) Put(ctx context.Context, n Notification) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("encode notification: %w", err)
	}
	key := outboxKey(n)
	err = o.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
	if err != nil {
		return nil, fmt.Errorf("store notification: %w", err)
	}
	return key, nil
}

// Replace overwrites the entry at key, e.g. after a failed attempt.
func (o *Outbox) Replace(key []byte, n Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	return o.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		} else if err != nil {
			return err
		}
		return txn.Set(key, data)
	})
}

// Delete removes the entry at key.
func (o *Outbox) Delete(key []byte) error {
	return o.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

// Pending returns up to limit entries in delivery order. A non-positive limit
// returns all of them.
func (o *Outbox) Pending(ctx context.Context, limit int) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entries []Entry
	prefix := []byte(outboxPrefix)
	err := o.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var n Notification
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &n)
			}); err != nil {
				o.logger.Warn("skipping unreadable outbox entry", "key", string(item.Key()), "error", err)
				continue
			}
			entries = append(entries, Entry{Key: item.KeyCopy(nil), Notification: n})
			if limit > 0 && len(entries) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan outbox: %w", err)
	}
	return entries, nil
}

// Len returns the number of undelivered notifications.
func (o *Outbox) Len(ctx context.Context) (int, error) {
	entries, err := o.Pending(ctx, 0)
	return len(entries), err
}
