package plugin

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	Lt "github.com/maroda/livedemo/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const keyLen = 8 + 1 + 4

var tracer = otel.Tracer("github.com/maroda/livedemo/plugin")

type BadgerOutput struct {
	MU        sync.Mutex
	DB        *badger.DB
	BatchSize int
	Buffer    []*Lt.Update
	seq       atomic.Uint32
}

func NewBadgerOutput(path string, batchSize int) (*BadgerOutput, error) {
	opts := badger.DefaultOptions(path).
		WithCompression(options.ZSTD).
		WithNumVersionsToKeep(1).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		slog.Error("BadgerOutput failed to open database", slog.Any("error", err))
		return nil, fmt.Errorf("database error: %w", err)
	}

	slog.Info("BadgerOutput opened",
		slog.String("path", path),
		slog.Int("batchSize", batchSize))

	return &BadgerOutput{
		DB:        db,
		BatchSize: batchSize,
		Buffer:    make([]*Lt.Update, 0, batchSize),
	}, nil
}

// WriteUpdate queues up a batch of updates,
// when batchsize is reached it writes the batch
func (bo *BadgerOutput) WriteUpdate(u *Lt.Update) error {
	bo.MU.Lock()
	defer bo.MU.Unlock()

	bo.Buffer = append(bo.Buffer, u)
	if len(bo.Buffer) >= bo.BatchSize {
		return bo.flushLocked()
	}
	return nil
}

// WriteBatch performs the key/value creation to be stored
// and actually calls BadgerDB to write the data
func (bo *BadgerOutput) WriteBatch(us []*Lt.Update) error {
	_, span := tracer.Start(context.Background(), "badger.write_batch")
	defer span.End()
	span.SetAttributes(attribute.Int("updates", len(us)))

	wb := bo.DB.NewWriteBatch()
	defer wb.Cancel()

	for _, u := range us {
		k := UpdateKey(u, bo.seq.Add(1))
		v, err := UpdateEncode(u)
		if err != nil {
			return fmt.Errorf("encode error: %w", err)
		}
		if err := wb.Set(k, v); err != nil {
			slog.Error("BadgerOutput failed to set key in batch",
				slog.Any("error", err),
				slog.Int64("updateTime", u.Time))
			span.RecordError(err)
			return fmt.Errorf("write batch error: %w", err)
		}
	}

	if err := wb.Flush(); err != nil {
		slog.Error("BadgerOutput failed to flush batch", slog.Any("error", err))
		span.RecordError(err)
		return fmt.Errorf("batch flush error: %w", err)
	}

	return nil
}

// Flush is the public method that blocks,
// it sends data to WriteBatch and then clears the buffer
func (bo *BadgerOutput) Flush() error {
	bo.MU.Lock()
	defer bo.MU.Unlock()
	return bo.flushLocked()
}

// flushLocked mimics Flush without locking, called by WriteUpdate
func (bo *BadgerOutput) flushLocked() error {
	if len(bo.Buffer) == 0 {
		return nil
	}
	err := bo.WriteBatch(bo.Buffer)
	bo.Buffer = bo.Buffer[:0] // Clear but keep capacity
	return err
}

// Close returns a Flush error but still attempts to close
func (bo *BadgerOutput) Close() error {
	slog.Info("BadgerOutput closing, flushing buffer",
		slog.Int("bufferSize", len(bo.Buffer)))
	flushErr := bo.Flush()
	closeErr := bo.DB.Close()

	if flushErr != nil {
		slog.Error("BadgerOutput failed to flush on close", slog.Any("error", flushErr))
		return fmt.Errorf("flush failed, close may have failed: %w", flushErr)
	}

	if closeErr != nil {
		slog.Error("BadgerOutput failed to close database", slog.Any("error", closeErr))
		return fmt.Errorf("close failed: %w", closeErr)
	}

	slog.Info("BadgerOutput closed successfully")
	return nil
}

func (bo *BadgerOutput) Type() string { return "BadgerDB" }

// UpdateKey creates a composite key: timestamp, kind flags, sequence.
// Several updates can share a millisecond, the sequence keeps them apart.
func UpdateKey(u *Lt.Update, seq uint32) []byte {
	key := make([]byte, keyLen)

	// Using positive BigEndian integer to convert timestamp
	// so keys can be sorted chronologically by BadgerDB
	binary.BigEndian.PutUint64(key[0:8], uint64(u.Time))

	var flags byte
	if u.Reset {
		flags |= 1
	}
	if u.Label {
		flags |= 2
	}
	if u.Pred {
		flags |= 4
	}
	key[8] = flags

	binary.BigEndian.PutUint32(key[9:13], seq)
	return key
}

// UpdateEncode serializes the update for data storage
func UpdateEncode(u *Lt.Update) ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(u); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UpdateDecode deserializes the update data
func UpdateDecode(data []byte) (*Lt.Update, error) {
	var u Lt.Update
	dec := gob.NewDecoder(bytes.NewBuffer(data))
	err := dec.Decode(&u)
	return &u, err
}

// QueryRange retrieves updates strictly between start and end, oldest first
func (bo *BadgerOutput) QueryRange(start, end time.Time) ([]*Lt.Update, error) {
	var updates []*Lt.Update

	seek := make([]byte, 8)
	if ms := start.UnixMilli(); ms > 0 {
		binary.BigEndian.PutUint64(seek, uint64(ms))
	}

	// db.View() callback
	// BadgerDB provides a transaction in which to get item.Value()
	err := bo.DB.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(seek); it.Valid(); it.Next() {
			item := it.Item()
			if k := item.Key(); len(k) >= 8 && int64(binary.BigEndian.Uint64(k[0:8])) >= end.UnixMilli() {
				break
			}

			// item.Value() callback
			// BadgerDB passes bytes to the anon func
			err := item.Value(func(val []byte) error {
				u, err := UpdateDecode(val)
				if err != nil {
					slog.Error("BadgerOutput failed to decode update", slog.Any("error", err))
					return fmt.Errorf("update decode error: %w", err)
				}
				if inRange(u, start, end) {
					updates = append(updates, u)
				}
				return nil
			})
			if err != nil {
				slog.Error("BadgerOutput callback failure", slog.Any("error", err))
				return fmt.Errorf("item data error: %w", err)
			}
		}
		return nil
	})

	slog.Debug("BadgerOutput QueryRange successful", slog.Int("count", len(updates)))

	return updates, err
}
