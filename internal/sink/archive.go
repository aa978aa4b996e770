// Sensorflow - Multi-axis Sensor Telemetry Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorflow

package sink

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"

	"github.com/tomtom215/sensorflow/internal/logging"
	"github.com/tomtom215/sensorflow/internal/metrics"
	"github.com/tomtom215/sensorflow/internal/models"
)

// ErrBatchNotFound is returned by Get for unknown sequence numbers.
var ErrBatchNotFound = errors.New("batch not found")

const archivePrefix = "batch:"

// ArchiveConfig configures the Badger archive.
type ArchiveConfig struct {
	// Path is the Badger directory. Empty keeps the archive in memory.
	Path       string
	SyncWrites bool
	// TTL expires archived batches; zero keeps them forever.
	TTL          time.Duration
	GCRatio      float64
	CloseTimeout time.Duration
}

// ArchiveSink keeps recent batches addressable by sequence number so the API
// can replay them.
type ArchiveSink struct {
	db  *badger.DB
	cfg ArchiveConfig

	enc *zstd.Encoder
	dec *zstd.Decoder

	mu     sync.RWMutex
	closed bool
}

// OpenArchive opens the Badger store.
func OpenArchive(cfg ArchiveConfig) (*ArchiveSink, error) {
	if cfg.GCRatio <= 0 || cfg.GCRatio >= 1 {
		cfg.GCRatio = 0.5
	}
	if cfg.CloseTimeout <= 0 {
		cfg.CloseTimeout = 30 * time.Second
	}

	opts := badger.DefaultOptions(cfg.Path)
	if cfg.Path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.SyncWrites = cfg.SyncWrites
	// Values are zstd-compressed already.
	opts.Compression = 0
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		_ = enc.Close()
		_ = db.Close()
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	logging.Info().
		Str("path", displayPath(cfg.Path)).
		Bool("sync_writes", cfg.SyncWrites).
		Dur("ttl", cfg.TTL).
		Msg("Archive opened")

	return &ArchiveSink{db: db, cfg: cfg, enc: enc, dec: dec}, nil
}

func archiveKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", archivePrefix, seq))
}

func seqFromKey(key []byte) (uint64, error) {
	return strconv.ParseUint(string(key[len(archivePrefix):]), 10, 64)
}

// Write stores batch under its sequence number.
func (a *ArchiveSink) Write(ctx context.Context, batch models.Batch) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("marshal batch %d: %w", batch.Seq(), err)
	}
	value := a.enc.EncodeAll(raw, make([]byte, 0, len(raw)/2))

	return a.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(archiveKey(batch.Seq()), value)
		if a.cfg.TTL > 0 {
			entry = entry.WithTTL(a.cfg.TTL)
		}
		return txn.SetEntry(entry)
	})
}

func (a *ArchiveSink) decode(value []byte) (models.Batch, error) {
	raw, err := a.dec.DecodeAll(value, nil)
	if err != nil {
		return models.Batch{}, fmt.Errorf("zstd decompress: %w", err)
	}
	var b models.Batch
	if err := json.Unmarshal(raw, &b); err != nil {
		return models.Batch{}, fmt.Errorf("unmarshal batch: %w", err)
	}
	return b, nil
}

// Get returns the archived batch with the given sequence number.
func (a *ArchiveSink) Get(seq uint64) (models.Batch, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return models.Batch{}, ErrClosed
	}

	var batch models.Batch
	err := a.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(archiveKey(seq))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: seq %d", ErrBatchNotFound, seq)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			b, err := a.decode(val)
			batch = b
			return err
		})
	})
	return batch, err
}

// Range returns up to limit batches with sequence >= from, in order.
func (a *ArchiveSink) Range(from uint64, limit int) ([]models.Batch, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return nil, ErrClosed
	}
	if limit <= 0 {
		return nil, nil
	}

	var out []models.Batch
	err := a.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(archivePrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(archiveKey(from)); it.ValidForPrefix(opts.Prefix) && len(out) < limit; it.Next() {
			err := it.Item().Value(func(val []byte) error {
				b, err := a.decode(val)
				if err != nil {
					return err
				}
				out = append(out, b)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return out, err
}

// LatestSeq returns the highest archived sequence number, or 0 when empty.
func (a *ArchiveSink) LatestSeq() (uint64, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return 0, ErrClosed
	}

	var seq uint64
	err := a.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.PrefetchValues = false
		opts.Prefix = []byte(archivePrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		it.Seek(archiveKey(^uint64(0)))
		if !it.ValidForPrefix(opts.Prefix) {
			return nil
		}
		s, err := seqFromKey(it.Item().Key())
		seq = s
		return err
	})
	return seq, err
}

// RunGC reclaims value-log space until Badger reports nothing to rewrite.
// It returns whether anything was rewritten.
func (a *ArchiveSink) RunGC() (bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return false, ErrClosed
	}
	if a.cfg.Path == "" {
		// In-memory stores have no value log.
		return false, nil
	}

	rewritten := false
	for {
		err := a.db.RunValueLogGC(a.cfg.GCRatio)
		if errors.Is(err, badger.ErrNoRewrite) {
			return rewritten, nil
		}
		if err != nil {
			return rewritten, fmt.Errorf("run value log gc: %w", err)
		}
		rewritten = true
	}
}

// Close flushes and closes the store, giving up after CloseTimeout.
func (a *ArchiveSink) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		done <- a.db.Close()
	}()

	a.dec.Close()
	encErr := a.enc.Close()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("close badger: %w", err)
		}
		return encErr
	case <-time.After(a.cfg.CloseTimeout):
		return fmt.Errorf("close badger: timed out after %s", a.cfg.CloseTimeout)
	}
}

func (a *ArchiveSink) Name() string {
	return "archive"
}

// Compactor runs archive GC periodically. It implements suture.Service.
type Compactor struct {
	archive  *ArchiveSink
	interval time.Duration
}

// NewCompactor returns a compactor for archive running every interval.
func NewCompactor(archive *ArchiveSink, interval time.Duration) *Compactor {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Compactor{archive: archive, interval: interval}
}

// Serve runs GC on every tick until ctx ends.
func (c *Compactor) Serve(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.runOnce()
		}
	}
}

func (c *Compactor) runOnce() {
	rewritten, err := c.archive.RunGC()
	switch {
	case errors.Is(err, ErrClosed):
		return
	case err != nil:
		metrics.RecordArchiveGC("error")
		logging.Warn().Err(err).Msg("Archive GC failed")
	case rewritten:
		metrics.RecordArchiveGC("rewritten")
		logging.Debug().Msg("Archive GC reclaimed value log space")
	default:
		metrics.RecordArchiveGC("noop")
	}
}

func (c *Compactor) String() string {
	return "archive-compactor"
}
