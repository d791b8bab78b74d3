// Package cache implements the disk-backed transaction store. It behaves
// like a map from transaction id to transaction, but tracks how many
// records are resident in memory and, once a configured limit is passed,
// spills every partition to disk and starts over. Partitions are reloaded
// lazily, whole files at a time, so the store recalls every transaction
// it has ever been given while keeping its resident footprint bounded.
package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"

	"txledger/internal/observability"
	"txledger/internal/tx"
)

// ErrIO reports a disk read/write or decode failure. Once a store has
// returned it, its contents can no longer be trusted for the run.
var ErrIO = errors.New("transaction store io failure")

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// Config fixes the store geometry. The same values are shared by every
// store instance in the process.
type Config struct {
	// SizeLimit is the resident record count above which the store
	// flushes everything to disk.
	SizeLimit int

	// PartitionWidth is the number of consecutive transaction ids that
	// share one on-disk partition file.
	PartitionWidth uint32
}

// DefaultConfig returns the production geometry.
func DefaultConfig() Config {
	return Config{
		SizeLimit:      1 << 20,
		PartitionWidth: 1 << 16,
	}
}

type partitionKey uint32

func (c Config) keyFor(id tx.TxID) partitionKey {
	return partitionKey(uint32(id) / c.PartitionWidth)
}

// line is one partition: the unit of all disk I/O. A line not yet marked
// loaded may have spilled records on disk that must be read before its
// in-memory view is authoritative.
type line struct {
	loaded  bool
	records map[tx.TxID]tx.Transaction
}

func newLine() *line {
	return &line{records: make(map[tx.TxID]tx.Transaction)}
}

// Cache is a single transaction store instance. It exclusively owns a
// private working directory for its lifetime; Close removes it.
type Cache struct {
	cfg      Config
	dir      string
	lines    map[partitionKey]*line
	resident int

	log     zerolog.Logger
	metrics *observability.Metrics
}

// New creates a store with a fresh private working directory.
func New(cfg Config, log zerolog.Logger, metrics *observability.Metrics) (*Cache, error) {
	if cfg.PartitionWidth == 0 {
		return nil, fmt.Errorf("store config: partition width must be positive")
	}
	if cfg.SizeLimit < 0 {
		return nil, fmt.Errorf("store config: size limit must not be negative")
	}
	dir, err := os.MkdirTemp("", "txcache-"+uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("%w: create working dir: %v", ErrIO, err)
	}
	return &Cache{
		cfg:     cfg,
		dir:     dir,
		lines:   make(map[partitionKey]*line),
		log:     log,
		metrics: metrics,
	}, nil
}

// Close removes the store's working directory and everything spilled
// into it.
func (c *Cache) Close() error {
	if err := os.RemoveAll(c.dir); err != nil {
		return fmt.Errorf("%w: remove working dir: %v", ErrIO, err)
	}
	return nil
}

// Get returns the transaction stored under id, if any.
func (c *Cache) Get(id tx.TxID) (tx.Transaction, bool, error) {
	ln, err := c.ensureLoaded(c.cfg.keyFor(id))
	if err != nil {
		return tx.Transaction{}, false, err
	}
	t, ok := ln.records[id]
	return t, ok, nil
}

// Contains reports whether id is stored.
func (c *Cache) Contains(id tx.TxID) (bool, error) {
	ln, err := c.ensureLoaded(c.cfg.keyFor(id))
	if err != nil {
		return false, err
	}
	_, ok := ln.records[id]
	return ok, nil
}

// Remove deletes and returns the transaction stored under id, if any.
func (c *Cache) Remove(id tx.TxID) (tx.Transaction, bool, error) {
	ln, err := c.ensureLoaded(c.cfg.keyFor(id))
	if err != nil {
		return tx.Transaction{}, false, err
	}
	t, ok := ln.records[id]
	if ok {
		delete(ln.records, id)
		c.resident--
		if c.metrics != nil {
			c.metrics.CacheResident.Sub(1)
		}
	}
	return t, ok, nil
}

// Insert stores t under id and returns any previously stored value.
// It then applies the spill policy: once the resident count exceeds the
// size limit, every partition is written out and memory is dropped.
func (c *Cache) Insert(id tx.TxID, t tx.Transaction) (*tx.Transaction, error) {
	ln, err := c.ensureLoaded(c.cfg.keyFor(id))
	if err != nil {
		return nil, err
	}

	var prev *tx.Transaction
	if old, ok := ln.records[id]; ok {
		prev = &old
	} else {
		c.resident++
		if c.metrics != nil {
			c.metrics.CacheResident.Add(1)
		}
	}
	ln.records[id] = t

	if c.resident > c.cfg.SizeLimit {
		if err := c.spill(); err != nil {
			return nil, err
		}
	}
	return prev, nil
}

// Resident returns the number of records currently held in memory.
func (c *Cache) Resident() int {
	return c.resident
}

// ensureLoaded returns the partition for key, reading its on-disk file
// first if one exists and the partition has not been loaded yet. A
// partition with no file is simply marked loaded empty.
func (c *Cache) ensureLoaded(key partitionKey) (*line, error) {
	ln, ok := c.lines[key]
	if !ok {
		ln = newLine()
		c.lines[key] = ln
	}
	if ln.loaded {
		return ln, nil
	}

	data, err := os.ReadFile(c.path(key))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// Nothing spilled for this partition yet.
	case err != nil:
		return nil, fmt.Errorf("%w: read partition %d: %v", ErrIO, key, err)
	default:
		stored := make(map[tx.TxID]tx.Transaction)
		if err := codec.Unmarshal(data, &stored); err != nil {
			return nil, fmt.Errorf("%w: decode partition %d: %v", ErrIO, key, err)
		}
		for id, t := range stored {
			ln.records[id] = t
		}
		c.resident += len(stored)
		if c.metrics != nil {
			c.metrics.CacheResident.Add(float64(len(stored)))
			c.metrics.CacheLineLoads.Inc()
		}
		c.log.Debug().
			Uint32("partition", uint32(key)).
			Int("records", len(stored)).
			Msg("partition loaded from disk")
	}

	ln.loaded = true
	return ln, nil
}

// spill writes every resident partition to its file, truncate-and-rewrite,
// then drops the whole in-memory map and resets the resident counter.
// The next read of any id, including ones just inserted, reloads from disk.
func (c *Cache) spill() error {
	for key, ln := range c.lines {
		if err := c.writeLine(key, ln); err != nil {
			return err
		}
	}

	c.log.Debug().
		Int("partitions", len(c.lines)).
		Int("records", c.resident).
		Msg("store spilled to disk")

	if c.metrics != nil {
		c.metrics.CacheSpills.Inc()
		c.metrics.CacheResident.Sub(float64(c.resident))
	}

	c.lines = make(map[partitionKey]*line)
	c.resident = 0
	return nil
}

func (c *Cache) writeLine(key partitionKey, ln *line) error {
	data, err := codec.Marshal(ln.records)
	if err != nil {
		return fmt.Errorf("%w: encode partition %d: %v", ErrIO, key, err)
	}
	if err := os.WriteFile(c.path(key), data, 0o644); err != nil {
		return fmt.Errorf("%w: write partition %d: %v", ErrIO, key, err)
	}
	return nil
}

func (c *Cache) path(key partitionKey) string {
	return filepath.Join(c.dir, strconv.FormatUint(uint64(key), 10))
}
