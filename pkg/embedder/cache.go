package embedder

import (
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"

	badger "github.com/dgraph-io/badger/v4"
)

// CacheConfig configures the badger-backed embedding cache.
type CacheConfig struct {
	// Dir is the directory for badger data files. Required unless InMemory is set.
	Dir string `json:"dir" mapstructure:"dir"`
	// InMemory keeps the cache in memory only.
	InMemory bool `json:"in_memory" mapstructure:"in_memory"`
	// Logger receives badger warnings and errors. Nil uses slog.Default().
	Logger *slog.Logger `json:"-" mapstructure:"-"`
}

// CacheStats reports cache effectiveness since the client was created.
type CacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

// CachedClient wraps a Client and persists vectors keyed by model and text.
type CachedClient struct {
	inner  Client
	model  string
	db     *badger.DB
	logger *slog.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// NewCachedClient opens the cache and wraps inner. The cache owns inner and closes it.
func NewCachedClient(inner Client, model string, cfg CacheConfig) (*CachedClient, error) {
	if !cfg.InMemory && cfg.Dir == "" {
		return nil, errors.New("embedding cache dir is required for on-disk mode")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	opts := badger.DefaultOptions(cfg.Dir)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithLogger(badgerLogger{logger: logger})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open embedding cache: %w", err)
	}

	return &CachedClient{
		inner:  inner,
		model:  model,
		db:     db,
		logger: logger,
	}, nil
}

// Embed returns cached vectors where present and computes the rest in one call to
// the wrapped client. Cache read or write failures degrade to recomputation.
func (c *CachedClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	keys := make([][]byte, len(texts))
	for i, t := range texts {
		keys[i] = c.key(t)
	}

	err := c.db.View(func(txn *badger.Txn) error {
		for i, k := range keys {
			item, err := txn.Get(k)
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			raw, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			vec, err := decodeVector(raw)
			if err != nil {
				continue
			}
			out[i] = vec
		}
		return nil
	})
	if err != nil {
		c.logger.Warn("embedding cache read failed", "model", c.model, "error", err)
		clear(out)
	}

	var missing []int
	for i := range out {
		if out[i] == nil {
			missing = append(missing, i)
		}
	}
	c.hits.Add(int64(len(texts) - len(missing)))
	c.misses.Add(int64(len(missing)))
	if len(missing) == 0 {
		return out, nil
	}

	pending := make([]string, len(missing))
	for n, i := range missing {
		pending[n] = texts[i]
	}
	vectors, err := c.inner.Embed(ctx, pending)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(pending) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(pending))
	}

	wb := c.db.NewWriteBatch()
	defer wb.Cancel()
	for n, i := range missing {
		out[i] = vectors[n]
		if err := wb.Set(keys[i], encodeVector(vectors[n])); err != nil {
			c.logger.Warn("embedding cache write failed", "model", c.model, "error", err)
			return out, nil
		}
	}
	if err := wb.Flush(); err != nil {
		c.logger.Warn("embedding cache flush failed", "model", c.model, "error", err)
	}
	return out, nil
}

// EmbedSingle generates an embedding for a single text.
func (c *CachedClient) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("no embeddings returned")
	}
	return vectors[0], nil
}

// Dimensions returns the wrapped client's vector size.
func (c *CachedClient) Dimensions() int {
	return c.inner.Dimensions()
}

// Stats returns hit and miss counters.
func (c *CachedClient) Stats() CacheStats {
	return CacheStats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}

// Close closes the wrapped client and the cache.
func (c *CachedClient) Close() error {
	return errors.Join(c.inner.Close(), c.db.Close())
}

func (c *CachedClient) key(text string) []byte {
	sum := sha1.Sum([]byte(c.model + "|" + text))
	return []byte("emb:" + hex.EncodeToString(sum[:]))
}

// encodeVector stores a uint32 length prefix followed by little-endian float32 values.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4+4*len(v))
	binary.LittleEndian.PutUint32(buf, uint32(len(v)))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4+4*i:], math.Float32bits(x))
	}
	return buf
}

func decodeVector(buf []byte) ([]float32, error) {
	if len(buf) < 4 {
		return nil, errors.New("embedding record too short")
	}
	n := int(binary.LittleEndian.Uint32(buf))
	if len(buf) != 4+4*n {
		return nil, fmt.Errorf("embedding record length mismatch: %d values, %d bytes", n, len(buf))
	}
	v := make([]float32, n)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4+4*i:]))
	}
	return v, nil
}

// badgerLogger routes badger output to slog, dropping info and debug chatter.
type badgerLogger struct {
	logger *slog.Logger
}

func (l badgerLogger) Errorf(f string, v ...interface{}) {
	l.logger.Error(fmt.Sprintf("badger: "+f, v...))
}

func (l badgerLogger) Warningf(f string, v ...interface{}) {
	l.logger.Warn(fmt.Sprintf("badger: "+f, v...))
}

func (badgerLogger) Infof(string, ...interface{})  {}
func (badgerLogger) Debugf(string, ...interface{}) {}
