package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/microsoft/sweep/internal/models"
)

const entryExt = ".json.zst"

// Cache stores finished sweep outcomes, zstd-compressed, one file per key.
type Cache struct {
	dir string
	mu  sync.Mutex
}

// New creates a new cache instance with the specified directory
func New(dir string) *Cache {
	return &Cache{dir: dir}
}

// Dir returns the cache directory.
func (c *Cache) Dir() string {
	return c.dir
}

// CacheKey generates a unique cache key for a sweep run.
// The key is based on:
// - the data source (path or SQLite query) and its file content
// - label, feature selection and parse recovery policies
// - split ratios and seed
// - scorer, baseline, confidence level
// - every search, including fixed params
//
// Worker count and parallelism are left out: they never change the result.
func CacheKey(spec *models.SweepSpec) (string, error) {
	h := sha256.New()

	if err := writeString(h, spec.Name); err != nil {
		return "", err
	}

	dataJSON, err := json.Marshal(spec.Data)
	if err != nil {
		return "", fmt.Errorf("marshaling data config: %w", err)
	}
	if _, err := h.Write(dataJSON); err != nil {
		return "", err
	}

	source := spec.Data.Path
	if spec.Data.SQLite != nil {
		source = spec.Data.SQLite.Path
	}
	if err := hashFile(h, source); err != nil {
		return "", fmt.Errorf("hashing data source %s: %w", source, err)
	}

	splitJSON, err := json.Marshal(spec.Split)
	if err != nil {
		return "", fmt.Errorf("marshaling split: %w", err)
	}
	if _, err := h.Write(splitJSON); err != nil {
		return "", err
	}

	if err := writeString(h, spec.Config.Scorer); err != nil {
		return "", err
	}
	if err := writeString(h, spec.Config.Baseline); err != nil {
		return "", err
	}
	if _, err := fmt.Fprintf(h, "%g\x00%d\x00", spec.Config.ConfidenceLevel, spec.Config.Leaderboard); err != nil {
		return "", err
	}

	for i := range spec.Searches {
		s := &spec.Searches[i]
		searchJSON, err := json.Marshal(s)
		if err != nil {
			return "", fmt.Errorf("marshaling search %s: %w", s.Label(), err)
		}
		if _, err := h.Write(searchJSON); err != nil {
			return "", err
		}
		fixed, err := s.FixedParams()
		if err != nil {
			return "", err
		}
		for _, p := range fixed {
			if _, err := fmt.Fprintf(h, "%s=%v\x00", p.Name, p.Value); err != nil {
				return "", err
			}
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Get retrieves a cached outcome if it exists
func (c *Cache) Get(key string) (*models.SweepOutcome, bool) {
	if c.dir == "" {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	compressed, err := os.ReadFile(c.cachePath(key))
	if err != nil {
		// Cache miss
		return nil, false
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, false
	}
	defer dec.Close()

	data, err := dec.DecodeAll(compressed, nil)
	if err != nil {
		// Corrupt cache entry, treat as miss
		return nil, false
	}

	var outcome models.SweepOutcome
	if err := json.Unmarshal(data, &outcome); err != nil {
		return nil, false
	}

	return &outcome, true
}

// Put stores an outcome in the cache
func (c *Cache) Put(key string, outcome *models.SweepOutcome) error {
	if c.dir == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	data, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("marshaling outcome: %w", err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return fmt.Errorf("creating zstd encoder: %w", err)
	}
	compressed := enc.EncodeAll(data, nil)
	if err := enc.Close(); err != nil {
		return fmt.Errorf("closing zstd encoder: %w", err)
	}

	if err := os.WriteFile(c.cachePath(key), compressed, 0644); err != nil {
		return fmt.Errorf("writing cache file: %w", err)
	}

	return nil
}

// Clear removes all cached results
func (c *Cache) Clear() error {
	if c.dir == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := os.Stat(c.dir); os.IsNotExist(err) {
		return nil
	}

	// Safety check: only remove a directory that holds nothing but cache entries
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("reading cache directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			return fmt.Errorf("cache directory contains subdirectories - refusing to delete for safety")
		}
		if !strings.HasSuffix(entry.Name(), entryExt) {
			return fmt.Errorf("cache directory contains non-cache files - refusing to delete for safety")
		}
	}

	return os.RemoveAll(c.dir)
}

// cachePath returns the file path for a cache key
func (c *Cache) cachePath(key string) string {
	return filepath.Join(c.dir, key+entryExt)
}

func writeString(w io.Writer, s string) error {
	// Write string with null byte delimiter to prevent hash collisions
	_, err := w.Write([]byte(s + "\x00"))
	return err
}

func hashFile(h io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck

	if _, err := io.Copy(h, f); err != nil {
		return err
	}

	return nil
}
