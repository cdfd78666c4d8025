package cache

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteCache implements the Cache interface using SQLite for persistence,
// so cached PubMed responses survive server restarts. Entries carry an
// expiry stamp checked on read and a last-access stamp used for LRU pruning
// when the store is full.
type SQLiteCache struct {
	db      *sql.DB
	ttl     time.Duration
	maxSize int
	counters
}

// NewSQLiteCache creates a new SQLite-backed cache at dbPath.
// The database file and table are auto-created if they don't exist.
func NewSQLiteCache(dbPath string, maxSize int, ttl time.Duration) (*SQLiteCache, error) {
	if maxSize <= 0 {
		maxSize = 1000
	}

	// Ensure parent directory exists
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	createTableSQL := `
		CREATE TABLE IF NOT EXISTS cache (
			cache_key TEXT PRIMARY KEY,
			payload BLOB NOT NULL,
			cached_at DATETIME NOT NULL,
			expires_at DATETIME NOT NULL,
			last_access DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_expires_at ON cache(expires_at);
		CREATE INDEX IF NOT EXISTS idx_last_access ON cache(last_access);
	`
	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache table: %w", err)
	}

	return &SQLiteCache{db: db, ttl: ttl, maxSize: maxSize}, nil
}

// Get retrieves data from the cache by key.
// Returns the data and true if found and not expired, otherwise nil and false.
func (c *SQLiteCache) Get(key string) ([]byte, bool) {
	var data []byte
	var expiresAt time.Time

	err := c.db.QueryRow(
		"SELECT payload, expires_at FROM cache WHERE cache_key = ?",
		key,
	).Scan(&data, &expiresAt)

	if err != nil {
		// Not found or backend fault: either way a miss.
		c.misses.Add(1)
		return nil, false
	}

	if time.Now().After(expiresAt) {
		c.db.Exec("DELETE FROM cache WHERE cache_key = ?", key)
		c.misses.Add(1)
		return nil, false
	}

	c.db.Exec("UPDATE cache SET last_access = ? WHERE cache_key = ?", time.Now(), key)
	c.hits.Add(1)
	return data, true
}

// Set stores data in the cache under the given key, pruning expired entries
// and the least-recently-accessed live entries once the store is full.
func (c *SQLiteCache) Set(key string, data []byte) error {
	now := time.Now()

	_, err := c.db.Exec(
		`INSERT OR REPLACE INTO cache (cache_key, payload, cached_at, expires_at, last_access)
		 VALUES (?, ?, ?, ?, ?)`,
		key, data, now, now.Add(c.ttl), now,
	)
	if err != nil {
		return fmt.Errorf("failed to set cache entry: %w", err)
	}
	c.sets.Add(1)

	c.prune(now)
	return nil
}

// prune drops expired rows and then trims the store back to maxSize by
// last-access order. Pruning failures are ignored; the next Set tries again.
func (c *SQLiteCache) prune(now time.Time) {
	c.db.Exec("DELETE FROM cache WHERE expires_at <= ?", now)
	c.db.Exec(
		`DELETE FROM cache WHERE cache_key NOT IN (
			SELECT cache_key FROM cache ORDER BY last_access DESC LIMIT ?
		)`,
		c.maxSize,
	)
}

// Clear removes all entries from the cache. Counters are untouched.
func (c *SQLiteCache) Clear() error {
	_, err := c.db.Exec("DELETE FROM cache")
	if err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

// Stats returns a snapshot of the cache statistics. Size counts live
// (unexpired) entries.
func (c *SQLiteCache) Stats() Stats {
	var size int
	c.db.QueryRow("SELECT COUNT(*) FROM cache WHERE expires_at > ?", time.Now()).Scan(&size)
	return c.snapshot(size, c.maxSize)
}

// Close closes the database connection.
func (c *SQLiteCache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

var _ Cache = (*SQLiteCache)(nil)
