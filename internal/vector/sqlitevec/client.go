// Package sqlitevec provides a persistent sqlite-vec backed embedding cache.
// Phrases in the candidate pool are scored cycle after cycle; caching their
// vectors means only never-seen phrases hit the embedding provider.
package sqlitevec

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/guestradar/guestradar/pkg/models"
)

// Client provides embedding cache operations over a sqlite-vec database.
type Client struct {
	db           *sql.DB
	modelVersion string
	mu           sync.Mutex
}

// Config holds configuration for the client.
type Config struct {
	// Path is the sqlite database file. ":memory:" works for tests.
	Path string
	// ModelVersion tags stored vectors; rows written by a different model
	// are invisible and purged on open.
	ModelVersion string
}

const schema = `
	CREATE TABLE IF NOT EXISTS vectors (
		phrase TEXT PRIMARY KEY,
		embedding BLOB NOT NULL,
		model_version TEXT NOT NULL,
		created_at_epoch INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_vectors_model ON vectors(model_version);
`

// NewClient opens (creating if needed) the embedding cache. Vectors written
// by a different embedding model are purged: mixing models would corrupt
// similarity scores silently.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path required")
	}
	if cfg.ModelVersion == "" {
		return nil, fmt.Errorf("model version required")
	}

	// Register the sqlite-vec extension for vector blob handling.
	sqlite_vec.Auto()

	connStr := cfg.Path
	if cfg.Path != ":memory:" {
		connStr += "?_journal_mode=WAL&_synchronous=NORMAL"
	}

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	c := &Client{db: db, modelVersion: cfg.ModelVersion}

	purged, err := c.purgeStale(context.Background())
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if purged > 0 {
		log.Info().Int64("purged", purged).Str("model", cfg.ModelVersion).
			Msg("Purged embedding cache entries from a different model")
	}

	return c, nil
}

// purgeStale removes vectors written by a different model version.
func (c *Client) purgeStale(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx,
		"DELETE FROM vectors WHERE model_version != ?", c.modelVersion)
	if err != nil {
		return 0, fmt.Errorf("purge stale vectors: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Put stores embeddings for the given phrases. Phrases are keyed by their
// normalized form; existing rows are replaced.
func (c *Client) Put(ctx context.Context, phrases []string, embeddings [][]float32) error {
	if len(phrases) == 0 {
		return nil
	}
	if len(phrases) != len(embeddings) {
		return fmt.Errorf("phrase/embedding count mismatch: %d vs %d", len(phrases), len(embeddings))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insertQuery = `
		INSERT OR REPLACE INTO vectors (phrase, embedding, model_version, created_at_epoch)
		VALUES (?, ?, ?, ?)
	`
	stmt, err := tx.PrepareContext(ctx, insertQuery)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	nowEpoch := time.Now().UnixMilli()
	for i, phrase := range phrases {
		key := models.NormalizePhrase(phrase)
		if key == "" {
			continue
		}

		blob, serr := sqlite_vec.SerializeFloat32(embeddings[i])
		if serr != nil {
			err = fmt.Errorf("serialize embedding for %q: %w", phrase, serr)
			return err
		}

		if _, err = stmt.ExecContext(ctx, key, blob, c.modelVersion, nowEpoch); err != nil {
			err = fmt.Errorf("insert vector for %q: %w", phrase, err)
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	log.Debug().Int("count", len(phrases)).Str("model", c.modelVersion).
		Msg("Stored embeddings in cache")
	return nil
}

// Get fetches cached embeddings for the given phrases, keyed by normalized
// phrase. Missing phrases are simply absent from the result.
func (c *Client) Get(ctx context.Context, phrases []string) (map[string][]float32, error) {
	if len(phrases) == 0 {
		return map[string][]float32{}, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(phrases))
	seen := make(map[string]bool, len(phrases))
	for _, p := range phrases {
		key := models.NormalizePhrase(p)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		keys = append(keys, key)
	}
	if len(keys) == 0 {
		return map[string][]float32{}, nil
	}

	result := make(map[string][]float32, len(keys))

	// SQLite caps bound parameters; fetch in chunks.
	const chunkSize = 500
	for start := 0; start < len(keys); start += chunkSize {
		end := start + chunkSize
		if end > len(keys) {
			end = len(keys)
		}
		chunk := keys[start:end]

		placeholders := make([]string, len(chunk))
		args := make([]interface{}, 0, len(chunk)+1)
		for i, k := range chunk {
			placeholders[i] = "?"
			args = append(args, k)
		}
		args = append(args, c.modelVersion)

		// #nosec G201 -- Placeholders are "?" strings, values are parameterized via args
		query := fmt.Sprintf(
			"SELECT phrase, embedding FROM vectors WHERE phrase IN (%s) AND model_version = ?",
			strings.Join(placeholders, ","))

		rows, err := c.db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("query vectors: %w", err)
		}

		for rows.Next() {
			var phrase string
			var blob []byte
			if err := rows.Scan(&phrase, &blob); err != nil {
				_ = rows.Close()
				return nil, fmt.Errorf("scan row: %w", err)
			}
			vec, err := deserializeFloat32(blob)
			if err != nil {
				_ = rows.Close()
				return nil, fmt.Errorf("decode embedding for %q: %w", phrase, err)
			}
			result[phrase] = vec
		}
		if err := rows.Err(); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("iterate rows: %w", err)
		}
		_ = rows.Close()
	}

	return result, nil
}

// Count returns the number of cached vectors for the current model.
func (c *Client) Count(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var count int64
	err := c.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM vectors WHERE model_version = ?", c.modelVersion).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count vectors: %w", err)
	}
	return count, nil
}

// ModelVersion returns the model version this cache is bound to.
func (c *Client) ModelVersion() string {
	return c.modelVersion
}

// Close closes the underlying database.
func (c *Client) Close() error {
	return c.db.Close()
}
