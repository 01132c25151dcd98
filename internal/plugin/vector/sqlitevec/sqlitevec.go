// Package sqlitevec implements the in-process vector store contract on top
// of sqlite-vec's vec0 virtual table, via mattn/go-sqlite3.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/memorai/memoraid/internal/config"
	registryvector "github.com/memorai/memoraid/internal/registry/vector"
)

const dbFileName = "vectors.sqlite3"

func init() {
	sqlite_vec.Auto()
	registryvector.Register(registryvector.Plugin{
		Name:   "sqlite-vec",
		Loader: load,
	})
}

func load(ctx context.Context) (registryvector.Store, error) {
	cfg := config.FromContext(ctx)
	if cfg == nil {
		return nil, fmt.Errorf("sqlitevec: missing config in context")
	}
	dataDir := cfg.ResolvedDataPath()
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("sqlitevec: create data dir %q: %w", dataDir, err)
	}
	path := filepath.Join(dataDir, dbFileName)
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlitevec: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	return &Store{db: db}, nil
}

// NewForTest constructs a Store directly from an already-open database
// handle, bypassing the registry loader's config-driven path resolution.
func NewForTest(db *sql.DB) *Store {
	return &Store{db: db}
}

// Store implements registryvector.Store using a single sqlite-vec vec0
// virtual table partitioned by a plain metadata side table. vec0 requires an
// integer rowid, so id<->rowid assignment is owned by the meta table's
// AUTOINCREMENT primary key.
type Store struct {
	mu        sync.Mutex
	db        *sql.DB
	dimension int
}

func (s *Store) Initialize(ctx context.Context, dimension int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dimension = dimension

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS vec_meta (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT UNIQUE NOT NULL,
			tenant_id TEXT NOT NULL,
			agent_id TEXT NOT NULL,
			type TEXT NOT NULL,
			payload TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS vec_meta_tenant_idx ON vec_meta(tenant_id)`,
		fmt.Sprintf(`CREATE VIRTUAL TABLE IF NOT EXISTS vec_items USING vec0(embedding float[%d] distance_metric=cosine)`, dimension),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlitevec: initialize: %w", err)
		}
	}
	return nil
}

func (s *Store) Upsert(ctx context.Context, points []registryvector.Point) error {
	if len(points) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, p := range points {
		if len(p.Embedding) != s.dimension {
			return fmt.Errorf("sqlitevec: embedding dimension %d does not match store dimension %d", len(p.Embedding), s.dimension)
		}
		payload, err := json.Marshal(p.Payload)
		if err != nil {
			return fmt.Errorf("sqlitevec: marshal payload for %s: %w", p.ID, err)
		}
		tenantID, _ := p.Payload["tenant_id"].(string)
		agentID, _ := p.Payload["agent_id"].(string)
		typ, _ := p.Payload["type"].(string)

		var rowID int64
		err = tx.QueryRowContext(ctx, `SELECT rowid FROM vec_meta WHERE id = ?`, p.ID).Scan(&rowID)
		switch {
		case err == sql.ErrNoRows:
			res, err := tx.ExecContext(ctx,
				`INSERT INTO vec_meta (id, tenant_id, agent_id, type, payload) VALUES (?, ?, ?, ?, ?)`,
				p.ID, tenantID, agentID, typ, string(payload))
			if err != nil {
				return fmt.Errorf("sqlitevec: insert meta for %s: %w", p.ID, err)
			}
			rowID, err = res.LastInsertId()
			if err != nil {
				return fmt.Errorf("sqlitevec: last insert id for %s: %w", p.ID, err)
			}
		case err != nil:
			return fmt.Errorf("sqlitevec: lookup rowid for %s: %w", p.ID, err)
		default:
			if _, err := tx.ExecContext(ctx,
				`UPDATE vec_meta SET tenant_id = ?, agent_id = ?, type = ?, payload = ? WHERE rowid = ?`,
				tenantID, agentID, typ, string(payload), rowID); err != nil {
				return fmt.Errorf("sqlitevec: update meta for %s: %w", p.ID, err)
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM vec_items WHERE rowid = ?`, rowID); err != nil {
				return fmt.Errorf("sqlitevec: delete stale vector for %s: %w", p.ID, err)
			}
		}

		blob, err := sqlite_vec.SerializeFloat32(p.Embedding)
		if err != nil {
			return fmt.Errorf("sqlitevec: serialize embedding for %s: %w", p.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO vec_items (rowid, embedding) VALUES (?, ?)`, rowID, blob); err != nil {
			return fmt.Errorf("sqlitevec: insert vector for %s: %w", p.ID, err)
		}
	}
	return tx.Commit()
}

// overfetchFactor widens the KNN candidate pool before filtering by
// tenant/agent/type, since vec0's MATCH query itself does not know about the
// meta table's columns.
const overfetchFactor = 6

func (s *Store) Search(ctx context.Context, embedding []float32, query registryvector.Query) ([]registryvector.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	limit := query.Limit
	if limit <= 0 {
		limit = 10
	}
	blob, err := sqlite_vec.SerializeFloat32(embedding)
	if err != nil {
		return nil, fmt.Errorf("sqlitevec: serialize query embedding: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT v.rowid, v.distance, m.id, m.tenant_id, m.agent_id, m.type, m.payload
		FROM vec_items v
		JOIN vec_meta m ON m.rowid = v.rowid
		WHERE v.embedding MATCH ? AND k = ?
		ORDER BY v.distance ASC`,
		blob, limit*overfetchFactor)
	if err != nil {
		return nil, fmt.Errorf("sqlitevec: search: %w", err)
	}
	defer rows.Close()

	var results []registryvector.Result
	for rows.Next() {
		var rowID int64
		var distance float64
		var id, tenantID, agentID, typ, payloadJSON string
		if err := rows.Scan(&rowID, &distance, &id, &tenantID, &agentID, &typ, &payloadJSON); err != nil {
			return nil, fmt.Errorf("sqlitevec: scan result: %w", err)
		}
		if tenantID != query.TenantID {
			continue
		}
		if query.AgentID != "" && agentID != query.AgentID {
			continue
		}
		if query.Type != "" && typ != string(query.Type) {
			continue
		}
		score := 1 - distance/2 // cosine distance in [0,2] -> similarity in [0,1]
		if score < query.Threshold {
			continue
		}
		var payload map[string]any
		if payloadJSON != "" {
			_ = json.Unmarshal([]byte(payloadJSON), &payload)
		}
		results = append(results, registryvector.Result{ID: id, Score: score, Payload: payload})
		if len(results) >= limit {
			break
		}
	}
	return results, rows.Err()
}

func (s *Store) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, id := range ids {
		var rowID int64
		err := tx.QueryRowContext(ctx, `SELECT rowid FROM vec_meta WHERE id = ?`, id).Scan(&rowID)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return fmt.Errorf("sqlitevec: lookup rowid for %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM vec_items WHERE rowid = ?`, rowID); err != nil {
			return fmt.Errorf("sqlitevec: delete vector for %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM vec_meta WHERE rowid = ?`, rowID); err != nil {
			return fmt.Errorf("sqlitevec: delete meta for %s: %w", id, err)
		}
	}
	return tx.Commit()
}

func (s *Store) Count(ctx context.Context, tenantID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vec_meta WHERE tenant_id = ?`, tenantID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sqlitevec: count: %w", err)
	}
	return count, nil
}

func (s *Store) HealthCheck(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.PingContext(ctx) == nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
