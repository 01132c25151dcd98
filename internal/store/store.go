// Package store is the file-backed persistent store for memory records. Each
// record is one JSON file named by its id inside the tenant's directory,
// written atomically through internal/tempfiles.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/memorai/memoraid/internal/model"
	"github.com/memorai/memoraid/internal/tempfiles"
)

const shardCount = 64
const quarantineDir = "quarantine"

// Store persists MemoryRecords as one JSON file per id under dataPath,
// partitioned into per-tenant subdirectories. A sharded lock table
// serializes concurrent writes to the same id without serializing unrelated
// ids.
type Store struct {
	dataPath string
	shards   [shardCount]sync.Mutex
}

// New constructs a store rooted at dataPath. The directory is created if
// missing.
func New(dataPath string) (*Store, error) {
	if err := os.MkdirAll(dataPath, 0o700); err != nil {
		return nil, &model.PersistenceError{Op: model.PersistenceOpWrite, Path: dataPath, Err: err}
	}
	return &Store{dataPath: dataPath}, nil
}

func (s *Store) shard(id string) *sync.Mutex {
	sum := sha256.Sum256([]byte(id))
	idx := int(sum[0]) % shardCount
	return &s.shards[idx]
}

func (s *Store) tenantDir(tenantID string) string {
	return filepath.Join(s.dataPath, safeSegment(tenantID))
}

func (s *Store) recordPath(tenantID, id string) string {
	return filepath.Join(s.tenantDir(tenantID), safeSegment(id)+".json")
}

// safeSegment defends against path traversal via a malicious tenant/id
// segment landing directly in a filesystem path.
func safeSegment(segment string) string {
	return filepath.Base(filepath.Clean("/" + segment))
}

// Put writes r atomically, replacing any existing record with the same id.
func (s *Store) Put(ctx context.Context, r *model.MemoryRecord) error {
	if err := ctx.Err(); err != nil {
		return &model.CancelledError{Op: "store.Put"}
	}
	mu := s.shard(r.ID)
	mu.Lock()
	defer mu.Unlock()

	dir := s.tenantDir(r.TenantID)
	f, err := tempfiles.Create(dir, "record-*.json.tmp")
	if err != nil {
		return &model.PersistenceError{Op: model.PersistenceOpWrite, Path: dir, Err: err}
	}
	tmpPath := f.Name()

	enc := json.NewEncoder(f)
	if err := enc.Encode(r); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return &model.PersistenceError{Op: model.PersistenceOpWrite, Path: tmpPath, Err: err}
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return &model.PersistenceError{Op: model.PersistenceOpWrite, Path: tmpPath, Err: err}
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return &model.PersistenceError{Op: model.PersistenceOpWrite, Path: tmpPath, Err: err}
	}

	finalPath := s.recordPath(r.TenantID, r.ID)
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return &model.PersistenceError{Op: model.PersistenceOpWrite, Path: finalPath, Err: err}
	}
	return nil
}

// Get reads a single record by tenant and id.
func (s *Store) Get(ctx context.Context, tenantID, id string) (*model.MemoryRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, &model.CancelledError{Op: "store.Get"}
	}
	mu := s.shard(id)
	mu.Lock()
	defer mu.Unlock()

	path := s.recordPath(tenantID, id)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &model.NotFoundError{ID: id}
		}
		return nil, &model.PersistenceError{Op: model.PersistenceOpRead, Path: path, Err: err}
	}
	var r model.MemoryRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, &model.PersistenceError{Op: model.PersistenceOpCorrupt, Path: path, Err: err}
	}
	return &r, nil
}

// Delete removes a record's file. Deleting a record that does not exist is
// not an error.
func (s *Store) Delete(ctx context.Context, tenantID, id string) error {
	if err := ctx.Err(); err != nil {
		return &model.CancelledError{Op: "store.Delete"}
	}
	mu := s.shard(id)
	mu.Lock()
	defer mu.Unlock()

	path := s.recordPath(tenantID, id)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return &model.PersistenceError{Op: model.PersistenceOpWrite, Path: path, Err: err}
	}
	return nil
}

// List enumerates the records in filter.TenantID's directory, restricted by
// AgentID/Type when set, ordered by filter.SortBy (most-recent first,
// defaulting to created_at), and capped at filter.Limit when positive.
func (s *Store) List(ctx context.Context, filter model.ListFilter) ([]*model.MemoryRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, &model.CancelledError{Op: "store.List"}
	}

	dir := s.tenantDir(filter.TenantID)
	files, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &model.PersistenceError{Op: model.PersistenceOpRead, Path: dir, Err: err}
	}

	var records []*model.MemoryRecord
	for _, f := range files {
		if f.IsDir() || filepath.Ext(f.Name()) != ".json" {
			continue
		}
		path := filepath.Join(dir, f.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var r model.MemoryRecord
		if err := json.Unmarshal(data, &r); err != nil {
			continue
		}
		if filter.AgentID != "" && r.AgentID != filter.AgentID {
			continue
		}
		if filter.Type != "" && r.Type != filter.Type {
			continue
		}
		records = append(records, &r)
	}

	sort.Slice(records, func(i, j int) bool {
		switch filter.SortBy {
		case model.SortByUpdated:
			return records[i].UpdatedAt.After(records[j].UpdatedAt)
		case model.SortByAccessed:
			return records[i].LastAccessedAt.After(records[j].LastAccessedAt)
		default:
			return records[i].CreatedAt.After(records[j].CreatedAt)
		}
	})

	if filter.Limit > 0 && len(records) > filter.Limit {
		records = records[:filter.Limit]
	}
	return records, nil
}

// LoadAll scans the data path at startup, returning every well-formed record
// found across all tenants. Corrupt or partial files are moved to a
// quarantine/ subdirectory (logged, never silently dropped) and excluded
// from the result.
func (s *Store) LoadAll(ctx context.Context) ([]*model.MemoryRecord, error) {
	entries, err := os.ReadDir(s.dataPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &model.PersistenceError{Op: model.PersistenceOpRead, Path: s.dataPath, Err: err}
	}

	var records []*model.MemoryRecord
	for _, tenantEntry := range entries {
		if !tenantEntry.IsDir() || tenantEntry.Name() == quarantineDir {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, &model.CancelledError{Op: "store.LoadAll"}
		}
		tenantDir := filepath.Join(s.dataPath, tenantEntry.Name())
		files, err := os.ReadDir(tenantDir)
		if err != nil {
			return nil, &model.PersistenceError{Op: model.PersistenceOpRead, Path: tenantDir, Err: err}
		}
		for _, f := range files {
			if f.IsDir() || filepath.Ext(f.Name()) != ".json" {
				continue
			}
			path := filepath.Join(tenantDir, f.Name())
			data, err := os.ReadFile(path)
			if err != nil {
				s.quarantine(path, err)
				continue
			}
			var r model.MemoryRecord
			if err := json.Unmarshal(data, &r); err != nil {
				s.quarantine(path, err)
				continue
			}
			records = append(records, &r)
		}
	}
	return records, nil
}

func (s *Store) quarantine(path string, cause error) {
	qdir := filepath.Join(s.dataPath, quarantineDir)
	if err := os.MkdirAll(qdir, 0o700); err != nil {
		log.Warn("failed to create quarantine directory", "dir", qdir, "err", err)
		return
	}
	dest := filepath.Join(qdir, filepath.Base(path))
	if err := os.Rename(path, dest); err != nil {
		log.Warn("failed to quarantine corrupt record file", "path", path, "err", err, "cause", cause)
		return
	}
	log.Warn("quarantined corrupt or partial record file", "path", path, "quarantined_to", dest, "cause", cause)
}
