// Package store provides the durable, deduplicated, TTL-aware persistence
// layer for memory items. The whole deployment is a single JSON document;
// every save is atomic (temp file + rename) with a pre-write backup restored
// on failure so readers never observe a torn file. A short ristretto read
// cache absorbs bursty reads.
//
// Concurrency: the store assumes a single writer process. In-process calls
// are serialized by a mutex; concurrent upserts to the same dedup key
// resolve last-write-wins.
package store

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/memoweave/memoweave/core"
	"github.com/memoweave/memoweave/logging"
)

// SchemaVersion is bumped when the on-disk document layout changes.
const SchemaVersion = 1

const docCacheKey = "memories-doc"

// document is the persisted top-level JSON structure.
type document struct {
	Version   int                `json:"version"`
	LastSweep time.Time          `json:"last_sweep"`
	Memories  []*core.MemoryItem `json:"memories"`
}

// UpsertInput carries the fields a caller may set when persisting a fact.
// ID and timestamps are always system-generated.
type UpsertInput struct {
	Person     string
	Type       core.FactType
	Key        string
	Value      string
	Confidence float64
	TTL        string
	Source     string
	Tags       []string
	Metadata   map[string]string
}

// Options configure a FileStore.
type Options struct {
	// CacheTTL bounds how stale a cached read may be. The cache is a
	// staleness tolerance for bursty calls, not a consistency guarantee.
	CacheTTL time.Duration
	Logger   logging.Logger
	// Clock is injectable for TTL tests.
	Clock func() time.Time
}

// FileStore is the JSON-document-backed MemoryItem store.
type FileStore struct {
	path   string
	mu     sync.Mutex
	cache  *ristretto.Cache
	opts   Options
	logger logging.Logger
}

// NewFileStore opens (or bootstraps) the store at path. A missing file is
// not an error; an unreadable or corrupt file degrades to an empty store
// after logging, per the never-terminate storage policy.
func NewFileStore(path string, optFns ...func(o *Options)) (*FileStore, error) {
	opts := Options{CacheTTL: 3 * time.Second, Logger: logging.NoOpLogger{}, Clock: time.Now}
	for _, fn := range optFns {
		fn(&opts)
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1 << 10,
		MaxCost:     1 << 6,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("init read cache: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, core.NewStorageError("load", path, err)
	}

	return &FileStore{path: path, cache: cache, opts: opts, logger: opts.Logger}, nil
}

// Close releases the read cache.
func (s *FileStore) Close() { s.cache.Close() }

// load returns the current document, served from the read cache when fresh.
// Callers must hold s.mu.
func (s *FileStore) load() *document {
	if v, ok := s.cache.Get(docCacheKey); ok {
		if doc, ok := v.(*document); ok {
			return doc
		}
	}
	doc := s.readDisk()
	s.cache.SetWithTTL(docCacheKey, doc, 1, s.opts.CacheTTL)
	s.cache.Wait()
	return doc
}

// readDisk loads the JSON document, bootstrapping an empty one on any
// failure. Load errors are logged, never surfaced.
func (s *FileStore) readDisk() *document {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("store load failed, bootstrapping empty", "path", s.path, "error", err.Error())
		}
		return &document{Version: SchemaVersion}
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		s.logger.Error("store document corrupt, bootstrapping empty", "path", s.path, "error", err.Error())
		return &document{Version: SchemaVersion}
	}
	if doc.Version == 0 {
		doc.Version = SchemaVersion
	}
	return &doc
}

// save writes the document atomically: marshal, back up the current file,
// write a temp file in the same directory, rename over the target. On
// failure the backup is restored and the in-memory document stays
// authoritative. Callers must hold s.mu.
func (s *FileStore) save(doc *document) error {
	start := time.Now()
	doc.Version = SchemaVersion

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return core.NewStorageError("save", s.path, err)
	}

	backup := s.path + ".bak"
	hadPrevious := false
	if prev, err := os.ReadFile(s.path); err == nil {
		hadPrevious = true
		if err := os.WriteFile(backup, prev, 0o644); err != nil {
			s.logger.Warn("store backup write failed", "path", backup, "error", err.Error())
		}
	}

	err = s.writeAtomic(data)
	if err != nil && hadPrevious {
		if restoreErr := s.restoreBackup(backup); restoreErr != nil {
			s.logger.Error("store backup restore failed", "path", backup, "error", restoreErr.Error())
		}
	}

	// cache follows the in-memory document even when the disk write failed:
	// the store degrades to memory-only rather than terminating the host
	s.cache.SetWithTTL(docCacheKey, doc, 1, s.opts.CacheTTL)
	s.cache.Wait()

	if ml, ok := s.logger.(*logging.MemoryLogger); ok {
		ml.LogStoreSave(s.path, len(doc.Memories), time.Since(start), err)
	} else if err != nil {
		s.logger.Error("store save failed", "path", s.path, "error", err.Error())
	}
	if err != nil {
		return core.NewStorageError("save", s.path, err)
	}
	return nil
}

func (s *FileStore) writeAtomic(data []byte) error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".memories-*.json")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, s.path)
}

func (s *FileStore) restoreBackup(backup string) error {
	data, err := os.ReadFile(backup)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o644)
}

// active reports whether the item is unexpired at now. TTL parse failures
// fail open: the item is treated as permanent.
func active(item *core.MemoryItem, now time.Time) bool {
	if item.TTL == "" {
		return true
	}
	d, err := ParseISODuration(item.TTL)
	if err != nil {
		return true
	}
	return item.CreatedAt.Add(d).After(now)
}

// ListByUser returns the user's active (non-expired) items, newest-updated
// first. Returned items are copies; mutating them does not affect the store.
func (s *FileStore) ListByUser(userID string) ([]*core.MemoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load()
	now := s.opts.Clock()
	var out []*core.MemoryItem
	for _, item := range doc.Memories {
		if item.UserID != userID || !active(item, now) {
			continue
		}
		cp := *item
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

// Get returns a copy of one active item by id, or nil when absent.
func (s *FileStore) Get(userID, id string) (*core.MemoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load()
	now := s.opts.Clock()
	for _, item := range doc.Memories {
		if item.UserID == userID && item.ID == id && active(item, now) {
			cp := *item
			return &cp, nil
		}
	}
	return nil, nil
}

// Upsert locates an existing item by dedup key. If found and value or
// confidence differ, the item is mutated in place (id preserved, updatedAt
// bumped, incoming tags and metadata keys merged); identical input leaves
// the store byte-for-byte unchanged. Otherwise a new item with fresh id and
// timestamps is inserted.
func (s *FileStore) Upsert(userID string, input UpsertInput) (*core.MemoryItem, error) {
	if !input.Type.Valid() {
		return nil, core.NewValidationError("input.type", fmt.Sprintf("unknown fact type %q", input.Type), nil)
	}
	if input.Key == "" {
		return nil, core.NewValidationError("input.key", "must not be empty", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load()
	now := s.opts.Clock().UTC()
	dedup := core.DedupKey(userID, input.Type, input.Key, input.Person)

	for _, item := range doc.Memories {
		if item.DedupKey() != dedup || !active(item, now) {
			continue
		}
		if item.Value == input.Value && item.Confidence == input.Confidence {
			cp := *item
			return &cp, nil // idempotent: no write, updatedAt untouched
		}
		item.Value = input.Value
		item.Confidence = input.Confidence
		if input.Source != "" {
			item.Source = input.Source
		}
		if len(input.Tags) > 0 {
			item.Tags = unionStrings(item.Tags, input.Tags)
		}
		if len(input.Metadata) > 0 {
			if item.Metadata == nil {
				item.Metadata = map[string]string{}
			}
			for k, v := range input.Metadata {
				item.Metadata[k] = v
			}
		}
		item.UpdatedAt = now
		if err := s.save(doc); err != nil {
			return nil, err
		}
		cp := *item
		return &cp, nil
	}

	item := &core.MemoryItem{
		ID:         core.NewItemID(),
		UserID:     userID,
		Person:     input.Person,
		Type:       input.Type,
		Key:        input.Key,
		Value:      input.Value,
		Confidence: input.Confidence,
		TTL:        input.TTL,
		Source:     input.Source,
		Tags:       input.Tags,
		Metadata:   input.Metadata,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	doc.Memories = append(doc.Memories, item)
	if err := s.save(doc); err != nil {
		return nil, err
	}
	cp := *item
	return &cp, nil
}

// Remove deletes an item by id. Removing an unknown id is a no-op.
func (s *FileStore) Remove(userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load()
	kept := doc.Memories[:0]
	removed := false
	for _, item := range doc.Memories {
		if item.UserID == userID && item.ID == id {
			removed = true
			continue
		}
		kept = append(kept, item)
	}
	if !removed {
		return nil
	}
	doc.Memories = kept
	return s.save(doc)
}

// ExpireSweep deletes items whose TTL, added to createdAt, is in the past,
// and records the sweep time. Returns the number of items removed.
func (s *FileStore) ExpireSweep() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load()
	now := s.opts.Clock()
	kept := doc.Memories[:0]
	removed := 0
	for _, item := range doc.Memories {
		if active(item, now) {
			kept = append(kept, item)
			continue
		}
		removed++
	}
	doc.Memories = kept
	doc.LastSweep = now.UTC()
	if err := s.save(doc); err != nil {
		return removed, err
	}
	return removed, nil
}

// Count returns the total number of items, expired ones included.
func (s *FileStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.load().Memories)
}

// Export writes the full document as indented JSON.
func (s *FileStore) Export(w io.Writer) error {
	s.mu.Lock()
	doc := s.load()
	s.mu.Unlock()

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return core.NewStorageError("export", s.path, err)
	}
	return nil
}

// Import merges items from an exported document. Incoming items win on
// dedup key collision when they are newer.
func (s *FileStore) Import(r io.Reader) (int, error) {
	var in document
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return 0, core.NewStorageError("import", s.path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load()
	byDedup := make(map[string]*core.MemoryItem, len(doc.Memories))
	for _, item := range doc.Memories {
		byDedup[item.DedupKey()] = item
	}

	merged := 0
	for _, incoming := range in.Memories {
		existing, ok := byDedup[incoming.DedupKey()]
		if !ok {
			cp := *incoming
			doc.Memories = append(doc.Memories, &cp)
			byDedup[cp.DedupKey()] = &cp
			merged++
			continue
		}
		if incoming.UpdatedAt.After(existing.UpdatedAt) {
			id, created := existing.ID, existing.CreatedAt
			*existing = *incoming
			existing.ID, existing.CreatedAt = id, created
			merged++
		}
	}
	if err := s.save(doc); err != nil {
		return merged, err
	}
	return merged, nil
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	var out []string
	for _, s := range append(append([]string{}, a...), b...) {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
