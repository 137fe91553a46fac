package store

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Mahbub96/BachelorsMealManager-sub000/internal/domain"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	bucketResponses = []byte("responses")
	bucketOutbox    = []byte("outbox")
)

// DefaultTTL applies to cache entries saved without an explicit TTL.
const DefaultTTL = 5 * time.Minute

// Store is the durable local key-value layer backing both the response
// cache and the offline outbox, using BoltDB. Response reads are
// promoted into an in-memory map; outbox entries stay on disk only,
// since they must survive a process kill and their FIFO order comes
// from the bucket's key ordering.
type Store struct {
	db *bolt.DB
	mu sync.RWMutex // Protects memory cache

	// In-memory cache for hot-path response reads (promoted on access)
	cache map[string][]byte

	// memSeq substitutes for bolt's NextSequence in memory-only mode
	memSeq uint64

	defaultTTL time.Duration
}

type cacheEntry struct {
	Payload  json.RawMessage `json:"payload"`
	StoredAt time.Time       `json:"storedAt"`
	TTL      time.Duration   `json:"ttl"`
}

func (e *cacheEntry) expired(now time.Time) bool {
	return now.Sub(e.StoredAt) >= e.TTL
}

// Open opens (or creates) the store under baseDir. A per-server
// subdirectory keyed by a hash of serverURL keeps data from different
// backends apart. An empty baseDir yields a memory-only store.
func Open(baseDir, serverURL string) (*Store, error) {
	if baseDir == "" {
		// Memory-only mode (no persistence)
		return &Store{cache: make(map[string][]byte), defaultTTL: DefaultTTL}, nil
	}

	dir := baseDir
	if serverURL != "" {
		dir = filepath.Join(baseDir, hashServerURL(serverURL))
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dir, "mealmanager.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketResponses, bucketOutbox} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, cache: make(map[string][]byte), defaultTTL: DefaultTTL}, nil
}

func hashServerURL(serverURL string) string {
	normalized := strings.TrimRight(strings.ToLower(serverURL), "/")
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:6])
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SetDefaultTTL overrides the TTL applied when SaveResponse gets ttl<=0.
func (s *Store) SetDefaultTTL(ttl time.Duration) {
	if ttl > 0 {
		s.defaultTTL = ttl
	}
}

// === Response cache ===

// GetResponse returns the cached payload for key if present and fresh.
// Expiry is checked lazily here; an expired entry is dropped on read.
func (s *Store) GetResponse(key string) (json.RawMessage, bool) {
	var entry cacheEntry
	if !s.get(bucketResponses, key, &entry) {
		return nil, false
	}
	if entry.expired(time.Now()) {
		s.delete(bucketResponses, key)
		return nil, false
	}
	return entry.Payload, true
}

// SaveResponse stores payload under key. ttl<=0 selects the default.
func (s *Store) SaveResponse(key string, payload json.RawMessage, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	return s.set(bucketResponses, key, &cacheEntry{
		Payload:  payload,
		StoredAt: time.Now(),
		TTL:      ttl,
	})
}

// InvalidateResponses removes every cached response whose key starts
// with prefix.
func (s *Store) InvalidateResponses(prefix string) {
	s.deletePrefix(bucketResponses, prefix)
}

// ClearResponses wipes the whole response cache.
func (s *Store) ClearResponses() {
	s.mu.Lock()
	cachePrefix := string(bucketResponses) + ":"
	for k := range s.cache {
		if strings.HasPrefix(k, cachePrefix) {
			delete(s.cache, k)
		}
	}
	s.mu.Unlock()

	if s.db == nil {
		return
	}

	s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketResponses)
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// === Offline outbox ===

// AppendRequest assigns req a monotonic sequence number and persists it
// at the tail of the outbox.
func (s *Store) AppendRequest(req *domain.QueuedRequest) error {
	if s.db == nil {
		return s.appendRequestMem(req)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketOutbox)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		req.Seq = seq
		data, err := json.Marshal(req)
		if err != nil {
			return err
		}
		return b.Put(seqKey(seq), data)
	})
}

// UpdateRequest rewrites an existing outbox entry in place.
func (s *Store) UpdateRequest(req *domain.QueuedRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}
	if s.db == nil {
		s.mu.Lock()
		s.cache[memOutboxKey(req.Seq)] = data
		s.mu.Unlock()
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketOutbox).Put(seqKey(req.Seq), data)
	})
}

// RemoveRequest deletes the outbox entry with the given sequence.
func (s *Store) RemoveRequest(seq uint64) error {
	if s.db == nil {
		s.mu.Lock()
		delete(s.cache, memOutboxKey(seq))
		s.mu.Unlock()
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketOutbox).Delete(seqKey(seq))
	})
}

// PendingRequests returns outbox entries with status pending, in
// enqueue order.
func (s *Store) PendingRequests() ([]domain.QueuedRequest, error) {
	all, err := s.AllRequests()
	if err != nil {
		return nil, err
	}
	pending := all[:0]
	for _, req := range all {
		if req.Status == domain.StatusPending {
			pending = append(pending, req)
		}
	}
	return pending, nil
}

// PendingCount reports how many entries are waiting to sync.
func (s *Store) PendingCount() int {
	pending, err := s.PendingRequests()
	if err != nil {
		return 0
	}
	return len(pending)
}

// AllRequests returns every outbox entry, regardless of status, in
// enqueue order.
func (s *Store) AllRequests() ([]domain.QueuedRequest, error) {
	var out []domain.QueuedRequest
	if s.db == nil {
		s.mu.RLock()
		defer s.mu.RUnlock()
		for seq := uint64(1); seq <= s.memSeq; seq++ {
			data, ok := s.cache[memOutboxKey(seq)]
			if !ok {
				continue
			}
			var req domain.QueuedRequest
			if err := json.Unmarshal(data, &req); err != nil {
				return nil, err
			}
			out = append(out, req)
		}
		return out, nil
	}
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketOutbox).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var req domain.QueuedRequest
			if err := json.Unmarshal(v, &req); err != nil {
				return err
			}
			out = append(out, req)
		}
		return nil
	})
	return out, err
}

// seqKey encodes a sequence number big-endian so bolt's byte ordering
// matches enqueue order.
func seqKey(seq uint64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], seq)
	return k[:]
}

// === Memory-only outbox fallback ===

func memOutboxKey(seq uint64) string {
	return string(bucketOutbox) + ":" + hex.EncodeToString(seqKey(seq))
}

func (s *Store) appendRequestMem(req *domain.QueuedRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memSeq++
	req.Seq = s.memSeq
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}
	s.cache[memOutboxKey(req.Seq)] = data
	return nil
}

// === Generic helpers ===

func (s *Store) get(bucket []byte, key string, dest interface{}) bool {
	cacheKey := string(bucket) + ":" + key

	// Check memory cache first
	s.mu.RLock()
	if data, ok := s.cache[cacheKey]; ok {
		s.mu.RUnlock()
		return json.Unmarshal(data, dest) == nil
	}
	s.mu.RUnlock()

	if s.db == nil {
		return false
	}

	// Read from BoltDB
	var data []byte
	s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})

	if data == nil {
		return false
	}

	// Promote to memory cache
	s.mu.Lock()
	s.cache[cacheKey] = data
	s.mu.Unlock()

	return json.Unmarshal(data, dest) == nil
}

func (s *Store) set(bucket []byte, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	cacheKey := string(bucket) + ":" + key

	s.mu.Lock()
	s.cache[cacheKey] = data
	s.mu.Unlock()

	if s.db == nil {
		return nil // Memory-only mode
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		return b.Put([]byte(key), data)
	})
}

func (s *Store) delete(bucket []byte, key string) {
	cacheKey := string(bucket) + ":" + key

	s.mu.Lock()
	delete(s.cache, cacheKey)
	s.mu.Unlock()

	if s.db == nil {
		return
	}

	s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b != nil {
			b.Delete([]byte(key))
		}
		return nil
	})
}

func (s *Store) deletePrefix(bucket []byte, prefix string) {
	s.mu.Lock()
	cachePrefix := string(bucket) + ":" + prefix
	for k := range s.cache {
		if strings.HasPrefix(k, cachePrefix) {
			delete(s.cache, k)
		}
	}
	s.mu.Unlock()

	if s.db == nil {
		return
	}

	// Delete from BoltDB using prefix scan
	s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		c := b.Cursor()
		prefixBytes := []byte(prefix)
		for k, _ := c.Seek(prefixBytes); k != nil && strings.HasPrefix(string(k), prefix); k, _ = c.Next() {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}
