package ecdsatwist

import (
	"context"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru"
)

// Store persists analyses keyed by txid and fragment sets keyed by the x||y
// public key identity. Lookups of unknown keys return ErrNotFound.
type Store interface {
	LoadAnalysis(ctx context.Context, txid string) (*AnalysisResult, error)

	// SaveAnalysis upserts result keyed by its TxID.
	SaveAnalysis(ctx context.Context, result *AnalysisResult) error

	LoadFragments(ctx context.Context, publicKeyHex string) (*KeyFragmentSet, error)

	// SaveFragments replaces the set stored for publicKeyHex. recoveredKey
	// is empty until the key is known.
	SaveFragments(ctx context.Context, publicKeyHex string, set *KeyFragmentSet, recoveredKey string) error

	// UpdateFragments runs fn on the set stored for publicKeyHex (nil when
	// there is none) and saves the set fn returns, atomically with respect
	// to other updates of the same key, also from other processes sharing
	// the backend. fn returning nil leaves the stored set untouched. fn may
	// run more than once when a backend retries a conflicting transaction.
	UpdateFragments(ctx context.Context, publicKeyHex string, fn FragmentUpdateFunc) error

	Close() error
}

// FragmentUpdateFunc computes the next fragment set from the current one.
// The set's RecoveredKey is persisted with it.
type FragmentUpdateFunc func(current *KeyFragmentSet) (*KeyFragmentSet, error)

// MemoryStore keeps records in maps. It is safe for concurrent use.
type MemoryStore struct {
	mu        sync.RWMutex
	analyses  map[string]*AnalysisRecord
	fragments map[string]*FragmentRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		analyses:  make(map[string]*AnalysisRecord),
		fragments: make(map[string]*FragmentRecord),
	}
}

func (m *MemoryStore) LoadAnalysis(_ context.Context, txid string) (*AnalysisResult, error) {
	m.mu.RLock()
	rec, ok := m.analyses[txid]
	m.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("analysis %s: %w", txid, ErrNotFound)
	}
	return rec.Result()
}

func (m *MemoryStore) SaveAnalysis(_ context.Context, result *AnalysisResult) error {
	rec := NewAnalysisRecord(result)

	m.mu.Lock()
	m.analyses[result.TxID] = rec
	m.mu.Unlock()

	return nil
}

func (m *MemoryStore) LoadFragments(_ context.Context, publicKeyHex string) (*KeyFragmentSet, error) {
	m.mu.RLock()
	rec, ok := m.fragments[publicKeyHex]
	m.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("fragments of %s: %w", publicKeyHex, ErrNotFound)
	}
	return rec.Set()
}

func (m *MemoryStore) SaveFragments(_ context.Context, publicKeyHex string, set *KeyFragmentSet, recoveredKey string) error {
	rec := NewFragmentRecord(publicKeyHex, set, recoveredKey)

	m.mu.Lock()
	m.fragments[publicKeyHex] = rec
	m.mu.Unlock()

	return nil
}

func (m *MemoryStore) UpdateFragments(ctx context.Context, publicKeyHex string, fn FragmentUpdateFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var current *KeyFragmentSet
	if rec, ok := m.fragments[publicKeyHex]; ok {
		set, err := rec.Set()
		if err != nil {
			return err
		}
		current = set
	}

	next, err := fn(current)
	if err != nil || next == nil {
		return err
	}

	m.fragments[publicKeyHex] = NewFragmentRecord(publicKeyHex, next, next.RecoveredKey)
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}

// CachedStore memoizes terminal analyses of an underlying Store in an LRU
// cache. Fragment sets are always read through, since they keep growing.
type CachedStore struct {
	Store
	cache *lru.Cache
}

// NewCachedStore wraps store with a cache of size terminal analyses.
func NewCachedStore(store Store, size int) (*CachedStore, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create analysis cache: %w", err)
	}

	return &CachedStore{Store: store, cache: cache}, nil
}

func (c *CachedStore) LoadAnalysis(ctx context.Context, txid string) (*AnalysisResult, error) {
	if v, ok := c.cache.Get(txid); ok {
		return v.(*AnalysisRecord).Result()
	}

	result, err := c.Store.LoadAnalysis(ctx, txid)
	if err != nil {
		return nil, err
	}

	if result.Status.Terminal() {
		c.cache.Add(txid, NewAnalysisRecord(result))
	}
	return result, nil
}

func (c *CachedStore) SaveAnalysis(ctx context.Context, result *AnalysisResult) error {
	if err := c.Store.SaveAnalysis(ctx, result); err != nil {
		c.cache.Remove(result.TxID)
		return err
	}

	if result.Status.Terminal() {
		c.cache.Add(result.TxID, NewAnalysisRecord(result))
	} else {
		c.cache.Remove(result.TxID)
	}
	return nil
}
