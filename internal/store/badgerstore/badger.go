// Package badgerstore persists analyses and fragment sets in an embedded
// Badger key-value database.
package badgerstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/mahdiidarabi/ecdsa-twist/pkg/ecdsatwist"
	"github.com/mahdiidarabi/ecdsa-twist/ulogger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	analysisPrefix  = "analysis:"
	fragmentsPrefix = "fragments:"
)

func analysisKey(txid string) []byte {
	return []byte(analysisPrefix + txid)
}

func fragmentsKey(publicKeyHex string) []byte {
	return []byte(fragmentsPrefix + publicKeyHex)
}

// Store implements ecdsatwist.Store on top of Badger. Records are stored as
// JSON under prefixed keys.
type Store struct {
	db     *badger.DB
	logger ulogger.Logger
}

// New opens (or creates) the database in dir. An empty dir opens an
// in-memory database that is discarded on Close.
func New(dir string, logger ulogger.Logger) (*Store, error) {
	if logger == nil {
		logger = ulogger.NewNopLogger()
	}

	opts := badger.DefaultOptions(dir).
		WithSyncWrites(true).
		WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger DB at %q: %w", dir, err)
	}

	logger.Infof("badger store opened (dir=%q)", dir)

	return &Store{db: db, logger: logger}, nil
}

func (s *Store) get(key []byte, v interface{}) error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, v)
		})
	})
}

func (s *Store) put(key []byte, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

func (s *Store) LoadAnalysis(ctx context.Context, txid string) (*ecdsatwist.AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rec ecdsatwist.AnalysisRecord
	if err := s.get(analysisKey(txid), &rec); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, fmt.Errorf("analysis %s: %w", txid, ecdsatwist.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load analysis %s: %w", txid, err)
	}

	return rec.Result()
}

func (s *Store) SaveAnalysis(ctx context.Context, result *ecdsatwist.AnalysisResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.put(analysisKey(result.TxID), ecdsatwist.NewAnalysisRecord(result)); err != nil {
		return fmt.Errorf("failed to save analysis %s: %w", result.TxID, err)
	}
	return nil
}

func (s *Store) LoadFragments(ctx context.Context, publicKeyHex string) (*ecdsatwist.KeyFragmentSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rec ecdsatwist.FragmentRecord
	if err := s.get(fragmentsKey(publicKeyHex), &rec); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, fmt.Errorf("fragments of %s: %w", publicKeyHex, ecdsatwist.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load fragments of %s: %w", publicKeyHex, err)
	}

	return rec.Set()
}

func (s *Store) SaveFragments(ctx context.Context, publicKeyHex string, set *ecdsatwist.KeyFragmentSet, recoveredKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	rec := ecdsatwist.NewFragmentRecord(publicKeyHex, set, recoveredKey)
	if err := s.put(fragmentsKey(publicKeyHex), rec); err != nil {
		return fmt.Errorf("failed to save fragments of %s: %w", publicKeyHex, err)
	}
	return nil
}

// UpdateFragments reads and writes the set in one transaction. Badger
// detects conflicting writers at commit, so the transaction is replayed
// until it commits cleanly.
func (s *Store) UpdateFragments(ctx context.Context, publicKeyHex string, fn ecdsatwist.FragmentUpdateFunc) error {
	key := fragmentsKey(publicKeyHex)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := s.db.Update(func(txn *badger.Txn) error {
			var current *ecdsatwist.KeyFragmentSet

			item, err := txn.Get(key)
			switch {
			case errors.Is(err, badger.ErrKeyNotFound):
			case err != nil:
				return err
			default:
				var rec ecdsatwist.FragmentRecord
				if err = item.Value(func(val []byte) error {
					return json.Unmarshal(val, &rec)
				}); err != nil {
					return err
				}
				if current, err = rec.Set(); err != nil {
					return err
				}
			}

			next, err := fn(current)
			if err != nil || next == nil {
				return err
			}

			data, err := json.Marshal(ecdsatwist.NewFragmentRecord(publicKeyHex, next, next.RecoveredKey))
			if err != nil {
				return err
			}
			return txn.Set(key, data)
		})

		if errors.Is(err, badger.ErrConflict) {
			s.logger.Debugf("fragments of %s changed concurrently, retrying", publicKeyHex)
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to update fragments of %s: %w", publicKeyHex, err)
		}
		return nil
	}
}

// Close flushes and closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
