package ecdsatwist

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"

	"github.com/spaolacci/murmur3"

	"github.com/mahdiidarabi/ecdsa-twist/ulogger"
)

// KeyFragmentSet maps modulus to residue for one public key. Moduli are
// minimal lowercase hex, residues lowercase hex padded to 64 characters.
// Entries are never replaced or removed.
type KeyFragmentSet struct {
	// PublicKey is the x||y identity of the key.
	PublicKey string            `json:"publicKey"`
	Residues  map[string]string `json:"residues"`

	// RecoveredKey is the verified private key, empty until recovery.
	RecoveredKey string `json:"recoveredKey,omitempty"`
}

// NewKeyFragmentSet creates an empty set for the key identity keyID.
func NewKeyFragmentSet(keyID string) *KeyFragmentSet {
	return &KeyFragmentSet{PublicKey: keyID, Residues: make(map[string]string)}
}

// Add records f unless its modulus is already present. Existing entries
// win, so adding the same fragment twice is a no-op.
func (s *KeyFragmentSet) Add(f Fragment) bool {
	if s.Residues == nil {
		s.Residues = make(map[string]string)
	}

	key := f.Modulus.Text(16)
	if _, ok := s.Residues[key]; ok {
		return false
	}

	s.Residues[key] = pad64(new(big.Int).Mod(f.Residue, f.Modulus))
	return true
}

// Merge adds every fragment and returns how many were new.
func (s *KeyFragmentSet) Merge(fragments []Fragment) int {
	added := 0
	for _, f := range fragments {
		if s.Add(f) {
			added++
		}
	}
	return added
}

// Len returns the number of residues.
func (s *KeyFragmentSet) Len() int {
	return len(s.Residues)
}

// Complete reports whether a verified key is cached on the set.
func (s *KeyFragmentSet) Complete() bool {
	return s.RecoveredKey != ""
}

// Fragments decodes the residues, ordered by ascending modulus.
func (s *KeyFragmentSet) Fragments() ([]Fragment, error) {
	out := make([]Fragment, 0, len(s.Residues))
	for m, r := range s.Residues {
		modulus, err := parseHexInt("fragment modulus", m)
		if err != nil {
			return nil, err
		}
		if modulus.Cmp(big.NewInt(1)) <= 0 {
			return nil, &FormatError{Field: "fragment modulus", Reason: fmt.Sprintf("%s is not above 1", m)}
		}
		if m != modulus.Text(16) {
			return nil, &FormatError{Field: "fragment modulus", Reason: fmt.Sprintf("%q is not minimal lowercase hex", m)}
		}

		residue, err := parseHexInt("fragment residue", r)
		if err != nil {
			return nil, err
		}
		if residue.Cmp(modulus) >= 0 {
			return nil, &FormatError{Field: "fragment residue", Reason: fmt.Sprintf("residue for modulus %s is not reduced", m)}
		}

		out = append(out, Fragment{Modulus: modulus, Residue: residue})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Modulus.Cmp(out[j].Modulus) < 0 })
	return out, nil
}

// Clone returns a deep copy.
func (s *KeyFragmentSet) Clone() *KeyFragmentSet {
	c := &KeyFragmentSet{
		PublicKey:    s.PublicKey,
		Residues:     make(map[string]string, len(s.Residues)),
		RecoveredKey: s.RecoveredKey,
	}
	for k, v := range s.Residues {
		c.Residues[k] = v
	}
	return c
}

// Accumulation is the outcome of merging fragments into a stored set.
type Accumulation struct {
	// Set is the merged set as persisted.
	Set *KeyFragmentSet

	// Added is the number of residues that were new to the set.
	Added int

	// Cached is set when the set already held a verified key.
	Cached bool

	// Recovery is the reconstruction attempt, nil when none was due.
	Recovery *Recovery

	// Err wraps ErrVerificationFailed when Recovery did not verify, or
	// modarith.ErrArithmetic when the stored moduli could not be combined.
	// The merged set is persisted either way.
	Err error
}

const accumulatorStripes = 256

// Accumulator merges residues into the persisted fragment set of a key and
// reconstructs the key once enough are known. Merges for the same key are
// serialized by a striped lock.
type Accumulator struct {
	store         Store
	reconstructor *Reconstructor
	logger        ulogger.Logger
	stripes       [accumulatorStripes]sync.Mutex
}

// NewAccumulator creates an accumulator over store.
func NewAccumulator(store Store, reconstructor *Reconstructor, logger ulogger.Logger) *Accumulator {
	if logger == nil {
		logger = ulogger.NewNopLogger()
	}

	initPrometheusMetrics()

	return &Accumulator{
		store:         store,
		reconstructor: reconstructor,
		logger:        logger,
	}
}

func (a *Accumulator) lock(keyID string) func() {
	mu := &a.stripes[murmur3.Sum32([]byte(keyID))%accumulatorStripes]
	mu.Lock()
	return mu.Unlock
}

// Accumulate merges fragments into the set stored for target and attempts
// a reconstruction when new residues arrived. The load, merge and save run
// as one Store.UpdateFragments call, so accumulators in other clients or
// processes sharing the store do not lose each other's residues; the stripe
// lock only serializes this process.
//
// Returns:
//   - The Accumulation; a failed verification or an arithmetic failure of
//     the reconstruction is reported in its Err field
//   - Store errors and invalid stored sets
func (a *Accumulator) Accumulate(ctx context.Context, target *CurvePoint, fragments []Fragment) (*Accumulation, error) {
	keyID := target.KeyID()

	unlock := a.lock(keyID)
	defer unlock()

	var acc *Accumulation
	err := a.store.UpdateFragments(ctx, keyID, func(current *KeyFragmentSet) (*KeyFragmentSet, error) {
		var err error
		if acc, err = a.merge(keyID, target, current, fragments); err != nil {
			return nil, err
		}
		if acc.Cached || acc.Added == 0 {
			return nil, nil
		}
		return acc.Set, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update fragments of %s: %w", keyID, err)
	}

	a.report(keyID, acc)

	acc.Set = acc.Set.Clone()
	return acc, nil
}

// merge computes the next set from current. It has no side effects so the
// store may call it again on a retried transaction.
func (a *Accumulator) merge(keyID string, target *CurvePoint, current *KeyFragmentSet, fragments []Fragment) (*Accumulation, error) {
	if current != nil && current.Complete() {
		key, err := parseHexInt("recovered key", current.RecoveredKey)
		if err != nil {
			return nil, err
		}
		return &Accumulation{
			Set:      current,
			Cached:   true,
			Recovery: &Recovery{Candidate: key, Verified: true},
		}, nil
	}

	set := current
	if set == nil {
		set = NewKeyFragmentSet(keyID)
	}

	acc := &Accumulation{Set: set, Added: set.Merge(fragments)}
	if acc.Added == 0 {
		return acc, nil
	}

	all, err := set.Fragments()
	if err != nil {
		return nil, fmt.Errorf("stored fragments of %s are invalid: %w", keyID, err)
	}

	rec, err := a.reconstructor.Recover(all, target)
	switch {
	case err == nil && rec != nil:
		set.RecoveredKey = pad64(rec.Candidate)
		acc.Recovery = rec
	case errors.Is(err, ErrVerificationFailed):
		acc.Recovery = rec
		acc.Err = err
	case err != nil:
		// the residues are still worth keeping
		acc.Err = fmt.Errorf("failed to reconstruct key: %w", err)
	}

	return acc, nil
}

func (a *Accumulator) report(keyID string, acc *Accumulation) {
	if acc.Added == 0 {
		return
	}

	prometheusFragmentsRecorded.Add(float64(acc.Added))

	switch {
	case acc.Recovery != nil && acc.Recovery.Verified:
		prometheusKeysRecovered.Inc()
		a.logger.Infof("[Accumulator] recovered private key of %s from %d fragments", keyID, acc.Set.Len())
	case errors.Is(acc.Err, ErrVerificationFailed):
		prometheusVerificationFailures.Inc()
		a.logger.Warnf("[Accumulator] %s: %v", keyID, acc.Err)
	case acc.Err != nil:
		a.logger.Errorf("[Accumulator] %s: %v", keyID, acc.Err)
	default:
		a.logger.Debugf("[Accumulator] %s holds %d fragments, reconstruction not due", keyID, acc.Set.Len())
	}
}
