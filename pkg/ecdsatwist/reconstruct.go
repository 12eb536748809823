package ecdsatwist

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/mahdiidarabi/ecdsa-twist/internal/modarith"
)

// DefaultMinFragments is the fragment count that triggers a reconstruction
// attempt even while the modulus product is still below n.
const DefaultMinFragments = 6

// Recovery is a reconstructed private key candidate.
type Recovery struct {
	Candidate *big.Int

	// Modulus is the product of the moduli the candidate was derived from.
	Modulus *big.Int

	Verified bool

	// Direct is set when a single modulus above n determined the key.
	Direct bool
}

// Reconstructor combines key residues with the Chinese Remainder Theorem
// and checks the candidate against the target public key.
type Reconstructor struct {
	curveOrder   *big.Int
	minFragments int
	basePoint    BasePointFunc
}

// NewReconstructor creates a reconstructor. minFragments <= 0 selects
// DefaultMinFragments; a nil basePoint selects LiftedGenerator.
func NewReconstructor(minFragments int, basePoint BasePointFunc) *Reconstructor {
	if minFragments <= 0 {
		minFragments = DefaultMinFragments
	}
	if basePoint == nil {
		basePoint = LiftedGenerator
	}

	return &Reconstructor{
		curveOrder:   Secp256k1CurveOrder,
		minFragments: minFragments,
		basePoint:    basePoint,
	}
}

// Ready reports whether a CRT attempt is due: at least two fragments and
// either a modulus product above n or the minimum fragment count.
// The count trigger is a heuristic; only a product above n guarantees a
// unique key.
func (r *Reconstructor) Ready(fragments []Fragment) bool {
	if len(fragments) < 2 {
		return false
	}
	if len(fragments) >= r.minFragments {
		return true
	}
	return modulusProduct(fragments).Cmp(r.curveOrder) > 0
}

// Reconstruct solves the residue system and reduces the solution mod n.
//
// Returns:
//   - The candidate key and the product M of all moduli
//   - An ArithmeticError if two moduli share a factor
func (r *Reconstructor) Reconstruct(fragments []Fragment) (*big.Int, *big.Int, error) {
	moduli := make([]*big.Int, len(fragments))
	residues := make([]*big.Int, len(fragments))
	for i, f := range fragments {
		moduli[i] = f.Modulus
		residues[i] = f.Residue
	}

	x, product, err := modarith.CRT(moduli, residues)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to combine %d fragments: %w", len(fragments), err)
	}

	// CRT is exact mod M only; M may exceed n
	return x.Mod(x, r.curveOrder), product, nil
}

// Recover attempts to derive the key of target from fragments.
//
// Returns:
//   - nil, nil when the fragments do not warrant an attempt yet
//   - A verified Recovery
//   - An unverified Recovery and an error wrapping ErrVerificationFailed
//   - An ArithmeticError for inconsistent moduli
func (r *Reconstructor) Recover(fragments []Fragment, target *CurvePoint) (*Recovery, error) {
	var direct *Recovery
	var directErr error

	for _, f := range fragments {
		if f.Modulus.Cmp(r.curveOrder) <= 0 {
			continue
		}

		rec := &Recovery{
			Candidate: new(big.Int).Mod(f.Residue, r.curveOrder),
			Modulus:   new(big.Int).Set(f.Modulus),
			Direct:    true,
		}
		if err := r.check(rec, target); err != nil {
			direct, directErr = rec, err
			continue
		}
		return rec, nil
	}

	if !r.Ready(fragments) {
		return direct, directErr
	}

	candidate, product, err := r.Reconstruct(fragments)
	if err != nil {
		return nil, err
	}

	rec := &Recovery{Candidate: candidate, Modulus: product}
	return rec, r.check(rec, target)
}

func (r *Reconstructor) check(rec *Recovery, target *CurvePoint) error {
	ok, err := r.Verify(rec.Candidate, target)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}
	if !ok {
		return fmt.Errorf("%w: candidate %s does not reproduce %s", ErrVerificationFailed, pad64(rec.Candidate), target.KeyID())
	}
	rec.Verified = true
	return nil
}

// Verify reports whether priv is the key of target. On-curve targets are
// compared against priv·G; off-curve targets against priv·B on the curve
// they lie on, with B from the configured base point.
//
// Args:
//   - priv: Candidate private key, must be in [1, n-1]
//   - target: Public key the candidate must reproduce
func (r *Reconstructor) Verify(priv *big.Int, target *CurvePoint) (bool, error) {
	if priv.Sign() <= 0 || priv.Cmp(r.curveOrder) >= 0 {
		return false, errors.New("private key out of valid range")
	}

	if target.IsOnCurve() {
		return VerifyPrivateKey(priv, target), nil
	}

	b := target.CurveB()
	curve := newTwistCurve(b)
	base, err := r.basePoint(b)
	if err != nil {
		return false, fmt.Errorf("failed to choose base point: %w", err)
	}

	return curve.scalarMult(priv, fromCurvePoint(base)).equal(fromCurvePoint(target)), nil
}

// VerifyPrivateKey reports whether priv·G equals the on-curve point pub.
func VerifyPrivateKey(priv *big.Int, pub *CurvePoint) bool {
	if priv.Sign() <= 0 || priv.Cmp(Secp256k1CurveOrder) >= 0 {
		return false
	}

	var buf [32]byte
	priv.FillBytes(buf[:])

	derived := secp256k1.PrivKeyFromBytes(buf[:]).PubKey()

	return derived.X().Cmp(pub.X) == 0 && derived.Y().Cmp(pub.Y) == 0
}

func modulusProduct(fragments []Fragment) *big.Int {
	product := big.NewInt(1)
	for _, f := range fragments {
		product.Mul(product, f.Modulus)
	}
	return product
}
