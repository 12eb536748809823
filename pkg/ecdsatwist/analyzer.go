package ecdsatwist

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/mahdiidarabi/ecdsa-twist/internal/primes"
	"github.com/mahdiidarabi/ecdsa-twist/ulogger"
)

// maxDiscreteLogBits caps MaxFactorBits. The baby-step table holds
// 2^(bits/2) map entries of roughly 40 bytes each, so the cap costs about
// 700 MB per discrete logarithm and every analysis worker needs its own.
const maxDiscreteLogBits = 48

// AnalyzerConfig configures a TwistAnalyzer.
type AnalyzerConfig struct {
	// MaxFactorBits is the largest prime factor, in bits, for which a
	// discrete logarithm is attempted. Larger factors are skipped. Values
	// above 48 are lowered to 48.
	MaxFactorBits int

	// BasePoint returns the generator the faulty signer used on
	// y^2 = x^3 + b. Nil selects LiftedGenerator.
	BasePoint BasePointFunc
}

// DefaultAnalyzerConfig returns a 40-bit tractability bound and the lifted
// generator.
func DefaultAnalyzerConfig() AnalyzerConfig {
	return AnalyzerConfig{
		MaxFactorBits: 40,
		BasePoint:     LiftedGenerator,
	}
}

// Fragment is one residue of the private key: key ≡ Residue (mod Modulus).
type Fragment struct {
	Modulus *big.Int
	Residue *big.Int
}

// SkippedFactor is a prime of the twist order that produced no residue.
type SkippedFactor struct {
	Factor *big.Int
	Reason string
}

// TwistAnalysis is what the analyzer learned about one off-curve point.
type TwistAnalysis struct {
	// CurveB is b' of the curve y^2 = x^3 + b' the point lies on.
	CurveB *big.Int

	// BasePoint is the generator assumed on that curve.
	BasePoint *CurvePoint

	// Order is the group order of the curve (p for the singular cusp).
	Order *big.Int

	Singular bool

	// PrimeFactors holds the primes of Order with multiplicity, ascending.
	PrimeFactors []*big.Int

	// Unfactored holds composite cofactors the factorizer could not split.
	Unfactored []*big.Int

	Fragments []Fragment
	Skipped   []SkippedFactor
}

// Complete reports whether Order was factored completely.
func (t *TwistAnalysis) Complete() bool {
	return len(t.Unfactored) == 0
}

// TwistAnalyzer extracts private key residues from public keys that lie on
// a twist of secp256k1.
type TwistAnalyzer struct {
	cfg        AnalyzerConfig
	factorizer *primes.Factorizer
	logger     ulogger.Logger
}

// NewTwistAnalyzer creates an analyzer. A nil factorizer uses the default
// budgets.
func NewTwistAnalyzer(cfg AnalyzerConfig, factorizer *primes.Factorizer, logger ulogger.Logger) *TwistAnalyzer {
	if cfg.MaxFactorBits <= 0 {
		cfg.MaxFactorBits = DefaultAnalyzerConfig().MaxFactorBits
	}
	if cfg.MaxFactorBits > maxDiscreteLogBits {
		cfg.MaxFactorBits = maxDiscreteLogBits
	}
	if cfg.BasePoint == nil {
		cfg.BasePoint = LiftedGenerator
	}
	if factorizer == nil {
		factorizer = primes.NewFactorizer(primes.DefaultConfig())
	}
	if logger == nil {
		logger = ulogger.NewNopLogger()
	}

	initPrometheusMetrics()

	return &TwistAnalyzer{
		cfg:        cfg,
		factorizer: factorizer,
		logger:     logger,
	}
}

// Analyze determines the curve pub lies on, its order and the residues of
// the private key modulo every usable prime of that order.
//
// Returns:
//   - ErrOnCurve if pub satisfies the secp256k1 equation
//   - The context error if ctx ends before the analysis finished
//   - A TwistAnalysis otherwise; an incomplete factorization or zero usable
//     factors is not an error
func (a *TwistAnalyzer) Analyze(ctx context.Context, pub *CurvePoint) (*TwistAnalysis, error) {
	if pub.IsOnCurve() {
		return nil, ErrOnCurve
	}

	b := pub.CurveB()
	curve := newTwistCurve(b)

	base, err := a.cfg.BasePoint(b)
	if err != nil {
		return nil, fmt.Errorf("failed to choose base point: %w", err)
	}

	bp, q := fromCurvePoint(base), fromCurvePoint(pub)
	if !curve.contains(bp) {
		return nil, fmt.Errorf("base point %s is not on y^2 = x^3 + %s", base.KeyID(), b)
	}

	analysis := &TwistAnalysis{CurveB: b, BasePoint: base}

	if curve.singular() {
		return a.analyzeSingular(curve, bp, q, analysis)
	}

	order, err := curve.curveOrder(bp, q)
	if err != nil {
		return nil, fmt.Errorf("failed to determine twist order: %w", err)
	}
	analysis.Order = order

	a.logger.Debugf("[TwistAnalyzer] point %s lies on y^2 = x^3 + %s with order %s", pub.KeyID(), b, order)

	start := time.Now()
	factors, err := a.factorizer.Factor(ctx, order)
	prometheusFactorDuration.Observe(time.Since(start).Seconds())

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	if err != nil {
		if !errors.Is(err, primes.ErrFactorizationIncomplete) {
			return nil, fmt.Errorf("failed to factor twist order: %w", err)
		}
		a.logger.Warnf("[TwistAnalyzer] twist order %s only partially factored: %v", order, err)
	}

	analysis.PrimeFactors = factors.Primes
	analysis.Unfactored = factors.Unfactored

	for _, c := range factors.Unfactored {
		analysis.Skipped = append(analysis.Skipped, SkippedFactor{Factor: c, Reason: "unfactored cofactor"})
	}

	for _, prime := range factors.Distinct() {
		frag, reason, err := a.residue(ctx, curve, bp, q, order, prime, factors.Multiplicity(prime))
		if err != nil {
			return nil, err
		}
		if frag == nil {
			analysis.Skipped = append(analysis.Skipped, SkippedFactor{Factor: prime, Reason: reason})
			continue
		}
		analysis.Fragments = append(analysis.Fragments, *frag)
	}

	a.logger.Infof("[TwistAnalyzer] point %s: %d residue(s), %d factor(s) skipped", pub.KeyID(), len(analysis.Fragments), len(analysis.Skipped))

	return analysis, nil
}

// residue solves the key modulo prime in the subgroup of that order. A nil
// fragment with a reason means the factor is unusable.
func (a *TwistAnalyzer) residue(ctx context.Context, curve *twistCurve, base, target point, order, prime *big.Int, multiplicity int) (*Fragment, string, error) {
	if multiplicity > 1 {
		return nil, fmt.Sprintf("repeated prime factor (exponent %d)", multiplicity), nil
	}
	if prime.BitLen() > a.cfg.MaxFactorBits {
		return nil, fmt.Sprintf("%d bits exceeds the %d-bit bound", prime.BitLen(), a.cfg.MaxFactorBits), nil
	}

	cofactor := new(big.Int).Quo(order, prime)
	bq := curve.scalarMult(cofactor, base)
	if bq.inf {
		return nil, "base point has no component of order q", nil
	}
	qq := curve.scalarMult(cofactor, target)

	start := time.Now()
	r, err := curve.discreteLog(ctx, bq, qq, prime)
	prometheusDiscreteLogDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, errNoDiscreteLog) {
			return nil, "point is not in the subgroup generated by the base point", nil
		}
		return nil, "", err
	}

	return &Fragment{Modulus: new(big.Int).Set(prime), Residue: r}, "", nil
}

func (a *TwistAnalyzer) analyzeSingular(curve *twistCurve, base, target point, analysis *TwistAnalysis) (*TwistAnalysis, error) {
	analysis.Singular = true
	analysis.Order = new(big.Int).Set(curve.p)
	analysis.PrimeFactors = []*big.Int{new(big.Int).Set(curve.p)}

	d, err := curve.singularLog(base, target)
	if err != nil {
		return nil, fmt.Errorf("failed to solve on the singular curve: %w", err)
	}

	analysis.Fragments = []Fragment{{Modulus: new(big.Int).Set(curve.p), Residue: d}}

	a.logger.Infof("[TwistAnalyzer] point lies on the singular curve y^2 = x^3, key known modulo p")

	return analysis, nil
}
