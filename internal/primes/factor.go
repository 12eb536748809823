package primes

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"time"
)

// ErrFactorizationIncomplete is returned together with a partial
// Factorization when the iteration or time budget ran out.
var ErrFactorizationIncomplete = errors.New("factorization incomplete")

// Config bounds the work a Factorizer may spend on one number.
type Config struct {
	// TrialDivisionLimit caps the odd trial divisors after the small-prime table.
	TrialDivisionLimit uint64

	// RhoIterations is the per-attempt iteration budget of Pollard's rho.
	RhoIterations int

	// RhoAttempts is the number of polynomials x^2+c tried, c = 1..RhoAttempts.
	RhoAttempts int

	// PM1Bound is the smoothness bound B of Pollard's p-1.
	PM1Bound int

	// Rounds is the Miller-Rabin round count.
	Rounds int

	// Timeout caps the wall time of one Factor call (0 = no cap).
	Timeout time.Duration
}

// DefaultConfig returns the budgets used for ~256-bit twist orders.
func DefaultConfig() Config {
	return Config{
		TrialDivisionLimit: 1 << 16,
		RhoIterations:      1 << 20,
		RhoAttempts:        3,
		PM1Bound:           100000,
		Rounds:             DefaultRounds,
		Timeout:            30 * time.Second,
	}
}

// Factorization is the result of factoring N.
//
// The product of Primes and Unfactored always equals N, also for a partial
// result.
type Factorization struct {
	N *big.Int

	// Primes holds the prime factors with multiplicity, ascending.
	Primes []*big.Int

	// Unfactored holds composite cofactors no method could split.
	Unfactored []*big.Int
}

// Complete reports whether every factor was confirmed prime.
func (f *Factorization) Complete() bool {
	return len(f.Unfactored) == 0
}

// Product multiplies all primes and unfactored cofactors.
func (f *Factorization) Product() *big.Int {
	p := big.NewInt(1)
	for _, q := range f.Primes {
		p.Mul(p, q)
	}
	for _, c := range f.Unfactored {
		p.Mul(p, c)
	}
	return p
}

// Multiplicity returns how often q occurs in Primes.
func (f *Factorization) Multiplicity(q *big.Int) int {
	count := 0
	for _, p := range f.Primes {
		if p.Cmp(q) == 0 {
			count++
		}
	}
	return count
}

// Distinct returns the distinct primes, ascending.
func (f *Factorization) Distinct() []*big.Int {
	out := make([]*big.Int, 0, len(f.Primes))
	for i, p := range f.Primes {
		if i > 0 && p.Cmp(f.Primes[i-1]) == 0 {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Factorizer splits integers into primes with trial division, Pollard's rho
// and Pollard's p-1, in that order.
type Factorizer struct {
	cfg    Config
	tester *MillerRabin
}

// NewFactorizer creates a factorizer. Zero budget fields fall back to
// DefaultConfig values.
func NewFactorizer(cfg Config) *Factorizer {
	def := DefaultConfig()
	if cfg.TrialDivisionLimit == 0 {
		cfg.TrialDivisionLimit = def.TrialDivisionLimit
	}
	if cfg.RhoIterations <= 0 {
		cfg.RhoIterations = def.RhoIterations
	}
	if cfg.RhoAttempts <= 0 {
		cfg.RhoAttempts = def.RhoAttempts
	}
	if cfg.PM1Bound <= 0 {
		cfg.PM1Bound = def.PM1Bound
	}

	return &Factorizer{
		cfg:    cfg,
		tester: NewMillerRabin(cfg.Rounds),
	}
}

// Tester returns the primality tester used to confirm factors.
func (f *Factorizer) Tester() *MillerRabin {
	return f.tester
}

// Factor returns the prime factorization of n.
//
// Returns:
//   - A complete Factorization and nil on success
//   - A partial Factorization and an error wrapping ErrFactorizationIncomplete
//     when a cofactor resisted every method or the budget ran out
//
// n <= 1 yields an empty factorization.
func (f *Factorizer) Factor(ctx context.Context, n *big.Int) (*Factorization, error) {
	result := &Factorization{N: new(big.Int).Set(n)}
	if n.Cmp(big1) <= 0 {
		return result, nil
	}

	if f.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.cfg.Timeout)
		defer cancel()
	}

	rest := f.trialDivide(new(big.Int).Set(n), result)

	var stopErr error
	stack := make([]*big.Int, 0, 4)
	if rest.Cmp(big1) > 0 {
		stack = append(stack, rest)
	}

	for len(stack) > 0 {
		m := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if stopErr != nil {
			result.Unfactored = append(result.Unfactored, m)
			continue
		}

		if f.tester.IsProbablePrime(m) {
			result.Primes = append(result.Primes, m)
			continue
		}

		d, err := f.split(ctx, m)
		if err != nil {
			stopErr = err
			result.Unfactored = append(result.Unfactored, m)
			continue
		}

		if d == nil {
			result.Unfactored = append(result.Unfactored, m)
			continue
		}

		stack = append(stack, d, new(big.Int).Quo(m, d))
	}

	sort.Slice(result.Primes, func(i, j int) bool { return result.Primes[i].Cmp(result.Primes[j]) < 0 })
	sort.Slice(result.Unfactored, func(i, j int) bool { return result.Unfactored[i].Cmp(result.Unfactored[j]) < 0 })

	if result.Product().Cmp(n) != 0 {
		panic(fmt.Sprintf("primes: factor product of %s does not reproduce the input", n))
	}

	if stopErr != nil {
		return result, fmt.Errorf("%w: %v", ErrFactorizationIncomplete, stopErr)
	}

	if !result.Complete() {
		return result, fmt.Errorf("%w: %d cofactor(s) resisted rho and p-1", ErrFactorizationIncomplete, len(result.Unfactored))
	}

	return result, nil
}

// trialDivide strips factors up to min(sqrt(n), TrialDivisionLimit) into
// result and returns the remaining cofactor.
func (f *Factorizer) trialDivide(n *big.Int, result *Factorization) *big.Int {
	q := new(big.Int)
	quo := new(big.Int)
	rem := new(big.Int)

	divideOut := func(p uint64) {
		q.SetUint64(p)
		for {
			quo.QuoRem(n, q, rem)
			if rem.Sign() != 0 {
				return
			}
			result.Primes = append(result.Primes, new(big.Int).SetUint64(p))
			n.Set(quo)
		}
	}

	for _, p := range smallPrimes {
		divideOut(p)
	}

	for p := smallPrimes[len(smallPrimes)-1] + 2; p <= f.cfg.TrialDivisionLimit; p += 2 {
		if n.Cmp(big1) == 0 {
			break
		}

		// stop at sqrt(n): what is left is prime
		q.SetUint64(p)
		if new(big.Int).Mul(q, q).Cmp(n) > 0 {
			break
		}

		divideOut(p)
	}

	return n
}

// split returns a non-trivial divisor of the composite m, nil if neither
// method found one, or the context error when the budget expired.
func (f *Factorizer) split(ctx context.Context, m *big.Int) (*big.Int, error) {
	if m.Bit(0) == 0 {
		return big.NewInt(2), nil
	}

	d, err := f.rho(ctx, m)
	if err != nil || d != nil {
		return d, err
	}

	return f.pminus1(ctx, m)
}

// rho is Pollard's rho with Floyd cycle detection on f(x) = x^2 + c mod n.
func (f *Factorizer) rho(ctx context.Context, n *big.Int) (*big.Int, error) {
	x := new(big.Int)
	y := new(big.Int)
	c := new(big.Int)
	diff := new(big.Int)
	d := new(big.Int)

	step := func(v *big.Int) {
		v.Mul(v, v)
		v.Add(v, c)
		v.Mod(v, n)
	}

	for attempt := 1; attempt <= f.cfg.RhoAttempts; attempt++ {
		x.SetInt64(2)
		y.SetInt64(2)
		c.SetInt64(int64(attempt))

		for i := 0; i < f.cfg.RhoIterations; i++ {
			if i&1023 == 0 {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
			}

			step(x)
			step(y)
			step(y)

			diff.Sub(x, y)
			diff.Abs(diff)
			d.GCD(nil, nil, diff, n)

			if d.Cmp(n) == 0 {
				// cycle closed without separating a factor, next polynomial
				break
			}
			if d.Cmp(big1) > 0 {
				return new(big.Int).Set(d), nil
			}
		}
	}

	return nil, nil
}

// pminus1 is Pollard's p-1: a = 2^(B!) mod n built incrementally, then
// gcd(a-1, n).
func (f *Factorizer) pminus1(ctx context.Context, n *big.Int) (*big.Int, error) {
	a := big.NewInt(2)
	k := new(big.Int)
	am1 := new(big.Int)
	g := new(big.Int)

	for i := 2; i <= f.cfg.PM1Bound; i++ {
		k.SetInt64(int64(i))
		a.Exp(a, k, n)

		if i%64 != 0 && i != f.cfg.PM1Bound {
			continue
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		am1.Sub(a, big1)
		g.GCD(nil, nil, am1.Abs(am1), n)
		if g.Cmp(n) == 0 {
			// every prime factor became smooth at once
			return nil, nil
		}
		if g.Cmp(big1) > 0 {
			return new(big.Int).Set(g), nil
		}
	}

	return nil, nil
}
