package ecdsatwist

import (
	"time"

	"github.com/mahdiidarabi/ecdsa-twist/internal/primes"
)

// Config collects the tunables of a Client.
type Config struct {
	Primality PrimalityConfig
	Factor    FactorConfig
	Analyzer  AnalyzerConfig
	Recovery  RecoveryConfig
	Cache     CacheConfig
	Batch     BatchConfig
}

// PrimalityConfig configures Miller-Rabin.
type PrimalityConfig struct {
	Rounds int
}

// FactorConfig bounds the factorization of one twist order.
type FactorConfig struct {
	TrialDivisionLimit uint64
	RhoIterations      int
	RhoAttempts        int
	PM1Bound           int
	Timeout            time.Duration
}

// RecoveryConfig configures key reconstruction.
type RecoveryConfig struct {
	// MinFragments triggers a CRT attempt before the modulus product
	// exceeds n.
	MinFragments int
}

// CacheConfig sizes the analysis memo. Zero disables it.
type CacheConfig struct {
	AnalysisCacheSize int
}

// BatchConfig configures AnalyzeBatch.
type BatchConfig struct {
	// Workers bounds concurrent analyses (0 = runtime.NumCPU()).
	Workers int
}

// DefaultConfig returns the defaults for secp256k1 twist orders.
func DefaultConfig() Config {
	f := primes.DefaultConfig()

	return Config{
		Primality: PrimalityConfig{Rounds: primes.DefaultRounds},
		Factor: FactorConfig{
			TrialDivisionLimit: f.TrialDivisionLimit,
			RhoIterations:      f.RhoIterations,
			RhoAttempts:        f.RhoAttempts,
			PM1Bound:           f.PM1Bound,
			Timeout:            f.Timeout,
		},
		Analyzer: DefaultAnalyzerConfig(),
		Recovery: RecoveryConfig{MinFragments: DefaultMinFragments},
		Cache:    CacheConfig{AnalysisCacheSize: 1024},
		Batch:    BatchConfig{Workers: 0},
	}
}

// PrimesConfig converts the factor and primality settings.
func (c Config) PrimesConfig() primes.Config {
	return primes.Config{
		TrialDivisionLimit: c.Factor.TrialDivisionLimit,
		RhoIterations:      c.Factor.RhoIterations,
		RhoAttempts:        c.Factor.RhoAttempts,
		PM1Bound:           c.Factor.PM1Bound,
		Rounds:             c.Primality.Rounds,
		Timeout:            c.Factor.Timeout,
	}
}
