package main

import (
	"time"

	"github.com/urfave/cli/v2"
)

func envVar(name string) []string {
	return []string{"TWISTSCAN_" + name}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "store",
			Usage:   "Store URL (memory://, badger:///path, sqlite:///name, sqlitememory://, postgres://...)",
			Value:   "memory://",
			EnvVars: envVar("STORE"),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level (DEBUG, INFO, WARN, ERROR)",
			Value:   "INFO",
			EnvVars: envVar("LOG_LEVEL"),
		},
		&cli.BoolFlag{
			Name:    "log-json",
			Usage:   "Log one JSON object per line instead of console output",
			EnvVars: envVar("LOG_JSON"),
		},
		&cli.StringFlag{
			Name:    "metrics-addr",
			Usage:   "Serve Prometheus metrics on this address (e.g. :9100)",
			EnvVars: envVar("METRICS_ADDR"),
		},
		&cli.IntFlag{
			Name:    "max-factor-bits",
			Usage:   "Largest prime factor solved with baby-step giant-step, at most 48",
			Value:   40,
			EnvVars: envVar("MAX_FACTOR_BITS"),
		},
		&cli.IntFlag{
			Name:    "min-fragments",
			Usage:   "Residue count that triggers a CRT attempt",
			Value:   6,
			EnvVars: envVar("MIN_FRAGMENTS"),
		},
		&cli.IntFlag{
			Name:    "rounds",
			Usage:   "Miller-Rabin rounds",
			Value:   20,
			EnvVars: envVar("ROUNDS"),
		},
		&cli.IntFlag{
			Name:    "rho-iterations",
			Usage:   "Pollard rho iterations per polynomial",
			Value:   1 << 20,
			EnvVars: envVar("RHO_ITERATIONS"),
		},
		&cli.IntFlag{
			Name:    "pm1-bound",
			Usage:   "Pollard p-1 smoothness bound",
			Value:   100000,
			EnvVars: envVar("PM1_BOUND"),
		},
		&cli.DurationFlag{
			Name:    "factor-timeout",
			Usage:   "Wall-time cap of one factorization (0 = none)",
			Value:   30 * time.Second,
			EnvVars: envVar("FACTOR_TIMEOUT"),
		},
		&cli.IntFlag{
			Name:    "workers",
			Usage:   "Concurrent analyses in batch mode (0 = number of CPUs)",
			EnvVars: envVar("WORKERS"),
		},
		&cli.IntFlag{
			Name:    "cache-size",
			Usage:   "Terminal analyses kept in the LRU cache (0 = off)",
			Value:   1024,
			EnvVars: envVar("CACHE_SIZE"),
		},
	}
}

func analyzeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "txid", Usage: "Transaction id", Required: true},
		&cli.StringFlag{Name: "public-key", Usage: "Public key (compressed, uncompressed or raw x||y hex)", Required: true},
		&cli.StringFlag{Name: "signature", Usage: "DER signature hex, optionally with sighash byte", Required: true},
		&cli.StringFlag{Name: "message-hash", Usage: "Signed digest z in hex"},
		&cli.StringFlag{Name: "owner-public-key", Usage: "Genuine on-curve key the fragments belong to"},
	}
}

func batchFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "input",
			Aliases:  []string{"i"},
			Usage:    "Transactions file (.json array or .csv)",
			Required: true,
		},
	}
}

func factorFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{Name: "twists", Usage: "Factor the six possible group orders of y^2 = x^3 + b"},
	}
}

func fragmentsFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "public-key", Usage: "Public key the residues were accumulated under", Required: true},
	}
}
