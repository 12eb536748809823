package main

import (
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	"github.com/mahdiidarabi/ecdsa-twist/internal/primes"
	"github.com/mahdiidarabi/ecdsa-twist/internal/store"
	"github.com/mahdiidarabi/ecdsa-twist/pkg/ecdsatwist"
	"github.com/mahdiidarabi/ecdsa-twist/ulogger"
)

func newLogger(cCtx *cli.Context) ulogger.Logger {
	opts := []ulogger.Option{ulogger.WithLevel(cCtx.String("log-level"))}
	if cCtx.Bool("log-json") {
		opts = append(opts, ulogger.WithJSON())
	}
	return ulogger.New("twistscan", opts...)
}

func configFrom(cCtx *cli.Context) ecdsatwist.Config {
	cfg := ecdsatwist.DefaultConfig()
	cfg.Primality.Rounds = cCtx.Int("rounds")
	cfg.Factor.RhoIterations = cCtx.Int("rho-iterations")
	cfg.Factor.PM1Bound = cCtx.Int("pm1-bound")
	cfg.Factor.Timeout = cCtx.Duration("factor-timeout")
	cfg.Analyzer.MaxFactorBits = cCtx.Int("max-factor-bits")
	cfg.Recovery.MinFragments = cCtx.Int("min-fragments")
	cfg.Cache.AnalysisCacheSize = cCtx.Int("cache-size")
	cfg.Batch.Workers = cCtx.Int("workers")
	return cfg
}

// newClient wires logger, store and metrics endpoint from the global flags.
func newClient(cCtx *cli.Context) (*ecdsatwist.Client, ulogger.Logger, error) {
	logger := newLogger(cCtx)

	s, err := store.New(logger.New("store"), cCtx.String("store"))
	if err != nil {
		return nil, nil, err
	}

	client := ecdsatwist.NewClient().
		WithLogger(logger).
		WithConfig(configFrom(cCtx)).
		WithStore(s)

	if addr := cCtx.String("metrics-addr"); addr != "" {
		serveMetrics(addr, logger)
	}

	return client, logger, nil
}

func serveMetrics(addr string, logger ulogger.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		logger.Infof("serving metrics on %s/metrics", addr)
		if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("metrics server stopped: %v", err)
		}
	}()
}

func runAnalyze(cCtx *cli.Context) error {
	client, _, err := newClient(cCtx)
	if err != nil {
		return err
	}
	defer client.Close()

	result, err := client.Analyze(cCtx.Context, &ecdsatwist.TransactionInput{
		TxID:           cCtx.String("txid"),
		PublicKey:      cCtx.String("public-key"),
		Signature:      cCtx.String("signature"),
		MessageHash:    cCtx.String("message-hash"),
		OwnerPublicKey: cCtx.String("owner-public-key"),
	})
	if err != nil {
		return err
	}

	return printJSON(cCtx.App.Writer, result)
}

type batchLine struct {
	TxID   string                     `json:"txid"`
	Result *ecdsatwist.AnalysisResult `json:"result,omitempty"`
	Error  string                     `json:"error,omitempty"`
}

func runBatch(cCtx *cli.Context) error {
	client, logger, err := newClient(cCtx)
	if err != nil {
		return err
	}
	defer client.Close()

	results, err := client.AnalyzeSource(cCtx.Context, cCtx.String("input"))
	if err != nil {
		return err
	}

	out := make([]batchLine, 0, len(results))
	recovered := 0
	for _, r := range results {
		line := batchLine{Result: r.Result}
		if r.Input != nil {
			line.TxID = r.Input.TxID
		}
		if r.Err != nil {
			line.Error = r.Err.Error()
		}
		if r.Result != nil && r.Result.RecoveredPrivateKey != "" {
			recovered++
		}
		out = append(out, line)
	}

	logger.Infof("analyzed %d inputs, %d with a recovered key", len(results), recovered)

	return printJSON(cCtx.App.Writer, out)
}

type factorOutput struct {
	N          string   `json:"n"`
	Primes     []string `json:"primes"`
	Unfactored []string `json:"unfactored,omitempty"`
	Complete   bool     `json:"complete"`
}

func runFactor(cCtx *cli.Context) error {
	cfg := configFrom(cCtx)
	factorizer := primes.NewFactorizer(cfg.PrimesConfig())

	var targets []*big.Int
	if cCtx.Bool("twists") {
		targets = ecdsatwist.TwistOrders()
	} else {
		if cCtx.NArg() != 1 {
			return errors.New("factor expects exactly one integer argument")
		}
		n, err := parseInteger(cCtx.Args().First())
		if err != nil {
			return err
		}
		targets = []*big.Int{n}
	}

	out := make([]factorOutput, 0, len(targets))
	for _, n := range targets {
		f, err := factorizer.Factor(cCtx.Context, n)
		if err != nil && !errors.Is(err, primes.ErrFactorizationIncomplete) {
			return err
		}
		out = append(out, factorOutput{
			N:          n.String(),
			Primes:     decimals(f.Primes),
			Unfactored: decimals(f.Unfactored),
			Complete:   f.Complete(),
		})
	}

	return printJSON(cCtx.App.Writer, out)
}

func runFragments(cCtx *cli.Context) error {
	client, _, err := newClient(cCtx)
	if err != nil {
		return err
	}
	defer client.Close()

	set, err := client.Fragments(cCtx.Context, cCtx.String("public-key"))
	if err != nil {
		return err
	}

	return printJSON(cCtx.App.Writer, set)
}

// parseInteger accepts decimal or 0x-prefixed hex.
func parseInteger(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
		base = 16
	}

	n, ok := new(big.Int).SetString(s, base)
	if !ok || n.Sign() <= 0 {
		return nil, fmt.Errorf("%q is not a positive integer", s)
	}
	return n, nil
}

func decimals(vs []*big.Int) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.String()
	}
	return out
}
