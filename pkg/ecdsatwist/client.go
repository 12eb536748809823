package ecdsatwist

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/mahdiidarabi/ecdsa-twist/internal/primes"
	"github.com/mahdiidarabi/ecdsa-twist/ulogger"
)

// Client analyzes transactions, accumulates key fragments and persists
// results through a Store.
type Client struct {
	cfg    Config
	store  Store
	logger ulogger.Logger
	parser TransactionParser

	backend       Store
	analyzer      *TwistAnalyzer
	reconstructor *Reconstructor
	accumulator   *Accumulator
	inflight      singleflight.Group
}

// NewClient creates a client with default settings and an in-memory store.
func NewClient() *Client {
	c := &Client{
		cfg:    DefaultConfig(),
		store:  NewMemoryStore(),
		logger: ulogger.NewNopLogger(),
	}
	c.build()
	return c
}

// WithConfig replaces the configuration.
func (c *Client) WithConfig(cfg Config) *Client {
	c.cfg = cfg
	c.build()
	return c
}

// WithStore sets the storage collaborator.
func (c *Client) WithStore(store Store) *Client {
	c.store = store
	c.build()
	return c
}

// WithLogger sets the logger.
func (c *Client) WithLogger(logger ulogger.Logger) *Client {
	c.logger = logger
	c.build()
	return c
}

// WithParser sets the parser used by AnalyzeSource. Without one the parser
// is chosen by file extension.
func (c *Client) WithParser(parser TransactionParser) *Client {
	c.parser = parser
	return c
}

func (c *Client) build() {
	initPrometheusMetrics()

	c.backend = c.store
	if c.cfg.Cache.AnalysisCacheSize > 0 {
		cached, err := NewCachedStore(c.store, c.cfg.Cache.AnalysisCacheSize)
		if err != nil {
			c.logger.Warnf("[Client] analysis cache disabled: %v", err)
		} else {
			c.backend = cached
		}
	}

	factorizer := primes.NewFactorizer(c.cfg.PrimesConfig())
	c.analyzer = NewTwistAnalyzer(c.cfg.Analyzer, factorizer, c.logger)
	c.reconstructor = NewReconstructor(c.cfg.Recovery.MinFragments, c.cfg.Analyzer.BasePoint)
	c.accumulator = NewAccumulator(c.backend, c.reconstructor, c.logger)
}

// Analyze classifies one transaction input and persists the result.
// A terminal result stored for the same txid is returned without
// recomputation.
//
// Args:
//   - ctx: Context for cancellation; a cancelled analysis stays non-terminal
//   - in: The transaction input
//
// Returns:
//   - The terminal AnalysisResult
//   - A FormatError for malformed input, nothing is persisted then
//   - Store errors and context errors
func (c *Client) Analyze(ctx context.Context, in *TransactionInput) (*AnalysisResult, error) {
	return c.analyze(ctx, in, nil)
}

func (c *Client) analyze(ctx context.Context, in *TransactionInput, reuse *NonceReuse) (*AnalysisResult, error) {
	if in == nil || strings.TrimSpace(in.TxID) == "" {
		return nil, &FormatError{Field: "txid", Reason: "empty"}
	}

	// Concurrent analyses of one txid share a single run under the context of
	// the caller that started it. A waiter whose own context is still live
	// starts over when that run was cancelled.
	for attempt := 0; ; attempt++ {
		v, err, shared := c.inflight.Do(in.TxID, func() (interface{}, error) {
			return c.run(ctx, in, reuse)
		})
		if err != nil {
			if shared && attempt < maxSharedRetries && ctx.Err() == nil && isContextError(err) {
				c.logger.Debugf("[Client] %s: shared analysis was cancelled, retrying", in.TxID)
				continue
			}
			return nil, err
		}
		return v.(*AnalysisResult), nil
	}
}

const maxSharedRetries = 3

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (c *Client) run(ctx context.Context, in *TransactionInput, reuse *NonceReuse) (*AnalysisResult, error) {
	existing, err := c.backend.LoadAnalysis(ctx, in.TxID)
	switch {
	case err == nil && existing.Status.Terminal():
		c.logger.Debugf("[Client] %s already analyzed: %s", in.TxID, existing.Status)
		return existing, nil
	case err != nil && !errors.Is(err, ErrNotFound):
		return nil, fmt.Errorf("failed to load analysis %s: %w", in.TxID, err)
	}

	pub, err := ParsePublicKey(in.PublicKey)
	if err != nil {
		return nil, err
	}

	sig, err := ParseDERSignatureHex(in.Signature)
	if err != nil {
		return nil, err
	}

	var owner *CurvePoint
	if in.OwnerPublicKey != "" {
		if owner, err = ParsePublicKey(in.OwnerPublicKey); err != nil {
			return nil, err
		}
		if !owner.IsOnCurve() {
			return nil, &FormatError{Field: "owner public key", Reason: "not a point of secp256k1"}
		}
	}

	result := &AnalysisResult{
		TxID:              in.TxID,
		VulnerabilityType: VulnerabilityUnknown,
		PublicKey:         pub,
		Signature:         sig,
		Status:            StatusPending,
		Message:           "queued for analysis",
	}
	if err := c.save(ctx, result); err != nil {
		return nil, err
	}

	result.Status = StatusAnalyzing
	result.Message = "analysis in progress"
	if err := c.save(ctx, result); err != nil {
		return nil, err
	}

	if err := c.classify(ctx, result, owner, reuse); err != nil {
		return nil, err
	}

	if err := c.save(ctx, result); err != nil {
		return nil, err
	}

	prometheusAnalyses.WithLabelValues(string(result.VulnerabilityType), string(result.Status)).Inc()
	c.logger.Infof("[Client] %s: %s %s: %s", result.TxID, result.VulnerabilityType, result.Status, result.Message)

	return result, nil
}

func (c *Client) save(ctx context.Context, result *AnalysisResult) error {
	if err := c.backend.SaveAnalysis(ctx, result); err != nil {
		return fmt.Errorf("failed to save analysis %s: %w", result.TxID, err)
	}
	return nil
}

// classify sets the vulnerability type, status and message of result.
// Only errors that must leave the analysis non-terminal are returned.
func (c *Client) classify(ctx context.Context, result *AnalysisResult, owner *CurvePoint, reuse *NonceReuse) error {
	pub, sig := result.PublicKey, result.Signature

	switch {
	case !pub.IsOnCurve():
		return c.classifyTwist(ctx, result, owner)

	case reuse != nil:
		result.VulnerabilityType = VulnerabilityNonceReuse
		result.RecoveredPrivateKey = pad64(reuse.PrivateKey)
		result.Status = StatusCompleted
		result.Message = fmt.Sprintf("nonce reuse (k2 = %s·k1) with another signature of this key; private key recovered and verified", reuse.Relationship.A)

	case !inSignatureRange(sig.R):
		result.VulnerabilityType = VulnerabilityWeakSignature
		result.Status = StatusCompleted
		result.Message = "signature component r is outside [1, n-1]"

	case !inSignatureRange(sig.S):
		result.VulnerabilityType = VulnerabilityWeakSignature
		result.Status = StatusCompleted
		result.Message = "signature component s is outside [1, n-1]"

	default:
		result.VulnerabilityType = VulnerabilityUnknown
		result.Status = StatusCompleted
		result.Message = "public key satisfies y^2 = x^3 + 7; no twisted-curve leak"
	}

	return nil
}

func (c *Client) classifyTwist(ctx context.Context, result *AnalysisResult, owner *CurvePoint) error {
	pub := result.PublicKey
	result.VulnerabilityType = VulnerabilityTwistedCurve

	analysis, err := c.analyzer.Analyze(ctx, pub)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		result.Status = StatusFailed
		result.Message = fmt.Sprintf("twisted-curve analysis failed: %v", err)
		return nil
	}

	result.TwistOrder = analysis.Order.String()
	result.PrimeFactors = decimalFactors(analysis)

	target := pub
	if owner != nil {
		target = owner
	}
	result.KeyID = target.KeyID()

	local := NewKeyFragmentSet(result.KeyID)
	local.Merge(analysis.Fragments)
	result.PrivateKeyModulo = local

	curve := fmt.Sprintf("y^2 = x^3 + %s", analysis.CurveB)
	if analysis.Singular {
		curve = "the singular curve y^2 = x^3"
	}

	incomplete := ""
	if !analysis.Complete() {
		incomplete = fmt.Sprintf("; factorization incomplete, %d cofactor(s) left unfactored", len(analysis.Unfactored))
	}

	if len(analysis.Fragments) == 0 {
		result.Status = StatusCompleted
		result.Message = fmt.Sprintf("point lies on %s; no usable prime factors (%d skipped)%s", curve, len(analysis.Skipped), incomplete)
		return nil
	}

	acc, err := c.accumulator.Accumulate(ctx, target, analysis.Fragments)
	if err != nil {
		return err
	}

	result.Status = StatusCompleted

	switch {
	case acc.Cached:
		result.RecoveredPrivateKey = pad64(acc.Recovery.Candidate)
		result.Message = fmt.Sprintf("point lies on %s; private key was already recovered", curve)
	case acc.Recovery != nil && acc.Recovery.Verified:
		result.RecoveredPrivateKey = pad64(acc.Recovery.Candidate)
		result.Message = fmt.Sprintf("point lies on %s; private key recovered from %d fragments and verified", curve, acc.Set.Len())
	case errors.Is(acc.Err, ErrVerificationFailed):
		result.Message = fmt.Sprintf("point lies on %s; %d new residue(s), %d held; candidate key failed verification", curve, acc.Added, acc.Set.Len())
	case acc.Err != nil:
		result.Status = StatusFailed
		result.Message = fmt.Sprintf("point lies on %s; %d new residue(s), %d held; %v", curve, acc.Added, acc.Set.Len(), acc.Err)
	default:
		result.Message = fmt.Sprintf("point lies on %s; %d new residue(s), %d held", curve, acc.Added, acc.Set.Len())
	}

	result.Message += incomplete
	return nil
}

func inSignatureRange(v *big.Int) bool {
	return v.Sign() > 0 && v.Cmp(Secp256k1CurveOrder) < 0
}

func decimalFactors(a *TwistAnalysis) []string {
	all := make([]*big.Int, 0, len(a.PrimeFactors)+len(a.Unfactored))
	all = append(all, a.PrimeFactors...)
	all = append(all, a.Unfactored...)
	sort.Slice(all, func(i, j int) bool { return all[i].Cmp(all[j]) < 0 })

	out := make([]string, len(all))
	for i, f := range all {
		out[i] = f.String()
	}
	return out
}

// BatchResult pairs an input with its analysis or error.
type BatchResult struct {
	Input  *TransactionInput
	Result *AnalysisResult
	Err    error
}

// AnalyzeBatch analyzes inputs concurrently with at most Batch.Workers
// analyses in flight. Before that, on-curve inputs carrying a message hash
// are searched for nonce reuse. Per-input failures are reported in the
// BatchResult; the returned error is the context error, if any.
func (c *Client) AnalyzeBatch(ctx context.Context, inputs []*TransactionInput) ([]BatchResult, error) {
	reuse := c.detectNonceReuse(inputs)

	workers := c.cfg.Batch.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make([]BatchResult, len(inputs))

	var g errgroup.Group
	g.SetLimit(workers)

	for i, in := range inputs {
		i, in := i, in
		g.Go(func() error {
			results[i].Input = in
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}

			var hint *NonceReuse
			if in != nil {
				hint = reuse[in.TxID]
			}

			results[i].Result, results[i].Err = c.analyze(ctx, in, hint)
			return nil
		})
	}

	_ = g.Wait()

	return results, ctx.Err()
}

// AnalyzeSource parses the file at source and analyzes its inputs.
func (c *Client) AnalyzeSource(ctx context.Context, source string) ([]BatchResult, error) {
	parser := c.parser
	if parser == nil {
		parser = ParserFor(source)
	}

	inputs, err := parser.ParseTransactions(source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse transactions: %w", err)
	}

	return c.AnalyzeBatch(ctx, inputs)
}

func (c *Client) detectNonceReuse(inputs []*TransactionInput) map[string]*NonceReuse {
	type keyGroup struct {
		pub   *CurvePoint
		txids []string
		msgs  []*SignedMessage
	}

	groups := make(map[string]*keyGroup)
	var order []string

	for _, in := range inputs {
		if in == nil || in.MessageHash == "" {
			continue
		}

		pub, err := ParsePublicKey(in.PublicKey)
		if err != nil || !pub.IsOnCurve() {
			continue
		}
		sig, err := ParseDERSignatureHex(in.Signature)
		if err != nil {
			continue
		}
		z, err := parseHexInt("message hash", in.MessageHash)
		if err != nil {
			continue
		}

		id := pub.KeyID()
		g, ok := groups[id]
		if !ok {
			g = &keyGroup{pub: pub}
			groups[id] = g
			order = append(order, id)
		}
		g.txids = append(g.txids, in.TxID)
		g.msgs = append(g.msgs, &SignedMessage{Z: z, R: sig.R, S: sig.S})
	}

	found := make(map[string]*NonceReuse)
	for _, id := range order {
		g := groups[id]
		if len(g.msgs) < 2 {
			continue
		}

		reuse := FindNonceReuse(g.msgs, g.pub)
		if reuse == nil {
			continue
		}

		c.logger.Infof("[Client] nonce reuse between %s and %s", g.txids[reuse.Pair[0]], g.txids[reuse.Pair[1]])
		found[g.txids[reuse.Pair[0]]] = reuse
		found[g.txids[reuse.Pair[1]]] = reuse
	}

	return found
}

// Result returns the stored analysis of txid.
func (c *Client) Result(ctx context.Context, txid string) (*AnalysisResult, error) {
	return c.backend.LoadAnalysis(ctx, txid)
}

// Fragments returns the fragment set accumulated for a public key, given
// in any form ParsePublicKey accepts.
func (c *Client) Fragments(ctx context.Context, publicKeyHex string) (*KeyFragmentSet, error) {
	pub, err := ParsePublicKey(publicKeyHex)
	if err != nil {
		return nil, err
	}
	return c.backend.LoadFragments(ctx, pub.KeyID())
}

// Close closes the store.
func (c *Client) Close() error {
	return c.store.Close()
}
