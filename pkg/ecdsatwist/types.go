package ecdsatwist

import (
	"math/big"
)

// VulnerabilityType classifies what an analysis found.
type VulnerabilityType string

const (
	VulnerabilityTwistedCurve  VulnerabilityType = "twisted_curve"
	VulnerabilityNonceReuse    VulnerabilityType = "nonce_reuse"
	VulnerabilityWeakSignature VulnerabilityType = "weak_signature"
	VulnerabilityUnknown       VulnerabilityType = "unknown"
)

func (v VulnerabilityType) valid() bool {
	switch v {
	case VulnerabilityTwistedCurve, VulnerabilityNonceReuse, VulnerabilityWeakSignature, VulnerabilityUnknown:
		return true
	}
	return false
}

// Status is the lifecycle state of an AnalysisResult:
// pending -> analyzing -> completed | failed.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAnalyzing Status = "analyzing"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether s is completed or failed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

func (s Status) valid() bool {
	switch s {
	case StatusPending, StatusAnalyzing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Signature is a decoded ECDSA signature. Sighash is 0 when the DER
// encoding carried no trailing sighash byte.
type Signature struct {
	R       *big.Int
	S       *big.Int
	Sighash byte
}

// RHex returns r as 0x + 64 hex characters.
func (s *Signature) RHex() string {
	return "0x" + pad64(s.R)
}

// SHex returns s as 0x + 64 hex characters.
func (s *Signature) SHex() string {
	return "0x" + pad64(s.S)
}

// TransactionInput is one decoded transaction input handed to the analyzer.
type TransactionInput struct {
	TxID string `json:"txid"`

	// PublicKey is compressed (66 hex), uncompressed (130 hex, 04 prefix)
	// or raw x||y (128 hex).
	PublicKey string `json:"publicKey"`

	// Signature is the DER signature in hex, optionally followed by the
	// sighash byte.
	Signature string `json:"signature"`

	// MessageHash is the signed digest z in hex. Optional; enables
	// nonce-reuse detection across a batch.
	MessageHash string `json:"messageHash,omitempty"`

	// OwnerPublicKey is the genuine on-curve key of the wallet. Optional;
	// when set, fragments accumulate under this key.
	OwnerPublicKey string `json:"ownerPublicKey,omitempty"`
}

// AnalysisResult is the outcome of analyzing one transaction, persisted
// keyed by TxID.
type AnalysisResult struct {
	TxID              string            `json:"txid"`
	VulnerabilityType VulnerabilityType `json:"vulnerabilityType"`
	PublicKey         *CurvePoint       `json:"publicKey"`
	Signature         *Signature        `json:"signature,omitempty"`

	// TwistOrder and PrimeFactors are decimal strings.
	TwistOrder   string   `json:"twistOrder,omitempty"`
	PrimeFactors []string `json:"primeFactors,omitempty"`

	// PrivateKeyModulo holds the residues this analysis extracted.
	PrivateKeyModulo *KeyFragmentSet `json:"privateKeyModulo,omitempty"`

	Status              Status `json:"status"`
	Message             string `json:"message"`
	RecoveredPrivateKey string `json:"recoveredPrivateKey,omitempty"`

	// KeyID is the x||y identity the fragments were accumulated under.
	KeyID string `json:"keyId,omitempty"`
}
