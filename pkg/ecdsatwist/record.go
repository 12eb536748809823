package ecdsatwist

import (
	"fmt"
	"math/big"
)

// AnalysisRecord is the persisted form of an AnalysisResult: flat fields,
// lowercase hex without 0x. Stores read and write records; Result is the
// only way back to the typed model and validates every field.
type AnalysisRecord struct {
	TxID                string            `json:"txid"`
	VulnerabilityType   string            `json:"vulnerability_type"`
	PublicKeyX          string            `json:"public_key_x"`
	PublicKeyY          string            `json:"public_key_y"`
	SignatureR          string            `json:"signature_r,omitempty"`
	SignatureS          string            `json:"signature_s,omitempty"`
	Sighash             int               `json:"sighash,omitempty"`
	TwistOrder          string            `json:"twist_order,omitempty"`
	PrimeFactors        []string          `json:"prime_factors,omitempty"`
	PrivateKeyModulo    map[string]string `json:"private_key_modulo,omitempty"`
	KeyID               string            `json:"key_id,omitempty"`
	Status              string            `json:"status"`
	Message             string            `json:"message"`
	RecoveredPrivateKey string            `json:"recovered_private_key,omitempty"`
}

// NewAnalysisRecord flattens r for storage.
func NewAnalysisRecord(r *AnalysisResult) *AnalysisRecord {
	rec := &AnalysisRecord{
		TxID:                r.TxID,
		VulnerabilityType:   string(r.VulnerabilityType),
		TwistOrder:          r.TwistOrder,
		PrimeFactors:        append([]string(nil), r.PrimeFactors...),
		KeyID:               r.KeyID,
		Status:              string(r.Status),
		Message:             r.Message,
		RecoveredPrivateKey: r.RecoveredPrivateKey,
	}

	if r.PublicKey != nil {
		rec.PublicKeyX = pad64(r.PublicKey.X)
		rec.PublicKeyY = pad64(r.PublicKey.Y)
	}

	if r.Signature != nil {
		rec.SignatureR = pad64(r.Signature.R)
		rec.SignatureS = pad64(r.Signature.S)
		rec.Sighash = int(r.Signature.Sighash)
	}

	if r.PrivateKeyModulo != nil {
		rec.PrivateKeyModulo = r.PrivateKeyModulo.Clone().Residues
	}

	return rec
}

// Result validates the record and converts it into an AnalysisResult.
func (rec *AnalysisRecord) Result() (*AnalysisResult, error) {
	if rec.TxID == "" {
		return nil, &FormatError{Field: "analysis record", Reason: "missing txid"}
	}

	status := Status(rec.Status)
	if !status.valid() {
		return nil, &FormatError{Field: "analysis status", Reason: fmt.Sprintf("unknown status %q", rec.Status)}
	}

	vt := VulnerabilityType(rec.VulnerabilityType)
	if !vt.valid() {
		return nil, &FormatError{Field: "vulnerability type", Reason: fmt.Sprintf("unknown type %q", rec.VulnerabilityType)}
	}

	x, err := parseCoordinate("public key x", rec.PublicKeyX)
	if err != nil {
		return nil, err
	}
	y, err := parseCoordinate("public key y", rec.PublicKeyY)
	if err != nil {
		return nil, err
	}

	result := &AnalysisResult{
		TxID:                rec.TxID,
		VulnerabilityType:   vt,
		PublicKey:           NewCurvePoint(x, y),
		Status:              status,
		Message:             rec.Message,
		RecoveredPrivateKey: rec.RecoveredPrivateKey,
		KeyID:               rec.KeyID,
	}

	if rec.SignatureR != "" || rec.SignatureS != "" {
		r, err := parseHexInt("signature r", rec.SignatureR)
		if err != nil {
			return nil, err
		}
		s, err := parseHexInt("signature s", rec.SignatureS)
		if err != nil {
			return nil, err
		}
		if rec.Sighash < 0 || rec.Sighash > 0xff {
			return nil, &FormatError{Field: "sighash", Reason: fmt.Sprintf("%d does not fit a byte", rec.Sighash)}
		}
		result.Signature = &Signature{R: r, S: s, Sighash: byte(rec.Sighash)}
	}

	if rec.TwistOrder != "" {
		if _, ok := new(big.Int).SetString(rec.TwistOrder, 10); !ok {
			return nil, &FormatError{Field: "twist order", Reason: fmt.Sprintf("%q is not a decimal integer", rec.TwistOrder)}
		}
		result.TwistOrder = rec.TwistOrder
	}

	for _, f := range rec.PrimeFactors {
		if _, ok := new(big.Int).SetString(f, 10); !ok {
			return nil, &FormatError{Field: "prime factor", Reason: fmt.Sprintf("%q is not a decimal integer", f)}
		}
	}
	result.PrimeFactors = append([]string(nil), rec.PrimeFactors...)

	if rec.PrivateKeyModulo != nil {
		set := &KeyFragmentSet{PublicKey: rec.KeyID, Residues: make(map[string]string, len(rec.PrivateKeyModulo))}
		for k, v := range rec.PrivateKeyModulo {
			set.Residues[k] = v
		}
		if _, err := set.Fragments(); err != nil {
			return nil, err
		}
		result.PrivateKeyModulo = set
	}

	if rec.RecoveredPrivateKey != "" {
		if _, err := parseHexInt("recovered private key", rec.RecoveredPrivateKey); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// FragmentRecord is the persisted form of a KeyFragmentSet.
type FragmentRecord struct {
	PublicKey    string            `json:"public_key"`
	Residues     map[string]string `json:"residues"`
	RecoveredKey string            `json:"recovered_key,omitempty"`
}

// NewFragmentRecord flattens set for storage under publicKeyHex.
func NewFragmentRecord(publicKeyHex string, set *KeyFragmentSet, recoveredKey string) *FragmentRecord {
	rec := &FragmentRecord{
		PublicKey:    publicKeyHex,
		Residues:     make(map[string]string, set.Len()),
		RecoveredKey: recoveredKey,
	}
	for k, v := range set.Residues {
		rec.Residues[k] = v
	}
	return rec
}

// Set validates the record and converts it into a KeyFragmentSet.
func (rec *FragmentRecord) Set() (*KeyFragmentSet, error) {
	if _, err := ParseKeyID(rec.PublicKey); err != nil {
		return nil, err
	}

	set := NewKeyFragmentSet(rec.PublicKey)
	for k, v := range rec.Residues {
		set.Residues[k] = v
	}
	if _, err := set.Fragments(); err != nil {
		return nil, err
	}

	if rec.RecoveredKey != "" {
		if _, err := parseHexInt("recovered key", rec.RecoveredKey); err != nil {
			return nil, err
		}
		set.RecoveredKey = rec.RecoveredKey
	}

	return set, nil
}
