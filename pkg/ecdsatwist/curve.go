package ecdsatwist

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/mahdiidarabi/ecdsa-twist/internal/modarith"
)

var (
	secp256k1Params = btcec.S256().Params()

	// Secp256k1FieldPrime is p = 2^256 - 2^32 - 977.
	Secp256k1FieldPrime = new(big.Int).Set(secp256k1Params.P)

	// Secp256k1CurveOrder is the order n of the secp256k1 generator.
	Secp256k1CurveOrder = new(big.Int).Set(secp256k1Params.N)

	secp256k1B = big.NewInt(7)

	// (p+1)/4, the square-root exponent for p ≡ 3 (mod 4)
	sqrtExponent = new(big.Int).Rsh(new(big.Int).Add(secp256k1Params.P, big.NewInt(1)), 2)
)

// CurvePoint is a public key coordinate pair that may or may not satisfy
// the secp256k1 equation. onCurve is derived at construction.
type CurvePoint struct {
	X       *big.Int
	Y       *big.Int
	onCurve bool
}

// NewCurvePoint copies x and y and classifies the point.
func NewCurvePoint(x, y *big.Int) *CurvePoint {
	px := new(big.Int).Set(x)
	py := new(big.Int).Set(y)
	return &CurvePoint{X: px, Y: py, onCurve: IsOnCurve(px, py)}
}

// IsOnCurve reports whether y^2 ≡ x^3 + 7 (mod p).
func IsOnCurve(x, y *big.Int) bool {
	p := Secp256k1FieldPrime

	lhs := new(big.Int).Mul(y, y)
	lhs.Mod(lhs, p)

	rhs := new(big.Int).Mul(x, x)
	rhs.Mul(rhs, x)
	rhs.Add(rhs, secp256k1B)
	rhs.Mod(rhs, p)

	return lhs.Cmp(rhs) == 0
}

// IsOnCurve reports the derived classification.
func (p *CurvePoint) IsOnCurve() bool {
	return p.onCurve
}

// CurveB returns b' = y^2 - x^3 mod p, the constant of the curve
// y^2 = x^3 + b' the point actually lies on. It is 7 for on-curve points.
func (p *CurvePoint) CurveB() *big.Int {
	field := Secp256k1FieldPrime

	y2 := modarith.MulMod(p.Y, p.Y, field)
	x3 := modarith.MulMod(p.X, p.X, field)
	x3 = modarith.MulMod(x3, p.X, field)

	return modarith.SubMod(y2, x3, field)
}

// KeyID is the natural key of the point: lowercase x||y, 128 hex characters.
func (p *CurvePoint) KeyID() string {
	return pad64(p.X) + pad64(p.Y)
}

// XHex returns x as 0x + 64 hex characters.
func (p *CurvePoint) XHex() string {
	return "0x" + pad64(p.X)
}

// YHex returns y as 0x + 64 hex characters.
func (p *CurvePoint) YHex() string {
	return "0x" + pad64(p.Y)
}

// Equal compares coordinates.
func (p *CurvePoint) Equal(o *CurvePoint) bool {
	return o != nil && p.X.Cmp(o.X) == 0 && p.Y.Cmp(o.Y) == 0
}

// SerializeCompressed returns the 33-byte parity-prefixed encoding.
func (p *CurvePoint) SerializeCompressed() []byte {
	out := make([]byte, 33)
	out[0] = 0x02
	if p.Y.Bit(0) == 1 {
		out[0] = 0x03
	}
	p.X.FillBytes(out[1:])
	return out
}

type curvePointJSON struct {
	X         string `json:"x"`
	Y         string `json:"y"`
	IsOnCurve bool   `json:"isOnCurve"`
}

// MarshalJSON encodes coordinates as 0x-prefixed 64-character hex.
func (p *CurvePoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(curvePointJSON{X: p.XHex(), Y: p.YHex(), IsOnCurve: p.onCurve})
}

// UnmarshalJSON decodes coordinates and recomputes the classification;
// the isOnCurve field of the input is ignored.
func (p *CurvePoint) UnmarshalJSON(data []byte) error {
	var raw curvePointJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	x, err := parseCoordinate("x", raw.X)
	if err != nil {
		return err
	}
	y, err := parseCoordinate("y", raw.Y)
	if err != nil {
		return err
	}

	*p = *NewCurvePoint(x, y)
	return nil
}

// DecompressPublicKey expands a 33-byte compressed key. The result lies on
// secp256k1 by construction.
func DecompressPublicKey(compressed []byte) (*CurvePoint, error) {
	if len(compressed) != 33 {
		return nil, &FormatError{Field: "compressed public key", Reason: fmt.Sprintf("expected 33 bytes, got %d", len(compressed))}
	}

	prefix := compressed[0]
	if prefix != 0x02 && prefix != 0x03 {
		return nil, &FormatError{Field: "compressed public key", Reason: fmt.Sprintf("prefix 0x%02x is not 0x02 or 0x03", prefix)}
	}

	p := Secp256k1FieldPrime
	x := new(big.Int).SetBytes(compressed[1:])
	if x.Cmp(p) >= 0 {
		return nil, &FormatError{Field: "compressed public key", Reason: "x is not below the field prime"}
	}

	// y^2 = x^3 + 7
	rhs := new(big.Int).Mul(x, x)
	rhs.Mul(rhs, x)
	rhs.Add(rhs, secp256k1B)
	rhs.Mod(rhs, p)

	y, ok := fieldSqrt(rhs)
	if !ok {
		return nil, &FormatError{Field: "compressed public key", Reason: "x^3 + 7 has no square root, x is not on the curve"}
	}

	if y.Bit(0) != uint(prefix&1) {
		y.Sub(p, y)
	}

	return NewCurvePoint(x, y), nil
}

// ParsePublicKey decodes a hex public key, with or without 0x prefix:
// compressed (66 chars), uncompressed with 04 prefix (130 chars) or raw
// x||y (128 chars). Uncompressed keys are not checked against the curve
// equation; off-curve points are exactly what the analyzer looks for.
func ParsePublicKey(s string) (*CurvePoint, error) {
	raw, err := decodeHex("public key", s)
	if err != nil {
		return nil, err
	}

	switch len(raw) {
	case 33:
		return DecompressPublicKey(raw)
	case 65:
		if raw[0] != 0x04 {
			return nil, &FormatError{Field: "public key", Reason: fmt.Sprintf("uncompressed prefix 0x%02x is not 0x04", raw[0])}
		}
		return pointFromXY(raw[1:33], raw[33:])
	case 64:
		return pointFromXY(raw[:32], raw[32:])
	default:
		return nil, &FormatError{Field: "public key", Reason: fmt.Sprintf("unexpected length %d bytes", len(raw))}
	}
}

func pointFromXY(xb, yb []byte) (*CurvePoint, error) {
	x := new(big.Int).SetBytes(xb)
	y := new(big.Int).SetBytes(yb)
	if x.Cmp(Secp256k1FieldPrime) >= 0 || y.Cmp(Secp256k1FieldPrime) >= 0 {
		return nil, &FormatError{Field: "public key", Reason: "coordinate is not below the field prime"}
	}
	return NewCurvePoint(x, y), nil
}

// fieldSqrt returns a square root of a mod p, valid because p ≡ 3 (mod 4).
func fieldSqrt(a *big.Int) (*big.Int, bool) {
	p := Secp256k1FieldPrime
	y := new(big.Int).Exp(a, sqrtExponent, p)
	if modarith.MulMod(y, y, p).Cmp(modarith.Mod(a, p)) != 0 {
		return nil, false
	}
	return y, true
}

// pad64 renders v as lowercase hex left-padded to 64 characters.
func pad64(v *big.Int) string {
	return fmt.Sprintf("%064x", v)
}

func decodeHex(field, s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	s = strings.TrimPrefix(s, "0X")
	if s == "" {
		return nil, &FormatError{Field: field, Reason: "empty"}
	}

	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, &FormatError{Field: field, Reason: fmt.Sprintf("invalid hex: %v", err)}
	}
	return raw, nil
}

// parseHexInt decodes an unsigned hex integer with optional 0x prefix.
func parseHexInt(field, s string) (*big.Int, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	s = strings.TrimPrefix(s, "0X")
	if s == "" {
		return nil, &FormatError{Field: field, Reason: "empty"}
	}

	v, ok := new(big.Int).SetString(s, 16)
	if !ok || v.Sign() < 0 {
		return nil, &FormatError{Field: field, Reason: fmt.Sprintf("%q is not a hex integer", s)}
	}
	return v, nil
}

func parseCoordinate(field, s string) (*big.Int, error) {
	v, err := parseHexInt(field, s)
	if err != nil {
		return nil, err
	}
	if v.Cmp(Secp256k1FieldPrime) >= 0 {
		return nil, &FormatError{Field: field, Reason: "coordinate is not below the field prime"}
	}
	return v, nil
}

// ParseKeyID decodes a 128-character x||y identity.
func ParseKeyID(id string) (*CurvePoint, error) {
	if len(id) != 128 {
		return nil, &FormatError{Field: "key id", Reason: fmt.Sprintf("expected 128 hex characters, got %d", len(id))}
	}

	x, err := parseCoordinate("key id x", id[:64])
	if err != nil {
		return nil, err
	}
	y, err := parseCoordinate("key id y", id[64:])
	if err != nil {
		return nil, err
	}
	return NewCurvePoint(x, y), nil
}
