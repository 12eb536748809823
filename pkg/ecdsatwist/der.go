package ecdsatwist

import (
	"fmt"
	"math/big"
)

const (
	derSequence = 0x30
	derInteger  = 0x02
)

// ParseDERSignatureHex decodes a hex DER signature, see ParseDERSignature.
func ParseDERSignatureHex(s string) (*Signature, error) {
	raw, err := decodeHex("signature", s)
	if err != nil {
		return nil, err
	}
	return ParseDERSignature(raw)
}

// ParseDERSignature decodes
//
//	30 <len> 02 <rlen> <r> 02 <slen> <s> [sighash]
//
// DER's zero padding in front of a high-bit integer is stripped. Every
// structural mismatch is a *ParseError naming the violated expectation;
// no signature is ever guessed.
func ParseDERSignature(data []byte) (*Signature, error) {
	if len(data) < 8 {
		return nil, &ParseError{Offset: 0, Expected: "at least 8 bytes", Found: fmt.Sprintf("%d bytes", len(data))}
	}

	if data[0] != derSequence {
		return nil, &ParseError{Offset: 0, Expected: "sequence header 0x30", Found: fmt.Sprintf("0x%02x", data[0])}
	}

	seqLen := int(data[1])
	if seqLen&0x80 != 0 {
		return nil, &ParseError{Offset: 1, Expected: "short-form sequence length", Found: fmt.Sprintf("0x%02x", data[1])}
	}

	end := 2 + seqLen
	if end > len(data) {
		return nil, &ParseError{Offset: 1, Expected: fmt.Sprintf("%d content bytes", seqLen), Found: fmt.Sprintf("%d", len(data)-2)}
	}

	sig := &Signature{}
	switch trailing := len(data) - end; trailing {
	case 0:
	case 1:
		sig.Sighash = data[end]
	default:
		return nil, &ParseError{Offset: end, Expected: "at most one sighash byte after the sequence", Found: fmt.Sprintf("%d bytes", trailing)}
	}

	r, offset, err := parseDERInteger(data, 2, end, "r")
	if err != nil {
		return nil, err
	}

	s, offset, err := parseDERInteger(data, offset, end, "s")
	if err != nil {
		return nil, err
	}

	if offset != end {
		return nil, &ParseError{Offset: offset, Expected: "end of sequence", Found: fmt.Sprintf("%d extra bytes", end-offset)}
	}

	sig.R = r
	sig.S = s
	return sig, nil
}

// parseDERInteger reads one 02 <len> <bytes> element starting at offset and
// returns the value and the offset after it.
func parseDERInteger(data []byte, offset, end int, name string) (*big.Int, int, error) {
	if offset+2 > end {
		return nil, offset, &ParseError{Offset: offset, Expected: fmt.Sprintf("integer marker 0x02 for %s", name), Found: "end of sequence"}
	}

	if data[offset] != derInteger {
		return nil, offset, &ParseError{Offset: offset, Expected: fmt.Sprintf("integer marker 0x02 for %s", name), Found: fmt.Sprintf("0x%02x", data[offset])}
	}

	n := int(data[offset+1])
	if n == 0 {
		return nil, offset, &ParseError{Offset: offset + 1, Expected: fmt.Sprintf("non-empty %s", name), Found: "length 0"}
	}

	start := offset + 2
	if start+n > end {
		return nil, offset, &ParseError{Offset: offset + 1, Expected: fmt.Sprintf("%d bytes of %s", n, name), Found: fmt.Sprintf("%d", end-start)}
	}

	content := data[start : start+n]
	for len(content) > 1 && content[0] == 0x00 {
		content = content[1:]
	}
	if len(content) > 32 {
		return nil, offset, &ParseError{Offset: start, Expected: fmt.Sprintf("%s of at most 32 bytes", name), Found: fmt.Sprintf("%d bytes", len(content))}
	}

	return new(big.Int).SetBytes(content), start + n, nil
}

// EncodeDER produces the minimal DER encoding of (r, s), followed by the
// sighash byte when it is non-zero.
func EncodeDER(r, s *big.Int, sighash byte) []byte {
	rb := derIntegerBytes(r)
	sb := derIntegerBytes(s)

	out := make([]byte, 0, 6+len(rb)+len(sb)+1)
	out = append(out, derSequence, byte(4+len(rb)+len(sb)))
	out = append(out, derInteger, byte(len(rb)))
	out = append(out, rb...)
	out = append(out, derInteger, byte(len(sb)))
	out = append(out, sb...)
	if sighash != 0 {
		out = append(out, sighash)
	}
	return out
}

func derIntegerBytes(v *big.Int) []byte {
	b := v.Bytes()
	if len(b) == 0 {
		return []byte{0x00}
	}
	if b[0]&0x80 != 0 {
		b = append([]byte{0x00}, b...)
	}
	return b
}

// SerializeDER encodes the signature with EncodeDER.
func (s *Signature) SerializeDER() []byte {
	return EncodeDER(s.R, s.S, s.Sighash)
}

type signatureJSON struct {
	R       string `json:"r"`
	S       string `json:"s"`
	Sighash byte   `json:"sighash"`
}

// MarshalJSON encodes r and s as 0x-prefixed 64-character hex.
func (s *Signature) MarshalJSON() ([]byte, error) {
	return json.Marshal(signatureJSON{R: s.RHex(), S: s.SHex(), Sighash: s.Sighash})
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (s *Signature) UnmarshalJSON(data []byte) error {
	var raw signatureJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	r, err := parseHexInt("signature r", raw.R)
	if err != nil {
		return err
	}
	sv, err := parseHexInt("signature s", raw.S)
	if err != nil {
		return err
	}

	*s = Signature{R: r, S: sv, Sighash: raw.Sighash}
	return nil
}
