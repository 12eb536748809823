package ecdsatwist

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// TransactionParser reads transaction inputs from a source.
type TransactionParser interface {
	// ParseTransactions parses the file at source.
	ParseTransactions(source string) ([]*TransactionInput, error)
}

// Columns names the fields of a transaction input in a source. Empty names
// select the defaults: txid, publicKey, signature, messageHash,
// ownerPublicKey.
type Columns struct {
	TxID           string
	PublicKey      string
	Signature      string
	MessageHash    string
	OwnerPublicKey string
}

func (c Columns) withDefaults() Columns {
	if c.TxID == "" {
		c.TxID = "txid"
	}
	if c.PublicKey == "" {
		c.PublicKey = "publicKey"
	}
	if c.Signature == "" {
		c.Signature = "signature"
	}
	if c.MessageHash == "" {
		c.MessageHash = "messageHash"
	}
	if c.OwnerPublicKey == "" {
		c.OwnerPublicKey = "ownerPublicKey"
	}
	return c
}

// JSONParser parses a JSON array of objects.
//
// Expected format:
//
//	[
//	  {"txid": "...", "publicKey": "04...", "signature": "3044...01"},
//	  {"txid": "...", "publicKey": "02...", "signature": "...", "messageHash": "..."}
//	]
type JSONParser struct {
	Columns Columns
}

// ParseTransactions parses a JSON file.
func (p *JSONParser) ParseTransactions(jsonFile string) ([]*TransactionInput, error) {
	file, err := os.Open(jsonFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	defer file.Close()

	return p.Parse(file)
}

// Parse reads a JSON array from r.
func (p *JSONParser) Parse(r io.Reader) ([]*TransactionInput, error) {
	var items []map[string]interface{}
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	cols := p.Columns.withDefaults()
	inputs := make([]*TransactionInput, 0, len(items))

	var err error
	for i, item := range items {
		field := func(name string, required bool) (string, error) {
			v, ok := item[name]
			if !ok || v == nil {
				if required {
					return "", fmt.Errorf("item %d: missing %s field", i, name)
				}
				return "", nil
			}
			s, ok := v.(string)
			if !ok {
				return "", fmt.Errorf("item %d: %s field must be a string", i, name)
			}
			return s, nil
		}

		in := &TransactionInput{}
		if in.TxID, err = field(cols.TxID, true); err != nil {
			return nil, err
		}
		if in.PublicKey, err = field(cols.PublicKey, true); err != nil {
			return nil, err
		}
		if in.Signature, err = field(cols.Signature, true); err != nil {
			return nil, err
		}
		if in.MessageHash, err = field(cols.MessageHash, false); err != nil {
			return nil, err
		}
		if in.OwnerPublicKey, err = field(cols.OwnerPublicKey, false); err != nil {
			return nil, err
		}

		inputs = append(inputs, in)
	}

	return inputs, nil
}

// CSVParser parses a CSV file with a header row.
type CSVParser struct {
	Columns Columns
}

// ParseTransactions parses a CSV file.
func (p *CSVParser) ParseTransactions(csvFile string) ([]*TransactionInput, error) {
	file, err := os.Open(csvFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return p.Parse(file)
}

// Parse reads CSV records from r.
func (p *CSVParser) Parse(r io.Reader) ([]*TransactionInput, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	cols := p.Columns.withDefaults()
	index := map[string]int{}
	for i, col := range header {
		index[strings.TrimSpace(col)] = i
	}

	for _, required := range []string{cols.TxID, cols.PublicKey, cols.Signature} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("missing required column: %s", required)
		}
	}

	get := func(record []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	inputs := make([]*TransactionInput, 0)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read record: %w", err)
		}

		inputs = append(inputs, &TransactionInput{
			TxID:           get(record, cols.TxID),
			PublicKey:      get(record, cols.PublicKey),
			Signature:      get(record, cols.Signature),
			MessageHash:    get(record, cols.MessageHash),
			OwnerPublicKey: get(record, cols.OwnerPublicKey),
		})
	}

	return inputs, nil
}

// ParserFor picks a parser by file extension.
func ParserFor(source string) TransactionParser {
	if strings.HasSuffix(strings.ToLower(source), ".csv") {
		return &CSVParser{}
	}
	return &JSONParser{}
}
