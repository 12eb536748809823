// Command twistscan analyzes Bitcoin transaction inputs for public keys that
// lie off secp256k1 and accumulates the private-key residues they leak.
//
// Usage:
//
//	twistscan analyze --txid <id> --public-key <hex> --signature <der hex>
//	twistscan batch --input txs.json
//	twistscan factor <n> | --twists
//	twistscan fragments --public-key <hex>
//
// Every flag can also be set through the TWISTSCAN_* environment variable
// named in its help text.
package main

import (
	"fmt"
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/urfave/cli/v2"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "twistscan",
		Usage: "Recover ECDSA private keys leaked through invalid-curve public keys",
		Flags: globalFlags(),
		Commands: []*cli.Command{
			{
				Name:   "analyze",
				Usage:  "Analyze a single transaction input",
				Flags:  analyzeFlags(),
				Action: runAnalyze,
			},
			{
				Name:   "batch",
				Usage:  "Analyze every input of a JSON or CSV file",
				Flags:  batchFlags(),
				Action: runBatch,
			},
			{
				Name:      "factor",
				Usage:     "Factor an integer, or the six secp256k1 twist orders",
				ArgsUsage: "<decimal or 0x-hex integer>",
				Flags:     factorFlags(),
				Action:    runFactor,
			},
			{
				Name:   "fragments",
				Usage:  "Show the residues accumulated for a public key",
				Flags:  fragmentsFlags(),
				Action: runFragments,
			},
		},
	}
}

func printJSON(w io.Writer, v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
