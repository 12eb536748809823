// Package ecdsatwist recovers ECDSA private keys from signers that accept or
// produce public keys off the secp256k1 curve.
//
// A point (x, y) that fails y^2 = x^3 + 7 still lies on exactly one curve
// y^2 = x^3 + b'. The group law never uses b', so a signer that skips the
// curve check computes on that curve, one of the six sextic twists of
// secp256k1 (or the singular cusp for b' = 0). Twist orders have small prime
// factors; the key modulo each of them is a discrete logarithm in a small
// subgroup. Residues from several faulty keys of one wallet are accumulated
// and combined with the Chinese Remainder Theorem.
//
// # Quick Start
//
//	import "github.com/mahdiidarabi/ecdsa-twist/pkg/ecdsatwist"
//
//	client := ecdsatwist.NewClient()
//
//	result, err := client.Analyze(ctx, &ecdsatwist.TransactionInput{
//	    TxID:      "f4184fc5...",
//	    PublicKey: "04...",
//	    Signature: "3044...01",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println(result.Status, result.Message, result.RecoveredPrivateKey)
//
// # Storage
//
// Analyses and fragment sets go through the Store interface. The default is
// an in-memory store; internal/store provides badger and SQL backends:
//
//	client := ecdsatwist.NewClient().WithStore(store)
//
// Terminal analyses are memoized by txid. Fragment sets only ever grow and
// are merged under a per-key lock, so analyses may arrive in any order.
//
// # Batches
//
// AnalyzeBatch runs analyses concurrently and additionally detects ECDSA
// nonce reuse between on-curve inputs that carry their message hash:
//
//	results, err := client.AnalyzeSource(ctx, "transactions.json")
package ecdsatwist
