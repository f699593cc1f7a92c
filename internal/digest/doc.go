// Package digest computes content-addressed identities for analysis inputs
// and results.
//
// Identities are SHA-256 over canonical JSON with domain separation:
//
//	SHA256(domain + 0x00 + canonical_json)
//
// Canonical JSON sorts object keys by UTF-16 code units, NFC-normalizes
// strings, never HTML-escapes, and writes floats in their shortest
// round-trip form. Two runs over byte-identical inputs always produce the
// same dataset and config digests, which is what lets the inference stage
// refuse to compare models fitted on different data.
package digest
