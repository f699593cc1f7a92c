package digest

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/roach88/richness/internal/dataset"
)

// Domain prefixes for content-addressed identity.
// The version suffix leaves room for changing the encoding later.
const (
	DomainDataset = "richness/dataset/v1"
	DomainConfig  = "richness/config/v1"
	DomainResult  = "richness/result/v1"
)

// ResultDigits is the number of significant digits result values are
// rounded to before hashing, so last-bit floating-point noise does not
// change a result digest.
const ResultDigits = 10

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null byte keeps the domain/data boundary unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Dataset returns the identity of an observation table: its column names,
// habitat level order (which fixes the reference level) and every row.
func Dataset(t *dataset.Table) (string, error) {
	rows := make([]any, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = []any{r.Locality, r.Habitat, r.Locus, r.Richness}
	}
	obj := map[string]any{
		"columns": map[string]string{
			"locality": t.Columns.Locality,
			"habitat":  t.Columns.Habitat,
			"locus":    t.Columns.Locus,
			"response": t.Columns.Response,
		},
		"habitat_levels": t.Habitat.Levels,
		"rows":           rows,
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("dataset digest: %w", err)
	}
	return hashWithDomain(DomainDataset, canonical), nil
}

// Config returns the identity of any JSON-serializable configuration value.
func Config(v any) (string, error) {
	generic, err := toGeneric(v)
	if err != nil {
		return "", fmt.Errorf("config digest: %w", err)
	}
	canonical, err := MarshalCanonical(generic)
	if err != nil {
		return "", fmt.Errorf("config digest: %w", err)
	}
	return hashWithDomain(DomainConfig, canonical), nil
}

// Result returns the identity of a set of result values, rounding floats to
// ResultDigits significant digits first.
func Result(values map[string]any) (string, error) {
	var buf bytes.Buffer
	if err := (encoder{sig: ResultDigits}).encode(&buf, values); err != nil {
		return "", fmt.Errorf("result digest: %w", err)
	}
	return hashWithDomain(DomainResult, buf.Bytes()), nil
}

// toGeneric round-trips v through encoding/json so struct values become
// maps, slices and json.Numbers that MarshalCanonical understands.
func toGeneric(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// MustDataset is like Dataset but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustDataset(t *dataset.Table) string {
	d, err := Dataset(t)
	if err != nil {
		panic(err)
	}
	return d
}
