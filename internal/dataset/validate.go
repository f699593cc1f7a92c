package dataset

// Validate checks the structural invariants of an observation table: each
// (locality, locus) pair appears at most once and a locality's habitat
// never changes.
func Validate(t *Table) error {
	if len(t.Rows) == 0 {
		return ErrEmpty
	}

	type pair struct{ locality, locus string }
	seen := make(map[pair]int, len(t.Rows))
	habitat := make(map[string]Observation)

	for _, r := range t.Rows {
		k := pair{r.Locality, r.Locus}
		if line, ok := seen[k]; ok {
			return &DuplicateError{Locality: r.Locality, Locus: r.Locus, Lines: [2]int{line, r.Line}}
		}
		seen[k] = r.Line

		if first, ok := habitat[r.Locality]; ok {
			if first.Habitat != r.Habitat {
				return &InconsistentHabitatError{
					Locality: r.Locality,
					Habitats: [2]string{first.Habitat, r.Habitat},
					Line:     r.Line,
				}
			}
			continue
		}
		habitat[r.Locality] = r
	}
	return nil
}
