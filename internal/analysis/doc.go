// Package analysis runs the habitat-versus-allelic-richness workflow end to
// end:
//
//	load table -> fit full and null models -> residual diagnostics
//	           -> pairwise comparisons -> likelihood-ratio test and R²
//
// Every stage consumes the values produced before it and nothing else; a
// stage error ends the run. Singular fits are the exception: they surface
// as warnings on the Report.
//
// A Report carries content digests of its input table, its configuration
// and its headline numbers, so two runs can be checked for agreement either
// exactly (digests) or within a tolerance (Compare).
package analysis
