// Package dataset loads allelic-richness observation tables.
//
// A table is a delimited text file (tab-separated by default) with a header
// row naming at least four columns:
//
//	locality          sampled site identifier
//	habitat           fixed factor (e.g. Natural, Disturbed, City, Island)
//	locus             random grouping factor (marker identifier)
//	allelic_richness  rarefied allelic richness, non-negative float
//
// Column order does not matter and extra columns are ignored. Factor levels
// are collected from the observed values rather than from a fixed
// enumeration, and are ordered lexicographically unless a reference level is
// requested.
//
// Loaded tables are treated as immutable values: later stages read them but
// never modify them, so a single table can be shared by concurrent model fits.
package dataset
