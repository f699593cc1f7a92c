// Package harness runs analysis scenarios described in YAML files.
//
// A scenario names a data table (a file relative to the scenario, or an
// inline table), optional configuration overrides and a set of
// expectations about the outcome: the error category for scenarios that
// must fail, or properties of the report (singular fit, number of
// comparisons, R² ordering, likelihood-ratio degrees of freedom, which
// pairs differ) for scenarios that must succeed.
//
// Each scenario runs with a fixed run identifier so that snapshots are
// reproducible:
//
//	s, err := harness.LoadScenario("testdata/scenarios/reference.yaml")
//	if err != nil {
//		return err
//	}
//	res, err := harness.Run(ctx, s)
//	if err != nil {
//		return err
//	}
//	if !res.Pass {
//		for _, msg := range res.Errors {
//			fmt.Println(msg)
//		}
//	}
//
// Snapshots deliberately exclude floating-point values so that golden
// files survive harmless last-digit changes in the numerics.
package harness
