// Package harness runs dashboards end to end and checks the outcome against
// YAML scenarios.
//
// A Pipeline loads a dashboard into a fresh in-memory store, applies the
// widget filter state to every query, builds and combines the queries and
// computes the summary and multi-value options. The CLI uses it for
// `vizq query`; scenarios use it to pin behavior.
//
// # Scenario Format
//
//	name: global-filter
//	description: "An active URL filter narrows the query"
//	dashboard: ../dashboards/sales.yaml
//	state:
//	  url: "?f-h1=north"
//	  range: { field: day, days: 7 }
//	  multi: [0]
//	assertions:
//	  - type: sql_contains
//	    query: 0
//	    text: "region = 'north'"
//	  - type: row_count
//	    count: 2
//	  - type: final_state
//	    table: sales
//	    where: { region: south }
//	    expect: { revenue: 100 }
//	golden: true
//
// The dashboard path is relative to the scenario file.
//
// # Golden Files
//
// Scenarios with golden set compare a canonical JSON snapshot of the output
// against testdata/golden/<name>.golden. Regenerate with:
//
//	go test ./internal/harness -update
//
// Runs are deterministic: filter ids come from a sequence generator and the
// range clock is pinned to testutil.Epoch.
package harness
