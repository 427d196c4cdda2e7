// Package harness runs scripted scenarios against a fresh query engine.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: adult_names
//	description: "index function answers an age bound"
//	prefixes:
//	  ex: http://example.org/
//	data: |
//	  ex:alice ex:age 17 ; ex:name "Alice" .
//	  ex:carol ex:age 30 ; ex:name "Carol" .
//	indexes:
//	  - name: age
//	    predicate: http://example.org/age
//	    functions:
//	      - { uri: http://example.org/ageAbove, op: ">" }
//	optimizer:
//	  path_flattening: false
//	steps:
//	  - name: adults
//	    query: "?s ex:ageAbove 18 . ?s ex:name ?n ."
//	    expect:
//	      rows: 1
//	      contains: [{ n: '"Carol"' }]
//	  - name: plan
//	    explain: "?s ex:age ?a . ?s ex:name ?n ."
//	    expect:
//	      plan: ["[index]"]
//
// Steps add or delete statements, run a query, or explain one. Queries
// use the pattern syntax of ir.ParseQuery, including FILTER clauses.
//
// # Expectations
//
//   - count: statements written by an add or delete step
//   - rows: exact number of result rows
//   - contains / absent: rows that must or must not appear; each lists
//     only the variables it cares about
//   - error: the query error code, e.g. QUOTA_EXCEEDED
//   - plan: substrings of the rendered plans of an explain step
//
// A query step without expectations must succeed.
//
// # Deterministic Testing
//
// Every scenario runs in its own in-memory SQLite store with fixed query
// ids (q-1, q-2, ...). Result rows are recorded as sorted binding keys,
// so traces can be compared byte for byte against golden files.
package harness
