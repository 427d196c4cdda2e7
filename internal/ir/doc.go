// Package ir provides the term, triple-pattern, binding and filter-expression
// types shared by every other package in kbgraph.
//
// This package contains type definitions and small pure helpers only. All
// other internal packages import ir; ir imports nothing internal. This keeps
// the data model the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Term is a sealed interface (URI, Literal, Blank, Variable); all four are
//     comparable value types, so == is term equality
//   - Text entering the model is NFC-normalized so one IRI has one spelling
//   - Binding is immutable; With and Extend return new bindings and never
//     mutate the receiver
//   - Pattern order is the default evaluation order and the tie-break for
//     every reordering pass
package ir
