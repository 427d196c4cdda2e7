package ir

import (
	"slices"
	"strings"
)

// Binding is an immutable mapping from variable to term.
//
// Bindings form a parent chain: With returns a new node that points at
// the receiver, so extending a binding never copies or mutates it. The zero
// value is the empty binding.
type Binding struct {
	parent *Binding
	name   Variable
	value  Term
	size   int
}

// EmptyBinding returns the binding with no variables.
func EmptyBinding() Binding {
	return Binding{}
}

// BindingOf builds a binding from a map. Keys are added in sorted order
// so the result is deterministic.
func BindingOf(m map[Variable]Term) Binding {
	keys := make([]Variable, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	b := EmptyBinding()
	for _, k := range keys {
		b = b.With(k, m[k])
	}
	return b
}

// Len returns the number of bound variables.
func (b Binding) Len() int {
	return b.size
}

// Get returns the term bound to v.
func (b Binding) Get(v Variable) (Term, bool) {
	for n := &b; n != nil && n.size > 0; n = n.parent {
		if n.name == v {
			return n.value, true
		}
	}
	return nil, false
}

// Contains reports whether v is bound.
func (b Binding) Contains(v Variable) bool {
	_, ok := b.Get(v)
	return ok
}

// With returns a binding that additionally maps v to t.
// If v is already bound the receiver is returned unchanged; callers that
// need to detect conflicts use Compatible first.
func (b Binding) With(v Variable, t Term) Binding {
	if b.Contains(v) {
		return b
	}
	parent := b
	return Binding{parent: &parent, name: v, value: t, size: b.size + 1}
}

// Compatible reports whether binding v to t agrees with b.
func (b Binding) Compatible(v Variable, t Term) bool {
	cur, ok := b.Get(v)
	return !ok || cur == t
}

// Extend binds every pair of m not already bound.
// It returns false if any pair conflicts with an existing value.
func (b Binding) Extend(m map[Variable]Term) (Binding, bool) {
	keys := make([]Variable, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	out := b
	for _, k := range keys {
		if !out.Compatible(k, m[k]) {
			return b, false
		}
		out = out.With(k, m[k])
	}
	return out, true
}

// Resolve returns the bound value for a variable term, or t itself.
func (b Binding) Resolve(t Term) Term {
	v, ok := t.(Variable)
	if !ok {
		return t
	}
	if val, bound := b.Get(v); bound {
		return val
	}
	return t
}

// Vars returns the bound variables in insertion order.
func (b Binding) Vars() []Variable {
	vars := make([]Variable, 0, b.size)
	for n := &b; n != nil && n.size > 0; n = n.parent {
		vars = append(vars, n.name)
	}
	slices.Reverse(vars)
	return vars
}

// Map returns a fresh map copy of the binding.
func (b Binding) Map() map[Variable]Term {
	m := make(map[Variable]Term, b.size)
	for n := &b; n != nil && n.size > 0; n = n.parent {
		m[n.name] = n.value
	}
	return m
}

// Project returns the binding restricted to vars.
func (b Binding) Project(vars []Variable) Binding {
	out := EmptyBinding()
	for _, v := range vars {
		if t, ok := b.Get(v); ok {
			out = out.With(v, t)
		}
	}
	return out
}

// Key returns a canonical string for set comparison.
// Two bindings with the same pairs have the same key regardless of the
// order in which the pairs were added.
func (b Binding) Key() string {
	vars := b.Vars()
	slices.Sort(vars)
	var sb strings.Builder
	for i, v := range vars {
		if i > 0 {
			sb.WriteByte(' ')
		}
		t, _ := b.Get(v)
		sb.WriteString(v.String())
		sb.WriteByte('=')
		sb.WriteString(t.String())
	}
	return sb.String()
}

// String renders the binding as {?a=<x> ?b="1"}.
func (b Binding) String() string {
	return "{" + b.Key() + "}"
}
