package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprintDeterminism(t *testing.T) {
	p := Pattern{
		NewTriple(Variable("s"), URI("http://p"), Variable("o")),
		NewTriple(Variable("o"), URI("http://q"), IntLiteral(3)),
	}

	assert.Equal(t, Fingerprint(p), Fingerprint(p.Clone()))
	assert.Len(t, Fingerprint(p), 64, "SHA-256 hex is 64 characters")
}

func TestFingerprintIsOrderSensitive(t *testing.T) {
	a := NewTriple(Variable("s"), URI("http://p"), Variable("o"))
	b := NewTriple(Variable("o"), URI("http://q"), Variable("x"))

	assert.NotEqual(t, Fingerprint(Pattern{a, b}), Fingerprint(Pattern{b, a}),
		"evaluation order is part of a plan's identity")
}

func TestBindingHashIgnoresInsertionOrder(t *testing.T) {
	b1 := EmptyBinding().With("x", URI("http://a")).With("y", IntLiteral(1))
	b2 := EmptyBinding().With("y", IntLiteral(1)).With("x", URI("http://a"))

	assert.Equal(t, BindingHash(b1), BindingHash(b2))
	assert.NotEqual(t, BindingHash(b1), BindingHash(EmptyBinding()))
}

func TestDomainSeparation(t *testing.T) {
	data := []byte("same")
	assert.NotEqual(t, hashWithDomain(DomainPattern, data), hashWithDomain(DomainBinding, data))
}
