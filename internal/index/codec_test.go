package index

import (
	"bytes"
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raytheonbbn/parliament-sub002/internal/ir"
)

func TestEncodeTermRoundTrip(t *testing.T) {
	terms := []ir.Term{
		ir.URI("http://example.org/a"),
		ir.Blank("b12"),
		ir.IntLiteral(42),
		ir.NewLangLiteral("chat", "fr"),
		ir.NewPlainLiteral(""),
	}
	for _, term := range terms {
		t.Run(term.String(), func(t *testing.T) {
			b, err := EncodeTerm(term)
			require.NoError(t, err)
			got, err := DecodeTerm(b)
			require.NoError(t, err)
			assert.Equal(t, term, got)
		})
	}
}

func TestEncodeTermRejectsVariables(t *testing.T) {
	_, err := EncodeTerm(ir.Variable("x"))
	assert.Error(t, err)
}

func TestEncodeFloatPreservesOrder(t *testing.T) {
	values := []float64{3.5, -1, 0, math.Inf(-1), -1000.25, 7, 1e-9, math.Inf(1), -1e-9}
	encoded := make([][]byte, len(values))
	for i, v := range values {
		encoded[i] = EncodeFloat(v)
		assert.Equal(t, v, DecodeFloat(encoded[i]))
	}

	sort.Float64s(values)
	sort.Slice(encoded, func(i, j int) bool { return bytes.Compare(encoded[i], encoded[j]) < 0 })
	for i, v := range values {
		assert.Equal(t, v, DecodeFloat(encoded[i]))
	}
}
