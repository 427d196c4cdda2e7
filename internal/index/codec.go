package index

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/cockroachdb/errors"

	"github.com/raytheonbbn/parliament-sub002/internal/ir"
)

const (
	tagURI     = 'U'
	tagBlank   = 'B'
	tagLiteral = 'L'
)

// EncodeTerm serializes a concrete term for use as a storage key or value.
func EncodeTerm(t ir.Term) ([]byte, error) {
	switch v := t.(type) {
	case ir.URI:
		return append([]byte{tagURI}, v...), nil
	case ir.Blank:
		return append([]byte{tagBlank}, v...), nil
	case ir.Literal:
		buf := make([]byte, 0, 3+len(v.Datatype)+len(v.Lang)+len(v.Lexical))
		buf = append(buf, tagLiteral)
		buf = append(buf, v.Datatype...)
		buf = append(buf, 0)
		buf = append(buf, v.Lang...)
		buf = append(buf, 0)
		buf = append(buf, v.Lexical...)
		return buf, nil
	default:
		return nil, errors.Newf("cannot encode term %v", t)
	}
}

// DecodeTerm reverses EncodeTerm.
func DecodeTerm(b []byte) (ir.Term, error) {
	if len(b) == 0 {
		return nil, errors.New("empty term encoding")
	}
	body := b[1:]
	switch b[0] {
	case tagURI:
		return ir.URI(body), nil
	case tagBlank:
		return ir.Blank(body), nil
	case tagLiteral:
		parts := bytes.SplitN(body, []byte{0}, 3)
		if len(parts) != 3 {
			return nil, errors.Newf("malformed literal encoding %q", b)
		}
		return ir.Literal{Datatype: string(parts[0]), Lang: string(parts[1]), Lexical: string(parts[2])}, nil
	default:
		return nil, errors.Newf("unknown term tag %q", b[0])
	}
}

// EncodeFloat returns an 8-byte big-endian encoding whose byte order
// matches numeric order.
func EncodeFloat(f float64) []byte {
	bits := math.Float64bits(f)
	if bits&(1<<63) != 0 {
		bits = ^bits
	} else {
		bits |= 1 << 63
	}
	out := make([]byte, 8)
	binary.BigEndian.PutUint64(out, bits)
	return out
}

// DecodeFloat reverses EncodeFloat.
func DecodeFloat(b []byte) float64 {
	bits := binary.BigEndian.Uint64(b)
	if bits&(1<<63) != 0 {
		bits &^= 1 << 63
	} else {
		bits = ^bits
	}
	return math.Float64frombits(bits)
}
