package ir

// Namespace prefixes.
const (
	RDFNamespace = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	XSDNamespace = "http://www.w3.org/2001/XMLSchema#"
)

// RDF reification vocabulary.
var (
	RDFType      = URI(RDFNamespace + "type")
	RDFSubject   = URI(RDFNamespace + "subject")
	RDFPredicate = URI(RDFNamespace + "predicate")
	RDFObject    = URI(RDFNamespace + "object")
	RDFStatement = URI(RDFNamespace + "Statement")
)

// XSD datatypes understood by numeric comparison and indexing.
const (
	XSDString  = XSDNamespace + "string"
	XSDInteger = XSDNamespace + "integer"
	XSDInt     = XSDNamespace + "int"
	XSDLong    = XSDNamespace + "long"
	XSDShort   = XSDNamespace + "short"
	XSDDecimal = XSDNamespace + "decimal"
	XSDDouble  = XSDNamespace + "double"
	XSDFloat   = XSDNamespace + "float"
)

var numericDatatypes = map[string]bool{
	XSDInteger: true,
	XSDInt:     true,
	XSDLong:    true,
	XSDShort:   true,
	XSDDecimal: true,
	XSDDouble:  true,
	XSDFloat:   true,
	XSDNamespace + "nonNegativeInteger": true,
	XSDNamespace + "positiveInteger":    true,
	XSDNamespace + "negativeInteger":    true,
	XSDNamespace + "nonPositiveInteger": true,
	XSDNamespace + "unsignedInt":        true,
	XSDNamespace + "unsignedLong":       true,
}

// IsNumericDatatype reports whether dt is an XSD numeric datatype.
func IsNumericDatatype(dt string) bool {
	return numericDatatypes[dt]
}

// IsReificationPredicate reports whether t is rdf:subject, rdf:predicate or rdf:object.
func IsReificationPredicate(t Term) bool {
	return t == RDFSubject || t == RDFPredicate || t == RDFObject
}
