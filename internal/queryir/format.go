package queryir

import (
	"fmt"
	"strings"

	"github.com/raytheonbbn/parliament-sub002/internal/ir"
)

// Format renders op as an indented S-expression. The output is stable and
// is what explain and the plan golden files show.
func Format(op Op) string {
	var sb strings.Builder
	format(&sb, op, 0)
	return sb.String()
}

func format(sb *strings.Builder, op Op, depth int) {
	indent := strings.Repeat("  ", depth)
	sb.WriteString(indent)

	switch o := op.(type) {
	case nil:
		sb.WriteString("(table unit)")
	case BGP:
		if len(o.Pattern) == 0 {
			sb.WriteString("(bgp)")
			return
		}
		sb.WriteString("(bgp")
		writeTriples(sb, o.Pattern, depth+1)
		sb.WriteString(")")
	case Filter:
		fmt.Fprintf(sb, "(filter %s\n", formatExprs(o.Exprs))
		format(sb, o.Sub, depth+1)
		sb.WriteString(")")
	case Join:
		writeNode(sb, "join", depth, o.Left, o.Right)
	case LeftJoin:
		writeBinary(sb, "leftjoin", depth, o.Left, o.Right, o.Exprs)
	case Conditional:
		writeBinary(sb, "conditional", depth, o.Left, o.Right, o.Exprs)
	case Sequence:
		writeNode(sb, "sequence", depth, o.Ops...)
	case Union:
		writeNode(sb, "union", depth, o.Left, o.Right)
	case Extend:
		fmt.Fprintf(sb, "(extend ((%s %s))\n", o.Var, o.Value)
		format(sb, o.Sub, depth+1)
		sb.WriteString(")")
	case PropFunc:
		fmt.Fprintf(sb, "(propfunc %s %s %s\n", o.Function, o.Subject, o.Object)
		format(sb, o.Sub, depth+1)
		sb.WriteString(")")
	case IndexPropFunc:
		fmt.Fprintf(sb, "(indexfunc %s %s %s\n", o.Function, o.Subject, o.Object)
		sb.WriteString(indent + "  (pattern")
		writeTriples(sb, o.Pattern, depth+2)
		sb.WriteString(")\n")
		format(sb, o.Sub, depth+1)
		sb.WriteString(")")
	case Path:
		fmt.Fprintf(sb, "(path %s %s %s)", o.Subject, FormatPath(o.Path), o.Object)
	default:
		fmt.Fprintf(sb, "(unknown %T)", op)
	}
}

func writeNode(sb *strings.Builder, name string, depth int, children ...Op) {
	sb.WriteString("(" + name)
	for _, c := range children {
		sb.WriteByte('\n')
		format(sb, c, depth+1)
	}
	sb.WriteString(")")
}

func writeBinary(sb *strings.Builder, name string, depth int, left, right Op, exprs []ir.Expr) {
	sb.WriteString("(" + name)
	for _, c := range []Op{left, right} {
		sb.WriteByte('\n')
		format(sb, c, depth+1)
	}
	if len(exprs) > 0 {
		sb.WriteString("\n" + strings.Repeat("  ", depth+1) + formatExprs(exprs))
	}
	sb.WriteString(")")
}

func writeTriples(sb *strings.Builder, p ir.Pattern, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, t := range p {
		sb.WriteString("\n" + indent + "(triple " + t.String() + ")")
	}
}

func formatExprs(exprs []ir.Expr) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.String()
	}
	return "(exprs " + strings.Join(parts, " ") + ")"
}

// FormatPath renders a path in SPARQL property path syntax.
func FormatPath(p PathExpr) string {
	switch o := p.(type) {
	case Link:
		return o.Predicate.String()
	case Seq:
		return FormatPath(o.Left) + "/" + FormatPath(o.Right)
	case Inverse:
		if _, ok := o.Path.(Seq); ok {
			return "^(" + FormatPath(o.Path) + ")"
		}
		return "^" + FormatPath(o.Path)
	case nil:
		return "<nil>"
	default:
		return fmt.Sprintf("<unknown %T>", p)
	}
}
