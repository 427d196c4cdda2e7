package queryir

// Walk visits op and its sub-operations depth-first, parents before
// children. Returning false from fn skips the node's children.
func Walk(op Op, fn func(Op) bool) {
	if op == nil {
		return
	}
	if !fn(op) {
		return
	}
	for _, c := range Children(op) {
		Walk(c, fn)
	}
}

// Transform rewrites op bottom-up: children are rewritten first, the node
// is rebuilt around them, then fn is applied to the rebuilt node.
// fn returns its argument unchanged to leave a node alone.
func Transform(op Op, fn func(Op) Op) Op {
	if op == nil {
		return nil
	}
	var rebuilt Op
	switch o := op.(type) {
	case Filter:
		o.Sub = Transform(o.Sub, fn)
		rebuilt = o
	case Join:
		o.Left = Transform(o.Left, fn)
		o.Right = Transform(o.Right, fn)
		rebuilt = o
	case LeftJoin:
		o.Left = Transform(o.Left, fn)
		o.Right = Transform(o.Right, fn)
		rebuilt = o
	case Conditional:
		o.Left = Transform(o.Left, fn)
		o.Right = Transform(o.Right, fn)
		rebuilt = o
	case Sequence:
		ops := make([]Op, len(o.Ops))
		for i, c := range o.Ops {
			ops[i] = Transform(c, fn)
		}
		o.Ops = ops
		rebuilt = o
	case Union:
		o.Left = Transform(o.Left, fn)
		o.Right = Transform(o.Right, fn)
		rebuilt = o
	case Extend:
		o.Sub = Transform(o.Sub, fn)
		rebuilt = o
	case PropFunc:
		o.Sub = Transform(o.Sub, fn)
		rebuilt = o
	case IndexPropFunc:
		o.Sub = Transform(o.Sub, fn)
		rebuilt = o
	default:
		rebuilt = op
	}
	return fn(rebuilt)
}
