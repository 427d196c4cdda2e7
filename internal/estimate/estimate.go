// Package estimate is an incremental cost model for comparing evaluation
// orders of the same set of cardinality constraints.
//
// A Constraint bounds the number of distinct joint assignments of a set of
// variables. The Estimator keeps constraints on a stack that mirrors a
// candidate join order; Width is the worst-case number of live
// intermediate tuples needed to evaluate everything pushed so far.
//
// Width is the smallest product of bounds over any subset of the pushed
// constraints that together mention every pushed variable. A constraint
// whose variables are already covered can only lower the width when its
// own bound is tighter than the cover it replaces; a constraint bringing
// new variables multiplies the width by (at most) its bound. Width depends
// only on the stack contents, so PopLast restores exactly the width seen
// before the matching Push.
//
// The cover search is exact for up to MaxExactConstraints constraints and
// exponential in their number. Larger stacks use a greedy cover, which is
// never below the exact width.
package estimate

import (
	"math"
	"math/bits"
	"sort"
	"strconv"
	"strings"
)

// Constraint bounds the joint assignments of Vars by Max.
type Constraint struct {
	Vars []string
	Max  int64
}

func (c Constraint) String() string {
	return "{" + strings.Join(c.Vars, ",") + "}<=" + itoa(c.Max)
}

func itoa(n int64) string {
	if n == math.MaxInt64 {
		return "inf"
	}
	return strconv.FormatInt(n, 10)
}

// MaxExactConstraints is the largest stack Width solves exactly.
const MaxExactConstraints = 20

// Estimator is a stack of constraints.
type Estimator struct {
	stack []Constraint
}

// New returns an empty estimator.
func New() *Estimator {
	return &Estimator{}
}

// Push adds c to the top of the stack.
func (e *Estimator) Push(c Constraint) {
	e.stack = append(e.stack, Constraint{Vars: append([]string(nil), c.Vars...), Max: c.Max})
}

// PopLast removes the most recently pushed constraint. It reports false on
// an empty stack.
func (e *Estimator) PopLast() (Constraint, bool) {
	if len(e.stack) == 0 {
		return Constraint{}, false
	}
	c := e.stack[len(e.stack)-1]
	e.stack = e.stack[:len(e.stack)-1]
	return c, true
}

// Len returns the number of pushed constraints.
func (e *Estimator) Len() int {
	return len(e.stack)
}

// Width returns the current worst-case intermediate width. An empty stack
// has width 1.
func (e *Estimator) Width() int64 {
	return e.width(MaxExactConstraints)
}

// width searches exactly when there are at most maxExact candidates.
func (e *Estimator) width(maxExact int) int64 {
	if len(e.stack) == 0 {
		return 1
	}

	varIndex := map[string]int{}
	for _, c := range e.stack {
		for _, v := range c.Vars {
			if _, ok := varIndex[v]; !ok {
				varIndex[v] = len(varIndex)
			}
		}
	}
	if len(varIndex) == 0 {
		// Only variable-free constraints: the tightest one governs.
		best := int64(math.MaxInt64)
		for _, c := range e.stack {
			best = min(best, c.Max)
		}
		return best
	}

	cands := make([]candidate, 0, len(e.stack))
	for _, c := range e.stack {
		mask := newBitset(len(varIndex))
		for _, v := range c.Vars {
			mask.set(varIndex[v])
		}
		if mask.empty() {
			continue
		}
		cands = append(cands, candidate{mask: mask, max: c.Max})
	}
	// Try tight bounds first so pruning kicks in early.
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].max < cands[j].max })

	all := fullBitset(len(varIndex))
	if len(cands) > maxExact {
		return greedyCover(cands, all)
	}
	s := &search{cands: cands, best: math.MaxInt64, all: all}
	s.run(0, newBitset(len(varIndex)), 1)
	return s.best
}

type candidate struct {
	mask bitset
	max  int64
}

// search is a branch and bound over constraint subsets.
type search struct {
	cands []candidate
	all   bitset
	best  int64
}

func (s *search) run(i int, covered bitset, product int64) {
	if product >= s.best {
		// Bounds are non-negative, so the product cannot shrink unless a
		// zero bound appears later; handle that case explicitly.
		if !s.zeroAhead(i) {
			return
		}
	}
	if covered.equal(s.all) {
		s.best = min(s.best, product)
		return
	}
	if i == len(s.cands) {
		return
	}
	c := s.cands[i]
	if !c.mask.subsetOf(covered) || c.max == 0 {
		s.run(i+1, covered.union(c.mask), MulSaturating(product, c.max))
	}
	s.run(i+1, covered, product)
}

func (s *search) zeroAhead(i int) bool {
	for ; i < len(s.cands); i++ {
		if s.cands[i].max == 0 {
			return true
		}
	}
	return false
}

// greedyCover picks, until all is covered, the candidate with the lowest
// log bound per newly covered variable. cands must cover all.
func greedyCover(cands []candidate, all bitset) int64 {
	for _, c := range cands {
		if c.max == 0 {
			return 0
		}
	}
	covered := make(bitset, len(all))
	product := int64(1)
	for !covered.equal(all) {
		best, bestScore := -1, math.Inf(1)
		for i, c := range cands {
			n := c.mask.countNew(covered)
			if n == 0 {
				continue
			}
			if score := math.Log(float64(c.max)) / float64(n); score < bestScore {
				best, bestScore = i, score
			}
		}
		if best < 0 {
			return math.MaxInt64
		}
		covered = covered.union(cands[best].mask)
		product = MulSaturating(product, cands[best].max)
	}
	return product
}

// MulSaturating multiplies non-negative a and b, clamping at MaxInt64.
func MulSaturating(a, b int64) int64 {
	if a <= 0 || b <= 0 {
		return 0
	}
	if a > math.MaxInt64/b {
		return math.MaxInt64
	}
	return a * b
}

// bitset is a variable set sized to the estimator's variable count.
type bitset []uint64

func newBitset(n int) bitset {
	return make(bitset, (n+63)/64)
}

func fullBitset(n int) bitset {
	b := newBitset(n)
	for i := 0; i < n; i++ {
		b.set(i)
	}
	return b
}

func (b bitset) set(i int) { b[i/64] |= 1 << (i % 64) }

func (b bitset) empty() bool {
	for _, w := range b {
		if w != 0 {
			return false
		}
	}
	return true
}

func (b bitset) equal(o bitset) bool {
	for i := range b {
		if b[i] != o[i] {
			return false
		}
	}
	return true
}

func (b bitset) subsetOf(o bitset) bool {
	for i := range b {
		if b[i]&^o[i] != 0 {
			return false
		}
	}
	return true
}

// countNew counts the members of b missing from o.
func (b bitset) countNew(o bitset) int {
	n := 0
	for i := range b {
		n += bits.OnesCount64(b[i] &^ o[i])
	}
	return n
}

func (b bitset) union(o bitset) bitset {
	out := make(bitset, len(b))
	for i := range b {
		out[i] = b[i] | o[i]
	}
	return out
}
