package engine

import "github.com/google/btree"

// pieceDescriptor records, for a crack value v, the position where the
// ">= v" piece begins. holes and sorted are carried per spec §3 but are
// always zero/false on this query path: they are reserved for a future
// variant that maintains per-piece free slots and partially sorted pieces.
type pieceDescriptor struct {
	value  int32
	pos    int
	holes  int
	sorted bool
}

// prevPos is the position of the piece's previous boundary: pos - holes.
func (d *pieceDescriptor) prevPos() int { return d.pos - d.holes }

// Less implements btree.Item, ordering descriptors by crack value.
func (d *pieceDescriptor) Less(than btree.Item) bool {
	return d.value < than.(*pieceDescriptor).value
}

// crackerIndex is the ordered map from crack value to piece descriptor
// (spec §4.2). It wraps a google/btree.BTree, which provides the O(log n)
// ordered lookup and predecessor/successor traversal the piece locator
// needs and a hash map cannot.
type crackerIndex struct {
	tree *btree.BTree
}

func newCrackerIndex(tree *btree.BTree) *crackerIndex {
	return &crackerIndex{tree: tree}
}

func (idx *crackerIndex) len() int { return idx.tree.Len() }

func (idx *crackerIndex) clear() { idx.tree = btree.New(32) }

func (idx *crackerIndex) get(v int32) (*pieceDescriptor, bool) {
	item := idx.tree.Get(&pieceDescriptor{value: v})
	if item == nil {
		return nil, false
	}
	return item.(*pieceDescriptor), true
}

func (idx *crackerIndex) set(d *pieceDescriptor) {
	idx.tree.ReplaceOrInsert(d)
}

// lowerBound returns the smallest key >= v, or (nil, false) if v is
// greater than every stored key.
func (idx *crackerIndex) lowerBound(v int32) (*pieceDescriptor, bool) {
	var found *pieceDescriptor
	idx.tree.AscendGreaterOrEqual(&pieceDescriptor{value: v}, func(i btree.Item) bool {
		found = i.(*pieceDescriptor)
		return false
	})
	if found == nil {
		return nil, false
	}
	return found, true
}

// successor returns the smallest key strictly greater than d.value, or
// (nil, false) if d is the largest stored key.
func (idx *crackerIndex) successor(d *pieceDescriptor) (*pieceDescriptor, bool) {
	var next *pieceDescriptor
	seenSelf := false
	idx.tree.AscendGreaterOrEqual(d, func(i btree.Item) bool {
		if !seenSelf {
			seenSelf = true
			return true
		}
		next = i.(*pieceDescriptor)
		return false
	})
	if next == nil {
		return nil, false
	}
	return next, true
}

// predecessor returns the largest key strictly less than d.value, or
// (nil, false) if d is the smallest stored key.
func (idx *crackerIndex) predecessor(d *pieceDescriptor) (*pieceDescriptor, bool) {
	var prev *pieceDescriptor
	seenSelf := false
	idx.tree.DescendLessOrEqual(d, func(i btree.Item) bool {
		if !seenSelf {
			seenSelf = true
			return true
		}
		prev = i.(*pieceDescriptor)
		return false
	})
	if prev == nil {
		return nil, false
	}
	return prev, true
}

// max returns the largest stored key, or (nil, false) if the index is empty.
func (idx *crackerIndex) max() (*pieceDescriptor, bool) {
	item := idx.tree.Max()
	if item == nil {
		return nil, false
	}
	return item.(*pieceDescriptor), true
}

// findPiece is the piece locator from spec §4.2: given a query value v,
// it returns the half-open position range [L, R) of the piece currently
// containing v, along with the descriptor at or after v (k0), if any.
func (idx *crackerIndex) findPiece(v int32, size int) (l, r int, k0 *pieceDescriptor, hasK0 bool) {
	l, r = 0, size

	k0, hasK0 = idx.lowerBound(v)
	if !hasK0 {
		if last, ok := idx.max(); ok {
			l = last.pos
		}
		return l, r, nil, false
	}

	pred, hasPred := idx.predecessor(k0)

	if !hasPred {
		// k0 is the first key: no predecessor piece to its left.
		if v < k0.value {
			r = k0.prevPos()
			return l, r, k0, true
		}
		l = k0.pos
		if next, ok := idx.successor(k0); ok {
			r = next.prevPos()
		}
		return l, r, k0, true
	}

	if v < k0.value {
		r = k0.prevPos()
		l = pred.pos
		return l, r, k0, true
	}

	l = k0.pos
	if next, ok := idx.successor(k0); ok {
		r = next.prevPos()
	}
	return l, r, k0, true
}

// addCrack installs a crack at (v, p) if and only if it passes every
// suppression rule in spec §4.4 — duplicate suppression keeps I1 strict
// (no two keys sharing a position) and keeps the index sparse. It reports
// whether a new descriptor was actually installed, so callers can count
// cracks created per query rather than cracks attempted.
func (idx *crackerIndex) addCrack(v int32, p, size int) bool {
	if p == 0 || p >= size {
		return false
	}

	if k0, ok := idx.lowerBound(v); ok {
		if k0.pos == p {
			return false
		}
		if k0.value == v {
			if next, ok := idx.successor(k0); ok && next.prevPos() == p {
				return false
			}
		} else if k0.prevPos() == p {
			return false
		}
		if pred, ok := idx.predecessor(k0); ok && pred.pos == p {
			return false
		}
	} else if last, ok := idx.max(); ok && last.pos == p {
		return false
	}

	if _, ok := idx.get(v); ok {
		// v is already a key: lowerBound(v) returned it as k0 above, so the
		// case existing.pos == p already returned at the k0.pos == p check.
		// Either way the existing descriptor is kept unchanged.
		return false
	}

	idx.set(&pieceDescriptor{value: v, pos: p, holes: 0, sorted: false})
	return true
}
