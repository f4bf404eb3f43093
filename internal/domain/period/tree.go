package period

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// ErrCycle is returned when a parent link would make a period its own ancestor.
var ErrCycle = errors.New("fiscal period would become its own ancestor")

// Tree indexes a company's periods by id and keeps a derived children index alongside.
// Insert refuses parent links that would close a cycle.
type Tree struct {
	nodes    map[uuid.UUID]*FiscalPeriod
	children map[uuid.UUID][]uuid.UUID
}

func NewTree() *Tree {
	return &Tree{
		nodes:    make(map[uuid.UUID]*FiscalPeriod),
		children: make(map[uuid.UUID][]uuid.UUID),
	}
}

// BuildTree indexes the given periods. Periods whose parent is missing are kept as roots.
func BuildTree(periods []*FiscalPeriod) (*Tree, error) {
	t := NewTree()
	for _, p := range periods {
		if err := t.Insert(p); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Insert adds p and links it under its parent id. Re-inserting an id replaces the node.
func (t *Tree) Insert(p *FiscalPeriod) error {
	if p.ParentID != nil && (*p.ParentID == p.ID || t.IsAncestor(p.ID, *p.ParentID)) {
		return fmt.Errorf("%w: %s", ErrCycle, p.Code)
	}
	if _, ok := t.nodes[p.ID]; ok {
		t.Remove(p.ID)
	}
	t.nodes[p.ID] = p
	if p.ParentID != nil {
		t.children[*p.ParentID] = append(t.children[*p.ParentID], p.ID)
	}
	return nil
}

// Remove drops a single node and unlinks it from its parent. Children are left in place.
func (t *Tree) Remove(id uuid.UUID) {
	p, ok := t.nodes[id]
	if !ok {
		return
	}
	delete(t.nodes, id)
	if p.ParentID != nil {
		siblings := t.children[*p.ParentID]
		for i, c := range siblings {
			if c == id {
				t.children[*p.ParentID] = append(siblings[:i:i], siblings[i+1:]...)
				break
			}
		}
		if len(t.children[*p.ParentID]) == 0 {
			delete(t.children, *p.ParentID)
		}
	}
}

func (t *Tree) Get(id uuid.UUID) (*FiscalPeriod, bool) {
	p, ok := t.nodes[id]
	return p, ok
}

func (t *Tree) Len() int { return len(t.nodes) }

// ChildrenOf returns the direct children of id ordered by start date.
func (t *Tree) ChildrenOf(id uuid.UUID) []*FiscalPeriod {
	ids := t.children[id]
	out := make([]*FiscalPeriod, 0, len(ids))
	for _, c := range ids {
		if p, ok := t.nodes[c]; ok {
			out = append(out, p)
		}
	}
	SortPeriods(out)
	return out
}

// Descendants returns every period below id, depth first.
func (t *Tree) Descendants(id uuid.UUID) []*FiscalPeriod {
	var out []*FiscalPeriod
	seen := map[uuid.UUID]bool{id: true}
	var walk func(uuid.UUID)
	walk = func(cur uuid.UUID) {
		for _, c := range t.ChildrenOf(cur) {
			if seen[c.ID] {
				continue
			}
			seen[c.ID] = true
			out = append(out, c)
			walk(c.ID)
		}
	}
	walk(id)
	return out
}

// IsAncestor reports whether ancestor appears on the parent chain of id.
func (t *Tree) IsAncestor(ancestor, id uuid.UUID) bool {
	seen := make(map[uuid.UUID]bool)
	cur, ok := t.nodes[id]
	for ok && cur.ParentID != nil {
		if *cur.ParentID == ancestor {
			return true
		}
		if seen[*cur.ParentID] {
			return false
		}
		seen[*cur.ParentID] = true
		cur, ok = t.nodes[*cur.ParentID]
	}
	return false
}

// All returns every period ordered by start date, then by type rank.
func (t *Tree) All() []*FiscalPeriod {
	out := make([]*FiscalPeriod, 0, len(t.nodes))
	for _, p := range t.nodes {
		out = append(out, p)
	}
	SortPeriods(out)
	return out
}

// SortPeriods orders periods by start date, widest type first, then code.
func SortPeriods(ps []*FiscalPeriod) {
	sort.SliceStable(ps, func(i, j int) bool {
		a, b := ps[i], ps[j]
		if !a.StartsAt.Equal(b.StartsAt) {
			return a.StartsAt.Before(b.StartsAt)
		}
		if a.Type.Rank() != b.Type.Rank() {
			return a.Type.Rank() < b.Type.Rank()
		}
		return a.Code < b.Code
	})
}
