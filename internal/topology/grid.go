package topology

import (
	"fmt"
	"sync"

	"github.com/yndnr/meshp2p-go/internal/core/domain"
)

// Grid is a hierarchical array of per-position records of type T.
//
// A position is "free" until NodeAdd populates it. NodeGet creates the
// record on demand without populating the position, so a record can carry
// state before the position is counted as a node.
type Grid[T any] struct {
	mu      sync.RWMutex
	levels  int
	gsize   int
	me      domain.Address
	nodes   [][]*T
	present [][]bool
	count   []int
	newNode func(level, pos int) *T

	events *Events
}

// NewGrid creates a grid. newNode builds a fresh record for a position;
// nil means new(T).
func NewGrid[T any](levels, gsize int, me domain.Address, newNode func(level, pos int) *T) (*Grid[T], error) {
	if levels <= 0 || gsize <= 0 {
		return nil, fmt.Errorf("topology: invalid geometry %dx%d", levels, gsize)
	}
	if err := me.Validate(levels, gsize); err != nil {
		return nil, err
	}
	if newNode == nil {
		newNode = func(int, int) *T { return new(T) }
	}

	g := &Grid[T]{
		levels:  levels,
		gsize:   gsize,
		me:      me.Clone(),
		nodes:   make([][]*T, levels),
		present: make([][]bool, levels),
		count:   make([]int, levels),
		newNode: newNode,
		events:  NewEvents(),
	}
	for l := 0; l < levels; l++ {
		g.nodes[l] = make([]*T, gsize)
		g.present[l] = make([]bool, gsize)
	}
	return g, nil
}

// Levels returns the number of hierarchy levels.
func (g *Grid[T]) Levels() int { return g.levels }

// GroupSize returns the number of positions per level.
func (g *Grid[T]) GroupSize() int { return g.gsize }

// Events returns the grid's event bus.
func (g *Grid[T]) Events() *Events { return g.events }

// Me returns a copy of the owner address.
func (g *Grid[T]) Me() domain.Address {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.me.Clone()
}

// NodeGet returns the record at (level, pos), creating it if needed.
func (g *Grid[T]) NodeGet(level, pos int) *T {
	g.mu.RLock()
	n := g.nodes[level][pos]
	g.mu.RUnlock()
	if n != nil {
		return n
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.nodes[level][pos] == nil {
		g.nodes[level][pos] = g.newNode(level, pos)
	}
	return g.nodes[level][pos]
}

// Lookup returns the record at (level, pos) without creating it.
func (g *Grid[T]) Lookup(level, pos int) (*T, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n := g.nodes[level][pos]
	return n, n != nil
}

// NodeAdd populates (level, pos). It reports false if the position was
// already populated.
func (g *Grid[T]) NodeAdd(level, pos int) bool {
	g.mu.Lock()
	if g.nodes[level][pos] == nil {
		g.nodes[level][pos] = g.newNode(level, pos)
	}
	if g.present[level][pos] {
		g.mu.Unlock()
		return false
	}
	g.present[level][pos] = true
	g.count[level]++
	g.mu.Unlock()

	g.events.Send(Event{Kind: NodeNew, Level: level, Pos: pos})
	return true
}

// NodeDel evicts (level, pos) and drops its record. NodeDeleted fires only
// if the position was populated.
func (g *Grid[T]) NodeDel(level, pos int) bool {
	g.mu.Lock()
	wasPresent := g.present[level][pos]
	g.nodes[level][pos] = nil
	if wasPresent {
		g.present[level][pos] = false
		g.count[level]--
	}
	g.mu.Unlock()

	if wasPresent {
		g.events.Send(Event{Kind: NodeDeleted, Level: level, Pos: pos})
	}
	return wasPresent
}

// IsFree reports whether (level, pos) is not populated.
func (g *Grid[T]) IsFree(level, pos int) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return !g.present[level][pos]
}

// NodeCount returns the number of populated positions at level.
func (g *Grid[T]) NodeCount(level int) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.count[level]
}

// LevelReset drops every record at level without firing events.
func (g *Grid[T]) LevelReset(level int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes[level] = make([]*T, g.gsize)
	g.present[level] = make([]bool, g.gsize)
	g.count[level] = 0
}

// MeChange replaces the owner address and fires MeChanged.
func (g *Grid[T]) MeChange(newMe domain.Address) error {
	if err := newMe.Validate(g.levels, g.gsize); err != nil {
		return err
	}

	g.mu.Lock()
	old := g.me
	g.me = newMe.Clone()
	g.mu.Unlock()

	g.events.Send(Event{Kind: MeChanged, Old: old.Clone(), New: newMe.Clone()})
	return nil
}

// Range calls fn for every existing record, level by level, over a
// snapshot of the record slots. Iteration stops when fn returns false.
func (g *Grid[T]) Range(fn func(level, pos int, node *T) bool) {
	g.mu.RLock()
	snapshot := make([][]*T, g.levels)
	for l := range g.nodes {
		snapshot[l] = append([]*T(nil), g.nodes[l]...)
	}
	g.mu.RUnlock()

	for l, row := range snapshot {
		for p, n := range row {
			if n == nil {
				continue
			}
			if !fn(l, p, n) {
				return
			}
		}
	}
}

// Contains reports whether addr fits the grid geometry.
func (g *Grid[T]) Contains(addr domain.Address) bool {
	return addr.Validate(g.levels, g.gsize) == nil
}
