package p2p

import (
	"sync"
	"sync/atomic"

	"github.com/yndnr/meshp2p-go/internal/core/domain"
	"github.com/yndnr/meshp2p-go/internal/topology"
)

// ParticipantNode is the per-position record of a ParticipantMap.
type ParticipantNode struct {
	participant atomic.Bool
}

// Participant reports whether the position holds a participant.
func (n *ParticipantNode) Participant() bool {
	return n.participant.Load()
}

// Position names one cell of the hierarchy.
type Position struct {
	Level int
	Pos   int
}

// ParticipantMap records, for one service, which positions of the
// hierarchy contain a participant.
//
// Mutations of the same position are serialised by a per-position mutex,
// so an announcement and a node removal for (l, p) never interleave.
type ParticipantMap struct {
	*topology.Grid[ParticipantNode]

	service domain.ServiceID
	locks   []sync.Mutex
}

// NewParticipantMap creates an empty map for service id owned by me.
func NewParticipantMap(levels, gsize int, me domain.Address, id domain.ServiceID) (*ParticipantMap, error) {
	g, err := topology.NewGrid[ParticipantNode](levels, gsize, me, nil)
	if err != nil {
		return nil, err
	}
	return &ParticipantMap{
		Grid:    g,
		service: id,
		locks:   make([]sync.Mutex, levels*gsize),
	}, nil
}

// ServiceID returns the service the map belongs to.
func (m *ParticipantMap) ServiceID() domain.ServiceID {
	return m.service
}

func (m *ParticipantMap) lock(level, pos int) func() {
	mu := &m.locks[level*m.GroupSize()+pos]
	mu.Lock()
	return mu.Unlock
}

// IsParticipant reports whether (level, pos) holds a participant.
func (m *ParticipantMap) IsParticipant(level, pos int) bool {
	n, ok := m.Lookup(level, pos)
	return ok && n.Participant()
}

// MarkSelf marks this node's own position at every level as participant.
// It has no remote effect.
func (m *ParticipantMap) MarkSelf() {
	me := m.Me()
	for l := 0; l < m.Levels(); l++ {
		unlock := m.lock(l, me[l])
		m.NodeGet(l, me[l]).participant.Store(true)
		unlock()
	}
}

// markParticipant marks (level, pos) and populates it. It reports true only
// if the position was not already known as participant.
func (m *ParticipantMap) markParticipant(level, pos int) bool {
	defer m.lock(level, pos)()

	if !m.NodeGet(level, pos).participant.CompareAndSwap(false, true) {
		return false
	}
	m.NodeAdd(level, pos)
	return true
}

// OnOwnAddressChanged moves the map to newMe. Levels below the level where
// the old and new address diverge describe a group we left, so they are
// dropped; the others still apply and are kept.
func (m *ParticipantMap) OnOwnAddressChanged(oldMe, newMe domain.Address) error {
	if err := m.MeChange(newMe); err != nil {
		return err
	}

	lvl := domain.DivergenceLevel(oldMe, newMe)
	for l := 0; l < lvl; l++ {
		m.resetLevel(l)
	}
	return nil
}

func (m *ParticipantMap) resetLevel(level int) {
	gsize := m.GroupSize()
	for p := 0; p < gsize; p++ {
		m.locks[level*gsize+p].Lock()
	}
	m.LevelReset(level)
	for p := 0; p < gsize; p++ {
		m.locks[level*gsize+p].Unlock()
	}
}

// OnNodeRemoved drops the record of a position evicted from the topology.
func (m *ParticipantMap) OnNodeRemoved(level, pos int) {
	if level < 0 || level >= m.Levels() || pos < 0 || pos >= m.GroupSize() {
		return
	}
	defer m.lock(level, pos)()
	m.NodeDel(level, pos)
}

// Participants lists the positions marked participant.
func (m *ParticipantMap) Participants() []Position {
	var out []Position
	m.Range(func(level, pos int, n *ParticipantNode) bool {
		if n.Participant() {
			out = append(out, Position{Level: level, Pos: pos})
		}
		return true
	})
	return out
}

// Export returns the full map state for bootstrap transfer.
func (m *ParticipantMap) Export() State {
	st := State{Me: m.Me()}
	m.Range(func(level, pos int, n *ParticipantNode) bool {
		st.Records = append(st.Records, Record{
			Level:       level,
			Pos:         pos,
			Participant: n.Participant(),
		})
		return true
	})
	return st
}

// Merge folds an exported state into the map and returns how many
// positions were newly learned. Merging is a set union of participants:
// known participants are never cleared. Records at levels below the level
// where the exporter's address diverges from ours describe another group
// and are skipped.
func (m *ParticipantMap) Merge(st State) int {
	from := 0
	if m.Contains(st.Me) {
		if lvl := domain.DivergenceLevel(st.Me, m.Me()); lvl > 0 {
			from = lvl
		}
	}

	learned := 0
	for _, r := range st.Records {
		if !r.Participant || r.Level < from || r.Level >= m.Levels() {
			continue
		}
		if r.Pos < 0 || r.Pos >= m.GroupSize() {
			continue
		}
		if m.markParticipant(r.Level, r.Pos) {
			learned++
		}
	}
	return learned
}
