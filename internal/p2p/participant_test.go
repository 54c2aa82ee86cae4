package p2p

import (
	"testing"

	"github.com/yndnr/meshp2p-go/internal/core/domain"
)

func newTestMap(t *testing.T, levels, gsize int, me ...int) *ParticipantMap {
	t.Helper()
	m, err := NewParticipantMap(levels, gsize, me, testService)
	if err != nil {
		t.Fatalf("NewParticipantMap() error = %v", err)
	}
	return m
}

func TestParticipantMap_MarkSelf(t *testing.T) {
	m := newTestMap(t, 3, 4, 1, 2, 3)
	m.MarkSelf()
	m.MarkSelf()

	for l, p := range []int{1, 2, 3} {
		if !m.IsParticipant(l, p) {
			t.Errorf("IsParticipant(%d, %d) = false, want true", l, p)
		}
	}
	if got := len(m.Participants()); got != 3 {
		t.Errorf("Participants() = %d, want 3", got)
	}
	if m.ServiceID() != testService {
		t.Errorf("ServiceID() = %d, want %d", m.ServiceID(), testService)
	}
}

func TestParticipantMap_MarkParticipant(t *testing.T) {
	m := newTestMap(t, 1, 8, 0)

	if !m.markParticipant(0, 0) {
		t.Error("first mark = false, want true")
	}
	if m.markParticipant(0, 0) {
		t.Error("second mark = true, want false")
	}
	if m.IsFree(0, 0) {
		t.Error("marked position is free, want populated")
	}
}

func TestParticipantMap_OnNodeRemoved(t *testing.T) {
	m := newTestMap(t, 1, 8, 0)
	m.markParticipant(0, 3)

	m.OnNodeRemoved(0, 3)
	if m.IsParticipant(0, 3) {
		t.Error("removed position still participant")
	}

	// Out of range positions are ignored.
	m.OnNodeRemoved(5, 0)
	m.OnNodeRemoved(0, 99)

	if !m.markParticipant(0, 3) {
		t.Error("mark after removal = false, want true")
	}
}

func TestParticipantMap_OnOwnAddressChanged(t *testing.T) {
	m := newTestMap(t, 3, 4, 0, 0, 0)
	m.markParticipant(0, 1)
	m.markParticipant(1, 2)
	m.markParticipant(2, 3)

	// Moving inside level 1 leaves level 2 untouched.
	if err := m.OnOwnAddressChanged(domain.Address{0, 0, 0}, domain.Address{0, 1, 0}); err != nil {
		t.Fatalf("OnOwnAddressChanged() error = %v", err)
	}

	if m.IsParticipant(0, 1) {
		t.Error("level 0 kept after leaving the group")
	}
	if !m.IsParticipant(1, 2) {
		t.Error("level 1 dropped, want kept")
	}
	if !m.IsParticipant(2, 3) {
		t.Error("level 2 dropped, want kept")
	}
	if got := m.Me(); !got.Equal(domain.Address{0, 1, 0}) {
		t.Errorf("Me() = %v, want [0 1 0]", got)
	}

	if err := m.OnOwnAddressChanged(m.Me(), domain.Address{9, 9, 9}); err == nil {
		t.Error("OnOwnAddressChanged() with invalid address succeeded")
	}
}

func TestParticipantMap_ExportMerge(t *testing.T) {
	src := newTestMap(t, 2, 4, 1, 2)
	src.MarkSelf()
	src.markParticipant(0, 3)
	src.markParticipant(1, 0)

	tests := []struct {
		name    string
		me      []int
		learned int
		want    []Position
		notWant []Position
	}{
		{
			name:    "same group takes every level",
			me:      []int{0, 2},
			learned: 4,
			want:    []Position{{0, 1}, {0, 3}, {1, 2}, {1, 0}},
		},
		{
			name:    "other group skips inner level",
			me:      []int{0, 3},
			learned: 2,
			want:    []Position{{1, 2}, {1, 0}},
			notWant: []Position{{0, 1}, {0, 3}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := newTestMap(t, 2, 4, tt.me...)
			if got := dst.Merge(src.Export()); got != tt.learned {
				t.Errorf("Merge() = %d, want %d", got, tt.learned)
			}
			for _, p := range tt.want {
				if !dst.IsParticipant(p.Level, p.Pos) {
					t.Errorf("IsParticipant(%d, %d) = false, want true", p.Level, p.Pos)
				}
			}
			for _, p := range tt.notWant {
				if dst.IsParticipant(p.Level, p.Pos) {
					t.Errorf("IsParticipant(%d, %d) = true, want false", p.Level, p.Pos)
				}
			}
			if got := dst.Merge(src.Export()); got != 0 {
				t.Errorf("second Merge() = %d, want 0", got)
			}
		})
	}
}

func TestParticipantMap_MergeIgnoresBadRecords(t *testing.T) {
	dst := newTestMap(t, 1, 4, 0)
	st := State{
		Me: domain.Address{1},
		Records: []Record{
			{Level: 0, Pos: 2, Participant: true},
			{Level: 0, Pos: 3, Participant: false},
			{Level: 4, Pos: 0, Participant: true},
			{Level: 0, Pos: 17, Participant: true},
		},
	}
	if got := dst.Merge(st); got != 1 {
		t.Errorf("Merge() = %d, want 1", got)
	}
	if dst.IsParticipant(0, 3) {
		t.Error("non-participant record marked")
	}
}
