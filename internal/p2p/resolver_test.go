package p2p

import (
	"testing"

	"github.com/yndnr/meshp2p-go/internal/core/domain"
)

func TestResolver_NearestBySymmetricOffset(t *testing.T) {
	m := newTestMap(t, 1, 8, 0)
	m.markParticipant(0, 2)
	m.markParticipant(0, 5)
	r := NewResolver(m, nil, nil)

	tests := []struct {
		target int
		want   int
	}{
		{target: 4, want: 5}, // +1 before -2
		{target: 3, want: 2}, // -1 before +2
		{target: 2, want: 2},
		{target: 7, want: 5}, // -2; +1 wraps to 0, +2 to 1
		{target: 0, want: 2},
	}

	for _, tt := range tests {
		got, ok := r.ResolveHashNode(domain.Address{tt.target})
		if !ok {
			t.Errorf("ResolveHashNode(%d) not found", tt.target)
			continue
		}
		if got[0] != tt.want {
			t.Errorf("ResolveHashNode(%d) = %v, want %d", tt.target, got, tt.want)
		}
	}
}

func TestResolver_NoParticipants(t *testing.T) {
	m := newTestMap(t, 2, 4, 0, 0)
	r := NewResolver(m, nil, nil)

	for p := 0; p < 4; p++ {
		if got, ok := r.ResolveHashNode(domain.Address{p, p}); ok {
			t.Errorf("ResolveHashNode(%d) = %v, want not found", p, got)
		}
	}
}

func TestResolver_PositionZero(t *testing.T) {
	m := newTestMap(t, 2, 4, 1, 1)
	m.markParticipant(1, 0)
	r := NewResolver(m, nil, nil)

	got, ok := r.ResolveHashNode(domain.Address{3, 0})
	if !ok {
		t.Fatal("ResolveHashNode() not found, want position 0")
	}
	if !got.Equal(domain.Address{3, 0}) {
		t.Errorf("ResolveHashNode() = %v, want [3 0]", got)
	}
}

func TestResolver_RefinesInsideOwnGroup(t *testing.T) {
	m := newTestMap(t, 2, 4, 0, 2)
	m.MarkSelf()
	m.markParticipant(0, 3)
	r := NewResolver(m, nil, nil)

	got, ok := r.ResolveHashNode(domain.Address{3, 1})
	if !ok {
		t.Fatal("ResolveHashNode() not found")
	}
	if !got.Equal(domain.Address{3, 2}) {
		t.Errorf("ResolveHashNode() = %v, want [3 2]", got)
	}
}

func TestResolver_InnerLevelEmpty(t *testing.T) {
	m := newTestMap(t, 2, 4, 0, 2)
	m.markParticipant(1, 2)
	r := NewResolver(m, nil, nil)

	if got, ok := r.ResolveHashNode(domain.Address{1, 2}); ok {
		t.Errorf("ResolveHashNode() = %v, want not found", got)
	}
}

func TestResolver_InvalidTarget(t *testing.T) {
	m := newTestMap(t, 1, 4, 0)
	m.MarkSelf()
	r := NewResolver(m, nil, nil)

	if _, ok := r.ResolveHashNode(domain.Address{1, 1}); ok {
		t.Error("ResolveHashNode() with wrong length succeeded")
	}
	if _, ok := r.ResolveHashNode(domain.Address{4}); ok {
		t.Error("ResolveHashNode() out of range succeeded")
	}
}
