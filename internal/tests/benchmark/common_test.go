package benchmark

import (
	"fmt"
	"math/rand"
	"runtime"
	"testing"

	"github.com/yndnr/meshp2p-go/internal/core/domain"
	"github.com/yndnr/meshp2p-go/internal/p2p"
)

// Shape is one mesh geometry.
type Shape struct {
	Levels    int
	GroupSize int
}

func (s Shape) String() string {
	return fmt.Sprintf("levels_%d_gsize_%d", s.Levels, s.GroupSize)
}

// Shapes covers small test meshes up to the Netsukuku default geometry.
var Shapes = []Shape{
	{Levels: 2, GroupSize: 16},
	{Levels: 4, GroupSize: 256},
	{Levels: 8, GroupSize: 256},
}

// SmallShapes for quick benchmarks.
var SmallShapes = []Shape{
	{Levels: 2, GroupSize: 16},
	{Levels: 4, GroupSize: 64},
}

// Densities is the share of positions holding a participant.
var Densities = []float64{0.01, 0.1, 0.5}

const benchService = domain.ServiceID(1)

// randomState builds an exported map in which roughly density of every
// level's positions are participants. The result is deterministic for a
// given seed.
func randomState(shape Shape, density float64, seed int64) p2p.State {
	rng := rand.New(rand.NewSource(seed))
	var st p2p.State
	for l := 0; l < shape.Levels; l++ {
		for p := 0; p < shape.GroupSize; p++ {
			if rng.Float64() < density {
				st.Records = append(st.Records, p2p.Record{Level: l, Pos: p, Participant: true})
			}
		}
	}
	return st
}

// populatedMap returns a map at the zero address holding randomState.
func populatedMap(b *testing.B, shape Shape, density float64) *p2p.ParticipantMap {
	b.Helper()
	pmap, err := p2p.NewParticipantMap(shape.Levels, shape.GroupSize, make(domain.Address, shape.Levels), benchService)
	if err != nil {
		b.Fatalf("NewParticipantMap() error = %v", err)
	}
	pmap.Merge(randomState(shape, density, 1))
	return pmap
}

// randomAddresses returns n valid addresses for shape.
func randomAddresses(shape Shape, n int) []domain.Address {
	rng := rand.New(rand.NewSource(2))
	out := make([]domain.Address, n)
	for i := range out {
		addr := make(domain.Address, shape.Levels)
		for l := range addr {
			addr[l] = rng.Intn(shape.GroupSize)
		}
		out[i] = addr
	}
	return out
}

// reportMemory reports memory usage.
func reportMemory(b *testing.B, prefix string) {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	b.ReportMetric(float64(m.Alloc)/(1024*1024), prefix+"_MB")
	b.ReportMetric(float64(m.NumGC), prefix+"_GC")
}

// runWithShapes runs a benchmark function for every shape and density.
func runWithShapes(b *testing.B, shapes []Shape, benchFn func(b *testing.B, shape Shape, density float64)) {
	for _, shape := range shapes {
		for _, density := range Densities {
			b.Run(fmt.Sprintf("%s/density_%g", shape, density), func(b *testing.B) {
				benchFn(b, shape, density)
			})
		}
	}
}
