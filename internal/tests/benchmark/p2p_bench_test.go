package benchmark

import (
	"fmt"
	"testing"

	"github.com/yndnr/meshp2p-go/internal/p2p"
)

// BenchmarkKeyToAddress compares the two key hashes.
func BenchmarkKeyToAddress(b *testing.B) {
	keys := make([][]byte, 1024)
	for i := range keys {
		keys[i] = []byte(fmt.Sprintf("user:%08d:session", i))
	}

	for _, shape := range Shapes {
		hashes := map[string]p2p.KeyFunc{
			"murmur3": p2p.MurmurKeyFunc(shape.Levels, shape.GroupSize),
			"blake2b": p2p.Blake2bKeyFunc(shape.Levels, shape.GroupSize),
		}
		for name, fn := range hashes {
			b.Run(fmt.Sprintf("%s/%s", shape, name), func(b *testing.B) {
				b.ReportAllocs()
				for i := 0; i < b.N; i++ {
					_ = fn(keys[i%len(keys)])
				}
			})
		}
	}
}

// BenchmarkResolve measures hash node resolution against maps of varying
// density.
func BenchmarkResolve(b *testing.B) {
	runWithShapes(b, Shapes, func(b *testing.B, shape Shape, density float64) {
		resolver := p2p.NewResolver(populatedMap(b, shape, density), nil, nil)
		targets := randomAddresses(shape, 1024)

		b.ResetTimer()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			_, _ = resolver.ResolveHashNode(targets[i%len(targets)])
		}
	})
}

// BenchmarkExport measures exporting a map for bootstrap transfer.
func BenchmarkExport(b *testing.B) {
	runWithShapes(b, Shapes, func(b *testing.B, shape Shape, density float64) {
		pmap := populatedMap(b, shape, density)

		b.ResetTimer()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			_ = pmap.Export()
		}
	})
}

// BenchmarkMerge measures folding a neighbour's state into a fresh map, as
// done once per service when a node hooks.
func BenchmarkMerge(b *testing.B) {
	runWithShapes(b, SmallShapes, func(b *testing.B, shape Shape, density float64) {
		st := randomState(shape, density, 3)

		b.ResetTimer()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			b.StopTimer()
			pmap, err := p2p.NewParticipantMap(shape.Levels, shape.GroupSize, make([]int, shape.Levels), benchService)
			if err != nil {
				b.Fatalf("NewParticipantMap() error = %v", err)
			}
			b.StartTimer()

			pmap.Merge(st)
		}
	})
}

// BenchmarkStateCodec measures the protobuf wire form of an exported map.
func BenchmarkStateCodec(b *testing.B) {
	runWithShapes(b, Shapes, func(b *testing.B, shape Shape, density float64) {
		st := populatedMap(b, shape, density).Export()
		raw, err := st.MarshalBinary()
		if err != nil {
			b.Fatalf("MarshalBinary() error = %v", err)
		}

		b.Run("marshal", func(b *testing.B) {
			b.ReportMetric(float64(len(raw)), "wire_bytes")
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := st.MarshalBinary(); err != nil {
					b.Fatal(err)
				}
			}
		})

		b.Run("unmarshal", func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				var out p2p.State
				if err := out.UnmarshalBinary(raw); err != nil {
					b.Fatal(err)
				}
			}
		})
	})
}
