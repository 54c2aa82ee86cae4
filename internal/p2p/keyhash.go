package p2p

import (
	"encoding/binary"

	"github.com/spaolacci/murmur3"
	"golang.org/x/crypto/blake2b"

	"github.com/yndnr/meshp2p-go/internal/core/domain"
)

// KeyFunc maps an application key onto an address of the hierarchy.
// Equal keys must map to equal addresses on every node.
type KeyFunc func(key []byte) domain.Address

// MurmurKeyFunc hashes a key once per level with murmur3, seeding each level
// with its index.
func MurmurKeyFunc(levels, gsize int) KeyFunc {
	return func(key []byte) domain.Address {
		addr := make(domain.Address, levels)
		for l := range addr {
			addr[l] = int(murmur3.Sum32WithSeed(key, uint32(l)) % uint32(gsize))
		}
		return addr
	}
}

// Blake2bKeyFunc derives one coordinate per level from a BLAKE2b XOF
// stream over the key.
func Blake2bKeyFunc(levels, gsize int) KeyFunc {
	return func(key []byte) domain.Address {
		xof, err := blake2b.NewXOF(uint32(4*levels), nil)
		if err != nil {
			// Unreachable: no MAC key and a bounded output size.
			panic(err)
		}
		_, _ = xof.Write(key)

		buf := make([]byte, 4*levels)
		_, _ = xof.Read(buf)

		addr := make(domain.Address, levels)
		for l := range addr {
			addr[l] = int(binary.BigEndian.Uint32(buf[4*l:]) % uint32(gsize))
		}
		return addr
	}
}
