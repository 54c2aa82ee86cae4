package p2p

import (
	"context"
	"sync"

	"github.com/yndnr/meshp2p-go/internal/core/domain"
)

// peerTarget yields the destination address of a Peer.
type peerTarget interface {
	address(keyToAddress KeyFunc) domain.Address
}

// resolvedTarget is a fixed destination.
type resolvedTarget struct {
	addr domain.Address
}

func (t *resolvedTarget) address(KeyFunc) domain.Address {
	return t.addr
}

// keyedTarget hashes its key on first use and keeps the result.
type keyedTarget struct {
	key  []byte
	once sync.Once
	addr domain.Address
}

func (t *keyedTarget) address(keyToAddress KeyFunc) domain.Address {
	t.once.Do(func() {
		t.addr = keyToAddress(t.key)
	})
	return t.addr
}

// PeerOption selects the destination of a Peer.
type PeerOption func(*peerOptions)

type peerOptions struct {
	addr   domain.Address
	key    []byte
	keySet bool
}

// WithAddress binds the peer to a fixed address.
func WithAddress(addr domain.Address) PeerOption {
	return func(o *peerOptions) {
		o.addr = addr.Clone()
	}
}

// WithKey binds the peer to whoever owns key.
func WithKey(key []byte) PeerOption {
	return func(o *peerOptions) {
		if key == nil {
			return
		}
		o.key = append([]byte{}, key...)
		o.keySet = true
	}
}

// Peer invokes operations on the participant owning an address or a key,
// wherever it currently is.
type Peer struct {
	svc    *Service
	target peerTarget
}

// Peer returns a handle bound to the given destination. An address takes
// precedence over a key; supplying neither is an error.
func (s *Service) Peer(opts ...PeerOption) (*Peer, error) {
	var o peerOptions
	for _, opt := range opts {
		opt(&o)
	}

	var target peerTarget
	switch {
	case o.addr != nil:
		if err := o.addr.Validate(s.pmap.Levels(), s.pmap.GroupSize()); err != nil {
			return nil, err
		}
		target = &resolvedTarget{addr: o.addr}
	case o.keySet:
		target = &keyedTarget{key: o.key}
	default:
		return nil, domain.ErrInvalidPeer
	}
	return &Peer{svc: s, target: target}, nil
}

// Target returns the destination address, hashing the key if needed.
func (p *Peer) Target() domain.Address {
	return p.target.address(p.svc.keyFunc).Clone()
}

// Call routes op with args to the destination and returns its result.
func (p *Peer) Call(ctx context.Context, op string, args ...any) (any, error) {
	msg := NewMessage(op, args...)
	return p.svc.Send(ctx, p.svc.Me(), p.target.address(p.svc.keyFunc), msg)
}
