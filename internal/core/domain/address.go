package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// ServiceID identifies an overlay service. Ids are agreed out of band and
// never negotiated.
type ServiceID uint32

// GatewayID identifies a directly reachable neighbour.
type GatewayID string

// Address is a node position in the hierarchical mesh, one coordinate per
// level, least-significant level first.
type Address []int

// Levels returns the number of levels covered by the address.
func (a Address) Levels() int {
	return len(a)
}

// Equal reports whether both addresses have the same coordinates.
func (a Address) Equal(b Address) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the address.
func (a Address) Clone() Address {
	if a == nil {
		return nil
	}
	c := make(Address, len(a))
	copy(c, a)
	return c
}

// String renders the address most-significant level first, dot separated.
func (a Address) String() string {
	if len(a) == 0 {
		return ""
	}
	parts := make([]string, len(a))
	for i := range a {
		parts[len(a)-1-i] = strconv.Itoa(a[i])
	}
	return strings.Join(parts, ".")
}

// Validate checks that the address has exactly levels coordinates, each in
// [0, gsize).
func (a Address) Validate(levels, gsize int) error {
	if len(a) != levels {
		return ErrInvalidAddress.WithDetails(
			fmt.Sprintf("address %q has %d levels, want %d", a, len(a), levels))
	}
	for lvl, pos := range a {
		if pos < 0 || pos >= gsize {
			return ErrInvalidAddress.WithDetails(
				fmt.Sprintf("address %q: position %d at level %d outside [0,%d)", a, pos, lvl, gsize))
		}
	}
	return nil
}

// ParseAddress parses the dotted form produced by Address.String.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrInvalidAddress.WithDetails("empty address")
	}
	parts := strings.Split(s, ".")
	addr := make(Address, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, ErrInvalidAddress.WithDetails(fmt.Sprintf("%q", s)).WithCause(err)
		}
		addr[len(parts)-1-i] = v
	}
	return addr, nil
}

// DivergenceLevel returns the highest level at which a and b differ, or -1
// when they are equal. Addresses of different length diverge at the top
// level of the longer one.
func DivergenceLevel(a, b Address) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for lvl := n - 1; lvl >= 0; lvl-- {
		if lvl >= len(a) || lvl >= len(b) || a[lvl] != b[lvl] {
			return lvl
		}
	}
	return -1
}
