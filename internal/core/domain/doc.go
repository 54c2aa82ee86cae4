// Package domain defines the core value types shared by the mesh overlay:
// hierarchical node addresses, service and gateway identifiers, and the
// coded error model.
//
// Addresses are stored least-significant level first. Address{4, 1, 3}
// names position 4 inside group 1 inside group 3, and is printed
// most-significant first as "3.1.4".
package domain
