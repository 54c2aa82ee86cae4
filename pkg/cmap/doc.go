// Package cmap provides a sharded concurrent map.
//
// Keys are spread over a power-of-two number of shards, each guarded by
// its own RWMutex. The caller supplies the shard hash, so integer keys
// avoid any formatting on the hot path:
//
//	m := cmap.New[domain.ServiceID, *Service](cmap.HashUint32[domain.ServiceID])
//	svc, loaded := m.GetOrSet(id, candidate)
//
// Iteration (Range, Values) locks one shard at a time and is therefore not
// a consistent snapshot of the whole map.
package cmap
