package storage

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/meshp2p-go/internal/core/domain"
	"github.com/yndnr/meshp2p-go/internal/p2p"
)

var (
	// ErrSnapshotNotFound is returned by Load for a service never saved.
	ErrSnapshotNotFound = errors.New("snapshot not found")
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("snapshot store closed")
)

var servicePrefix = []byte("svc/")

// StateSource exports the current service maps. *p2p.Registry satisfies it.
type StateSource interface {
	ServiceStates(ctx context.Context) ([]p2p.ServiceState, error)
}

// SnapshotStore keeps the latest exported map of every service in badger.
type SnapshotStore struct {
	db     *badger.DB
	cfg    Config
	logger *slog.Logger

	closed    atomic.Bool
	closeOnce sync.Once

	lastSave   atomic.Int64 // Unix milliseconds
	savesTotal atomic.Uint64
	lastGC     atomic.Int64 // Unix milliseconds

	stopCh chan struct{}
	doneCh chan struct{}
}

// Open opens (or creates) the store and starts the value log GC loop.
func Open(cfg Config, logger *slog.Logger) (*SnapshotStore, error) {
	if cfg.Dir == "" && !cfg.InMemory {
		return nil, domain.ErrStorage.WithDetails("dir is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "storage")

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.Dir)
	}
	opts.Logger = &badgerLogger{logger: logger}
	opts.SyncWrites = cfg.SyncWrites
	if cfg.CacheSize > 0 {
		opts.BlockCacheSize = cfg.CacheSize
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, domain.ErrStorage.WithCause(fmt.Errorf("badger: open db: %w", err))
	}

	s := &SnapshotStore{
		db:     db,
		cfg:    cfg,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}

	go s.gcLoop()

	logger.Info("snapshot store opened",
		"dir", cfg.Dir,
		"in_memory", cfg.InMemory,
		"gc_interval", cfg.GCInterval)

	return s, nil
}

func serviceKey(id domain.ServiceID) []byte {
	key := make([]byte, len(servicePrefix)+4)
	copy(key, servicePrefix)
	binary.BigEndian.PutUint32(key[len(servicePrefix):], uint32(id))
	return key
}

func serviceFromKey(key []byte) (domain.ServiceID, bool) {
	if len(key) != len(servicePrefix)+4 {
		return 0, false
	}
	return domain.ServiceID(binary.BigEndian.Uint32(key[len(servicePrefix):])), true
}

// Save writes the given states in one transaction, replacing earlier
// snapshots of the same services.
func (s *SnapshotStore) Save(ctx context.Context, states []p2p.ServiceState) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		for _, st := range states {
			value, err := st.State.MarshalBinary()
			if err != nil {
				return fmt.Errorf("service %d: %w", st.ID, err)
			}
			if err := txn.Set(serviceKey(st.ID), value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.ErrStorage.WithCause(err)
	}

	s.lastSave.Store(time.Now().UnixMilli())
	s.savesTotal.Add(1)
	return nil
}

// Load returns the stored state of one service.
func (s *SnapshotStore) Load(ctx context.Context, id domain.ServiceID) (p2p.State, error) {
	if s.closed.Load() {
		return p2p.State{}, ErrClosed
	}

	var st p2p.State
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(serviceKey(id))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrSnapshotNotFound
			}
			return err
		}
		return item.Value(st.UnmarshalBinary)
	})
	switch {
	case err == nil:
		return st, nil
	case errors.Is(err, ErrSnapshotNotFound), errors.Is(err, domain.ErrCorruptState):
		return p2p.State{}, err
	default:
		return p2p.State{}, domain.ErrStorage.WithCause(err)
	}
}

// LoadAll returns every stored state ordered by service id. Corrupt
// entries are logged and skipped.
func (s *SnapshotStore) LoadAll(ctx context.Context) ([]p2p.ServiceState, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	var out []p2p.ServiceState
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = servicePrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			id, ok := serviceFromKey(item.Key())
			if !ok {
				continue
			}
			var st p2p.State
			if err := item.Value(st.UnmarshalBinary); err != nil {
				s.logger.Warn("skipping corrupt snapshot", "service", id, "error", err)
				continue
			}
			out = append(out, p2p.ServiceState{ID: id, State: st})
		}
		return nil
	})
	if err != nil {
		return nil, domain.ErrStorage.WithCause(err)
	}
	return out, nil
}

// Delete removes the stored state of one service.
func (s *SnapshotStore) Delete(ctx context.Context, id domain.ServiceID) error {
	if s.closed.Load() {
		return ErrClosed
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(serviceKey(id))
	})
	if err != nil {
		return domain.ErrStorage.WithCause(err)
	}
	return nil
}

// Snapshot exports src and saves the result.
func (s *SnapshotStore) Snapshot(ctx context.Context, src StateSource) error {
	states, err := src.ServiceStates(ctx)
	if err != nil {
		return err
	}
	return s.Save(ctx, states)
}

// Run snapshots src every interval until ctx is done, then takes a final
// snapshot before returning.
func (s *SnapshotStore) Run(ctx context.Context, src StateSource, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.Snapshot(ctx, src); err != nil {
				s.logger.Error("periodic snapshot failed", "error", err)
			}
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			if err := s.Snapshot(final, src); err != nil {
				s.logger.Error("final snapshot failed", "error", err)
			}
			cancel()
			return
		}
	}
}

// GC runs value log garbage collection until nothing is left to rewrite.
// Returns the number of rewrite rounds.
func (s *SnapshotStore) GC(ctx context.Context) (int, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}
	if s.cfg.InMemory {
		return 0, nil
	}

	threshold := s.cfg.GCThreshold
	if threshold <= 0 || threshold >= 1 {
		threshold = 0.5
	}

	rounds := 0
	for ctx.Err() == nil {
		err := s.db.RunValueLogGC(threshold)
		if err != nil {
			if errors.Is(err, badger.ErrNoRewrite) {
				break
			}
			return rounds, domain.ErrStorage.WithCause(fmt.Errorf("gc: %w", err))
		}
		rounds++
	}

	s.lastGC.Store(time.Now().UnixMilli())
	s.logger.Debug("gc completed", "rounds", rounds)
	return rounds, nil
}

func (s *SnapshotStore) gcLoop() {
	defer close(s.doneCh)

	interval := s.cfg.GCInterval
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			if _, err := s.GC(ctx); err != nil {
				s.logger.Error("auto gc failed", "error", err)
			}
			cancel()
		case <-s.stopCh:
			return
		}
	}
}

// Close stops the GC loop and closes the database. Safe to call twice.
func (s *SnapshotStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.stopCh)
		<-s.doneCh

		if cerr := s.db.Close(); cerr != nil {
			err = domain.ErrStorage.WithCause(fmt.Errorf("close db: %w", cerr))
			return
		}
		s.logger.Info("snapshot store closed")
	})
	return err
}

// RegisterMetrics exposes store size and save progress to Prometheus.
func (s *SnapshotStore) RegisterMetrics(reg prometheus.Registerer) error {
	size := func(lsm bool) func() float64 {
		return func() float64 {
			if s.closed.Load() {
				return 0
			}
			l, v := s.db.Size()
			if lsm {
				return float64(l)
			}
			return float64(v)
		}
	}
	millis := func(v *atomic.Int64) func() float64 {
		return func() float64 { return float64(v.Load()) / 1000.0 }
	}

	collectors := []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "meshp2p",
			Subsystem: "badger",
			Name:      "lsm_size_bytes",
			Help:      "Badger LSM tree size in bytes",
		}, size(true)),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "meshp2p",
			Subsystem: "badger",
			Name:      "value_log_size_bytes",
			Help:      "Badger value log size in bytes",
		}, size(false)),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "meshp2p",
			Subsystem: "badger",
			Name:      "last_gc_timestamp_seconds",
			Help:      "Unix timestamp of the last Badger GC run",
		}, millis(&s.lastGC)),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "meshp2p",
			Subsystem: "snapshot",
			Name:      "last_save_timestamp_seconds",
			Help:      "Unix timestamp of the last participant map snapshot",
		}, millis(&s.lastSave)),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "meshp2p",
			Subsystem: "snapshot",
			Name:      "saves_total",
			Help:      "Total participant map snapshots written",
		}, func() float64 { return float64(s.savesTotal.Load()) }),
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
