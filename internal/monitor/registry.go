package monitor

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"dockmon/internal/models"
	"dockmon/internal/utils"
)

var (
	// ErrAlreadyActive is returned by Start when the container already has
	// an active collection stream.
	ErrAlreadyActive = errors.New("collection stream already active")
	// ErrNotActive is returned by Stop when the container has no active
	// collection stream.
	ErrNotActive = errors.New("no active collection stream")
)

// Poller fetches one sample for a container. A wrapped
// docker.ErrContainerNotFound return is fatal for the stream.
type Poller interface {
	Stats(ctx context.Context, resourceID string) (models.MetricSample, error)
}

// SampleSink receives every successfully polled sample.
type SampleSink interface {
	Append(ctx context.Context, sample models.MetricSample) error
}

// FatalError wraps a poll error the loop must not retry.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string { return e.Err.Error() }
func (e *FatalError) Unwrap() error { return e.Err }

// Registry tracks at most one collection stream per container and owns
// the goroutines running their loops. All map access is serialized on a
// single mutex; stream descriptors are mutated only under that mutex.
type Registry struct {
	poller   Poller
	samples  SampleSink
	evaluate func(ctx context.Context, sample models.MetricSample)
	log      *utils.Logger

	pollTimeout time.Duration
	maxFailures int

	mu      sync.Mutex
	streams map[string]*stream
	wg      sync.WaitGroup
}

type stream struct {
	desc     models.CollectionStream
	cancel   context.CancelFunc
	done     chan struct{}
	stopping bool
}

// NewRegistry wires a registry. evaluate may be nil when no alerting is
// attached (tests); pollTimeout bounds each poll so a slow daemon cannot
// stall a stream's cadence.
func NewRegistry(poller Poller, samples SampleSink, evaluate func(context.Context, models.MetricSample),
	logger *utils.Logger, pollTimeout time.Duration, maxFailures int) *Registry {
	if pollTimeout <= 0 {
		pollTimeout = 10 * time.Second
	}
	if maxFailures <= 0 {
		maxFailures = 5
	}
	return &Registry{
		poller:      poller,
		samples:     samples,
		evaluate:    evaluate,
		log:         logger,
		pollTimeout: pollTimeout,
		maxFailures: maxFailures,
		streams:     make(map[string]*stream),
	}
}

// Start registers a new collection stream for the container and spawns
// its loop. An existing active stream yields ErrAlreadyActive; a failed
// entry is replaced.
func (r *Registry) Start(resourceID string, interval time.Duration) (models.CollectionStream, error) {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	r.mu.Lock()
	if existing, ok := r.streams[resourceID]; ok && existing.desc.Status == models.StreamActive {
		r.mu.Unlock()
		return models.CollectionStream{}, ErrAlreadyActive
	}
	ctx, cancel := context.WithCancel(context.Background())
	st := &stream{
		desc: models.CollectionStream{
			ResourceID: resourceID,
			Interval:   interval,
			StartedAt:  time.Now().UTC(),
			Status:     models.StreamActive,
		},
		cancel: cancel,
		done:   make(chan struct{}),
	}
	r.streams[resourceID] = st
	desc := st.desc
	r.wg.Add(1)
	r.mu.Unlock()

	go r.run(ctx, st)
	r.log.Writef("Stream %s: collection started (interval %s)", resourceID, interval)
	return desc, nil
}

// Stop cancels the container's loop and removes its registry entry only
// after the loop goroutine acknowledges cancellation, so the id never
// looks free while the old loop is still polling.
func (r *Registry) Stop(resourceID string) error {
	r.mu.Lock()
	st, ok := r.streams[resourceID]
	if !ok || st.desc.Status != models.StreamActive || st.stopping {
		r.mu.Unlock()
		return ErrNotActive
	}
	st.stopping = true
	r.mu.Unlock()

	st.cancel()
	<-st.done

	r.mu.Lock()
	if r.streams[resourceID] == st {
		delete(r.streams, resourceID)
	}
	r.mu.Unlock()
	r.log.Writef("Stream %s: collection stopped", resourceID)
	return nil
}

// Status returns a snapshot of every registry entry, sorted by id.
func (r *Registry) Status() []models.CollectionStream {
	r.mu.Lock()
	out := make([]models.CollectionStream, 0, len(r.streams))
	for _, st := range r.streams {
		out = append(out, st.desc)
	}
	r.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ResourceID < out[j].ResourceID })
	return out
}

// StatusOf returns the entry for one container.
func (r *Registry) StatusOf(resourceID string) (models.CollectionStream, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.streams[resourceID]
	if !ok {
		return models.CollectionStream{}, false
	}
	return st.desc, true
}

// Shutdown cancels every loop and waits for all of them to exit.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	for _, st := range r.streams {
		st.cancel()
	}
	r.mu.Unlock()
	r.wg.Wait()
}
