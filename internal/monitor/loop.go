package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dockmon/internal/docker"
	"dockmon/internal/models"
)

// run is the collection loop for one stream: poll, persist, evaluate,
// sleep. It exits on cancellation or on a terminal failure, and always
// closes the done channel so Stop can confirm the loop is gone.
func (r *Registry) run(ctx context.Context, st *stream) {
	defer r.wg.Done()
	defer close(st.done)

	ticker := time.NewTicker(st.desc.Interval)
	defer ticker.Stop()

	consecutive := 0
	for {
		err := r.collect(ctx, st.desc.ResourceID)
		switch {
		case err == nil:
			consecutive = 0
		case ctx.Err() != nil:
			// Cancelled mid-poll; not a collection failure.
			r.markStopped(st)
			return
		case isFatal(err):
			r.markFailed(st, err)
			return
		default:
			consecutive++
			r.log.Writef("Stream %s: poll failed (%d/%d): %v",
				st.desc.ResourceID, consecutive, r.maxFailures, err)
			if consecutive >= r.maxFailures {
				r.markFailed(st, fmt.Errorf("%d consecutive poll failures, last: %w", consecutive, err))
				return
			}
		}

		select {
		case <-ctx.Done():
			r.markStopped(st)
			return
		case <-ticker.C:
		}
	}
}

// collect performs one full iteration. The poll is bounded by the
// registry's poll timeout; a sample store failure is logged but does not
// suppress alert evaluation.
func (r *Registry) collect(ctx context.Context, resourceID string) error {
	pollCtx, cancel := context.WithTimeout(ctx, r.pollTimeout)
	sample, err := r.poller.Stats(pollCtx, resourceID)
	cancel()
	if err != nil {
		return err
	}
	if sample.Timestamp.IsZero() {
		sample.Timestamp = time.Now().UTC()
	}
	if err := r.samples.Append(ctx, sample); err != nil {
		r.log.Writef("Stream %s: persist sample failed: %v", resourceID, err)
	}
	if r.evaluate != nil {
		r.evaluate(ctx, sample)
	}
	return nil
}

func (r *Registry) markFailed(st *stream, err error) {
	r.mu.Lock()
	st.desc.Status = models.StreamFailed
	st.desc.LastError = err.Error()
	r.mu.Unlock()
	r.log.Writef("Stream %s: collection failed: %v", st.desc.ResourceID, err)
}

func (r *Registry) markStopped(st *stream) {
	r.mu.Lock()
	st.desc.Status = models.StreamStopped
	r.mu.Unlock()
}

// isFatal reports whether a poll error must terminate the stream instead
// of being retried. A container that no longer exists will never come
// back under the same id.
func isFatal(err error) bool {
	var fatal *FatalError
	if errors.As(err, &fatal) {
		return true
	}
	return errors.Is(err, docker.ErrContainerNotFound)
}
