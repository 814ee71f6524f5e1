// Package scheduler keeps the in-memory table of pending release timers.
//
// The table is volatile. Release.ScheduledAt is the source of truth, and
// SyncFromDatabase rebuilds the table after a restart. Each release owns at
// most one timer; registering a new instant replaces the old timer. A timer
// only registers for the instant currently stored, and the publish it
// triggers checks the stored instant again, so a schedule cleared or moved
// by another process never fires at the old instant.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/strapi/strapi-sub004/internal/domain/release"
	"github.com/strapi/strapi-sub004/internal/infrastructure/logging"
	"github.com/strapi/strapi-sub004/internal/ports"
)

// PublishFunc runs the publish workflow of a release scheduled at the given
// instant. It must fail with a release.MsgScheduleChanged validation error
// when the stored scheduledAt differs from at.
type PublishFunc func(ctx context.Context, releaseID string, at time.Time) error

// Outcome describes one fired timer.
type Outcome struct {
	ReleaseID string
	At        time.Time
	FiredAt   time.Time
	// Skipped is set when the schedule changed before the timer fired and
	// nothing was published.
	Skipped bool
	Err     error
}

// ReleaseReader is the slice of the repository the scheduler reads.
type ReleaseReader interface {
	GetRelease(ctx context.Context, id string) (release.Release, error)
	ListReleases(ctx context.Context, filter ports.ReleaseFilter) ([]release.Release, error)
}

// Options wires a Scheduler.
type Options struct {
	Releases ReleaseReader
	Clock    ports.Clock
	Publish  PublishFunc
	// OnOutcome is invoked after every fire, successful or not.
	OnOutcome func(Outcome)
	Logger    ports.Logger
}

// Job is the introspection view of one pending timer.
type Job struct {
	ReleaseID string    `json:"releaseId"`
	At        time.Time `json:"at"`
}

type job struct {
	at    time.Time
	timer ports.Timer
}

// Scheduler maps release ids to pending timers.
type Scheduler struct {
	releases  ReleaseReader
	clock     ports.Clock
	publish   PublishFunc
	onOutcome func(Outcome)
	logger    ports.Logger

	mu     sync.Mutex
	jobs   map[string]*job
	closed bool
}

// New builds a Scheduler. Releases, Clock and Publish are required.
func New(opts Options) (*Scheduler, error) {
	if opts.Releases == nil || opts.Clock == nil || opts.Publish == nil {
		return nil, errors.New("scheduler requires releases, clock and publish")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &Scheduler{
		releases:  opts.Releases,
		clock:     opts.Clock,
		publish:   opts.Publish,
		onOutcome: opts.OnOutcome,
		logger:    logger.With("component", "scheduler"),
		jobs:      make(map[string]*job),
	}, nil
}

// Set registers a timer firing the release at the given instant, which must
// equal the release's stored scheduledAt. A pending timer for the same
// release is cancelled first. Instants in the past fire immediately.
func (s *Scheduler) Set(ctx context.Context, releaseID string, at time.Time) error {
	r, err := s.releases.GetRelease(ctx, releaseID)
	if err != nil {
		return err
	}
	if r.IsReleased() {
		return release.NotFound(fmt.Sprintf("release %s not found or already released", releaseID), map[string]interface{}{"release_id": releaseID})
	}
	if r.ScheduledAt == nil || !r.ScheduledAt.Equal(at) {
		return release.Validation(release.MsgScheduleChanged, map[string]interface{}{
			"release_id":   releaseID,
			"at":           at.UTC(),
			"scheduled_at": r.ScheduledAt,
		})
	}

	delay := at.Sub(s.clock.Now())
	if delay < 0 {
		delay = 0
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return release.NewError(release.ErrCodeCancelled, "scheduler is shut down", nil, map[string]interface{}{"release_id": releaseID})
	}
	if previous, ok := s.jobs[releaseID]; ok {
		previous.timer.Stop()
	}
	j := &job{at: at.UTC()}
	s.jobs[releaseID] = j
	// The callback can run before AfterFunc returns; the job is registered
	// first and the lock is not held across the call.
	s.mu.Unlock()

	timer := s.clock.AfterFunc(delay, func() { s.fire(releaseID, j) })

	s.mu.Lock()
	j.timer = timer
	if current := s.jobs[releaseID]; current != j {
		timer.Stop()
	}
	s.mu.Unlock()

	s.logger.Debug(ctx, "release scheduled", "release_id", releaseID, "at", at.UTC(), "delay_ms", delay.Milliseconds())
	return nil
}

func (s *Scheduler) fire(releaseID string, j *job) {
	s.mu.Lock()
	if s.jobs[releaseID] != j {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	ctx := ports.WithCorrelationID(context.Background(), ports.GenerateCorrelationID())
	firedAt := s.clock.Now()
	s.logger.Info(ctx, "scheduled release firing", "release_id", releaseID, "at", j.at)

	err := s.publish(ctx, releaseID, j.at)

	s.mu.Lock()
	if s.jobs[releaseID] == j {
		delete(s.jobs, releaseID)
	}
	s.mu.Unlock()

	outcome := Outcome{ReleaseID: releaseID, At: j.at, FiredAt: firedAt, Err: err}
	switch {
	case release.IsScheduleChanged(err):
		outcome.Skipped = true
		s.logger.Info(ctx, "scheduled publish skipped, schedule changed", "release_id", releaseID, "at", j.at)
	case err != nil:
		s.logger.Error(ctx, "scheduled publish failed", "release_id", releaseID, "error", err)
	default:
		s.logger.Info(ctx, "scheduled publish complete", "release_id", releaseID)
	}
	if s.onOutcome != nil {
		s.onOutcome(outcome)
	}
}

// Cancel stops and forgets the release's timer. Unknown ids are ignored. A
// publish that is already running is not interrupted.
func (s *Scheduler) Cancel(releaseID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.jobs[releaseID]; ok {
		if j.timer != nil {
			j.timer.Stop()
		}
		delete(s.jobs, releaseID)
	}
}

// SyncFromDatabase reconciles the table with the store: every unreleased
// release with a scheduledAt gets a timer, and timers of releases that were
// unscheduled, released or deleted elsewhere are cancelled. Timers already
// registered for the stored instant are left alone, so repeated calls are
// cheap. It must run before schedule mutations are accepted.
func (s *Scheduler) SyncFromDatabase(ctx context.Context) error {
	released, scheduled := false, true
	pending, err := s.releases.ListReleases(ctx, ports.ReleaseFilter{Released: &released, Scheduled: &scheduled})
	if err != nil {
		return fmt.Errorf("list scheduled releases: %w", err)
	}

	wanted := make(map[string]time.Time, len(pending))
	for _, r := range pending {
		wanted[r.ID] = r.ScheduledAt.UTC()
	}

	s.mu.Lock()
	var stale []string
	for id, j := range s.jobs {
		if at, ok := wanted[id]; !ok {
			stale = append(stale, id)
		} else if j.at.Equal(at) {
			delete(wanted, id)
		}
	}
	s.mu.Unlock()

	for _, id := range stale {
		s.Cancel(id)
	}

	var errs []error
	registered := 0
	for _, r := range pending {
		at, ok := wanted[r.ID]
		if !ok {
			continue
		}
		if err := s.Set(ctx, r.ID, at); err != nil {
			errs = append(errs, fmt.Errorf("schedule %s: %w", r.ID, err))
			continue
		}
		registered++
	}
	if registered > 0 || len(stale) > 0 || len(errs) > 0 {
		s.logger.Info(ctx, "scheduler synchronised", "pending", len(pending), "registered", registered, "cancelled", len(stale), "failed", len(errs))
	}
	return errors.Join(errs...)
}

// GetAll lists pending timers ordered by firing instant.
func (s *Scheduler) GetAll() []Job {
	s.mu.Lock()
	out := make([]Job, 0, len(s.jobs))
	for id, j := range s.jobs {
		out = append(out, Job{ReleaseID: id, At: j.at})
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, k int) bool {
		if out[i].At.Equal(out[k].At) {
			return out[i].ReleaseID < out[k].ReleaseID
		}
		return out[i].At.Before(out[k].At)
	})
	return out
}

// Shutdown cancels every pending timer and refuses further registrations.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, j := range s.jobs {
		if j.timer != nil {
			j.timer.Stop()
		}
		delete(s.jobs, id)
	}
	s.closed = true
}
