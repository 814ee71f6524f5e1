package releases

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strapi/strapi-sub004/internal/application/scheduler"
	"github.com/strapi/strapi-sub004/internal/domain/release"
)

func attachScheduler(t *testing.T, h *harness, outcomes *[]scheduler.Outcome) *scheduler.Scheduler {
	t.Helper()
	sched, err := scheduler.New(scheduler.Options{
		Releases: h.db,
		Clock:    h.clock,
		Publish: func(ctx context.Context, releaseID string, at time.Time) error {
			_, err := h.svc.PublishScheduled(ctx, releaseID, at)
			return err
		},
		OnOutcome: func(o scheduler.Outcome) { *outcomes = append(*outcomes, o) },
	})
	require.NoError(t, err)
	h.svc.AttachScheduler(sched)
	return sched
}

func TestScheduledReleasePublishesAtInstant(t *testing.T) {
	h := newHarness(t)
	var outcomes []scheduler.Outcome
	sched := attachScheduler(t, h, &outcomes)
	ctx := context.Background()

	h.putEntry(t, categoryUID, "c1", "", map[string]any{"name": "Lights"})
	r := h.release(t, "Timed")
	_, err := h.svc.CreateAction(ctx, r.ID, publishInput(categoryUID, "c1", ""))
	require.NoError(t, err)

	at := start.Add(90 * time.Minute)
	scheduled, err := h.svc.SetSchedule(ctx, r.ID, at, "Europe/Berlin")
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", scheduled.Timezone)
	require.Len(t, sched.GetAll(), 1)

	h.clock.Advance(89 * time.Minute)
	assert.Equal(t, release.StatusReady, h.status(t, r.ID))

	h.clock.Advance(time.Minute)
	assert.Equal(t, release.StatusDone, h.status(t, r.ID))
	assert.Empty(t, sched.GetAll())
	require.Len(t, outcomes, 1)
	assert.NoError(t, outcomes[0].Err)
}

func TestScheduledPublishFailureIsRecorded(t *testing.T) {
	h := newHarness(t)
	var outcomes []scheduler.Outcome
	sched := attachScheduler(t, h, &outcomes)
	ctx := context.Background()

	h.putEntry(t, categoryUID, "c1", "", map[string]any{"name": "Lights"})
	r := h.release(t, "Doomed")
	_, err := h.svc.CreateAction(ctx, r.ID, publishInput(categoryUID, "c1", ""))
	require.NoError(t, err)
	_, err = h.svc.SetSchedule(ctx, r.ID, start.Add(time.Hour), "")
	require.NoError(t, err)

	h.faulty.failOn = categoryUID
	h.clock.Advance(time.Hour)

	require.Len(t, outcomes, 1)
	assert.True(t, release.IsPublishFailed(outcomes[0].Err))
	assert.Equal(t, release.StatusFailed, h.status(t, r.ID))
	assert.Empty(t, sched.GetAll())
}

func TestRescheduleAndCancel(t *testing.T) {
	h := newHarness(t)
	var outcomes []scheduler.Outcome
	sched := attachScheduler(t, h, &outcomes)
	ctx := context.Background()

	r := h.release(t, "Moving")
	_, err := h.svc.SetSchedule(ctx, r.ID, start.Add(time.Hour), "")
	require.NoError(t, err)
	_, err = h.svc.SetSchedule(ctx, r.ID, start.Add(2*time.Hour), "")
	require.NoError(t, err)
	require.Len(t, sched.GetAll(), 1)
	assert.Equal(t, start.Add(2*time.Hour), sched.GetAll()[0].At)

	_, err = h.svc.SetSchedule(ctx, r.ID, start.Add(-time.Hour), "")
	assert.True(t, release.IsValidation(err))

	cancelled, err := h.svc.CancelSchedule(ctx, r.ID)
	require.NoError(t, err)
	assert.Nil(t, cancelled.ScheduledAt)
	assert.Empty(t, sched.GetAll())

	h.clock.Advance(3 * time.Hour)
	assert.Empty(t, outcomes)
}

func TestDeletingScheduledReleaseCancelsTimer(t *testing.T) {
	h := newHarness(t)
	var outcomes []scheduler.Outcome
	sched := attachScheduler(t, h, &outcomes)
	ctx := context.Background()

	at := start.Add(time.Hour)
	r, err := h.svc.CreateRelease(ctx, CreateReleaseInput{Name: "Short lived", ScheduledAt: &at})
	require.NoError(t, err)
	require.Len(t, sched.GetAll(), 1)

	_, err = h.svc.DeleteRelease(ctx, r.ID)
	require.NoError(t, err)
	assert.Empty(t, sched.GetAll())
}

func TestManualPublishCancelsPendingTimer(t *testing.T) {
	h := newHarness(t)
	var outcomes []scheduler.Outcome
	sched := attachScheduler(t, h, &outcomes)
	ctx := context.Background()

	h.putEntry(t, categoryUID, "c1", "", map[string]any{"name": "Lights"})
	r := h.release(t, "Early")
	_, err := h.svc.CreateAction(ctx, r.ID, publishInput(categoryUID, "c1", ""))
	require.NoError(t, err)
	_, err = h.svc.SetSchedule(ctx, r.ID, start.Add(time.Hour), "")
	require.NoError(t, err)

	_, err = h.svc.PublishRelease(ctx, r.ID)
	require.NoError(t, err)
	assert.Empty(t, sched.GetAll())

	h.clock.Advance(2 * time.Hour)
	assert.Empty(t, outcomes)

	_, err = h.svc.CancelSchedule(ctx, r.ID)
	assert.True(t, errors.Is(err, release.Validation(release.MsgAlreadyPublished, nil)))
}

// storedSchedule reads scheduledAt straight from the store.
func storedSchedule(t *testing.T, h *harness, releaseID string) *time.Time {
	t.Helper()
	r, err := h.db.GetRelease(context.Background(), releaseID)
	require.NoError(t, err)
	return r.ScheduledAt
}

// overwriteSchedule writes scheduledAt without going through the service,
// the way another process sharing the store would.
func overwriteSchedule(t *testing.T, h *harness, releaseID string, at *time.Time) {
	t.Helper()
	ctx := context.Background()
	r, err := h.db.GetRelease(ctx, releaseID)
	require.NoError(t, err)
	r.ScheduledAt = at
	require.NoError(t, h.db.UpdateRelease(ctx, r))
}

func TestTimerSkipsReleaseUnscheduledElsewhere(t *testing.T) {
	h := newHarness(t)
	var outcomes []scheduler.Outcome
	sched := attachScheduler(t, h, &outcomes)
	ctx := context.Background()

	h.putEntry(t, categoryUID, "c1", "", map[string]any{"name": "Lights"})
	r := h.release(t, "Called off")
	_, err := h.svc.CreateAction(ctx, r.ID, publishInput(categoryUID, "c1", ""))
	require.NoError(t, err)
	_, err = h.svc.SetSchedule(ctx, r.ID, start.Add(time.Hour), "")
	require.NoError(t, err)

	overwriteSchedule(t, h, r.ID, nil)
	h.clock.Advance(2 * time.Hour)

	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].Skipped)
	assert.True(t, release.IsScheduleChanged(outcomes[0].Err))
	assert.Equal(t, release.StatusReady, h.status(t, r.ID))
	assert.Empty(t, sched.GetAll())
}

func TestTimerSkipsInstantMovedElsewhere(t *testing.T) {
	h := newHarness(t)
	var outcomes []scheduler.Outcome
	attachScheduler(t, h, &outcomes)
	ctx := context.Background()

	h.putEntry(t, categoryUID, "c1", "", map[string]any{"name": "Lights"})
	r := h.release(t, "Postponed")
	_, err := h.svc.CreateAction(ctx, r.ID, publishInput(categoryUID, "c1", ""))
	require.NoError(t, err)
	_, err = h.svc.SetSchedule(ctx, r.ID, start.Add(time.Hour), "")
	require.NoError(t, err)

	later := start.Add(3 * time.Hour)
	overwriteSchedule(t, h, r.ID, &later)
	h.clock.Advance(time.Hour)

	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].Skipped)
	assert.Equal(t, release.StatusReady, h.status(t, r.ID))

	_, err = h.svc.PublishScheduled(ctx, r.ID, later)
	require.NoError(t, err)
	assert.Equal(t, release.StatusDone, h.status(t, r.ID))
}

// clearingScheduler clears the stored schedule right before registering a
// timer, as a cancel committed between the schedule write and the timer
// registration would.
type clearingScheduler struct {
	*scheduler.Scheduler
	clear func()
}

func (c *clearingScheduler) Set(ctx context.Context, releaseID string, at time.Time) error {
	c.clear()
	return c.Scheduler.Set(ctx, releaseID, at)
}

func TestTimerIsNotRegisteredForClearedSchedule(t *testing.T) {
	h := newHarness(t)
	var outcomes []scheduler.Outcome
	sched := attachScheduler(t, h, &outcomes)
	ctx := context.Background()

	h.putEntry(t, categoryUID, "c1", "", map[string]any{"name": "Lights"})
	r := h.release(t, "Raced")
	_, err := h.svc.CreateAction(ctx, r.ID, publishInput(categoryUID, "c1", ""))
	require.NoError(t, err)

	h.svc.AttachScheduler(&clearingScheduler{
		Scheduler: sched,
		clear:     func() { overwriteSchedule(t, h, r.ID, nil) },
	})

	_, err = h.svc.SetSchedule(ctx, r.ID, start.Add(time.Hour), "")
	require.Error(t, err)
	assert.True(t, release.IsScheduleChanged(err))

	assert.Nil(t, storedSchedule(t, h, r.ID))
	assert.Empty(t, sched.GetAll())

	h.clock.Advance(2 * time.Hour)
	assert.Empty(t, outcomes)
	assert.Equal(t, release.StatusReady, h.status(t, r.ID))
}

func TestConcurrentScheduleAndCancelKeepTimersInStep(t *testing.T) {
	h := newHarness(t)
	var outcomes []scheduler.Outcome
	sched := attachScheduler(t, h, &outcomes)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		r := h.release(t, fmt.Sprintf("Contended %d", i))
		at := start.Add(time.Duration(i+1) * time.Minute)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := h.svc.SetSchedule(ctx, r.ID, at, "")
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := h.svc.CancelSchedule(ctx, r.ID)
			assert.NoError(t, err)
		}()
		wg.Wait()

		stored := storedSchedule(t, h, r.ID)
		var timers []scheduler.Job
		for _, j := range sched.GetAll() {
			if j.ReleaseID == r.ID {
				timers = append(timers, j)
			}
		}
		if stored == nil {
			assert.Empty(t, timers, "release %s has no schedule but a timer", r.ID)
			continue
		}
		require.Len(t, timers, 1)
		assert.True(t, stored.Equal(timers[0].At))
	}
}
