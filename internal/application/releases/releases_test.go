package releases

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strapi/strapi-sub004/internal/domain/release"
	"github.com/strapi/strapi-sub004/internal/ports"
)

func TestCreateReleaseRejectsBadInput(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	past := start.Add(-time.Minute)

	_, err := h.svc.CreateRelease(ctx, CreateReleaseInput{})
	assert.True(t, release.IsValidation(err))

	_, err = h.svc.CreateRelease(ctx, CreateReleaseInput{Name: "Spring", ScheduledAt: &past})
	assert.True(t, release.IsValidation(err))

	_, err = h.svc.CreateRelease(ctx, CreateReleaseInput{Name: "Spring", Timezone: "Atlantis/Capital"})
	assert.True(t, release.IsValidation(err))

	h.release(t, "Spring")
	_, err = h.svc.CreateRelease(ctx, CreateReleaseInput{Name: "Spring"})
	assert.True(t, release.IsValidation(err))
}

func TestReleasedNameCanBeReused(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.putEntry(t, categoryUID, "c1", "", map[string]any{"name": "Lamps"})

	r := h.release(t, "Weekly")
	_, err := h.svc.CreateAction(ctx, r.ID, publishInput(categoryUID, "c1", ""))
	require.NoError(t, err)
	_, err = h.svc.PublishRelease(ctx, r.ID)
	require.NoError(t, err)

	_, err = h.svc.CreateRelease(ctx, CreateReleaseInput{Name: "Weekly"})
	assert.NoError(t, err)
}

func TestCreateReleaseUsesDefaultTimezoneForSchedules(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.svc.UpdateSettings(ctx, SettingsInput{DefaultTimezone: "Europe/Paris"})
	require.NoError(t, err)

	at := start.Add(time.Hour)
	r, err := h.svc.CreateRelease(ctx, CreateReleaseInput{Name: "Launch", ScheduledAt: &at})
	require.NoError(t, err)
	assert.Equal(t, "Europe/Paris", r.Timezone)
	assert.Equal(t, release.StatusEmpty, r.Status)
	assert.Contains(t, h.eventTypes(), ports.EventReleaseScheduled)

	_, err = h.svc.UpdateSettings(ctx, SettingsInput{DefaultTimezone: "Moon/Base"})
	assert.True(t, release.IsValidation(err))
}

func TestUpdateReleaseReplacesFields(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	at := start.Add(2 * time.Hour)

	r := h.release(t, "Draft name")
	h.release(t, "Taken")

	_, err := h.svc.UpdateRelease(ctx, r.ID, UpdateReleaseInput{Name: "Taken"})
	assert.True(t, release.IsValidation(err))

	updated, err := h.svc.UpdateRelease(ctx, r.ID, UpdateReleaseInput{Name: "Final name", ScheduledAt: &at, Timezone: "UTC"})
	require.NoError(t, err)
	assert.Equal(t, "Final name", updated.Name)
	require.NotNil(t, updated.ScheduledAt)

	cleared, err := h.svc.UpdateRelease(ctx, r.ID, UpdateReleaseInput{Name: "Final name"})
	require.NoError(t, err)
	assert.Nil(t, cleared.ScheduledAt)

	_, err = h.svc.UpdateRelease(ctx, "missing", UpdateReleaseInput{Name: "x"})
	assert.True(t, release.IsNotFound(err))
}

func TestGetAndListReleasesCarryCounts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.putEntry(t, categoryUID, "good", "", map[string]any{"name": "ok"})
	h.putEntry(t, categoryUID, "bad", "", map[string]any{})

	r := h.release(t, "Counts")
	h.release(t, "Empty")
	_, err := h.svc.CreateManyActions(ctx, r.ID, []CreateActionInput{
		publishInput(categoryUID, "good", ""),
		publishInput(categoryUID, "bad", ""),
	})
	require.NoError(t, err)

	view, err := h.svc.GetRelease(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, release.Counts{Total: 2, Valid: 1, Invalid: 1}, view.Actions)
	assert.True(t, view.HasEntries)
	assert.Equal(t, release.StatusBlocked, view.Status)

	all, err := h.svc.ListReleases(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Counts", all[0].Name)
	assert.False(t, all[1].HasEntries)

	released := true
	none, err := h.svc.ListReleases(ctx, ListFilter{Released: &released})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDeleteReleaseCascades(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.putEntry(t, categoryUID, "c1", "", map[string]any{"name": "x"})

	r := h.release(t, "Gone")
	_, err := h.svc.CreateAction(ctx, r.ID, publishInput(categoryUID, "c1", ""))
	require.NoError(t, err)

	deleted, err := h.svc.DeleteRelease(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, deleted.ID)

	actions, err := h.db.ListActions(ctx, ports.ActionFilter{ReleaseID: r.ID})
	require.NoError(t, err)
	assert.Empty(t, actions)

	_, err = h.svc.DeleteRelease(ctx, r.ID)
	assert.True(t, release.IsNotFound(err))
	assert.Contains(t, h.eventTypes(), ports.EventReleaseDeleted)
}

func TestSettingsRoundTrip(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	s, err := h.svc.GetSettings(ctx)
	require.NoError(t, err)
	assert.Empty(t, s.DefaultTimezone)

	_, err = h.svc.UpdateSettings(ctx, SettingsInput{DefaultTimezone: "Asia/Tokyo"})
	require.NoError(t, err)
	s, err = h.svc.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Asia/Tokyo", s.DefaultTimezone)
}
