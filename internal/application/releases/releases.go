package releases

import (
	"context"
	"fmt"
	"time"

	"github.com/strapi/strapi-sub004/internal/domain/release"
	"github.com/strapi/strapi-sub004/internal/ports"
)

// CreateReleaseInput is the payload of CreateRelease.
type CreateReleaseInput struct {
	Name        string     `json:"name" validate:"required,max=255"`
	ScheduledAt *time.Time `json:"scheduledAt"`
	Timezone    string     `json:"timezone" validate:"omitempty,iana_timezone"`
}

// UpdateReleaseInput replaces the editable fields of a release. A nil
// ScheduledAt clears the schedule.
type UpdateReleaseInput struct {
	Name        string     `json:"name" validate:"required,max=255"`
	ScheduledAt *time.Time `json:"scheduledAt"`
	Timezone    string     `json:"timezone" validate:"omitempty,iana_timezone"`
}

// ReleaseView is a release decorated with the tally of its actions.
type ReleaseView struct {
	release.Release
	Actions    release.Counts `json:"actions"`
	HasEntries bool           `json:"hasEntries"`
}

// ListFilter narrows ListReleases. Nil Released lists every release.
type ListFilter struct {
	Released *bool
}

// CreateRelease stores a new empty release and registers its timer when a
// schedule is given.
func (s *Service) CreateRelease(ctx context.Context, in CreateReleaseInput) (release.Release, error) {
	if err := validateInput(in); err != nil {
		return release.Release{}, err
	}
	now := s.now()
	if err := s.checkFuture(in.ScheduledAt, now); err != nil {
		return release.Release{}, err
	}

	r := release.Release{
		ID:        s.newID(),
		Name:      in.Name,
		Status:    release.StatusEmpty,
		Timezone:  in.Timezone,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.ScheduledAt != nil {
		at := in.ScheduledAt.UTC()
		r.ScheduledAt = &at
	}

	s.timersMu.Lock()
	defer s.timersMu.Unlock()

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.checkNameAvailable(ctx, in.Name, ""); err != nil {
			return err
		}
		if r.ScheduledAt != nil && r.Timezone == "" {
			settings, err := s.releases.GetSettings(ctx)
			if err != nil {
				return err
			}
			r.Timezone = settings.DefaultTimezone
		}
		return s.releases.CreateRelease(ctx, r)
	})
	if err != nil {
		return release.Release{}, err
	}

	s.logger.Info(ctx, "release created", "release_id", r.ID, "name", r.Name)
	s.emit(ctx, ports.EventReleaseCreated, map[string]interface{}{"release_id": r.ID, "name": r.Name})

	if r.ScheduledAt != nil {
		if err := s.schedule(ctx, r.ID, *r.ScheduledAt); err != nil {
			return r, fmt.Errorf("schedule release %s: %w", r.ID, err)
		}
		s.emit(ctx, ports.EventReleaseScheduled, map[string]interface{}{"release_id": r.ID, "scheduled_at": *r.ScheduledAt})
	}
	return r, nil
}

// UpdateRelease replaces name, schedule and timezone of a pending release.
func (s *Service) UpdateRelease(ctx context.Context, releaseID string, in UpdateReleaseInput) (release.Release, error) {
	if err := validateInput(in); err != nil {
		return release.Release{}, err
	}
	now := s.now()
	if err := s.checkFuture(in.ScheduledAt, now); err != nil {
		return release.Release{}, err
	}

	s.timersMu.Lock()
	defer s.timersMu.Unlock()

	var updated release.Release
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		r, err := s.loadPending(ctx, releaseID)
		if err != nil {
			return err
		}
		if err := s.checkNameAvailable(ctx, in.Name, releaseID); err != nil {
			return err
		}

		r.Name = in.Name
		r.Timezone = in.Timezone
		r.ScheduledAt = nil
		if in.ScheduledAt != nil {
			at := in.ScheduledAt.UTC()
			r.ScheduledAt = &at
		}
		r.UpdatedAt = now
		if err := s.releases.UpdateRelease(ctx, r); err != nil {
			return err
		}
		updated = r
		return nil
	})
	if err != nil {
		return release.Release{}, err
	}

	s.emit(ctx, ports.EventReleaseUpdated, map[string]interface{}{"release_id": releaseID, "name": updated.Name})
	if updated.ScheduledAt == nil {
		s.unschedule(releaseID)
		return updated, nil
	}
	if err := s.schedule(ctx, releaseID, *updated.ScheduledAt); err != nil {
		return updated, fmt.Errorf("schedule release %s: %w", releaseID, err)
	}
	return updated, nil
}

// DeleteRelease removes a release with its actions and cancels its timer.
func (s *Service) DeleteRelease(ctx context.Context, releaseID string) (release.Release, error) {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()

	var deleted release.Release
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		r, err := s.releases.GetRelease(ctx, releaseID)
		if err != nil {
			return err
		}
		deleted = r
		return s.releases.DeleteRelease(ctx, releaseID)
	})
	if err != nil {
		return release.Release{}, err
	}

	s.unschedule(releaseID)
	s.logger.Info(ctx, "release deleted", "release_id", releaseID)
	s.emit(ctx, ports.EventReleaseDeleted, map[string]interface{}{"release_id": releaseID})
	return deleted, nil
}

// GetRelease loads a release together with its action counts.
func (s *Service) GetRelease(ctx context.Context, releaseID string) (ReleaseView, error) {
	r, err := s.releases.GetRelease(ctx, releaseID)
	if err != nil {
		return ReleaseView{}, err
	}
	return s.view(ctx, r)
}

// ListReleases returns releases ordered by creation time.
func (s *Service) ListReleases(ctx context.Context, filter ListFilter) ([]ReleaseView, error) {
	rs, err := s.releases.ListReleases(ctx, ports.ReleaseFilter{Released: filter.Released})
	if err != nil {
		return nil, err
	}
	out := make([]ReleaseView, 0, len(rs))
	for _, r := range rs {
		v, err := s.view(ctx, r)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *Service) view(ctx context.Context, r release.Release) (ReleaseView, error) {
	actions, err := s.releases.ListActions(ctx, ports.ActionFilter{ReleaseID: r.ID})
	if err != nil {
		return ReleaseView{}, err
	}
	counts := release.CountActions(actions)
	return ReleaseView{Release: r, Actions: counts, HasEntries: counts.Total > 0}, nil
}

// SetSchedule stores a publish instant and (re)registers the release timer.
// The instant must already be absolute; see release.ResolveInstant.
func (s *Service) SetSchedule(ctx context.Context, releaseID string, at time.Time, timezone string) (release.Release, error) {
	if _, err := release.LoadTimezone(timezone); err != nil {
		return release.Release{}, err
	}
	now := s.now()
	if err := s.checkFuture(&at, now); err != nil {
		return release.Release{}, err
	}

	s.timersMu.Lock()
	defer s.timersMu.Unlock()

	var updated release.Release
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		r, err := s.loadPending(ctx, releaseID)
		if err != nil {
			return err
		}
		utc := at.UTC()
		r.ScheduledAt = &utc
		r.Timezone = timezone
		r.UpdatedAt = now
		if err := s.releases.UpdateRelease(ctx, r); err != nil {
			return err
		}
		updated = r
		return nil
	})
	if err != nil {
		return release.Release{}, err
	}

	if err := s.schedule(ctx, releaseID, *updated.ScheduledAt); err != nil {
		return updated, fmt.Errorf("schedule release %s: %w", releaseID, err)
	}
	s.logger.Info(ctx, "release scheduled", "release_id", releaseID, "scheduled_at", *updated.ScheduledAt, "timezone", timezone)
	s.emit(ctx, ports.EventReleaseScheduled, map[string]interface{}{"release_id": releaseID, "scheduled_at": *updated.ScheduledAt})
	return updated, nil
}

// CancelSchedule clears the publish instant of a pending release.
func (s *Service) CancelSchedule(ctx context.Context, releaseID string) (release.Release, error) {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()

	var updated release.Release
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		r, err := s.loadPending(ctx, releaseID)
		if err != nil {
			return err
		}
		r.ScheduledAt = nil
		r.UpdatedAt = s.now()
		if err := s.releases.UpdateRelease(ctx, r); err != nil {
			return err
		}
		updated = r
		return nil
	})
	if err != nil {
		return release.Release{}, err
	}

	s.unschedule(releaseID)
	s.emit(ctx, ports.EventReleaseUnscheduled, map[string]interface{}{"release_id": releaseID})
	return updated, nil
}

func (s *Service) checkFuture(at *time.Time, now time.Time) error {
	if at == nil || at.After(now) {
		return nil
	}
	return release.Validation("scheduled time must be in the future", map[string]interface{}{
		"scheduled_at": at.UTC(),
		"now":          now,
	})
}

// checkNameAvailable rejects a name already used by another pending release.
func (s *Service) checkNameAvailable(ctx context.Context, name, selfID string) error {
	pending := false
	same, err := s.releases.ListReleases(ctx, ports.ReleaseFilter{Released: &pending, Name: name})
	if err != nil {
		return err
	}
	for _, r := range same {
		if r.ID != selfID {
			return release.Validation(fmt.Sprintf("release name %q is already used by a pending release", name), map[string]interface{}{
				"name":       name,
				"release_id": r.ID,
			})
		}
	}
	return nil
}
