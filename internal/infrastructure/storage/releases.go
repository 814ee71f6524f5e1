package storage

import (
	"context"
	"fmt"
	"sort"

	"github.com/strapi/strapi-sub004/internal/domain/release"
	"github.com/strapi/strapi-sub004/internal/ports"
)

func cloneRelease(r release.Release) release.Release {
	out := r
	if r.ScheduledAt != nil {
		at := *r.ScheduledAt
		out.ScheduledAt = &at
	}
	if r.ReleasedAt != nil {
		at := *r.ReleasedAt
		out.ReleasedAt = &at
	}
	return out
}

func releaseNotFound(id string) error {
	return release.NotFound(fmt.Sprintf("release %s not found", id), map[string]interface{}{"release_id": id})
}

func actionNotFound(releaseID, actionID string) error {
	return release.NotFound(fmt.Sprintf("action %s not found in release %s", actionID, releaseID), map[string]interface{}{
		"release_id": releaseID,
		"action_id":  actionID,
	})
}

// CreateRelease inserts a new release.
func (db *DB) CreateRelease(ctx context.Context, r release.Release) error {
	return db.write(ctx, func(d *dataset) error {
		if _, exists := d.Releases[r.ID]; exists {
			return release.NewError(release.ErrCodeConflict, fmt.Sprintf("release %s already exists", r.ID), nil, map[string]interface{}{"release_id": r.ID})
		}
		d.Releases[r.ID] = cloneRelease(r)
		return nil
	})
}

// GetRelease loads a release by id.
func (db *DB) GetRelease(ctx context.Context, id string) (release.Release, error) {
	var out release.Release
	err := db.read(ctx, func(d *dataset) error {
		r, ok := d.Releases[id]
		if !ok {
			return releaseNotFound(id)
		}
		out = cloneRelease(r)
		return nil
	})
	return out, err
}

// UpdateRelease replaces a stored release.
func (db *DB) UpdateRelease(ctx context.Context, r release.Release) error {
	return db.write(ctx, func(d *dataset) error {
		if _, ok := d.Releases[r.ID]; !ok {
			return releaseNotFound(r.ID)
		}
		d.Releases[r.ID] = cloneRelease(r)
		return nil
	})
}

// DeleteRelease removes a release together with its actions.
func (db *DB) DeleteRelease(ctx context.Context, id string) error {
	return db.write(ctx, func(d *dataset) error {
		if _, ok := d.Releases[id]; !ok {
			return releaseNotFound(id)
		}
		delete(d.Releases, id)
		for actionID, action := range d.Actions {
			if action.ReleaseID == id {
				delete(d.Actions, actionID)
			}
		}
		return nil
	})
}

// ListReleases returns matching releases ordered by creation time.
func (db *DB) ListReleases(ctx context.Context, filter ports.ReleaseFilter) ([]release.Release, error) {
	out := make([]release.Release, 0)
	err := db.read(ctx, func(d *dataset) error {
		for _, r := range d.Releases {
			if filter.Released != nil && r.IsReleased() != *filter.Released {
				continue
			}
			if filter.Scheduled != nil && (r.ScheduledAt != nil) != *filter.Scheduled {
				continue
			}
			if filter.Name != "" && r.Name != filter.Name {
				continue
			}
			out = append(out, cloneRelease(r))
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, err
}

// CreateAction inserts an action and assigns its ordering sequence.
func (db *DB) CreateAction(ctx context.Context, a release.Action) (release.Action, error) {
	err := db.write(ctx, func(d *dataset) error {
		if _, ok := d.Releases[a.ReleaseID]; !ok {
			return releaseNotFound(a.ReleaseID)
		}
		if _, exists := d.Actions[a.ID]; exists {
			return release.NewError(release.ErrCodeConflict, fmt.Sprintf("action %s already exists", a.ID), nil, map[string]interface{}{"action_id": a.ID})
		}
		d.Sequence++
		a.Sequence = d.Sequence
		d.Actions[a.ID] = a
		return nil
	})
	return a, err
}

// GetAction loads an action owned by the given release.
func (db *DB) GetAction(ctx context.Context, releaseID, actionID string) (release.Action, error) {
	var out release.Action
	err := db.read(ctx, func(d *dataset) error {
		a, ok := d.Actions[actionID]
		if !ok || a.ReleaseID != releaseID {
			return actionNotFound(releaseID, actionID)
		}
		out = a
		return nil
	})
	return out, err
}

// UpdateAction replaces a stored action. Ownership cannot change.
func (db *DB) UpdateAction(ctx context.Context, a release.Action) error {
	return db.write(ctx, func(d *dataset) error {
		existing, ok := d.Actions[a.ID]
		if !ok || existing.ReleaseID != a.ReleaseID {
			return actionNotFound(a.ReleaseID, a.ID)
		}
		a.Sequence = existing.Sequence
		d.Actions[a.ID] = a
		return nil
	})
}

// DeleteAction removes one action.
func (db *DB) DeleteAction(ctx context.Context, releaseID, actionID string) error {
	return db.write(ctx, func(d *dataset) error {
		a, ok := d.Actions[actionID]
		if !ok || a.ReleaseID != releaseID {
			return actionNotFound(releaseID, actionID)
		}
		delete(d.Actions, actionID)
		return nil
	})
}

// ListActions returns matching actions in creation order.
func (db *DB) ListActions(ctx context.Context, filter ports.ActionFilter) ([]release.Action, error) {
	out := make([]release.Action, 0)
	err := db.read(ctx, func(d *dataset) error {
		for _, a := range d.Actions {
			if filter.ReleaseID != "" && a.ReleaseID != filter.ReleaseID {
				continue
			}
			if filter.ContentType != "" && a.ContentType != filter.ContentType {
				continue
			}
			if filter.DocumentID != "" && a.EntryDocumentID != filter.DocumentID {
				continue
			}
			if filter.Locale != nil && a.Locale != *filter.Locale {
				continue
			}
			if filter.Type != "" && a.Type != filter.Type {
				continue
			}
			out = append(out, a)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, err
}

// GetSettings returns the settings record.
func (db *DB) GetSettings(ctx context.Context) (release.Settings, error) {
	var out release.Settings
	err := db.read(ctx, func(d *dataset) error {
		out = d.Settings
		return nil
	})
	return out, err
}

// SaveSettings replaces the settings record.
func (db *DB) SaveSettings(ctx context.Context, s release.Settings) error {
	return db.write(ctx, func(d *dataset) error {
		d.Settings = s
		return nil
	})
}

var _ ports.ReleaseRepository = (*DB)(nil)
