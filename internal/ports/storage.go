package ports

import (
	"context"

	"github.com/strapi/strapi-sub004/internal/domain/release"
)

// Transactor runs fn inside one all-or-nothing transaction. Calls nested
// through the ctx handed to fn join the outer transaction.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ReleaseFilter narrows ListReleases. Nil pointers match everything.
type ReleaseFilter struct {
	Released  *bool
	Scheduled *bool
	Name      string
}

// ActionFilter narrows ListActions. Empty strings match everything; Locale
// matches exactly when non-nil.
type ActionFilter struct {
	ReleaseID   string
	ContentType string
	DocumentID  string
	Locale      *string
	Type        release.ActionType
}

// ReleaseRepository persists releases, their actions and the settings
// record. Missing records yield release.ErrCodeNotFound domain errors.
type ReleaseRepository interface {
	CreateRelease(ctx context.Context, r release.Release) error
	GetRelease(ctx context.Context, id string) (release.Release, error)
	UpdateRelease(ctx context.Context, r release.Release) error
	DeleteRelease(ctx context.Context, id string) error
	ListReleases(ctx context.Context, filter ReleaseFilter) ([]release.Release, error)

	CreateAction(ctx context.Context, a release.Action) (release.Action, error)
	GetAction(ctx context.Context, releaseID, actionID string) (release.Action, error)
	UpdateAction(ctx context.Context, a release.Action) error
	DeleteAction(ctx context.Context, releaseID, actionID string) error
	ListActions(ctx context.Context, filter ActionFilter) ([]release.Action, error)

	GetSettings(ctx context.Context) (release.Settings, error)
	SaveSettings(ctx context.Context, s release.Settings) error
}
