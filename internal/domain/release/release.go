// Package release holds the release aggregate: a named bundle of publish and
// unpublish actions, the status it derives from them, and the ordering of its
// entries by relation.
package release

import (
	"time"

	"github.com/strapi/strapi-sub004/internal/domain/content"
)

// Status is the lifecycle state of a release.
type Status string

const (
	StatusEmpty   Status = "empty"
	StatusReady   Status = "ready"
	StatusBlocked Status = "blocked"
	StatusFailed  Status = "failed"
	StatusDone    Status = "done"
)

// Valid reports whether s is one of the defined statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusEmpty, StatusReady, StatusBlocked, StatusFailed, StatusDone:
		return true
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

// ActionType is what a bundled action does to its entry.
type ActionType string

const (
	ActionPublish   ActionType = "publish"
	ActionUnpublish ActionType = "unpublish"
)

// Release is a named, atomically publishable bundle of actions.
type Release struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Status      Status     `json:"status"`
	ScheduledAt *time.Time `json:"scheduledAt,omitempty"`
	Timezone    string     `json:"timezone,omitempty"`
	ReleasedAt  *time.Time `json:"releasedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// IsReleased reports whether the release has been published. A released
// release is immutable.
func (r Release) IsReleased() bool {
	return r.ReleasedAt != nil
}

// IsScheduled reports whether a publish instant is pending.
func (r Release) IsScheduled() bool {
	return r.ScheduledAt != nil && !r.IsReleased()
}

// Action is one bundled publish/unpublish instruction for a single entry.
type Action struct {
	ID              string     `json:"id"`
	ReleaseID       string     `json:"releaseId"`
	Type            ActionType `json:"type"`
	ContentType     string     `json:"contentType"`
	EntryDocumentID string     `json:"entryDocumentId,omitempty"`
	Locale          string     `json:"locale,omitempty"`
	IsEntryValid    bool       `json:"isEntryValid"`
	Sequence        int64      `json:"sequence"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// EntryKey returns the (contentType, document, locale) tuple that must be
// unique within a release.
func (a Action) EntryKey() content.EntryKey {
	return content.EntryKey{ContentType: a.ContentType, DocumentID: a.EntryDocumentID, Locale: a.Locale}
}

// Settings is the single settings record of the release subsystem.
type Settings struct {
	DefaultTimezone string `json:"defaultTimezone,omitempty"`
}
