package releases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/strapi/strapi-sub004/internal/domain/content"
	"github.com/strapi/strapi-sub004/internal/domain/release"
	"github.com/strapi/strapi-sub004/internal/ports"
)

// contentTypeBatch holds the entries of one content type to publish and to
// unpublish.
type contentTypeBatch struct {
	contentType string
	publish     []content.Entry
	unpublish   []content.Entry
}

// PublishRelease executes every action of a release in one transaction and
// marks it released.
//
// The preconditions are read inside the transaction, which holds the store's
// writer lock, so concurrent publishes of one release serialize and the
// later one fails with "release already published". If anything fails after
// the preconditions passed, all writes are rolled back, the release is
// marked failed and a PUBLISH_FAILED error is returned.
func (s *Service) PublishRelease(ctx context.Context, releaseID string) (release.Release, error) {
	return s.publish(ctx, releaseID, nil)
}

// PublishScheduled is the publish run by a release timer registered for at.
// The stored scheduledAt is checked inside the publish transaction; when it
// was cleared or moved, possibly by another process sharing the store,
// nothing is written and a release.MsgScheduleChanged validation error is
// returned.
func (s *Service) PublishScheduled(ctx context.Context, releaseID string, at time.Time) (release.Release, error) {
	return s.publish(ctx, releaseID, &at)
}

func (s *Service) publish(ctx context.Context, releaseID string, scheduledFor *time.Time) (release.Release, error) {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()

	started := s.now()
	var (
		published     release.Release
		actionCount   int
		claimed       bool
		failedContent string
	)

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		r, err := s.loadPending(ctx, releaseID)
		if err != nil {
			return err
		}
		if scheduledFor != nil && (r.ScheduledAt == nil || !r.ScheduledAt.Equal(*scheduledFor)) {
			return release.Validation(release.MsgScheduleChanged, map[string]interface{}{
				"release_id":   releaseID,
				"at":           scheduledFor.UTC(),
				"scheduled_at": r.ScheduledAt,
			})
		}
		actions, err := s.releases.ListActions(ctx, ports.ActionFilter{ReleaseID: releaseID})
		if err != nil {
			return err
		}
		if len(actions) == 0 {
			return release.Validation(release.MsgNoEntries, map[string]interface{}{"release_id": releaseID})
		}
		claimed = true
		actionCount = len(actions)

		batches, err := s.loadBatches(ctx, actions)
		if err != nil {
			return err
		}
		for _, b := range batches {
			failedContent = b.contentType
			if len(b.publish) > 0 {
				if err := s.documents.PublishMany(ctx, b.contentType, b.publish); err != nil {
					return fmt.Errorf("publish %s: %w", b.contentType, err)
				}
			}
			if len(b.unpublish) > 0 {
				if err := s.documents.UnpublishMany(ctx, b.contentType, b.unpublish); err != nil {
					return fmt.Errorf("unpublish %s: %w", b.contentType, err)
				}
			}
		}
		failedContent = ""

		releasedAt := s.now()
		r.ReleasedAt = &releasedAt
		r.Status = release.ComputeStatus(r.ReleasedAt, actions)
		r.UpdatedAt = releasedAt
		if err := s.releases.UpdateRelease(ctx, r); err != nil {
			return err
		}
		published = r
		return nil
	})

	if err != nil {
		if !claimed {
			return release.Release{}, err
		}
		return release.Release{}, s.publishFailed(ctx, releaseID, failedContent, err)
	}

	s.unschedule(releaseID)
	duration := s.now().Sub(started)
	s.logger.Info(ctx, "release published", "release_id", releaseID, "actions", actionCount, "duration_ms", duration.Milliseconds())
	s.emit(ctx, ports.EventReleasePublished, map[string]interface{}{
		"release_id":  releaseID,
		"actions":     actionCount,
		"released_at": *published.ReleasedAt,
	})
	return published, nil
}

// loadBatches partitions actions by content type, in order of first
// appearance, and loads their entries. A publish target that no longer
// exists fails the publish; a missing unpublish target is skipped.
func (s *Service) loadBatches(ctx context.Context, actions []release.Action) ([]*contentTypeBatch, error) {
	index := make(map[string]*contentTypeBatch)
	order := make([]*contentTypeBatch, 0)

	for _, a := range actions {
		b, ok := index[a.ContentType]
		if !ok {
			b = &contentTypeBatch{contentType: a.ContentType}
			index[a.ContentType] = b
			order = append(order, b)
		}

		entry, err := s.documents.FindOne(ctx, a.ContentType, a.EntryDocumentID, a.Locale)
		if errors.Is(err, ports.ErrEntryNotFound) && a.Type == release.ActionUnpublish {
			continue
		}
		if err != nil {
			return nil, release.NewError(release.ErrCodeNotFound, "entry not found", err, map[string]interface{}{
				"release_id":   a.ReleaseID,
				"action_id":    a.ID,
				"content_type": a.ContentType,
				"document_id":  a.EntryDocumentID,
				"locale":       a.Locale,
			})
		}

		if a.Type == release.ActionPublish {
			b.publish = append(b.publish, *entry)
		} else {
			b.unpublish = append(b.unpublish, *entry)
		}
	}
	return order, nil
}

// publishFailed records the failed status outside the rolled back
// transaction and wraps cause.
func (s *Service) publishFailed(ctx context.Context, releaseID, contentType string, cause error) error {
	details := map[string]interface{}{"release_id": releaseID}
	if contentType != "" {
		details["content_type"] = contentType
	}

	s.logger.Error(ctx, "release publish failed", "release_id", releaseID, "content_type", contentType, "error", cause)

	markCtx := context.WithoutCancel(ctx)
	markErr := s.tx.InTx(markCtx, func(ctx context.Context) error {
		r, err := s.releases.GetRelease(ctx, releaseID)
		if err != nil {
			return err
		}
		if r.IsReleased() {
			return nil
		}
		r.Status = release.StatusFailed
		r.UpdatedAt = s.now()
		return s.releases.UpdateRelease(ctx, r)
	})
	if markErr != nil {
		s.logger.Error(ctx, "could not mark release failed", "release_id", releaseID, "error", markErr)
	}

	s.emit(ctx, ports.EventReleasePublishFailed, map[string]interface{}{
		"release_id":   releaseID,
		"content_type": contentType,
		"error":        cause.Error(),
	})
	return release.NewError(release.ErrCodePublishFailed, "release publish failed", cause, details)
}
