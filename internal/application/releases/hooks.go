package releases

import (
	"context"
	"errors"

	"github.com/strapi/strapi-sub004/internal/domain/content"
	"github.com/strapi/strapi-sub004/internal/domain/release"
	"github.com/strapi/strapi-sub004/internal/ports"
)

// The hooks below are called by the document store when entries or content
// types change. Each recomputes every touched release exactly once.

// OnEntryUpdated revalidates publish actions targeting the entry.
func (s *Service) OnEntryUpdated(ctx context.Context, contentType, documentID, locale string) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		ct, err := s.schemas.ContentType(contentType)
		if err != nil {
			return unknownContentType(contentType, err)
		}
		actions, err := s.pendingActions(ctx, ports.ActionFilter{
			ContentType: contentType,
			DocumentID:  documentID,
			Locale:      &locale,
			Type:        release.ActionPublish,
		})
		if err != nil {
			return err
		}
		touched, err := s.revalidate(ctx, *ct, actions)
		if err != nil {
			return err
		}
		return s.recomputeAll(ctx, touched, "entry updated")
	})
}

// OnEntryDeleted removes the actions pointing at a deleted entry.
func (s *Service) OnEntryDeleted(ctx context.Context, contentType, documentID, locale string) error {
	var removed []release.Action
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		actions, err := s.pendingActions(ctx, ports.ActionFilter{
			ContentType: contentType,
			DocumentID:  documentID,
			Locale:      &locale,
		})
		if err != nil {
			return err
		}
		touched, err := s.removeActions(ctx, actions)
		if err != nil {
			return err
		}
		removed = actions
		return s.recomputeAll(ctx, touched, "entry deleted")
	})
	if err != nil {
		return err
	}
	s.emitRemoved(ctx, removed)
	return nil
}

// OnContentTypeChanged revalidates every pending publish action of a content
// type after its schema changed.
func (s *Service) OnContentTypeChanged(ctx context.Context, uid string) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		ct, err := s.schemas.ContentType(uid)
		if err != nil {
			return unknownContentType(uid, err)
		}
		actions, err := s.pendingActions(ctx, ports.ActionFilter{ContentType: uid, Type: release.ActionPublish})
		if err != nil {
			return err
		}
		touched, err := s.revalidate(ctx, *ct, actions)
		if err != nil {
			return err
		}
		return s.recomputeAll(ctx, touched, "content type changed")
	})
}

// OnContentTypeDeleted removes every pending action of a deleted content
// type.
func (s *Service) OnContentTypeDeleted(ctx context.Context, uid string) error {
	var removed []release.Action
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		actions, err := s.pendingActions(ctx, ports.ActionFilter{ContentType: uid})
		if err != nil {
			return err
		}
		touched, err := s.removeActions(ctx, actions)
		if err != nil {
			return err
		}
		removed = actions
		return s.recomputeAll(ctx, touched, "content type deleted")
	})
	if err != nil {
		return err
	}
	s.emitRemoved(ctx, removed)
	return nil
}

// pendingActions lists matching actions that belong to unreleased releases.
func (s *Service) pendingActions(ctx context.Context, filter ports.ActionFilter) ([]release.Action, error) {
	actions, err := s.releases.ListActions(ctx, filter)
	if err != nil {
		return nil, err
	}

	released := make(map[string]bool)
	out := make([]release.Action, 0, len(actions))
	for _, a := range actions {
		isReleased, seen := released[a.ReleaseID]
		if !seen {
			r, err := s.releases.GetRelease(ctx, a.ReleaseID)
			if err != nil {
				return nil, err
			}
			isReleased = r.IsReleased()
			released[a.ReleaseID] = isReleased
		}
		if !isReleased {
			out = append(out, a)
		}
	}
	return out, nil
}

// revalidate refreshes IsEntryValid. A publish target that disappeared is
// invalid.
func (s *Service) revalidate(ctx context.Context, ct content.ContentType, actions []release.Action) ([]string, error) {
	touched := newOrderedSet()
	for _, a := range actions {
		valid := false
		entry, err := s.documents.FindOne(ctx, a.ContentType, a.EntryDocumentID, a.Locale)
		switch {
		case err == nil:
			valid, err = s.entryValid(ctx, ct, *entry)
			if err != nil {
				return nil, err
			}
		case !errors.Is(err, ports.ErrEntryNotFound):
			return nil, err
		}

		touched.add(a.ReleaseID)
		if a.IsEntryValid == valid {
			continue
		}
		a.IsEntryValid = valid
		a.UpdatedAt = s.now()
		if err := s.releases.UpdateAction(ctx, a); err != nil {
			return nil, err
		}
	}
	return touched.items, nil
}

func (s *Service) removeActions(ctx context.Context, actions []release.Action) ([]string, error) {
	touched := newOrderedSet()
	for _, a := range actions {
		if err := s.releases.DeleteAction(ctx, a.ReleaseID, a.ID); err != nil {
			return nil, err
		}
		touched.add(a.ReleaseID)
	}
	return touched.items, nil
}

func (s *Service) emitRemoved(ctx context.Context, actions []release.Action) {
	for _, a := range actions {
		s.emit(ctx, ports.EventActionDeleted, map[string]interface{}{
			"release_id":   a.ReleaseID,
			"action_id":    a.ID,
			"content_type": a.ContentType,
		})
	}
}

func (s *Service) recomputeAll(ctx context.Context, releaseIDs []string, reason string) error {
	for _, id := range releaseIDs {
		if _, err := s.recompute(ctx, id); err != nil {
			return err
		}
	}
	if len(releaseIDs) > 0 {
		s.logger.Debug(ctx, "releases recomputed", "reason", reason, "releases", len(releaseIDs))
	}
	return nil
}

type orderedSet struct {
	seen  map[string]struct{}
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]struct{})}
}

func (o *orderedSet) add(v string) {
	if _, ok := o.seen[v]; ok {
		return
	}
	o.seen[v] = struct{}{}
	o.items = append(o.items, v)
}
