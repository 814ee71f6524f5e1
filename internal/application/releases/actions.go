package releases

import (
	"context"
	"errors"
	"fmt"

	"github.com/strapi/strapi-sub004/internal/domain/content"
	"github.com/strapi/strapi-sub004/internal/domain/release"
	"github.com/strapi/strapi-sub004/internal/ports"
)

// CreateActionInput bundles one entry into a release. DocumentID may be
// empty for single types; it then resolves to the type's only document.
type CreateActionInput struct {
	Type        release.ActionType `json:"type" validate:"required,oneof=publish unpublish"`
	ContentType string             `json:"contentType" validate:"required"`
	DocumentID  string             `json:"documentId"`
	Locale      string             `json:"locale"`
}

// UpdateActionInput changes what an action does to its entry.
type UpdateActionInput struct {
	Type release.ActionType `json:"type" validate:"required,oneof=publish unpublish"`
}

// BulkResult reports a CreateManyActions call.
type BulkResult struct {
	Created                 []release.Action `json:"created"`
	TotalEntries            int              `json:"totalEntries"`
	EntriesAlreadyInRelease int              `json:"entriesAlreadyInRelease"`
}

// ActionView is a listed action with the current state of its entry. Entry
// is nil when the document no longer exists.
type ActionView struct {
	release.Action
	Entry       *content.Entry        `json:"entry,omitempty"`
	EntryStatus content.DisplayStatus `json:"entryStatus,omitempty"`
}

// ActionGroupView is one group of ListActions.
type ActionGroupView struct {
	Key     string       `json:"key"`
	Actions []ActionView `json:"actions"`
}

// CreateAction adds one action to a pending release and recomputes the
// release status.
func (s *Service) CreateAction(ctx context.Context, releaseID string, in CreateActionInput) (release.Action, error) {
	if err := validateInput(in); err != nil {
		return release.Action{}, err
	}

	var created release.Action
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		a, err := s.createAction(ctx, releaseID, in, true)
		created = a
		return err
	})
	if err != nil {
		return release.Action{}, err
	}

	s.emitActionCreated(ctx, created)
	return created, nil
}

// CreateManyActions adds several actions in one transaction. Entries that
// are already in the release are counted and skipped; any other failure
// aborts the whole batch. Status is recomputed once.
func (s *Service) CreateManyActions(ctx context.Context, releaseID string, inputs []CreateActionInput) (BulkResult, error) {
	for i, in := range inputs {
		if err := validateInput(in); err != nil {
			var de *release.DomainError
			if errors.As(err, &de) {
				return BulkResult{}, de.WithContext(map[string]interface{}{"index": i})
			}
			return BulkResult{}, err
		}
	}

	result := BulkResult{Created: make([]release.Action, 0, len(inputs)), TotalEntries: len(inputs)}
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		for _, in := range inputs {
			a, err := s.createAction(ctx, releaseID, in, false)
			if release.IsAlreadyOnRelease(err) {
				s.logger.Debug(ctx, "entry already in release", "release_id", releaseID, "content_type", in.ContentType, "document_id", in.DocumentID, "locale", in.Locale)
				result.EntriesAlreadyInRelease++
				continue
			}
			if err != nil {
				return err
			}
			result.Created = append(result.Created, a)
		}
		_, err := s.recompute(ctx, releaseID)
		return err
	})
	if err != nil {
		return BulkResult{}, err
	}

	for _, a := range result.Created {
		s.emitActionCreated(ctx, a)
	}
	return result, nil
}

// createAction runs inside the caller's transaction. With recompute false
// the caller must recompute the release status itself.
func (s *Service) createAction(ctx context.Context, releaseID string, in CreateActionInput, recompute bool) (release.Action, error) {
	if _, err := s.loadPending(ctx, releaseID); err != nil {
		return release.Action{}, err
	}

	ct, err := s.publishableType(in.ContentType)
	if err != nil {
		return release.Action{}, err
	}

	documentID := in.DocumentID
	if documentID == "" {
		if !ct.IsSingle() {
			return release.Action{}, release.Validation("documentId is required for collection types", map[string]interface{}{
				"release_id":   releaseID,
				"content_type": in.ContentType,
			})
		}
		documentID, err = s.documents.FindSingle(ctx, ct.UID, in.Locale)
		if err != nil {
			return release.Action{}, entryLookupError(err, content.EntryKey{ContentType: ct.UID, Locale: in.Locale})
		}
	}

	key := content.EntryKey{ContentType: ct.UID, DocumentID: documentID, Locale: in.Locale}
	locale := in.Locale
	existing, err := s.releases.ListActions(ctx, ports.ActionFilter{
		ReleaseID:   releaseID,
		ContentType: key.ContentType,
		DocumentID:  key.DocumentID,
		Locale:      &locale,
	})
	if err != nil {
		return release.Action{}, err
	}
	if len(existing) > 0 {
		return release.Action{}, release.AlreadyOnRelease(releaseID, key)
	}

	valid, err := s.actionValidity(ctx, *ct, key, in.Type)
	if err != nil {
		return release.Action{}, err
	}

	now := s.now()
	a, err := s.releases.CreateAction(ctx, release.Action{
		ID:              s.newID(),
		ReleaseID:       releaseID,
		Type:            in.Type,
		ContentType:     key.ContentType,
		EntryDocumentID: key.DocumentID,
		Locale:          key.Locale,
		IsEntryValid:    valid,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		return release.Action{}, err
	}

	if recompute {
		if _, err := s.recompute(ctx, releaseID); err != nil {
			return release.Action{}, err
		}
	}
	return a, nil
}

// UpdateAction switches an action between publish and unpublish.
func (s *Service) UpdateAction(ctx context.Context, releaseID, actionID string, in UpdateActionInput) (release.Action, error) {
	if err := validateInput(in); err != nil {
		return release.Action{}, err
	}

	var updated release.Action
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.loadPending(ctx, releaseID); err != nil {
			return err
		}
		a, err := s.releases.GetAction(ctx, releaseID, actionID)
		if err != nil {
			return err
		}
		ct, err := s.schemas.ContentType(a.ContentType)
		if err != nil {
			return unknownContentType(a.ContentType, err)
		}

		valid, err := s.actionValidity(ctx, *ct, a.EntryKey(), in.Type)
		if err != nil {
			return err
		}
		a.Type = in.Type
		a.IsEntryValid = valid
		a.UpdatedAt = s.now()
		if err := s.releases.UpdateAction(ctx, a); err != nil {
			return err
		}
		updated = a
		_, err = s.recompute(ctx, releaseID)
		return err
	})
	if err != nil {
		return release.Action{}, err
	}
	return updated, nil
}

// DeleteAction removes an action from a pending release.
func (s *Service) DeleteAction(ctx context.Context, releaseID, actionID string) (release.Action, error) {
	var deleted release.Action
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.loadPending(ctx, releaseID); err != nil {
			return err
		}
		a, err := s.releases.GetAction(ctx, releaseID, actionID)
		if err != nil {
			return err
		}
		if err := s.releases.DeleteAction(ctx, releaseID, actionID); err != nil {
			return err
		}
		deleted = a
		_, err = s.recompute(ctx, releaseID)
		return err
	})
	if err != nil {
		return release.Action{}, err
	}

	s.emit(ctx, ports.EventActionDeleted, map[string]interface{}{
		"release_id":   releaseID,
		"action_id":    actionID,
		"content_type": deleted.ContentType,
	})
	return deleted, nil
}

// ListActions returns the actions of a release grouped by groupBy, each
// decorated with its entry's display status.
func (s *Service) ListActions(ctx context.Context, releaseID string, groupBy release.GroupBy) ([]ActionGroupView, error) {
	if _, err := s.releases.GetRelease(ctx, releaseID); err != nil {
		return nil, err
	}
	actions, err := s.releases.ListActions(ctx, ports.ActionFilter{ReleaseID: releaseID})
	if err != nil {
		return nil, err
	}

	groups := release.GroupActions(actions, groupBy)
	out := make([]ActionGroupView, 0, len(groups))
	for _, g := range groups {
		views := make([]ActionView, 0, len(g.Actions))
		for _, a := range g.Actions {
			v := ActionView{Action: a}
			entry, err := s.documents.FindOne(ctx, a.ContentType, a.EntryDocumentID, a.Locale)
			switch {
			case err == nil:
				v.Entry = entry
				v.EntryStatus = entry.Status()
			case !errors.Is(err, ports.ErrEntryNotFound):
				return nil, err
			}
			views = append(views, v)
		}
		out = append(out, ActionGroupView{Key: g.Key, Actions: views})
	}
	return out, nil
}

func (s *Service) publishableType(uid string) (*content.ContentType, error) {
	ct, err := s.schemas.ContentType(uid)
	if err != nil {
		return nil, unknownContentType(uid, err)
	}
	if !ct.DraftAndPublish {
		return nil, release.Validation(fmt.Sprintf("content type %s does not support draft and publish", uid), map[string]interface{}{
			"content_type": uid,
		})
	}
	return ct, nil
}

// actionValidity asks the validity oracle about the entry. Unpublish
// actions are always valid.
func (s *Service) actionValidity(ctx context.Context, ct content.ContentType, key content.EntryKey, actionType release.ActionType) (bool, error) {
	if actionType == release.ActionUnpublish {
		return true, nil
	}
	entry, err := s.documents.FindOne(ctx, key.ContentType, key.DocumentID, key.Locale)
	if err != nil {
		return false, entryLookupError(err, key)
	}
	return s.entryValid(ctx, ct, *entry)
}

func (s *Service) entryValid(ctx context.Context, ct content.ContentType, entry content.Entry) (bool, error) {
	err := s.validator.ValidateEntry(ctx, ct, entry)
	switch {
	case err == nil:
		return true, nil
	case content.IsValidationFailure(err):
		return false, nil
	default:
		return false, fmt.Errorf("validate entry %s: %w", entry.Key(), err)
	}
}

func (s *Service) emitActionCreated(ctx context.Context, a release.Action) {
	s.emit(ctx, ports.EventActionCreated, map[string]interface{}{
		"release_id":   a.ReleaseID,
		"action_id":    a.ID,
		"type":         string(a.Type),
		"content_type": a.ContentType,
		"document_id":  a.EntryDocumentID,
		"locale":       a.Locale,
		"valid":        a.IsEntryValid,
	})
}

func unknownContentType(uid string, cause error) error {
	if errors.Is(cause, content.ErrUnknownContentType) {
		return release.NewError(release.ErrCodeValidation, fmt.Sprintf("content type %s does not exist", uid), cause, map[string]interface{}{
			"content_type": uid,
		})
	}
	return cause
}

func entryLookupError(err error, key content.EntryKey) error {
	if errors.Is(err, ports.ErrEntryNotFound) {
		return release.NewError(release.ErrCodeNotFound, "entry not found", err, map[string]interface{}{
			"content_type": key.ContentType,
			"document_id":  key.DocumentID,
			"locale":       key.Locale,
		})
	}
	return err
}
