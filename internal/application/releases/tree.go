package releases

import (
	"context"
	"errors"

	"github.com/strapi/strapi-sub004/internal/domain/release"
	"github.com/strapi/strapi-sub004/internal/ports"
)

// ReleaseTree orders the entries of a release by their relations. Actions
// whose entry is gone stay in the forest as roots.
func (s *Service) ReleaseTree(ctx context.Context, releaseID string) ([]*release.Node, error) {
	if _, err := s.releases.GetRelease(ctx, releaseID); err != nil {
		return nil, err
	}
	actions, err := s.releases.ListActions(ctx, ports.ActionFilter{ReleaseID: releaseID})
	if err != nil {
		return nil, err
	}

	entries := make([]release.TreeEntry, 0, len(actions))
	for _, a := range actions {
		te := release.TreeEntry{Action: a}
		entry, err := s.documents.FindOne(ctx, a.ContentType, a.EntryDocumentID, a.Locale)
		switch {
		case err == nil:
			te.Entry = entry
		case !errors.Is(err, ports.ErrEntryNotFound):
			return nil, err
		}
		entries = append(entries, te)
	}
	return release.BuildTree(entries, s.schemas)
}
