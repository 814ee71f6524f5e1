package releases

import (
	"context"

	"github.com/strapi/strapi-sub004/internal/domain/release"
	"github.com/strapi/strapi-sub004/internal/ports"
)

// UpdateReleaseStatus recomputes the status of a release from a fresh read
// of its actions. Released releases are left untouched.
func (s *Service) UpdateReleaseStatus(ctx context.Context, releaseID string) (release.Release, error) {
	var out release.Release
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		r, err := s.recompute(ctx, releaseID)
		out = r
		return err
	})
	return out, err
}

// recompute must run inside a transaction so the action read and the status
// write see the same state.
func (s *Service) recompute(ctx context.Context, releaseID string) (release.Release, error) {
	r, err := s.releases.GetRelease(ctx, releaseID)
	if err != nil {
		return release.Release{}, err
	}
	if r.IsReleased() {
		return r, nil
	}

	actions, err := s.releases.ListActions(ctx, ports.ActionFilter{ReleaseID: releaseID})
	if err != nil {
		return release.Release{}, err
	}
	previous := r.Status
	r.Status = release.ComputeStatus(r.ReleasedAt, actions)
	r.UpdatedAt = s.now()
	if err := s.releases.UpdateRelease(ctx, r); err != nil {
		return release.Release{}, err
	}
	if previous != r.Status {
		s.logger.Debug(ctx, "release status changed", "release_id", releaseID, "from", previous, "to", r.Status)
	}
	return r, nil
}
