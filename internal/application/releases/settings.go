package releases

import (
	"context"

	"github.com/strapi/strapi-sub004/internal/domain/release"
)

// SettingsInput is the payload of UpdateSettings.
type SettingsInput struct {
	DefaultTimezone string `json:"defaultTimezone" validate:"omitempty,iana_timezone"`
}

// GetSettings returns the settings record.
func (s *Service) GetSettings(ctx context.Context) (release.Settings, error) {
	return s.releases.GetSettings(ctx)
}

// UpdateSettings replaces the settings record.
func (s *Service) UpdateSettings(ctx context.Context, in SettingsInput) (release.Settings, error) {
	if err := validateInput(in); err != nil {
		return release.Settings{}, err
	}
	settings := release.Settings{DefaultTimezone: in.DefaultTimezone}
	if err := s.releases.SaveSettings(ctx, settings); err != nil {
		return release.Settings{}, err
	}
	s.logger.Info(ctx, "settings updated", "default_timezone", settings.DefaultTimezone)
	return settings, nil
}
