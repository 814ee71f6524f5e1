package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	releaseerrors "github.com/strapi/strapi-sub004/pkg/errors"
)

var yamlLineRegex = regexp.MustCompile(`line (\d+)`)

// Load reads the configuration at path. When the file does not exist and
// explicit is false the defaults are used instead. Environment overrides
// apply in both cases, before validation.
func Load(path string, explicit bool) (*Config, error) {
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		cfg := Default()
		cfg.applyEnv(envLookup)
		return cfg, Validate(cfg)
	default:
		return nil, releaseerrors.NewParseError("config", path, 0, err)
	}

	return Parse(path, data)
}

// Parse decodes YAML configuration and validates the result.
func Parse(path string, data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, releaseerrors.NewParseError("config", path, extractLine(err), err)
	}

	cfg.applyEnv(envLookup)
	cfg.applyDefaults()

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func extractLine(err error) int {
	if err == nil {
		return 0
	}

	matches := yamlLineRegex.FindStringSubmatch(err.Error())
	if len(matches) != 2 {
		return 0
	}

	var line int
	if _, scanErr := fmt.Sscanf(matches[1], "%d", &line); scanErr != nil {
		return 0
	}
	return line
}
