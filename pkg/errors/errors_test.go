package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseErrorWrapsUnderlying(t *testing.T) {
	t.Parallel()

	underlying := fmt.Errorf("unexpected token")
	err := NewParseError("config", "releases.yaml", 12, underlying)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	require.Equal(t, "releases.yaml", parseErr.Path)
	require.Equal(t, 12, parseErr.Line)
	require.True(t, stdErrors.Is(err, underlying))
	require.Equal(t, "config parse error: releases.yaml:12: unexpected token", err.Error())
}

func TestParseErrorWithoutLineOrKind(t *testing.T) {
	t.Parallel()

	err := NewParseError("", "schemas.yaml", 0, stdErrors.New("missing"))
	require.Equal(t, "parse error: schemas.yaml: missing", err.Error())
}

func TestValidationErrorCarriesField(t *testing.T) {
	t.Parallel()

	err := NewValidationError("contentTypes[1].attributes[0].target", "references unknown content type", nil)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Equal(t, "contentTypes[1].attributes[0].target", validationErr.Field)
	require.Contains(t, err.Error(), "references unknown content type")

	require.Equal(t, "validation error: nil config", NewValidationError("", "nil config", nil).Error())
}
