package release

import (
	"errors"
	"fmt"
	"testing"

	"github.com/strapi/strapi-sub004/internal/domain/content"
)

func TestDomainError_Error(t *testing.T) {
	err := &DomainError{Code: ErrCodeValidation, Message: "invalid"}
	want := "VALIDATION_ERROR: invalid"
	if err.Error() != want {
		t.Fatalf("expected %q, got %q", want, err.Error())
	}

	wrapped := &DomainError{Code: ErrCodePublishFailed, Message: "publish", Cause: err}
	wantWrapped := "PUBLISH_FAILED: publish: VALIDATION_ERROR: invalid"
	if wrapped.Error() != wantWrapped {
		t.Fatalf("expected %q, got %q", wantWrapped, wrapped.Error())
	}
}

func TestDomainError_IsAndUnwrap(t *testing.T) {
	inner := Validation(MsgNoEntries, nil)
	outer := NewError(ErrCodePublishFailed, "publish", inner, nil)

	if !errors.Is(outer, inner) {
		t.Fatal("expected errors.Is to match wrapped domain error")
	}
	if errors.Is(inner, outer) {
		t.Fatal("expected errors.Is to be directional")
	}
	if errors.Is(outer, fmt.Errorf("other")) {
		t.Fatal("expected non-domain errors to return false")
	}
}

func TestDomainError_WithContext(t *testing.T) {
	err := NotFound("release not found", map[string]interface{}{"release_id": "r1"})
	updated := err.WithContext(map[string]interface{}{"action_id": "a1"})

	if updated.Context["release_id"] != "r1" || updated.Context["action_id"] != "a1" {
		t.Fatalf("context merge failed: %+v", updated.Context)
	}
	if updated == err {
		t.Fatal("WithContext should return a new instance")
	}
}

func TestCodeHelpers(t *testing.T) {
	dup := AlreadyOnRelease("r1", content.EntryKey{ContentType: "article", DocumentID: "d1", Locale: "en"})
	wrapped := fmt.Errorf("bulk: %w", dup)

	if !IsAlreadyOnRelease(wrapped) {
		t.Fatal("expected wrapped duplicate to be detected")
	}
	if dup.Context["content_type"] != "article" || dup.Context["locale"] != "en" {
		t.Fatalf("missing structured detail: %+v", dup.Context)
	}
	if IsNotFound(wrapped) || IsValidation(wrapped) || IsPublishFailed(wrapped) {
		t.Fatal("expected only the duplicate code to match")
	}
	if CodeOf(errors.New("plain")) != "" {
		t.Fatal("expected empty code for foreign errors")
	}
}

func TestDomainError_ErrorNilReceiver(t *testing.T) {
	var err *DomainError
	if got := err.Error(); got != "<nil>" {
		t.Fatalf("expected <nil>, got %q", got)
	}
	if err.Unwrap() != nil {
		t.Fatal("expected nil unwrap")
	}
}

func TestIsScheduleChanged(t *testing.T) {
	moved := Validation(MsgScheduleChanged, map[string]interface{}{"release_id": "r1"})
	if !IsScheduleChanged(fmt.Errorf("fire: %w", moved)) {
		t.Fatal("expected wrapped schedule change to be detected")
	}
	if IsScheduleChanged(Validation(MsgAlreadyPublished, nil)) {
		t.Fatal("other validation errors are not schedule changes")
	}
}
