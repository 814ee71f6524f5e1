package content

import (
	"context"
	"errors"
	"fmt"

	"github.com/strapi/strapi-sub004/internal/domain/content"
	"github.com/strapi/strapi-sub004/internal/ports"
)

// EntryTable is the entry persistence the store builds on. The storage
// package's DB satisfies it, transactions included.
type EntryTable interface {
	GetEntry(ctx context.Context, key content.EntryKey) (content.Entry, error)
	PutEntry(ctx context.Context, e content.Entry) error
	DeleteEntry(ctx context.Context, key content.EntryKey) error
	ListEntries(ctx context.Context, contentType string) ([]content.Entry, error)
}

// StoreOptions wires a Store.
type StoreOptions struct {
	Entries   EntryTable
	Schemas   ports.SchemaProvider
	Validator ports.EntryValidator
	Clock     ports.Clock
}

// Store is the document store used by the release service and the entry CLI.
type Store struct {
	entries   EntryTable
	schemas   ports.SchemaProvider
	validator ports.EntryValidator
	clock     ports.Clock
}

// NewStore builds a Store. Every option is required.
func NewStore(opts StoreOptions) (*Store, error) {
	if opts.Entries == nil || opts.Schemas == nil || opts.Validator == nil || opts.Clock == nil {
		return nil, errors.New("content store requires entries, schemas, validator and clock")
	}
	return &Store{
		entries:   opts.Entries,
		schemas:   opts.Schemas,
		validator: opts.Validator,
		clock:     opts.Clock,
	}, nil
}

// FindOne loads one locale version of a document.
func (s *Store) FindOne(ctx context.Context, contentType, documentID, locale string) (*content.Entry, error) {
	e, err := s.entries.GetEntry(ctx, content.EntryKey{ContentType: contentType, DocumentID: documentID, Locale: locale})
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// FindSingle returns the document id of a single type, preferring the
// version stored under locale.
func (s *Store) FindSingle(ctx context.Context, contentType, locale string) (string, error) {
	entries, err := s.entries.ListEntries(ctx, contentType)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", fmt.Errorf("%w: no document for single type %s", ports.ErrEntryNotFound, contentType)
	}
	for _, e := range entries {
		if e.Locale == locale {
			return e.DocumentID, nil
		}
	}
	return entries[0].DocumentID, nil
}

// Save writes a draft. New documents get a fresh updatedAt; the published
// version, if any, is kept.
func (s *Store) Save(ctx context.Context, e content.Entry) (content.Entry, error) {
	if _, err := s.schemas.ContentType(e.ContentType); err != nil {
		return content.Entry{}, err
	}

	existing, err := s.entries.GetEntry(ctx, e.Key())
	switch {
	case err == nil:
		e.PublishedAt = existing.PublishedAt
		e.PublishedData = existing.PublishedData
	case !errors.Is(err, ports.ErrEntryNotFound):
		return content.Entry{}, err
	}

	e.UpdatedAt = s.clock.Now()
	if err := s.entries.PutEntry(ctx, e); err != nil {
		return content.Entry{}, err
	}
	return e, nil
}

// Delete removes a document version.
func (s *Store) Delete(ctx context.Context, key content.EntryKey) error {
	return s.entries.DeleteEntry(ctx, key)
}

// List returns the entries of a content type, or every entry when empty.
func (s *Store) List(ctx context.Context, contentType string) ([]content.Entry, error) {
	return s.entries.ListEntries(ctx, contentType)
}

// PublishMany copies the draft data of each entry into its published
// version. Entries are re-read and re-validated first; a missing or invalid
// entry fails the whole call.
func (s *Store) PublishMany(ctx context.Context, contentType string, entries []content.Entry) error {
	ct, err := s.schemas.ContentType(contentType)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	for _, requested := range entries {
		current, err := s.entries.GetEntry(ctx, requested.Key())
		if err != nil {
			return fmt.Errorf("publish %s: %w", requested.Key(), err)
		}
		if err := s.validator.ValidateEntry(ctx, *ct, current); err != nil {
			return fmt.Errorf("publish %s: %w", requested.Key(), err)
		}

		at := now
		current.PublishedAt = &at
		current.PublishedData = content.CloneData(current.Data)
		if err := s.entries.PutEntry(ctx, current); err != nil {
			return fmt.Errorf("publish %s: %w", requested.Key(), err)
		}
	}
	return nil
}

// UnpublishMany drops the published version of each entry. Entries that no
// longer exist have nothing to withdraw and are skipped.
func (s *Store) UnpublishMany(ctx context.Context, contentType string, entries []content.Entry) error {
	if _, err := s.schemas.ContentType(contentType); err != nil {
		return err
	}

	for _, requested := range entries {
		current, err := s.entries.GetEntry(ctx, requested.Key())
		if errors.Is(err, ports.ErrEntryNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("unpublish %s: %w", requested.Key(), err)
		}

		current.PublishedAt = nil
		current.PublishedData = nil
		if err := s.entries.PutEntry(ctx, current); err != nil {
			return fmt.Errorf("unpublish %s: %w", requested.Key(), err)
		}
	}
	return nil
}

var _ ports.DocumentStore = (*Store)(nil)
