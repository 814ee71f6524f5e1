package ports

import (
	"context"
	"errors"

	"github.com/strapi/strapi-sub004/internal/domain/content"
)

// ErrEntryNotFound is returned by document stores when no entry matches.
var ErrEntryNotFound = errors.New("entry not found")

// SchemaProvider resolves content-type metadata: relation attributes with
// their back-reference declarations and the draft/publish capability flag.
// Unknown uids yield an error wrapping content.ErrUnknownContentType.
type SchemaProvider interface {
	ContentType(uid string) (*content.ContentType, error)
	ContentTypes() []content.ContentType
}

// DocumentStore is the document storage engine as seen by the release core.
// Reads and writes honour the transaction carried by ctx (see Transactor), so
// bulk publishes inside a release publish commit or roll back together.
type DocumentStore interface {
	// FindOne loads one locale version of a document, or ErrEntryNotFound.
	FindOne(ctx context.Context, contentType, documentID, locale string) (*content.Entry, error)
	// FindSingle returns the document id of a single-instance content type.
	FindSingle(ctx context.Context, contentType, locale string) (string, error)
	// PublishMany publishes the draft data of the given entries.
	PublishMany(ctx context.Context, contentType string, entries []content.Entry) error
	// UnpublishMany withdraws the published version of the given entries.
	UnpublishMany(ctx context.Context, contentType string, entries []content.Entry) error
}

// EntryValidator is the entry validity oracle. It returns nil for an entry
// that would pass publish-time validation, a *content.ValidationErrors for one
// that would not, and any other error for infrastructure failures.
type EntryValidator interface {
	ValidateEntry(ctx context.Context, contentType content.ContentType, entry content.Entry) error
}
