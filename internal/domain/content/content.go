// Package content models the content-type schemas and draft entries that
// releases bundle. It is free of storage concerns: schema providers and
// document stores live behind the ports package.
package content

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind distinguishes collection types from single-instance types.
type Kind string

const (
	KindCollection Kind = "collectionType"
	KindSingle     Kind = "singleType"
)

// Attribute types understood by the entry validator. Any other type is
// accepted without shape checks.
const (
	TypeString      = "string"
	TypeText        = "text"
	TypeRichText    = "richtext"
	TypeEmail       = "email"
	TypeUID         = "uid"
	TypeEnumeration = "enumeration"
	TypeInteger     = "integer"
	TypeDecimal     = "decimal"
	TypeBoolean     = "boolean"
	TypeDateTime    = "datetime"
	TypeRelation    = "relation"
)

// ErrUnknownContentType is returned by schema providers for an unregistered uid.
var ErrUnknownContentType = errors.New("unknown content type")

// systemRelations are relation attributes maintained by the platform itself.
// They never describe editorial dependencies between entries.
var systemRelations = map[string]struct{}{
	"createdBy":     {},
	"updatedBy":     {},
	"localizations": {},
}

// Attribute describes one field of a content type. Declaration order of the
// attributes is significant: it drives the dependency tree tie-break.
type Attribute struct {
	Name       string   `yaml:"name" json:"name" validate:"required"`
	Type       string   `yaml:"type" json:"type" validate:"required"`
	Required   bool     `yaml:"required,omitempty" json:"required,omitempty"`
	MinLength  *int     `yaml:"minLength,omitempty" json:"minLength,omitempty" validate:"omitempty,min=0"`
	MaxLength  *int     `yaml:"maxLength,omitempty" json:"maxLength,omitempty" validate:"omitempty,min=0"`
	Min        *float64 `yaml:"min,omitempty" json:"min,omitempty"`
	Max        *float64 `yaml:"max,omitempty" json:"max,omitempty"`
	Enum       []string `yaml:"enum,omitempty" json:"enum,omitempty"`
	Relation   string   `yaml:"relation,omitempty" json:"relation,omitempty" validate:"omitempty,oneof=oneToOne oneToMany manyToOne manyToMany morphToOne morphToMany"`
	Target     string   `yaml:"target,omitempty" json:"target,omitempty"`
	MappedBy   string   `yaml:"mappedBy,omitempty" json:"mappedBy,omitempty"`
	InversedBy string   `yaml:"inversedBy,omitempty" json:"inversedBy,omitempty"`
}

// IsRelation reports whether the attribute links to another content type.
func (a Attribute) IsRelation() bool {
	return a.Type == TypeRelation
}

// IsBidirectional reports whether the relation declares a back-reference on
// either side.
func (a Attribute) IsBidirectional() bool {
	return a.MappedBy != "" || a.InversedBy != ""
}

// ContentType is the schema of one kind of entry.
type ContentType struct {
	UID             string      `yaml:"uid" json:"uid" validate:"required"`
	Kind            Kind        `yaml:"kind" json:"kind" validate:"required,oneof=collectionType singleType"`
	DisplayName     string      `yaml:"displayName,omitempty" json:"displayName,omitempty"`
	DraftAndPublish bool        `yaml:"draftAndPublish" json:"draftAndPublish"`
	Localized       bool        `yaml:"localized,omitempty" json:"localized,omitempty"`
	Attributes      []Attribute `yaml:"attributes" json:"attributes" validate:"dive"`
}

// Attribute looks up an attribute by name.
func (ct ContentType) Attribute(name string) (Attribute, bool) {
	for _, attr := range ct.Attributes {
		if attr.Name == name {
			return attr, true
		}
	}
	return Attribute{}, false
}

// IsSingle reports whether the content type holds exactly one document.
func (ct ContentType) IsSingle() bool {
	return ct.Kind == KindSingle
}

// RelationDescriptor is the typed view of a relation attribute used when
// ordering entries by dependency.
type RelationDescriptor struct {
	Attribute       string
	Target          string
	IsBidirectional bool
}

// Relations returns the editorial relation attributes in declaration order,
// excluding platform-managed links.
func (ct ContentType) Relations() []RelationDescriptor {
	out := make([]RelationDescriptor, 0)
	for _, attr := range ct.Attributes {
		if !attr.IsRelation() {
			continue
		}
		if _, system := systemRelations[attr.Name]; system {
			continue
		}
		out = append(out, RelationDescriptor{
			Attribute:       attr.Name,
			Target:          attr.Target,
			IsBidirectional: attr.IsBidirectional(),
		})
	}
	return out
}

// DisplayStatus is the editorial publication state of an entry.
type DisplayStatus string

const (
	DisplayDraft     DisplayStatus = "draft"
	DisplayPublished DisplayStatus = "published"
	DisplayModified  DisplayStatus = "modified"
)

// Entry is one locale version of a document.
type Entry struct {
	ContentType   string         `json:"contentType"`
	DocumentID    string         `json:"documentId"`
	Locale        string         `json:"locale,omitempty"`
	Data          map[string]any `json:"data"`
	PublishedData map[string]any `json:"publishedData,omitempty"`
	UpdatedAt     time.Time      `json:"updatedAt"`
	PublishedAt   *time.Time     `json:"publishedAt,omitempty"`
}

// Key returns the storage identity of the entry.
func (e Entry) Key() EntryKey {
	return EntryKey{ContentType: e.ContentType, DocumentID: e.DocumentID, Locale: e.Locale}
}

// Status derives the display status from the publication timestamps.
func (e Entry) Status() DisplayStatus {
	if e.PublishedAt == nil {
		return DisplayDraft
	}
	if e.UpdatedAt.After(*e.PublishedAt) {
		return DisplayModified
	}
	return DisplayPublished
}

// Clone deep-copies the entry so callers can mutate the result freely.
func (e Entry) Clone() Entry {
	out := e
	out.Data = CloneData(e.Data)
	out.PublishedData = CloneData(e.PublishedData)
	if e.PublishedAt != nil {
		at := *e.PublishedAt
		out.PublishedAt = &at
	}
	return out
}

// EntryKey identifies an entry by content type, document and locale.
type EntryKey struct {
	ContentType string `json:"contentType"`
	DocumentID  string `json:"documentId"`
	Locale      string `json:"locale,omitempty"`
}

// String renders the key in a stable, map-friendly form.
func (k EntryKey) String() string {
	return strings.Join([]string{k.ContentType, k.DocumentID, k.Locale}, "|")
}

// RelationRefs extracts the referenced document ids from a relation value.
// Scalars, objects carrying a documentId and lists of either are accepted;
// nil and empty members are skipped.
func RelationRefs(value any) []string {
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case map[string]any:
		if id, ok := v["documentId"].(string); ok && id != "" {
			return []string{id}
		}
		return nil
	case []string:
		out := make([]string, 0, len(v))
		for _, id := range v {
			if id != "" {
				out = append(out, id)
			}
		}
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, RelationRefs(item)...)
		}
		return out
	default:
		return nil
	}
}

// CloneData deep-copies JSON-shaped entry data.
func CloneData(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		return CloneData(typed)
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return append([]string(nil), typed...)
	default:
		return v
	}
}

// Violation is one failed rule on one attribute.
type Violation struct {
	Path    string `json:"path"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ValidationErrors is returned by entry validators when an entry's draft data
// would not pass publish-time validation.
type ValidationErrors struct {
	ContentType string
	DocumentID  string
	Locale      string
	Violations  []Violation
}

func (e *ValidationErrors) Error() string {
	if e == nil || len(e.Violations) == 0 {
		return "entry is valid"
	}
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, fmt.Sprintf("%s: %s", v.Path, v.Message))
	}
	return fmt.Sprintf("entry %s/%s failed validation: %s", e.ContentType, e.DocumentID, strings.Join(parts, "; "))
}

// IsValidationFailure reports whether err describes invalid entry data rather
// than an infrastructure failure.
func IsValidationFailure(err error) bool {
	var verrs *ValidationErrors
	return errors.As(err, &verrs)
}
