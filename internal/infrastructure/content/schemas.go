// Package content implements the content-side collaborators of the release
// service: a YAML-backed schema provider, the entry validator used as the
// validity oracle, and a document store over the storage package.
package content

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/strapi/strapi-sub004/internal/domain/content"
	"github.com/strapi/strapi-sub004/internal/ports"
	releaseerrors "github.com/strapi/strapi-sub004/pkg/errors"
)

var yamlLineRegex = regexp.MustCompile(`line (\d+)`)

type schemaFile struct {
	ContentTypes []content.ContentType `yaml:"contentTypes" validate:"dive"`
}

// LoadSchemas reads a schema file. Attributes are declared as a YAML list so
// their order survives decoding.
func LoadSchemas(path string) ([]content.ContentType, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, releaseerrors.NewParseError("schema", path, 0, err)
	}
	return ParseSchemas(path, raw)
}

// ParseSchemas decodes and validates schema YAML.
func ParseSchemas(path string, raw []byte) ([]content.ContentType, error) {
	var file schemaFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, releaseerrors.NewParseError("schema", path, extractLine(err), err)
	}
	if err := validateSchemas(file); err != nil {
		return nil, err
	}
	return file.ContentTypes, nil
}

func validateSchemas(file schemaFile) error {
	if err := validatorInstance().Struct(file); err != nil {
		return convertValidationError(err)
	}

	seen := make(map[string]int, len(file.ContentTypes))
	for i, ct := range file.ContentTypes {
		if _, dup := seen[ct.UID]; dup {
			return releaseerrors.NewValidationError(fmt.Sprintf("contentTypes[%d].uid", i), fmt.Sprintf("duplicate content type %q", ct.UID), nil)
		}
		seen[ct.UID] = i
	}

	for i, ct := range file.ContentTypes {
		attrs := make(map[string]struct{}, len(ct.Attributes))
		for j, attr := range ct.Attributes {
			field := fmt.Sprintf("contentTypes[%d].attributes[%d]", i, j)
			if _, dup := attrs[attr.Name]; dup {
				return releaseerrors.NewValidationError(field+".name", fmt.Sprintf("duplicate attribute %q", attr.Name), nil)
			}
			attrs[attr.Name] = struct{}{}

			if !attr.IsRelation() {
				continue
			}
			if attr.Target == "" {
				return releaseerrors.NewValidationError(field+".target", "relation requires a target", nil)
			}
			if _, ok := seen[attr.Target]; !ok && attr.Target != "admin::user" {
				return releaseerrors.NewValidationError(field+".target", fmt.Sprintf("references unknown content type %q", attr.Target), nil)
			}
		}
	}
	return nil
}

// SchemaRegistry is an in-memory ports.SchemaProvider. Content types keep the
// order they were registered in.
type SchemaRegistry struct {
	mu    sync.RWMutex
	types []content.ContentType
	index map[string]int
}

// NewSchemaRegistry builds a registry from already-validated content types.
func NewSchemaRegistry(types []content.ContentType) *SchemaRegistry {
	r := &SchemaRegistry{}
	r.Replace(types)
	return r
}

// ContentType returns a copy of the schema registered under uid.
func (r *SchemaRegistry) ContentType(uid string) (*content.ContentType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.index[uid]
	if !ok {
		return nil, fmt.Errorf("%w: %s", content.ErrUnknownContentType, uid)
	}
	ct := copyContentType(r.types[i])
	return &ct, nil
}

// ContentTypes lists every registered schema in registration order.
func (r *SchemaRegistry) ContentTypes() []content.ContentType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]content.ContentType, 0, len(r.types))
	for _, ct := range r.types {
		out = append(out, copyContentType(ct))
	}
	return out
}

// Replace swaps the registered schemas. It returns the uids whose definition
// changed or disappeared so callers can run invalidation hooks.
func (r *SchemaRegistry) Replace(types []content.ContentType) (changed, removed []string) {
	next := make([]content.ContentType, 0, len(types))
	index := make(map[string]int, len(types))
	for _, ct := range types {
		index[ct.UID] = len(next)
		next = append(next, copyContentType(ct))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ct := range next {
		old, existed := r.index[ct.UID]
		if existed && !sameContentType(r.types[old], ct) {
			changed = append(changed, ct.UID)
		}
	}
	for _, ct := range r.types {
		if _, ok := index[ct.UID]; !ok {
			removed = append(removed, ct.UID)
		}
	}

	r.types = next
	r.index = index
	return changed, removed
}

func copyContentType(ct content.ContentType) content.ContentType {
	out := ct
	out.Attributes = make([]content.Attribute, len(ct.Attributes))
	copy(out.Attributes, ct.Attributes)
	return out
}

func sameContentType(a, b content.ContentType) bool {
	left, errA := yaml.Marshal(a)
	right, errB := yaml.Marshal(b)
	return errA == nil && errB == nil && string(left) == string(right)
}

func convertValidationError(err error) error {
	if ves, ok := err.(validator.ValidationErrors); ok && len(ves) > 0 {
		ve := ves[0]
		field := strings.TrimPrefix(ve.Namespace(), "schemaFile.")
		return releaseerrors.NewValidationError(field, fmt.Sprintf("%s failed validation for tag '%s'", field, ve.Tag()), err)
	}
	return releaseerrors.NewValidationError("contentTypes", err.Error(), err)
}

func extractLine(err error) int {
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

var _ ports.SchemaProvider = (*SchemaRegistry)(nil)
