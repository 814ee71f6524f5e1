package content

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/strapi/strapi-sub004/internal/domain/content"
	"github.com/strapi/strapi-sub004/internal/ports"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate

	uidPattern = regexp.MustCompile(`^[A-Za-z0-9\-_.~]*$`)
)

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("yaml"), ",", 2)[0]
			if name == "" || name == "-" {
				return field.Name
			}
			return name
		})
		_ = v.RegisterValidation("content_uid", func(fl validator.FieldLevel) bool {
			return uidPattern.MatchString(fl.Field().String())
		})
		validateInst = v
	})
	return validateInst
}

// EntryValidator checks draft data against the attribute rules of its
// content type. It is the validity oracle consulted when actions are
// bundled and again right before entries are published.
type EntryValidator struct {
	v *validator.Validate
}

// NewEntryValidator returns a validator sharing the package validator.
func NewEntryValidator() *EntryValidator {
	return &EntryValidator{v: validatorInstance()}
}

// ValidateEntry returns nil for a publishable entry and a
// *content.ValidationErrors listing every broken rule otherwise.
func (ev *EntryValidator) ValidateEntry(ctx context.Context, ct content.ContentType, entry content.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var violations []content.Violation
	for _, attr := range ct.Attributes {
		violations = append(violations, ev.checkAttribute(attr, entry.Data[attr.Name])...)
	}
	if len(violations) == 0 {
		return nil
	}
	return &content.ValidationErrors{
		ContentType: ct.UID,
		DocumentID:  entry.DocumentID,
		Locale:      entry.Locale,
		Violations:  violations,
	}
}

func (ev *EntryValidator) checkAttribute(attr content.Attribute, value any) []content.Violation {
	if isBlank(attr, value) {
		if attr.Required {
			return []content.Violation{violation(attr, "required", "is required")}
		}
		return nil
	}

	switch attr.Type {
	case content.TypeString, content.TypeText, content.TypeRichText:
		s, ok := value.(string)
		if !ok {
			return []content.Violation{violation(attr, "type", "must be a string")}
		}
		return ev.checkLength(attr, s)
	case content.TypeUID:
		s, ok := value.(string)
		if !ok || ev.v.Var(s, "content_uid") != nil {
			return []content.Violation{violation(attr, "uid", "must only contain letters, digits and -_.~")}
		}
		return ev.checkLength(attr, s)
	case content.TypeEmail:
		s, ok := value.(string)
		if !ok || ev.v.Var(s, "email") != nil {
			return []content.Violation{violation(attr, "email", "must be a valid email address")}
		}
		return nil
	case content.TypeEnumeration:
		s, ok := value.(string)
		if !ok || !slices.Contains(attr.Enum, s) {
			return []content.Violation{violation(attr, "oneof", fmt.Sprintf("must be one of [%s]", strings.Join(attr.Enum, ", ")))}
		}
		return nil
	case content.TypeInteger:
		n, ok := toFloat(value)
		if !ok || n != math.Trunc(n) {
			return []content.Violation{violation(attr, "type", "must be an integer")}
		}
		return ev.checkRange(attr, n)
	case content.TypeDecimal:
		n, ok := toFloat(value)
		if !ok {
			return []content.Violation{violation(attr, "type", "must be a number")}
		}
		return ev.checkRange(attr, n)
	case content.TypeBoolean:
		if _, ok := value.(bool); !ok {
			return []content.Violation{violation(attr, "type", "must be a boolean")}
		}
		return nil
	case content.TypeDateTime:
		s, ok := value.(string)
		if !ok {
			return []content.Violation{violation(attr, "type", "must be an RFC 3339 date-time")}
		}
		if _, err := time.Parse(time.RFC3339, s); err != nil {
			return []content.Violation{violation(attr, "type", "must be an RFC 3339 date-time")}
		}
		return nil
	default:
		return nil
	}
}

func (ev *EntryValidator) checkLength(attr content.Attribute, s string) []content.Violation {
	var out []content.Violation
	if attr.MinLength != nil && ev.v.Var(s, fmt.Sprintf("min=%d", *attr.MinLength)) != nil {
		out = append(out, violation(attr, "minLength", fmt.Sprintf("must be at least %d characters", *attr.MinLength)))
	}
	if attr.MaxLength != nil && ev.v.Var(s, fmt.Sprintf("max=%d", *attr.MaxLength)) != nil {
		out = append(out, violation(attr, "maxLength", fmt.Sprintf("must be at most %d characters, got %d", *attr.MaxLength, utf8.RuneCountInString(s))))
	}
	return out
}

func (ev *EntryValidator) checkRange(attr content.Attribute, n float64) []content.Violation {
	var out []content.Violation
	if attr.Min != nil && ev.v.Var(n, fmt.Sprintf("gte=%v", *attr.Min)) != nil {
		out = append(out, violation(attr, "min", fmt.Sprintf("must be >= %v", *attr.Min)))
	}
	if attr.Max != nil && ev.v.Var(n, fmt.Sprintf("lte=%v", *attr.Max)) != nil {
		out = append(out, violation(attr, "max", fmt.Sprintf("must be <= %v", *attr.Max)))
	}
	return out
}

// isBlank treats nil, empty strings and empty relation lists as missing.
func isBlank(attr content.Attribute, value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	}
	if attr.IsRelation() {
		return len(content.RelationRefs(value)) == 0
	}
	return false
}

func toFloat(value any) (float64, bool) {
	switch n := value.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	default:
		return 0, false
	}
}

func violation(attr content.Attribute, rule, message string) content.Violation {
	return content.Violation{Path: attr.Name, Rule: rule, Message: message}
}

var _ ports.EntryValidator = (*EntryValidator)(nil)
