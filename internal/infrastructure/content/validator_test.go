package content

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strapi/strapi-sub004/internal/domain/content"
)

func productType(t *testing.T) content.ContentType {
	t.Helper()
	ct, err := loadTestSchemas(t).ContentType("api::product.product")
	require.NoError(t, err)
	return *ct
}

func TestValidEntryPasses(t *testing.T) {
	ev := NewEntryValidator()
	entry := content.Entry{DocumentID: "p1", Data: map[string]any{
		"title":    "Lamp",
		"sku":      "lamp-01",
		"price":    12.5,
		"contact":  "shop@example.com",
		"state":    "final",
		"category": map[string]any{"documentId": "c1"},
	}}

	assert.NoError(t, ev.ValidateEntry(context.Background(), productType(t), entry))
}

func TestInvalidEntryListsEveryViolation(t *testing.T) {
	ev := NewEntryValidator()
	entry := content.Entry{DocumentID: "p2", Locale: "en", Data: map[string]any{
		"title":   "",
		"sku":     "has spaces",
		"price":   -1,
		"contact": "not-an-email",
		"state":   "archived",
	}}

	err := ev.ValidateEntry(context.Background(), productType(t), entry)
	require.Error(t, err)
	assert.True(t, content.IsValidationFailure(err))

	var verrs *content.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "p2", verrs.DocumentID)
	assert.Equal(t, "en", verrs.Locale)

	rules := map[string]string{}
	for _, v := range verrs.Violations {
		rules[v.Path] = v.Rule
	}
	assert.Equal(t, map[string]string{
		"title":   "required",
		"sku":     "uid",
		"price":   "min",
		"contact": "email",
		"state":   "oneof",
	}, rules)
}

func TestLengthAndTypeRules(t *testing.T) {
	ev := NewEntryValidator()
	ct := productType(t)

	long := content.Entry{Data: map[string]any{"title": "0123456789012345678901234567890123456789X"}}
	err := ev.ValidateEntry(context.Background(), ct, long)
	var verrs *content.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "maxLength", verrs.Violations[0].Rule)

	wrongType := content.Entry{Data: map[string]any{"title": 42}}
	err = ev.ValidateEntry(context.Background(), ct, wrongType)
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "type", verrs.Violations[0].Rule)
}

func TestRequiredRelationNeedsReference(t *testing.T) {
	ev := NewEntryValidator()
	ct := content.ContentType{UID: "api::x.x", Attributes: []content.Attribute{
		{Name: "owner", Type: content.TypeRelation, Target: "api::y.y", Required: true},
	}}

	err := ev.ValidateEntry(context.Background(), ct, content.Entry{Data: map[string]any{"owner": []any{nil, ""}}})
	assert.True(t, content.IsValidationFailure(err))

	assert.NoError(t, ev.ValidateEntry(context.Background(), ct, content.Entry{Data: map[string]any{"owner": []any{"y1"}}}))
}

func TestCancelledContextIsNotAValidationFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewEntryValidator().ValidateEntry(ctx, productType(t), content.Entry{})
	require.Error(t, err)
	assert.False(t, content.IsValidationFailure(err))
}
