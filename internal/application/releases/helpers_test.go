package releases

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/strapi/strapi-sub004/internal/domain/content"
	"github.com/strapi/strapi-sub004/internal/domain/release"
	"github.com/strapi/strapi-sub004/internal/infrastructure/clock"
	contentinfra "github.com/strapi/strapi-sub004/internal/infrastructure/content"
	"github.com/strapi/strapi-sub004/internal/infrastructure/events"
	"github.com/strapi/strapi-sub004/internal/infrastructure/storage"
	"github.com/strapi/strapi-sub004/internal/ports"
)

const (
	productUID  = "api::product.product"
	categoryUID = "api::category.category"
	homeUID     = "api::homepage.homepage"
	logUID      = "api::log.log"
)

var start = time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)

func testSchemas() []content.ContentType {
	return []content.ContentType{
		{
			UID: categoryUID, Kind: content.KindCollection, DraftAndPublish: true,
			Attributes: []content.Attribute{{Name: "name", Type: content.TypeString, Required: true}},
		},
		{
			UID: productUID, Kind: content.KindCollection, DraftAndPublish: true, Localized: true,
			Attributes: []content.Attribute{
				{Name: "title", Type: content.TypeString, Required: true},
				{Name: "category", Type: content.TypeRelation, Relation: "manyToOne", Target: categoryUID},
			},
		},
		{
			UID: homeUID, Kind: content.KindSingle, DraftAndPublish: true,
			Attributes: []content.Attribute{{Name: "headline", Type: content.TypeString}},
		},
		{
			UID: logUID, Kind: content.KindCollection,
			Attributes: []content.Attribute{{Name: "line", Type: content.TypeText}},
		},
	}
}

// countingRepo counts release writes so tests can assert how often status
// was recomputed.
type countingRepo struct {
	ports.ReleaseRepository
	mu      sync.Mutex
	updates int
}

func (c *countingRepo) UpdateRelease(ctx context.Context, r release.Release) error {
	c.mu.Lock()
	c.updates++
	c.mu.Unlock()
	return c.ReleaseRepository.UpdateRelease(ctx, r)
}

func (c *countingRepo) updateCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updates
}

// faultyDocuments fails bulk publishes of one content type.
type faultyDocuments struct {
	ports.DocumentStore
	failOn string
}

func (f *faultyDocuments) PublishMany(ctx context.Context, contentType string, entries []content.Entry) error {
	if contentType == f.failOn {
		return errors.New("storage engine unavailable")
	}
	return f.DocumentStore.PublishMany(ctx, contentType, entries)
}

type harness struct {
	svc      *Service
	db       *storage.DB
	repo     *countingRepo
	store    *contentinfra.Store
	schemas  *contentinfra.SchemaRegistry
	clock    *clock.Fake
	faulty   *faultyDocuments
	bus      *events.Bus
	mu       sync.Mutex
	received []string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := storage.Open(storage.Options{})
	require.NoError(t, err)

	h := &harness{
		db:      db,
		repo:    &countingRepo{ReleaseRepository: db},
		schemas: contentinfra.NewSchemaRegistry(testSchemas()),
		clock:   clock.NewFake(start),
	}
	h.store, err = contentinfra.NewStore(contentinfra.StoreOptions{
		Entries:   db,
		Schemas:   h.schemas,
		Validator: contentinfra.NewEntryValidator(),
		Clock:     h.clock,
	})
	require.NoError(t, err)
	h.faulty = &faultyDocuments{DocumentStore: h.store}

	h.bus = events.NewBus(nil)
	_, err = h.bus.Subscribe(events.AllEvents, func(_ context.Context, e ports.DomainEvent) error {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.received = append(h.received, e.EventType())
		return nil
	})
	require.NoError(t, err)

	seq := 0
	h.svc, err = New(Options{
		Releases:  h.repo,
		Tx:        db,
		Documents: h.faulty,
		Schemas:   h.schemas,
		Validator: contentinfra.NewEntryValidator(),
		Clock:     h.clock,
		Events:    h.bus,
		IDs: func() string {
			seq++
			return fmt.Sprintf("id-%03d", seq)
		},
	})
	require.NoError(t, err)
	return h
}

func (h *harness) eventTypes() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.received...)
}

func (h *harness) putEntry(t *testing.T, contentType, documentID, locale string, data map[string]any) {
	t.Helper()
	_, err := h.store.Save(context.Background(), content.Entry{
		ContentType: contentType,
		DocumentID:  documentID,
		Locale:      locale,
		Data:        data,
	})
	require.NoError(t, err)
}

func (h *harness) release(t *testing.T, name string) release.Release {
	t.Helper()
	r, err := h.svc.CreateRelease(context.Background(), CreateReleaseInput{Name: name})
	require.NoError(t, err)
	return r
}

func (h *harness) status(t *testing.T, releaseID string) release.Status {
	t.Helper()
	r, err := h.db.GetRelease(context.Background(), releaseID)
	require.NoError(t, err)
	return r.Status
}

func publishInput(contentType, documentID, locale string) CreateActionInput {
	return CreateActionInput{Type: release.ActionPublish, ContentType: contentType, DocumentID: documentID, Locale: locale}
}
