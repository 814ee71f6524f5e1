// Package releases orchestrates releases: the action store, status
// recomputation, the batch publish executor, scheduling and the invalidation
// hooks called by the document store.
package releases

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/strapi/strapi-sub004/internal/domain/release"
	"github.com/strapi/strapi-sub004/internal/infrastructure/logging"
	"github.com/strapi/strapi-sub004/internal/ports"
)

// Scheduler is the timer registry as seen by the service.
type Scheduler interface {
	Set(ctx context.Context, releaseID string, at time.Time) error
	Cancel(releaseID string)
}

// Options wires a Service. Releases, Tx, Documents, Schemas, Validator and
// Clock are required.
type Options struct {
	Releases  ports.ReleaseRepository
	Tx        ports.Transactor
	Documents ports.DocumentStore
	Schemas   ports.SchemaProvider
	Validator ports.EntryValidator
	Clock     ports.Clock
	Scheduler Scheduler
	Events    ports.EventPublisher
	Logger    ports.Logger
	// IDs generates release and action ids. Defaults to UUIDv4.
	IDs func() string
}

// Service implements the release operations.
type Service struct {
	releases  ports.ReleaseRepository
	tx        ports.Transactor
	documents ports.DocumentStore
	schemas   ports.SchemaProvider
	validator ports.EntryValidator
	clock     ports.Clock
	events    ports.EventPublisher
	logger    ports.Logger
	newID     func() string

	schedMu   sync.RWMutex
	scheduler Scheduler

	// timersMu is held from a scheduledAt write until the matching timer
	// change, so the stored schedule and the timer table move together.
	timersMu sync.Mutex
}

// New builds a Service.
func New(opts Options) (*Service, error) {
	if opts.Releases == nil || opts.Tx == nil || opts.Documents == nil || opts.Schemas == nil || opts.Validator == nil || opts.Clock == nil {
		return nil, errors.New("release service requires releases, tx, documents, schemas, validator and clock")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	ids := opts.IDs
	if ids == nil {
		ids = uuid.NewString
	}
	return &Service{
		releases:  opts.Releases,
		tx:        opts.Tx,
		documents: opts.Documents,
		schemas:   opts.Schemas,
		validator: opts.Validator,
		clock:     opts.Clock,
		events:    opts.Events,
		logger:    logger.With("layer", "application", "component", "releases"),
		newID:     ids,
		scheduler: opts.Scheduler,
	}, nil
}

// AttachScheduler installs the timer registry. The scheduler publishes
// through the service, so it is usually built after it.
func (s *Service) AttachScheduler(sched Scheduler) {
	s.schedMu.Lock()
	defer s.schedMu.Unlock()
	s.scheduler = sched
}

func (s *Service) schedule(ctx context.Context, releaseID string, at time.Time) error {
	s.schedMu.RLock()
	sched := s.scheduler
	s.schedMu.RUnlock()
	if sched == nil {
		s.logger.Debug(ctx, "no scheduler attached, schedule stored only", "release_id", releaseID)
		return nil
	}
	return sched.Set(ctx, releaseID, at)
}

func (s *Service) unschedule(releaseID string) {
	s.schedMu.RLock()
	sched := s.scheduler
	s.schedMu.RUnlock()
	if sched != nil {
		sched.Cancel(releaseID)
	}
}

func (s *Service) now() time.Time {
	return s.clock.Now().UTC()
}

// loadPending returns the release, or a validation error when it was
// already published.
func (s *Service) loadPending(ctx context.Context, releaseID string) (release.Release, error) {
	r, err := s.releases.GetRelease(ctx, releaseID)
	if err != nil {
		return release.Release{}, err
	}
	if r.IsReleased() {
		return release.Release{}, alreadyPublished(releaseID)
	}
	return r, nil
}

func alreadyPublished(releaseID string) error {
	return release.Validation(release.MsgAlreadyPublished, map[string]interface{}{"release_id": releaseID})
}

var (
	validateOnce sync.Once
	validateInst *validator.Validate
)

func inputValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "" || name == "-" {
				return field.Name
			}
			return name
		})
		_ = v.RegisterValidation("iana_timezone", func(fl validator.FieldLevel) bool {
			_, err := release.LoadTimezone(fl.Field().String())
			return err == nil
		})
		validateInst = v
	})
	return validateInst
}

// validateInput checks a request struct and reports the first failure as a
// validation error naming the field.
func validateInput(in interface{}) error {
	err := inputValidator().Struct(in)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if errors.As(err, &ves) && len(ves) > 0 {
		fe := ves[0]
		return release.NewError(release.ErrCodeValidation, fmt.Sprintf("%s failed validation for tag '%s'", fe.Field(), fe.Tag()), err, map[string]interface{}{
			"field": fe.Field(),
			"tag":   fe.Tag(),
		})
	}
	return release.NewError(release.ErrCodeValidation, err.Error(), err, nil)
}
