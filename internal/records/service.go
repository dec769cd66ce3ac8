// Package records manages birth records: validation, derived-field
// recomputation, listing, statistics and import/export.
package records

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/tartampluch/hebday/internal/config"
	"github.com/tartampluch/hebday/internal/engine"
	"github.com/tartampluch/hebday/internal/store"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
)

// ErrInvalidRecord is returned when an Input fails validation.
var ErrInvalidRecord = errors.New(config.ErrInvalidRecord)

// Deriver computes the derived fields of a record.
type Deriver interface {
	Derive(ctx context.Context, birth engine.GregorianDate, afterSunset bool) (engine.Derivation, error)
}

// Input is the user-editable part of a birth record.
type Input struct {
	FirstName   string               `json:"firstName"`
	LastName    string               `json:"lastName"`
	BirthDate   engine.GregorianDate `json:"birthDate"`
	AfterSunset bool                 `json:"afterSunset"`
	Gender      string               `json:"gender"`
}

// Validate checks required fields and normalizes names and gender.
func (in *Input) Validate() error {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Gender = strings.ToLower(strings.TrimSpace(in.Gender))

	if in.FirstName == "" || in.LastName == "" || !in.BirthDate.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidRecord, config.ErrMissingFields)
	}
	switch in.Gender {
	case "", config.GenderMale, config.GenderFemale:
	default:
		return fmt.Errorf("%w: %s", ErrInvalidRecord, config.ErrInvalidGender)
	}
	return nil
}

// Service is the birth record use-case layer above the store.
type Service struct {
	db       *store.DB
	deriver  Deriver
	clock    engine.Clock
	workers  int
	language language.Tag
}

// NewService wires the store and the engine. workers bounds concurrent
// derivations during Refresh.
func NewService(db *store.DB, deriver Deriver, clock engine.Clock, workers int, lang language.Tag) *Service {
	if clock == nil {
		clock = engine.RealClock{}
	}
	if workers <= 0 {
		workers = config.DefaultProjectionWorkers
	}
	return &Service{db: db, deriver: deriver, clock: clock, workers: workers, language: lang}
}

// derive never fails the caller: a failed computation yields a pending (or
// partial) derivation that the next refresh retries.
func (s *Service) derive(ctx context.Context, name string, birth engine.GregorianDate, afterSunset bool) (engine.Derivation, error) {
	d, err := s.deriver.Derive(ctx, birth, afterSunset)
	if err != nil {
		if ctx.Err() != nil {
			return d, ctx.Err()
		}
		slog.Warn(config.MsgRecordPending,
			config.LogKeyComponent, config.CompRecords,
			config.LogKeyName, name,
			config.LogKeyPending, d.Pending,
			config.LogKeyError, err,
		)
	}
	return d, nil
}

// Create validates in, derives its Hebrew fields and stores a new record.
func (s *Service) Create(ctx context.Context, in Input, createdBy string) (store.Birthday, error) {
	if err := in.Validate(); err != nil {
		return store.Birthday{}, err
	}

	now := s.clock.Now()
	b := store.Birthday{
		ID:          uuid.NewString(),
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		BirthDate:   in.BirthDate,
		AfterSunset: in.AfterSunset,
		Gender:      in.Gender,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	d, err := s.derive(ctx, b.FullName(), b.BirthDate, b.AfterSunset)
	if err != nil {
		return store.Birthday{}, err
	}
	b.Derived = d

	if err := s.db.CreateBirthday(ctx, b); err != nil {
		return store.Birthday{}, err
	}
	slog.Info(config.MsgRecordSaved,
		config.LogKeyComponent, config.CompRecords,
		config.LogKeyID, b.ID,
	)
	return b, nil
}

// Update replaces the editable fields of record id. Derived fields are
// recomputed only when the birth date or the sunset flag changed.
func (s *Service) Update(ctx context.Context, id string, in Input) (store.Birthday, error) {
	if err := in.Validate(); err != nil {
		return store.Birthday{}, err
	}
	b, err := s.db.GetBirthday(ctx, id)
	if err != nil {
		return store.Birthday{}, err
	}

	recompute := b.BirthDate != in.BirthDate || b.AfterSunset != in.AfterSunset || b.Derived.Pending
	b.FirstName = in.FirstName
	b.LastName = in.LastName
	b.BirthDate = in.BirthDate
	b.AfterSunset = in.AfterSunset
	b.Gender = in.Gender
	b.UpdatedAt = s.clock.Now()

	if recompute {
		d, err := s.derive(ctx, b.FullName(), b.BirthDate, b.AfterSunset)
		if err != nil {
			return store.Birthday{}, err
		}
		b.Derived = d
	}

	if err := s.db.UpdateBirthday(ctx, b); err != nil {
		return store.Birthday{}, err
	}
	slog.Info(config.MsgRecordSaved,
		config.LogKeyComponent, config.CompRecords,
		config.LogKeyID, b.ID,
	)
	return b, nil
}

// Get returns one record.
func (s *Service) Get(ctx context.Context, id string) (store.Birthday, error) {
	return s.db.GetBirthday(ctx, id)
}

// List returns the active records matching f.
func (s *Service) List(ctx context.Context, f Filter) ([]store.Birthday, error) {
	all, err := s.db.ListBirthdays(ctx, false)
	if err != nil {
		return nil, err
	}
	return Apply(all, f, s.clock.Now(), s.language), nil
}

// Active returns every active record in storage order.
func (s *Service) Active(ctx context.Context) ([]store.Birthday, error) {
	return s.db.ListBirthdays(ctx, false)
}

// Archived returns the archived records.
func (s *Service) Archived(ctx context.Context) ([]store.Birthday, error) {
	return s.db.ListBirthdays(ctx, true)
}

// Delete removes records and returns how many existed.
func (s *Service) Delete(ctx context.Context, ids []string) (int64, error) {
	n, err := s.db.DeleteBirthdays(ctx, ids)
	if err != nil {
		return 0, err
	}
	slog.Info(config.MsgRecordsDeleted,
		config.LogKeyComponent, config.CompRecords,
		config.LogKeyCount, n,
	)
	return n, nil
}

// Archive hides records from the active list without deleting them.
func (s *Service) Archive(ctx context.Context, ids ...string) error {
	return s.setArchived(ctx, ids, true)
}

// Restore brings archived records back to the active list.
func (s *Service) Restore(ctx context.Context, ids ...string) error {
	return s.setArchived(ctx, ids, false)
}

func (s *Service) setArchived(ctx context.Context, ids []string, archived bool) error {
	now := s.clock.Now()
	for _, id := range ids {
		if err := s.db.SetArchived(ctx, id, archived, now); err != nil {
			return err
		}
	}
	return nil
}

// RefreshResult summarizes a Refresh run.
type RefreshResult struct {
	Records int `json:"records"`
	Pending int `json:"pending"`
	Partial int `json:"partial"`
}

// Refresh recomputes the derived fields of every active record, a few at a
// time. A record whose projection fails is kept and marked pending.
func (s *Service) Refresh(ctx context.Context) (RefreshResult, error) {
	all, err := s.db.ListBirthdays(ctx, false)
	if err != nil {
		return RefreshResult{}, err
	}

	var pending, partial atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, b := range all {
		g.Go(func() error {
			d, err := s.derive(gctx, b.FullName(), b.BirthDate, b.AfterSunset)
			if err != nil {
				return err
			}
			if d.Pending {
				pending.Add(1)
			}
			if d.Projection.Partial {
				partial.Add(1)
			}
			// Deleted since the listing.
			if err := s.db.UpdateDerived(gctx, b.ID, d); err != nil && !errors.Is(err, store.ErrNotFound) {
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return RefreshResult{}, err
	}

	return RefreshResult{
		Records: len(all),
		Pending: int(pending.Load()),
		Partial: int(partial.Load()),
	}, nil
}

// Now exposes the service clock to sibling components.
func (s *Service) Now() time.Time {
	return s.clock.Now()
}
