package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"sabitax/internal/model"
	"sabitax/internal/repository"
	"sabitax/internal/websocket"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

// fakeTx runs fn inline and records advisory lock keys.
type fakeTx struct {
	mu   sync.Mutex
	keys []string
}

func (f *fakeTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

func (f *fakeTx) LockKey(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, key)
	return nil
}

// fakeFilings mimics the partial unique index on active filings.
type fakeFilings struct {
	mu   sync.Mutex
	rows map[uuid.UUID]model.TaxFiling
}

func newFakeFilings() *fakeFilings {
	return &fakeFilings{rows: map[uuid.UUID]model.TaxFiling{}}
}

func isActive(s model.FilingStatus) bool {
	return lo.Contains(model.ActiveFilingStatuses, s)
}

func (f *fakeFilings) violates(filing *model.TaxFiling) bool {
	for id, row := range f.rows {
		if id == filing.ID {
			continue
		}
		if isActive(filing.Status) && isActive(row.Status) &&
			row.UserID == filing.UserID && row.TaxType == filing.TaxType && row.TaxYear == filing.TaxYear {
			return true
		}
		if filing.ReferenceNumber != nil && row.ReferenceNumber != nil && *row.ReferenceNumber == *filing.ReferenceNumber {
			return true
		}
	}
	return false
}

func (f *fakeFilings) Create(_ context.Context, filing *model.TaxFiling) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.violates(filing) {
		return gorm.ErrDuplicatedKey
	}
	if filing.ID == uuid.Nil {
		filing.ID = uuid.New()
	}
	f.rows[filing.ID] = *filing
	return nil
}

func (f *fakeFilings) Update(_ context.Context, filing *model.TaxFiling) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.violates(filing) {
		return gorm.ErrDuplicatedKey
	}
	f.rows[filing.ID] = *filing
	return nil
}

func (f *fakeFilings) FindByID(_ context.Context, id uuid.UUID) (*model.TaxFiling, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &row, nil
}

func (f *fakeFilings) FindByReference(_ context.Context, reference string) (*model.TaxFiling, error) {
	return f.find(func(row model.TaxFiling) bool { return lo.FromPtr(row.ReferenceNumber) == reference })
}

func (f *fakeFilings) FindActive(_ context.Context, userID uuid.UUID, taxType string, year int) (*model.TaxFiling, error) {
	return f.find(func(row model.TaxFiling) bool {
		return row.UserID == userID && row.TaxType == taxType && row.TaxYear == year && isActive(row.Status)
	})
}

func (f *fakeFilings) find(match func(model.TaxFiling) bool) (*model.TaxFiling, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if match(row) {
			return &row, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeFilings) List(_ context.Context, filter repository.FilingFilter) ([]model.TaxFiling, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.TaxFiling
	for _, row := range f.rows {
		if row.UserID != filter.UserID ||
			(filter.TaxType != "" && row.TaxType != filter.TaxType) ||
			(filter.TaxYear != 0 && row.TaxYear != filter.TaxYear) ||
			(filter.Status != "" && row.Status != filter.Status) {
			continue
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := int64(len(out))
	out = lo.Slice(out, filter.Offset, filter.Offset+filter.Limit)
	return out, total, nil
}

func (f *fakeFilings) AcceptedTypes(_ context.Context, userID uuid.UUID, year int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var types []string
	for _, row := range f.rows {
		if row.UserID == userID && row.TaxYear == year && row.Status == model.FilingAccepted {
			types = append(types, row.TaxType)
		}
	}
	return lo.Uniq(types), nil
}

// fakeTins mimics the partial unique index on open applications.
type fakeTins struct {
	mu   sync.Mutex
	rows map[uuid.UUID]model.TinApplication
}

func newFakeTins() *fakeTins {
	return &fakeTins{rows: map[uuid.UUID]model.TinApplication{}}
}

func (f *fakeTins) Create(_ context.Context, app *model.TinApplication) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.UserID == app.UserID && lo.Contains(model.OpenTinStatuses, row.Status) {
			return gorm.ErrDuplicatedKey
		}
	}
	f.rows[app.ID] = *app
	return nil
}

func (f *fakeTins) Update(_ context.Context, app *model.TinApplication) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[app.ID] = *app
	return nil
}

func (f *fakeTins) FindByID(_ context.Context, id uuid.UUID) (*model.TinApplication, error) {
	return f.first(func(a model.TinApplication) bool { return a.ID == id })
}

func (f *fakeTins) FindByReference(_ context.Context, reference string) (*model.TinApplication, error) {
	return f.first(func(a model.TinApplication) bool { return a.ReferenceNumber == reference })
}

func (f *fakeTins) FindOpen(_ context.Context, userID uuid.UUID) (*model.TinApplication, error) {
	return f.first(func(a model.TinApplication) bool {
		return a.UserID == userID && lo.Contains(model.OpenTinStatuses, a.Status)
	})
}

func (f *fakeTins) FindVerified(_ context.Context, userID uuid.UUID) (*model.TinApplication, error) {
	return f.first(func(a model.TinApplication) bool { return a.UserID == userID && a.Status == model.TinVerified })
}

func (f *fakeTins) FindLatest(_ context.Context, userID uuid.UUID) (*model.TinApplication, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *model.TinApplication
	for _, row := range f.rows {
		if row.UserID == userID && (latest == nil || row.AppliedAt.After(latest.AppliedAt)) {
			r := row
			latest = &r
		}
	}
	if latest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return latest, nil
}

func (f *fakeTins) first(match func(model.TinApplication) bool) (*model.TinApplication, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if match(row) {
			return &row, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []model.AuditLog
}

func (f *fakeAudit) Log(_ context.Context, entry *model.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry.ID = uuid.New()
	entry.CreatedAt = time.Now()
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeAudit) List(_ context.Context, filter repository.AuditFilter) ([]model.AuditLog, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	matched := lo.Filter(f.entries, func(e model.AuditLog, _ int) bool {
		return (filter.Action == "" || e.Action == filter.Action) && (filter.EntityID == "" || e.EntityID == filter.EntityID)
	})
	return lo.Slice(matched, filter.Offset, filter.Offset+filter.Limit), int64(len(matched)), nil
}

func (f *fakeAudit) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return lo.Map(f.entries, func(e model.AuditLog, _ int) string { return e.Action })
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []websocket.Event
	users  []uuid.UUID
}

func (p *recordingPublisher) Publish(userID uuid.UUID, event websocket.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users = append(p.users, userID)
	p.events = append(p.events, event)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return lo.Map(p.events, func(e websocket.Event, _ int) string { return e.Type })
}
