package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"certalert/internal/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

var errStoreDown = errors.New("connection refused")

// memStore backs every store interface with maps so the pipeline can be
// exercised end to end without a database.
type memStore struct {
	mu sync.Mutex

	certs     map[uuid.UUID]*entity.Certification
	reminders map[uuid.UUID]*entity.Reminder
	workers   map[uuid.UUID]*entity.Worker
	companies map[uuid.UUID]*entity.Company
	contacts  []entity.Contact
	audit     []entity.NotificationLog

	listErr    error
	createErr  error
	listDueErr error
	seq        int
}

func newMemStore() *memStore {
	return &memStore{
		certs:     make(map[uuid.UUID]*entity.Certification),
		reminders: make(map[uuid.UUID]*entity.Reminder),
		workers:   make(map[uuid.UUID]*entity.Worker),
		companies: make(map[uuid.UUID]*entity.Company),
	}
}

func (m *memStore) ListActiveExpiringBy(_ context.Context, until time.Time) ([]entity.Certification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.listErr != nil {
		return nil, m.listErr
	}

	var out []entity.Certification
	for _, c := range m.certs {
		if c.Status == entity.CertificationActive && c.ExpiryDate != nil && !c.ExpiryDate.After(until) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memStore) ListActiveExpiringOn(_ context.Context, day time.Time) ([]entity.Certification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []entity.Certification
	for _, c := range m.certs {
		if c.Status == entity.CertificationActive && c.ExpiryDate != nil && c.ExpiryDate.Equal(day) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (*entity.Certification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.certs[id]
	if !ok {
		return nil, entity.ErrDataNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) MarkAlertSent(_ context.Context, id uuid.UUID, tier entity.Tier, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.certs[id]
	if !ok {
		return entity.ErrDataNotFound
	}
	switch tier {
	case entity.Tier60Day:
		c.Alert60Sent = true
	case entity.Tier30Day:
		c.Alert30Sent = true
	case entity.Tier7Day:
		c.Alert7Sent = true
	case entity.TierExpired:
		c.AlertExpiredSent = true
	}
	c.LastAlertAt = &at
	return nil
}

func (m *memStore) Expire(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.certs[id]
	if !ok || c.Status != entity.CertificationActive {
		return false, nil
	}
	c.Status = entity.CertificationExpired
	return true, nil
}

// reminderStore adapts memStore to ReminderStore; GetByID collides with the
// certification method of the same name.
type reminderStore struct{ *memStore }

func (r reminderStore) Create(_ context.Context, rem entity.Reminder) (*entity.Reminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.createErr != nil {
		return nil, r.createErr
	}
	for _, existing := range r.reminders {
		if existing.CertificationID == rem.CertificationID && existing.Tier == rem.Tier {
			return nil, entity.ErrConflictingData
		}
	}

	r.seq++
	rem.ID = uuid.New()
	rem.CreatedAt = time.Date(2026, 1, 1, 0, 0, r.seq, 0, time.UTC)
	r.reminders[rem.ID] = &rem
	cp := rem
	return &cp, nil
}

func (r reminderStore) Exists(_ context.Context, certificationID uuid.UUID, tier entity.Tier) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rem := range r.reminders {
		if rem.CertificationID == certificationID && rem.Tier == tier {
			return true, nil
		}
	}
	return false, nil
}

func (r reminderStore) GetByID(_ context.Context, id uuid.UUID) (*entity.Reminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rem, ok := r.reminders[id]
	if !ok {
		return nil, entity.ErrDataNotFound
	}
	cp := *rem
	return &cp, nil
}

func (r reminderStore) ListDue(_ context.Context, day time.Time, limit uint64) ([]entity.Reminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.listDueErr != nil {
		return nil, r.listDueErr
	}

	var out []entity.Reminder
	for _, rem := range r.reminders {
		if rem.Status == entity.ReminderPending && !rem.ScheduledDate.After(day) {
			out = append(out, *rem)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScheduledDate.Equal(out[j].ScheduledDate) {
			return out[i].ScheduledDate.Before(out[j].ScheduledDate)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if uint64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r reminderStore) ListByStatus(_ context.Context, status entity.ReminderStatus, limit uint64) ([]entity.Reminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []entity.Reminder
	for _, rem := range r.reminders {
		if rem.Status == status {
			out = append(out, *rem)
		}
	}
	if uint64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r reminderStore) Claim(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rem, ok := r.reminders[id]
	if !ok || rem.Status != entity.ReminderPending {
		return false, nil
	}
	rem.Status = entity.ReminderSending
	rem.ClaimedAt = &at
	rem.Attempts++
	return true, nil
}

func (r reminderStore) MarkSent(_ context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rem, ok := r.reminders[id]
	if !ok {
		return entity.ErrDataNotFound
	}
	rem.Status = entity.ReminderSent
	rem.SentAt = &at
	rem.ErrorMessage = ""
	return nil
}

func (r reminderStore) MarkFailed(_ context.Context, id uuid.UUID, errMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rem, ok := r.reminders[id]
	if !ok {
		return entity.ErrDataNotFound
	}
	rem.Status = entity.ReminderFailed
	rem.ErrorMessage = errMsg
	return nil
}

func (r reminderStore) ReleaseStale(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, rem := range r.reminders {
		if rem.Status == entity.ReminderSending && rem.ClaimedAt != nil && rem.ClaimedAt.Before(cutoff) {
			rem.Status = entity.ReminderPending
			rem.ClaimedAt = nil
			n++
		}
	}
	return n, nil
}

func (m *memStore) GetWorker(_ context.Context, id uuid.UUID) (*entity.Worker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.workers[id]
	if !ok {
		return nil, entity.ErrDataNotFound
	}
	cp := *w
	return &cp, nil
}

func (m *memStore) GetCompany(_ context.Context, id uuid.UUID) (*entity.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.companies[id]
	if !ok {
		return nil, entity.ErrDataNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) FindContactByRole(_ context.Context, companyID uuid.UUID, role entity.Role) (*entity.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.contacts {
		if c.CompanyID == companyID && c.Role == role && c.Email != "" {
			cp := c
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) Append(_ context.Context, entry entity.NotificationLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.audit = append(m.audit, entry)
	return nil
}

func (m *memStore) remindersFor(certID uuid.UUID) []entity.Reminder {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []entity.Reminder
	for _, rem := range m.reminders {
		if rem.CertificationID == certID {
			out = append(out, *rem)
		}
	}
	return out
}

func (m *memStore) cert(id uuid.UUID) entity.Certification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.certs[id]
}

// seedCompany registers a company with one holder of every escalation role.
func (m *memStore) seedCompany(domain string) *entity.Company {
	c := &entity.Company{
		ID:                 uuid.New(),
		Name:               "Acme Construction",
		Domain:             domain,
		SafetyManagerName:  "Sam Safety",
		SafetyManagerEmail: "safety@" + domain,
		SafetyManagerPhone: "+1 555 0100",
		Phone:              "+1 555 0000",
	}
	m.companies[c.ID] = c

	for _, role := range []entity.Role{entity.RoleSupervisor, entity.RoleAdmin, entity.RoleInternalAuditor} {
		m.contacts = append(m.contacts, entity.Contact{
			ID:        uuid.New(),
			CompanyID: c.ID,
			Role:      role,
			Name:      string(role),
			Email:     string(role) + "@" + domain,
		})
	}
	return c
}

func (m *memStore) seedWorker(company *entity.Company, email string) *entity.Worker {
	w := &entity.Worker{
		ID:        uuid.New(),
		CompanyID: company.ID,
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     email,
	}
	m.workers[w.ID] = w
	return w
}

func (m *memStore) seedCert(worker *entity.Worker, expiry time.Time) *entity.Certification {
	c := &entity.Certification{
		ID:        uuid.New(),
		WorkerID:  worker.ID,
		CompanyID: worker.CompanyID,
		Type: entity.CertificationType{
			ID:            uuid.New(),
			Name:          "Working at Heights",
			Code:          "WAH",
			AlertAt60:     true,
			AlertAt30:     true,
			AlertAt7:      true,
			AlertOnExpiry: true,
		},
		CertificateNumber: "WAH-0001",
		ExpiryDate:        &expiry,
		Status:            entity.CertificationActive,
	}
	m.certs[c.ID] = c
	return c
}

func (m *memStore) seedPending(cert *entity.Certification, tier entity.Tier, day time.Time) entity.Reminder {
	rem, err := reminderStore{m}.Create(context.Background(), entity.Reminder{
		CertificationID: cert.ID,
		CompanyID:       cert.CompanyID,
		Tier:            tier,
		ScheduledDate:   day,
		Status:          entity.ReminderPending,
	})
	if err != nil {
		panic(err)
	}
	return *rem
}

type mockTransport struct {
	mock.Mock
}

func (m *mockTransport) Name() string { return "mock" }

func (m *mockTransport) Send(ctx context.Context, msg entity.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// recordingTransport captures messages and fails for recipients listed in failFor.
type recordingTransport struct {
	mu      sync.Mutex
	sent    []entity.Message
	failFor map[string]error
}

func (t *recordingTransport) Name() string { return "recording" }

func (t *recordingTransport) Send(_ context.Context, msg entity.Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, to := range msg.To {
		if err := t.failFor[to]; err != nil {
			return err
		}
	}
	t.sent = append(t.sent, msg)
	return nil
}

func (t *recordingTransport) messages() []entity.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]entity.Message(nil), t.sent...)
}

type blockingTransport struct{}

func (blockingTransport) Name() string { return "blocking" }

func (blockingTransport) Send(ctx context.Context, _ entity.Message) error {
	<-ctx.Done()
	return ctx.Err()
}

type fakeLocker struct {
	err      error
	released bool
}

func (l *fakeLocker) Acquire(context.Context) (func(context.Context) error, error) {
	if l.err != nil {
		return nil, l.err
	}
	return func(context.Context) error {
		l.released = true
		return nil
	}, nil
}

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}
