package handlers

import (
	"context"
	"net/http"
	"sync"

	"github.com/icdtuning/garage/internal/db"
	"github.com/icdtuning/garage/internal/middleware"
	"github.com/icdtuning/garage/internal/models"
	"github.com/icdtuning/garage/internal/notify"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
)

// MockUserCollection is a mock implementation of UserCollection
type MockUserCollection struct {
	mock.Mock
}

func (m *MockUserCollection) InsertUser(ctx context.Context, user models.User) (*models.User, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserCollection) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserCollection) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserCollection) FindUsersByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	args := m.Called(ctx, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockUserCollection) UpdateLastLogin(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockJobCollection is a mock implementation of JobCollection
type MockJobCollection struct {
	mock.Mock
}

func (m *MockJobCollection) InsertJob(ctx context.Context, job models.Job) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockJobCollection) FindJobs(ctx context.Context, filter db.JobFilter) ([]models.Job, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Job), args.Error(1)
}

func (m *MockJobCollection) FindJobByID(ctx context.Context, id string) (*models.Job, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Job), args.Error(1)
}

func (m *MockJobCollection) UpdateJobFields(ctx context.Context, id string, fields bson.M) (*models.Job, error) {
	args := m.Called(ctx, id, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Job), args.Error(1)
}

func (m *MockJobCollection) SetChecklist(ctx context.Context, id string, items []models.ChecklistItem) (*models.Job, error) {
	args := m.Called(ctx, id, items)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Job), args.Error(1)
}

func (m *MockJobCollection) PushPhoto(ctx context.Context, id string, photo string) (*models.Job, error) {
	args := m.Called(ctx, id, photo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Job), args.Error(1)
}

// MockInvoiceCollection is a mock implementation of InvoiceCollection
type MockInvoiceCollection struct {
	mock.Mock
}

func (m *MockInvoiceCollection) InsertInvoice(ctx context.Context, invoice models.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockInvoiceCollection) FindInvoiceByID(ctx context.Context, id string) (*models.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invoice), args.Error(1)
}

func (m *MockInvoiceCollection) FindInvoicesByJob(ctx context.Context, jobID string) ([]models.Invoice, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Invoice), args.Error(1)
}

func (m *MockInvoiceCollection) MarkSent(ctx context.Context, id string, recipient models.Recipient) error {
	args := m.Called(ctx, id, recipient)
	return args.Error(0)
}

func (m *MockInvoiceCollection) NextInvoiceSequence(ctx context.Context, year int) (int64, error) {
	args := m.Called(ctx, year)
	return args.Get(0).(int64), args.Error(1)
}

// fakeNotifier records what would have been published.
type fakeNotifier struct {
	mu            sync.Mutex
	err           error
	notifications []notify.Notification
	events        []notify.StatusEvent
}

func (f *fakeNotifier) Notify(_ context.Context, n notify.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.notifications = append(f.notifications, n)
	return nil
}

func (f *fakeNotifier) StatusChanged(_ context.Context, e notify.StatusEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return f.err
}

// asUser attaches claims for role and id to req, as Authenticate would.
func asUser(req *http.Request, role models.Role, id string) *http.Request {
	claims := &models.Claims{UserID: id, Username: string(role) + "-" + id, Role: role}
	return req.WithContext(middleware.WithUser(req.Context(), claims))
}

var (
	_ db.UserCollection    = (*MockUserCollection)(nil)
	_ db.JobCollection     = (*MockJobCollection)(nil)
	_ db.InvoiceCollection = (*MockInvoiceCollection)(nil)
	_ notify.Publisher     = (*fakeNotifier)(nil)
)

// memJobCollection is an in-memory JobCollection that applies $set updates
// field by field, like the Mongo store does.
type memJobCollection struct {
	mu   sync.Mutex
	jobs map[string]models.Job

	// beforeUpdate runs ahead of each UpdateJobFields call, standing in for
	// a write from another request.
	beforeUpdate func()
}

func newMemJobCollection(jobs ...*models.Job) *memJobCollection {
	m := &memJobCollection{jobs: map[string]models.Job{}}
	for _, j := range jobs {
		m.jobs[j.ID.Hex()] = *j
	}
	return m
}

func (m *memJobCollection) get(id string) models.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.jobs[id]
}

func (m *memJobCollection) InsertJob(ctx context.Context, job models.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID.Hex()] = job
	return nil
}

func (m *memJobCollection) FindJobs(ctx context.Context, filter db.JobFilter) ([]models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Job{}
	for _, j := range m.jobs {
		if filter.MechanicID == "" || j.AssignedMechanicID == filter.MechanicID {
			out = append(out, j)
		}
	}
	return out, nil
}

func (m *memJobCollection) FindJobByID(ctx context.Context, id string) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &j, nil
}

func (m *memJobCollection) UpdateJobFields(ctx context.Context, id string, fields bson.M) (*models.Job, error) {
	if m.beforeUpdate != nil {
		m.beforeUpdate()
	}
	return m.set(id, fields)
}

func (m *memJobCollection) SetChecklist(ctx context.Context, id string, items []models.ChecklistItem) (*models.Job, error) {
	return m.set(id, bson.M{"checklist": items})
}

func (m *memJobCollection) PushPhoto(ctx context.Context, id string, photo string) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	j.Photos = append(append([]string{}, j.Photos...), photo)
	m.jobs[id] = j
	return &j, nil
}

// set merges fields into the stored document through a BSON round trip.
func (m *memJobCollection) set(id string, fields bson.M) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, db.ErrNotFound
	}

	raw, err := bson.Marshal(j)
	if err != nil {
		return nil, err
	}
	doc := bson.M{}
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	for k, v := range fields {
		doc[k] = v
	}
	if raw, err = bson.Marshal(doc); err != nil {
		return nil, err
	}
	var out models.Job
	if err := bson.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	m.jobs[id] = out
	return &out, nil
}
