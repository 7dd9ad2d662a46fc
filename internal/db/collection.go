package db

import (
	"context"
	"errors"

	"github.com/icdtuning/garage/internal/models"
	"go.mongodb.org/mongo-driver/bson"
)

// ErrNotFound is returned when a lookup matches no document.
var ErrNotFound = errors.New("document not found")

// UserCollection defines the interface for user database operations
type UserCollection interface {
	InsertUser(ctx context.Context, user models.User) (*models.User, error)
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	FindUsersByRole(ctx context.Context, role models.Role) ([]models.User, error)
	UpdateLastLogin(ctx context.Context, id string) error
}

// JobFilter narrows a job listing. Zero fields match everything.
type JobFilter struct {
	MechanicID string
	Bucket     models.Bucket
	Status     models.Status
}

// JobCollection defines the interface for job data operations.
type JobCollection interface {
	InsertJob(ctx context.Context, job models.Job) error
	FindJobs(ctx context.Context, filter JobFilter) ([]models.Job, error)
	FindJobByID(ctx context.Context, id string) (*models.Job, error)
	// UpdateJobFields $sets only fields, leaving the rest of the document
	// (checklist and photos included) as stored.
	UpdateJobFields(ctx context.Context, id string, fields bson.M) (*models.Job, error)
	SetChecklist(ctx context.Context, id string, items []models.ChecklistItem) (*models.Job, error)
	PushPhoto(ctx context.Context, id string, photo string) (*models.Job, error)
}

// InvoiceCollection defines the interface for invoice data operations.
type InvoiceCollection interface {
	InsertInvoice(ctx context.Context, invoice models.Invoice) error
	FindInvoiceByID(ctx context.Context, id string) (*models.Invoice, error)
	FindInvoicesByJob(ctx context.Context, jobID string) ([]models.Invoice, error)
	MarkSent(ctx context.Context, id string, recipient models.Recipient) error
	// NextInvoiceSequence atomically reserves the next number for year.
	NextInvoiceSequence(ctx context.Context, year int) (int64, error)
}
