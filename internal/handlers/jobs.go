package handlers

import (
	"encoding/base64"
	"errors"
	"io"
	"maps"
	"net/http"
	"strings"
	"time"

	"github.com/icdtuning/garage/internal/db"
	"github.com/icdtuning/garage/internal/metrics"
	"github.com/icdtuning/garage/internal/models"
	"github.com/icdtuning/garage/internal/notify"
	"github.com/icdtuning/garage/internal/validation"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
)

const maxPhotoBytes = 10 << 20

// JobHandler serves the job board: intake, progress updates and stats.
type JobHandler struct {
	jobs         db.JobCollection
	users        db.UserCollection
	invoices     db.InvoiceCollection
	notifier     notify.Publisher
	metrics      *metrics.Metrics
	businessName string
	now          func() time.Time
}

// NewJobHandler creates a job handler. businessName signs customer messages.
func NewJobHandler(jobs db.JobCollection, users db.UserCollection, invoices db.InvoiceCollection,
	notifier notify.Publisher, m *metrics.Metrics, businessName string) *JobHandler {
	return &JobHandler{
		jobs:         jobs,
		users:        users,
		invoices:     invoices,
		notifier:     notifier,
		metrics:      m,
		businessName: businessName,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Create validates a job record and opens it in the first workflow status.
func (h *JobHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	payload, ok := decodePayload(w, r)
	if !ok {
		return
	}

	in, err := validation.ValidateJob(payload)
	if err != nil {
		if !writeValidationError(w, err) {
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	mechanic, ok := h.lookupMechanic(w, r, in.AssignedMechanicID)
	if !ok {
		return
	}

	job := models.NewJob(in, mechanic, h.now())
	if err := h.jobs.InsertJob(r.Context(), job); err != nil {
		log.WithError(err).Error("Failed to create job")
		writeError(w, http.StatusInternalServerError, "Failed to create job")
		return
	}

	log.WithFields(log.Fields{
		"job_id":   job.ID.Hex(),
		"mechanic": mechanic.Username,
		"by":       claims.Username,
	}).Info("Job created")
	writeJSON(w, http.StatusCreated, job)
}

// List returns jobs newest first. Mechanics only see their own jobs.
func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	filter := scopeFor(claims)
	q := r.URL.Query()
	if b := q.Get("bucket"); b != "" {
		bucket := models.Bucket(b)
		if bucket != models.BucketActive && bucket != models.BucketCompleted {
			writeError(w, http.StatusBadRequest, "bucket must be active or completed")
			return
		}
		filter.Bucket = bucket
	}
	if s := q.Get("status"); s != "" {
		status, err := models.ParseStatus(s)
		if err != nil {
			writeValidationError(w, err)
			return
		}
		filter.Status = status
	}

	jobs, err := h.jobs.FindJobs(r.Context(), filter)
	if err != nil {
		writeStoreError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

// Get returns one job.
func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	job, ok := h.loadJob(w, r, claims)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// Update applies a partial update. Status, notes and confirm_complete are
// open to the assigned mechanic; record fields are manager-only and require
// the full record. Only the changed fields are written.
func (h *JobHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	payload, ok := decodePayload(w, r)
	if !ok {
		return
	}
	patch, err := parsePatch(payload)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	job, ok := h.loadJob(w, r, claims)
	if !ok {
		return
	}

	now := h.now()
	fields := bson.M{"updated_at": now}

	if validation.HasRecordFields(payload) {
		if claims.Role != models.RoleManager {
			writeError(w, http.StatusForbidden, "Only managers can edit job details")
			return
		}
		in, err := validation.ValidateJob(payload)
		if err != nil {
			if !writeValidationError(w, err) {
				writeError(w, http.StatusBadRequest, err.Error())
			}
			return
		}
		mechanic, ok := h.lookupMechanic(w, r, in.AssignedMechanicID)
		if !ok {
			return
		}
		job.ApplyRecord(in, mechanic)
		maps.Copy(fields, db.RecordFields(*job))
	}

	from := job.Status
	if patch.Status != nil {
		if err := models.CanTransition(claims.Role, string(job.Status), *patch.Status); err != nil {
			if errors.Is(err, models.ErrRoleNotPermitted) {
				writeError(w, http.StatusForbidden, err.Error())
				return
			}
			writeValidationError(w, err)
			return
		}
		job.SetStatus(models.Status(*patch.Status), now)
		if job.Status != from {
			fields["status"] = job.Status
			if job.CompletionDate != nil {
				fields["completion_date"] = job.CompletionDate
			}
		}
	}
	if patch.Notes != nil {
		fields["notes"] = *patch.Notes
	}
	if patch.ConfirmComplete != nil {
		fields["confirm_complete"] = *patch.ConfirmComplete
	}

	updated, err := h.jobs.UpdateJobFields(r.Context(), job.ID.Hex(), fields)
	if err != nil {
		writeStoreError(w, err, "Job not found")
		return
	}

	if job.Status != from {
		h.statusChanged(r, updated, from, claims)
	}
	writeJSON(w, http.StatusOK, updated)
}

// UpdateChecklist replaces the job's checklist with the posted array.
func (h *JobHandler) UpdateChecklist(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	var items []models.ChecklistItem
	if !decodeJSON(w, r, &items) {
		return
	}
	for _, item := range items {
		if strings.TrimSpace(item.Description) == "" {
			writeError(w, http.StatusBadRequest, "checklist item description is required")
			return
		}
	}

	if _, ok := h.loadJob(w, r, claims); !ok {
		return
	}

	job, err := h.jobs.SetChecklist(r.Context(), r.PathValue("id"), items)
	if err != nil {
		writeStoreError(w, err, "Job not found")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// AddPhoto stores an uploaded image on the job as a base64 data URL.
func (h *JobHandler) AddPhoto(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoBytes+(1<<20))
	file, header, err := r.FormFile("photo")
	if err != nil {
		writeError(w, http.StatusBadRequest, "photo file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxPhotoBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read photo")
		return
	}
	if len(data) == 0 || len(data) > maxPhotoBytes {
		writeError(w, http.StatusBadRequest, "photo must be between 1 byte and 10 MB")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(contentType, "image/") {
		writeError(w, http.StatusBadRequest, "photo must be an image")
		return
	}

	if _, ok := h.loadJob(w, r, claims); !ok {
		return
	}

	photoURL := "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
	if _, err := h.jobs.PushPhoto(r.Context(), r.PathValue("id"), photoURL); err != nil {
		writeStoreError(w, err, "Job not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message":   "Photo added successfully",
		"photo_url": photoURL,
	})
}

// SendConfirmation tells the customer their car is ready.
func (h *JobHandler) SendConfirmation(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	job, ok := h.loadJob(w, r, claims)
	if !ok {
		return
	}

	n := notify.ReadyForDelivery(*job, h.businessName, h.now())
	err := h.notifier.Notify(r.Context(), n)
	h.metrics.NotificationSent(string(n.Channel), err)
	if err != nil {
		log.WithError(err).WithField("job_id", job.ID.Hex()).Error("Failed to send confirmation")
		writeError(w, http.StatusBadGateway, "Failed to send confirmation")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Confirmation sent to " + job.ContactNumber,
	})
}

// ListInvoices returns the invoices issued against a job.
func (h *JobHandler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	invoices, err := h.invoices.FindInvoicesByJob(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, invoices)
}

// Stats counts the caller's jobs per dashboard bucket and status.
func (h *JobHandler) Stats(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	jobs, err := h.jobs.FindJobs(r.Context(), scopeFor(claims))
	if err != nil {
		writeStoreError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, models.NewJobStats(jobs))
}

// loadJob fetches the job named in the path and enforces mechanic scoping.
func (h *JobHandler) loadJob(w http.ResponseWriter, r *http.Request, claims *models.Claims) (*models.Job, bool) {
	job, err := h.jobs.FindJobByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err, "Job not found")
		return nil, false
	}
	if claims.Role == models.RoleMechanic && job.AssignedMechanicID != claims.UserID {
		writeError(w, http.StatusForbidden, "Access denied")
		return nil, false
	}
	return job, true
}

func (h *JobHandler) lookupMechanic(w http.ResponseWriter, r *http.Request, id string) (*models.User, bool) {
	mechanic, err := h.users.FindUserByID(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "Mechanic not found")
		return nil, false
	}
	if mechanic.Role != models.RoleMechanic {
		writeError(w, http.StatusNotFound, "Mechanic not found")
		return nil, false
	}
	return mechanic, true
}

func (h *JobHandler) statusChanged(r *http.Request, job *models.Job, from models.Status, claims *models.Claims) {
	h.metrics.StatusChanged(string(job.Status))

	fields := log.Fields{
		"job_id": job.ID.Hex(),
		"from":   from,
		"to":     job.Status,
		"by":     claims.Username,
	}
	log.WithFields(fields).Info("Job status changed")

	err := h.notifier.StatusChanged(r.Context(), notify.StatusEvent{
		JobID:     job.ID.Hex(),
		From:      from,
		To:        job.Status,
		ChangedBy: claims.Username,
		At:        job.UpdatedAt,
	})
	if err != nil {
		log.WithError(err).WithFields(fields).Warn("Failed to publish status change")
	}
}

func scopeFor(claims *models.Claims) db.JobFilter {
	if claims.Role == models.RoleMechanic {
		return db.JobFilter{MechanicID: claims.UserID}
	}
	return db.JobFilter{}
}

// parsePatch extracts the progress fields of an update payload.
func parsePatch(payload map[string]any) (models.JobPatch, error) {
	var patch models.JobPatch
	if v, ok := payload["status"]; ok {
		s, ok := v.(string)
		if !ok {
			return patch, errors.New("status must be a string")
		}
		patch.Status = &s
	}
	if v, ok := payload["notes"]; ok {
		s, ok := v.(string)
		if !ok {
			return patch, errors.New("notes must be a string")
		}
		patch.Notes = &s
	}
	if v, ok := payload["confirm_complete"]; ok {
		b, ok := v.(bool)
		if !ok {
			return patch, errors.New("confirm_complete must be a boolean")
		}
		patch.ConfirmComplete = &b
	}
	return patch, nil
}
