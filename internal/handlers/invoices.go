package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/icdtuning/garage/internal/billing"
	"github.com/icdtuning/garage/internal/db"
	"github.com/icdtuning/garage/internal/metrics"
	"github.com/icdtuning/garage/internal/models"
	"github.com/icdtuning/garage/internal/notify"
	"github.com/icdtuning/garage/internal/pdf"
	"github.com/icdtuning/garage/internal/validation"
	log "github.com/sirupsen/logrus"
)

// InvoiceSettings are the billing defaults applied to new invoices.
type InvoiceSettings struct {
	Prefix          string
	DefaultGSTRate  float64
	AccountantEmail string
}

// InvoiceHandler issues, renders and sends invoices.
type InvoiceHandler struct {
	invoices db.InvoiceCollection
	jobs     db.JobCollection
	renderer *pdf.Renderer
	notifier notify.Publisher
	metrics  *metrics.Metrics
	settings InvoiceSettings
	now      func() time.Time
}

// NewInvoiceHandler creates an invoice handler.
func NewInvoiceHandler(invoices db.InvoiceCollection, jobs db.JobCollection, renderer *pdf.Renderer,
	notifier notify.Publisher, m *metrics.Metrics, settings InvoiceSettings) *InvoiceHandler {
	if settings.Prefix == "" {
		settings.Prefix = billing.DefaultInvoicePrefix
	}
	return &InvoiceHandler{
		invoices: invoices,
		jobs:     jobs,
		renderer: renderer,
		notifier: notifier,
		metrics:  m,
		settings: settings,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create computes the totals for a completed job and stores the invoice.
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req models.InvoiceCreateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.JobID) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Detail: "job_id is required", Field: "job_id"})
		return
	}

	job, err := h.jobs.FindJobByID(r.Context(), req.JobID)
	if err != nil {
		writeStoreError(w, err, "Job not found")
		return
	}
	if !job.IsCompleted() {
		writeError(w, http.StatusConflict, "Invoices can only be created for completed jobs")
		return
	}

	now := h.now()
	invoiceDate := now
	if s := strings.TrimSpace(req.InvoiceDate); s != "" {
		invoiceDate, err = validation.ParseDate(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Detail: "invoice_date must be an ISO-8601 date", Field: "invoice_date"})
			return
		}
	}

	number := strings.TrimSpace(req.InvoiceNumber)
	if number == "" {
		seq, err := h.invoices.NextInvoiceSequence(r.Context(), invoiceDate.Year())
		if err != nil {
			log.WithError(err).Error("Failed to reserve invoice number")
			writeError(w, http.StatusInternalServerError, "Failed to create invoice")
			return
		}
		number, err = billing.FormatInvoiceNumber(h.settings.Prefix, invoiceDate, seq)
		if err != nil {
			log.WithError(err).Error("Failed to format invoice number")
			writeError(w, http.StatusInternalServerError, "Failed to create invoice")
			return
		}
	}

	invoice := models.NewInvoice(job.ID.Hex(), number, invoiceDate, req.Charges(h.settings.DefaultGSTRate), claims.Username, now)
	if err := h.invoices.InsertInvoice(r.Context(), invoice); err != nil {
		log.WithError(err).Error("Failed to store invoice")
		writeError(w, http.StatusInternalServerError, "Failed to create invoice")
		return
	}
	h.metrics.InvoiceCreated()

	log.WithFields(log.Fields{
		"invoice_number": invoice.InvoiceNumber,
		"job_id":         invoice.JobID,
		"grand_total":    invoice.GrandTotal,
		"by":             claims.Username,
	}).Info("Invoice created")
	writeJSON(w, http.StatusCreated, invoice)
}

// PDF streams the rendered invoice as an attachment.
func (h *InvoiceHandler) PDF(w http.ResponseWriter, r *http.Request) {
	invoice, job, ok := h.load(w, r)
	if !ok {
		return
	}

	doc, err := h.renderer.Render(*invoice, *job)
	if err != nil {
		log.WithError(err).WithField("invoice_number", invoice.InvoiceNumber).Error("Failed to render invoice")
		writeError(w, http.StatusInternalServerError, "Failed to render invoice")
		return
	}

	hdr := w.Header()
	hdr.Set("Content-Type", "application/pdf")
	hdr.Set("Content-Disposition", attachment(pdf.Filename(*invoice)))
	hdr.Set("Content-Length", strconv.Itoa(len(doc)))
	hdr.Set("Cache-Control", "no-cache")
	hdr.Set("Access-Control-Expose-Headers", "Content-Disposition")
	w.WriteHeader(http.StatusOK)
	w.Write(doc)
}

// Send delivers the invoice to the customer or the accountant and records it.
func (h *InvoiceHandler) Send(w http.ResponseWriter, r *http.Request) {
	recipient := models.Recipient(r.URL.Query().Get("send_type"))
	if !models.IsValidRecipient(recipient) {
		writeError(w, http.StatusBadRequest, "Invalid send type")
		return
	}

	invoice, job, ok := h.load(w, r)
	if !ok {
		return
	}

	var n notify.Notification
	if recipient == models.RecipientCustomer {
		n = notify.InvoiceForCustomer(*invoice, *job, h.now())
	} else {
		n = notify.InvoiceForAccountant(*invoice, *job, h.settings.AccountantEmail, h.now())
	}

	err := h.notifier.Notify(r.Context(), n)
	h.metrics.NotificationSent(string(n.Channel), err)
	if err != nil {
		log.WithError(err).WithField("invoice_number", invoice.InvoiceNumber).Error("Failed to send invoice")
		writeError(w, http.StatusBadGateway, "Failed to send invoice")
		return
	}

	if err := h.invoices.MarkSent(r.Context(), invoice.ID.Hex(), recipient); err != nil {
		writeStoreError(w, err, "Invoice not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Invoice sent to " + string(recipient),
	})
}

func (h *InvoiceHandler) load(w http.ResponseWriter, r *http.Request) (*models.Invoice, *models.Job, bool) {
	invoice, err := h.invoices.FindInvoiceByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err, "Invoice not found")
		return nil, nil, false
	}
	job, err := h.jobs.FindJobByID(r.Context(), invoice.JobID)
	if err != nil {
		writeStoreError(w, err, "Job not found")
		return nil, nil, false
	}
	return invoice, job, true
}
