package handlers

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/icdtuning/garage/internal/db"
	"github.com/icdtuning/garage/internal/export"
	log "github.com/sirupsen/logrus"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler serves spreadsheet downloads.
type ExportHandler struct {
	jobs db.JobCollection
	now  func() time.Time
}

// NewExportHandler creates an export handler.
func NewExportHandler(jobs db.JobCollection) *ExportHandler {
	return &ExportHandler{jobs: jobs, now: func() time.Time { return time.Now().UTC() }}
}

// Jobs downloads every job as an XLSX workbook.
func (h *ExportHandler) Jobs(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	jobs, err := h.jobs.FindJobs(r.Context(), db.JobFilter{})
	if err != nil {
		writeStoreError(w, err, "")
		return
	}

	now := h.now()
	var buf bytes.Buffer
	if err := export.WriteJobs(&buf, jobs, claims.Username, now); err != nil {
		log.WithError(err).Error("Failed to build jobs export")
		writeError(w, http.StatusInternalServerError, "Failed to export jobs")
		return
	}

	log.WithFields(log.Fields{"jobs": len(jobs), "by": claims.Username}).Info("Exported jobs")

	hdr := w.Header()
	hdr.Set("Content-Type", xlsxContentType)
	hdr.Set("Content-Disposition", attachment("jobs-"+now.Format("20060102")+".xlsx"))
	hdr.Set("Content-Length", strconv.Itoa(buf.Len()))
	hdr.Set("Access-Control-Expose-Headers", "Content-Disposition")
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}
