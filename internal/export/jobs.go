// Package export builds spreadsheet exports of garage data.
package export

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/icdtuning/garage/internal/models"
	"github.com/xuri/excelize/v2"
)

// JobsSheet is the worksheet name used for job exports.
const JobsSheet = "ICD Tuning Jobs"

// JobHeaders are the export columns in order.
var JobHeaders = []string{
	"Job ID",
	"Customer Name",
	"Contact Number",
	"Vehicle",
	"Registration No",
	"VIN",
	"Odometer (KMs)",
	"Entry Date",
	"Assigned Mechanic",
	"Work Description",
	"Estimated Delivery",
	"Status",
	"Notes",
	"Completion Date",
	"Created At",
}

const dateLayout = "2006-01-02"

// JobRow flattens job into the export columns.
func JobRow(job models.Job) []interface{} {
	kms := ""
	if job.Kms > 0 {
		kms = strconv.Itoa(job.Kms)
	}
	completion := ""
	if job.CompletionDate != nil {
		completion = job.CompletionDate.Format(dateLayout)
	}

	return []interface{}{
		job.ShortID(),
		job.CustomerName,
		job.ContactNumber,
		job.Vehicle(),
		job.RegistrationNumber,
		job.VIN,
		kms,
		job.EntryDate.Format(dateLayout),
		job.AssignedMechanicName,
		job.WorkDescription,
		job.EstimatedDelivery.Format(dateLayout),
		string(job.Status),
		job.Notes,
		completion,
		job.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// WriteJobs writes an XLSX workbook listing jobs to w, with a styled header
// row and an "Exported by" footer two rows below the data.
func WriteJobs(w io.Writer, jobs []models.Job, exportedBy string, now time.Time) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", JobsSheet); err != nil {
		return err
	}

	header := make([]interface{}, len(JobHeaders))
	for i, h := range JobHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(JobsSheet, "A1", &header); err != nil {
		return err
	}

	style, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"D12E2E"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return err
	}
	lastCol, err := excelize.ColumnNumberToName(len(JobHeaders))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(JobsSheet, "A1", lastCol+"1", style); err != nil {
		return err
	}
	if err := f.SetColWidth(JobsSheet, "A", lastCol, 20); err != nil {
		return err
	}

	for i, job := range jobs {
		row := JobRow(job)
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(JobsSheet, cell, &row); err != nil {
			return fmt.Errorf("write job %s: %w", job.ID.Hex(), err)
		}
	}

	footer, err := excelize.CoordinatesToCellName(1, len(jobs)+3)
	if err != nil {
		return err
	}
	stamp := fmt.Sprintf("Exported by: %s on %s", exportedBy, now.UTC().Format("2006-01-02 15:04:05 UTC"))
	if err := f.SetCellValue(JobsSheet, footer, stamp); err != nil {
		return err
	}

	return f.Write(w)
}
