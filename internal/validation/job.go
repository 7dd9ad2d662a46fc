// Package validation gates job records before they are persisted.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/icdtuning/garage/internal/models"
)

// ValidationError reports the first job field that failed validation.
type ValidationError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// RecordFields are the job record fields in validation order. A create
// payload, or an edit payload carrying any of them, must supply all of them.
var RecordFields = []string{
	"customer_name",
	"contact_number",
	"car_brand",
	"car_model",
	"year",
	"registration_number",
	"vin",
	"kms",
	"entry_date",
	"estimated_delivery",
	"work_description",
	"assigned_mechanic_id",
}

// dateLayouts are the ISO-8601 shapes the dashboard sends.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

type jobForm struct {
	CustomerName       string `json:"customer_name" validate:"required"`
	ContactNumber      string `json:"contact_number" validate:"required"`
	CarBrand           string `json:"car_brand" validate:"required"`
	CarModel           string `json:"car_model" validate:"required"`
	Year               string `json:"year" validate:"required"`
	RegistrationNumber string `json:"registration_number" validate:"required"`
	VIN                string `json:"vin" validate:"required"`
	Kms                string `json:"kms" validate:"required"`
	EntryDate          string `json:"entry_date" validate:"required"`
	EstimatedDelivery  string `json:"estimated_delivery" validate:"required"`
	WorkDescription    string `json:"work_description" validate:"required"`
	AssignedMechanicID string `json:"assigned_mechanic_id" validate:"required"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// HasRecordFields reports whether payload carries any job record field.
func HasRecordFields(payload map[string]any) bool {
	for _, f := range RecordFields {
		if _, ok := payload[f]; ok {
			return true
		}
	}
	return false
}

// ValidateJob checks a decoded job payload and coerces it into a JobInput.
// Dates are not checked against each other.
func ValidateJob(payload map[string]any) (models.JobInput, error) {
	form := jobForm{
		CustomerName:       text(payload["customer_name"]),
		ContactNumber:      text(payload["contact_number"]),
		CarBrand:           text(payload["car_brand"]),
		CarModel:           text(payload["car_model"]),
		Year:               text(payload["year"]),
		RegistrationNumber: text(payload["registration_number"]),
		VIN:                text(payload["vin"]),
		Kms:                text(payload["kms"]),
		EntryDate:          text(payload["entry_date"]),
		EstimatedDelivery:  text(payload["estimated_delivery"]),
		WorkDescription:    text(payload["work_description"]),
		AssignedMechanicID: text(payload["assigned_mechanic_id"]),
	}

	if err := validate.Struct(form); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return models.JobInput{}, &ValidationError{Field: verrs[0].Field(), Reason: reason(verrs[0])}
		}
		return models.JobInput{}, err
	}

	year, err := parseInt("year", form.Year)
	if err != nil {
		return models.JobInput{}, err
	}
	kms, err := parseInt("kms", form.Kms)
	if err != nil {
		return models.JobInput{}, err
	}
	if kms < 0 {
		return models.JobInput{}, &ValidationError{Field: "kms", Reason: "must not be negative"}
	}
	entry, err := parseDate("entry_date", form.EntryDate)
	if err != nil {
		return models.JobInput{}, err
	}
	delivery, err := parseDate("estimated_delivery", form.EstimatedDelivery)
	if err != nil {
		return models.JobInput{}, err
	}

	return models.JobInput{
		CustomerName:       form.CustomerName,
		ContactNumber:      form.ContactNumber,
		CarBrand:           form.CarBrand,
		CarModel:           form.CarModel,
		Year:               year,
		RegistrationNumber: form.RegistrationNumber,
		VIN:                form.VIN,
		Kms:                kms,
		EntryDate:          entry,
		EstimatedDelivery:  delivery,
		WorkDescription:    form.WorkDescription,
		AssignedMechanicID: form.AssignedMechanicID,
	}, nil
}

// ParseDate parses an ISO-8601 date or date-time. Values without a zone are UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

func parseDate(field, s string) (time.Time, error) {
	t, err := ParseDate(s)
	if err != nil {
		return time.Time{}, &ValidationError{Field: field, Reason: "must be an ISO-8601 date"}
	}
	return t, nil
}

func parseInt(field, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, &ValidationError{Field: field, Reason: "must be an integer"}
	}
	return n, nil
}

func reason(fe validator.FieldError) string {
	if fe.Tag() == "required" {
		return "is required"
	}
	return "failed " + fe.Tag() + " check"
}

// text flattens a decoded JSON value into trimmed text. Objects, arrays and
// booleans flatten to "" so they fail the required check.
func text(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		return ""
	}
}
