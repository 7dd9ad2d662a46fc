package models

import (
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ChecklistItem is one line of a mechanic's work checklist.
type ChecklistItem struct {
	Description string `bson:"description" json:"description"`
	Completed   bool   `bson:"completed" json:"completed"`
}

// Job represents a single vehicle service engagement from intake to delivery.
type Job struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CustomerName         string             `bson:"customer_name" json:"customer_name"`
	ContactNumber        string             `bson:"contact_number" json:"contact_number"`
	CarBrand             string             `bson:"car_brand" json:"car_brand"`
	CarModel             string             `bson:"car_model" json:"car_model"`
	Year                 int                `bson:"year" json:"year"`
	RegistrationNumber   string             `bson:"registration_number" json:"registration_number"`
	VIN                  string             `bson:"vin" json:"vin"`
	Kms                  int                `bson:"kms" json:"kms"` // odometer reading
	EntryDate            time.Time          `bson:"entry_date" json:"entry_date"`
	EstimatedDelivery    time.Time          `bson:"estimated_delivery" json:"estimated_delivery"`
	WorkDescription      string             `bson:"work_description" json:"work_description"`
	AssignedMechanicID   string             `bson:"assigned_mechanic_id" json:"assigned_mechanic_id"`
	AssignedMechanicName string             `bson:"assigned_mechanic_name" json:"assigned_mechanic_name"`
	Status               Status             `bson:"status" json:"status"`
	Notes                string             `bson:"notes,omitempty" json:"notes,omitempty"`
	CompletionDate       *time.Time         `bson:"completion_date,omitempty" json:"completion_date,omitempty"`
	Checklist            []ChecklistItem    `bson:"checklist,omitempty" json:"checklist,omitempty"`
	Photos               []string           `bson:"photos" json:"photos"` // data URLs
	ConfirmComplete      bool               `bson:"confirm_complete" json:"confirm_complete"`
	CreatedAt            time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt            time.Time          `bson:"updated_at" json:"updated_at"`
}

// JobInput is a validated job-creation or full-edit record.
type JobInput struct {
	CustomerName       string
	ContactNumber      string
	CarBrand           string
	CarModel           string
	Year               int
	RegistrationNumber string
	VIN                string
	Kms                int
	EntryDate          time.Time
	EstimatedDelivery  time.Time
	WorkDescription    string
	AssignedMechanicID string
}

// JobPatch carries the partial updates mechanics and managers send.
type JobPatch struct {
	Status          *string `json:"status,omitempty"`
	Notes           *string `json:"notes,omitempty"`
	ConfirmComplete *bool   `json:"confirm_complete,omitempty"`
}

// JobStats summarises jobs by dashboard bucket.
type JobStats struct {
	Active    int            `json:"active"`
	Completed int            `json:"completed"`
	Total     int            `json:"total"`
	ByStatus  map[Status]int `json:"by_status"`
}

// NewJob builds a job in the initial workflow status from a validated record.
func NewJob(in JobInput, mechanic *User, now time.Time) Job {
	job := Job{
		ID:        primitive.NewObjectID(),
		Status:    StatusCarReceived,
		Photos:    []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	job.ApplyRecord(in, mechanic)
	return job
}

// ApplyRecord overwrites the record fields of j with in.
func (j *Job) ApplyRecord(in JobInput, mechanic *User) {
	j.CustomerName = in.CustomerName
	j.ContactNumber = in.ContactNumber
	j.CarBrand = in.CarBrand
	j.CarModel = in.CarModel
	j.Year = in.Year
	j.RegistrationNumber = in.RegistrationNumber
	j.VIN = in.VIN
	j.Kms = in.Kms
	j.EntryDate = in.EntryDate
	j.EstimatedDelivery = in.EstimatedDelivery
	j.WorkDescription = in.WorkDescription
	j.AssignedMechanicID = in.AssignedMechanicID
	if mechanic != nil {
		j.AssignedMechanicName = mechanic.FullName
	}
}

// SetStatus moves j to s. Entering Work complete from another status stamps
// the completion date; setting the current status changes nothing.
func (j *Job) SetStatus(s Status, now time.Time) {
	if j.Status == s {
		return
	}
	if s == StatusWorkComplete {
		completed := now
		j.CompletionDate = &completed
	}
	j.Status = s
}

// IsCompleted reports whether the job is eligible for invoicing.
func (j *Job) IsCompleted() bool {
	return IsCompletedStatus(string(j.Status))
}

// Vehicle returns the "Brand Model (Year)" label used on documents.
func (j *Job) Vehicle() string {
	return j.CarBrand + " " + j.CarModel + " (" + strconv.Itoa(j.Year) + ")"
}

// ShortID returns the first eight hex characters of the job id.
func (j *Job) ShortID() string {
	return j.ID.Hex()[:8]
}

// NewJobStats buckets jobs using the workflow table.
func NewJobStats(jobs []Job) JobStats {
	stats := JobStats{ByStatus: make(map[Status]int, len(workflow))}
	for _, s := range Statuses() {
		stats.ByStatus[s] = 0
	}
	for _, j := range jobs {
		stats.Total++
		stats.ByStatus[j.Status]++
		if j.IsCompleted() {
			stats.Completed++
		} else {
			stats.Active++
		}
	}
	return stats
}
