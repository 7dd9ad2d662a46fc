package models

import (
	"errors"
	"fmt"
)

// Status is one of the fixed workflow stages a job occupies.
type Status string

const (
	StatusCarReceived       Status = "Car Received"
	StatusDiagnosisDone     Status = "Diagnosis Done"
	StatusQuotationSent     Status = "Quotation sent"
	StatusCustomerConfirmed Status = "Customer Confirmed"
	StatusPartsOrdered      Status = "Parts ordered"
	StatusInProgress        Status = "In Progress"
	StatusPending           Status = "Pending"
	StatusWorkComplete      Status = "Work complete"
	StatusWashed            Status = "Washed"
	StatusReadyForDelivery  Status = "Ready for delivery"
	StatusDelivered         Status = "Delivered"
)

// Bucket groups statuses for dashboard filtering and invoice eligibility.
type Bucket string

const (
	BucketActive    Bucket = "active"
	BucketCompleted Bucket = "completed"
)

type statusInfo struct {
	status Status
	bucket Bucket
	badge  string
}

// workflow is the single ordered table every status lookup derives from.
var workflow = []statusInfo{
	{StatusCarReceived, BucketActive, "gray"},
	{StatusDiagnosisDone, BucketActive, "yellow"},
	{StatusQuotationSent, BucketActive, "yellow"},
	{StatusCustomerConfirmed, BucketActive, "orange"},
	{StatusPartsOrdered, BucketActive, "orange"},
	{StatusInProgress, BucketActive, "orange"},
	{StatusPending, BucketActive, "red"},
	{StatusWorkComplete, BucketCompleted, "blue"},
	{StatusWashed, BucketCompleted, "blue"},
	{StatusReadyForDelivery, BucketCompleted, "purple"},
	{StatusDelivered, BucketCompleted, "green"},
}

var statusIndex = func() map[Status]int {
	idx := make(map[Status]int, len(workflow))
	for i, info := range workflow {
		idx[info.status] = i
	}
	return idx
}()

// ErrRoleNotPermitted is returned when an actor without a known role
// attempts a status change.
var ErrRoleNotPermitted = errors.New("role not permitted to change job status")

// InvalidStatusError reports a status string outside the enumeration.
type InvalidStatusError struct {
	Value string
}

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("invalid status %q", e.Value)
}

// Statuses returns every status in workflow order.
func Statuses() []Status {
	out := make([]Status, len(workflow))
	for i, info := range workflow {
		out[i] = info.status
	}
	return out
}

// StatusesIn returns the statuses belonging to a bucket, in workflow order.
func StatusesIn(bucket Bucket) []Status {
	var out []Status
	for _, info := range workflow {
		if info.bucket == bucket {
			out = append(out, info.status)
		}
	}
	return out
}

// ParseStatus converts s into a Status, matching exactly.
func ParseStatus(s string) (Status, error) {
	if _, ok := statusIndex[Status(s)]; !ok {
		return "", &InvalidStatusError{Value: s}
	}
	return Status(s), nil
}

// IsValidStatus reports whether s is one of the workflow statuses.
func IsValidStatus(s string) bool {
	_, ok := statusIndex[Status(s)]
	return ok
}

// IsCompletedStatus reports whether s falls in the completed bucket.
func IsCompletedStatus(s string) bool {
	i, ok := statusIndex[Status(s)]
	return ok && workflow[i].bucket == BucketCompleted
}

// CanTransition checks whether role may move a job from one status to another.
// Any Manager or Mechanic may set any status, including the current one.
func CanTransition(role Role, from, to string) error {
	if !IsValidStatus(from) {
		return &InvalidStatusError{Value: from}
	}
	if !IsValidStatus(to) {
		return &InvalidStatusError{Value: to}
	}
	if !IsValidRole(role) {
		return ErrRoleNotPermitted
	}
	return nil
}

// Bucket returns the dashboard bucket of s. Unknown statuses are active.
func (s Status) Bucket() Bucket {
	if i, ok := statusIndex[s]; ok {
		return workflow[i].bucket
	}
	return BucketActive
}

// BadgeColor returns the display colour for s.
func (s Status) BadgeColor() string {
	if i, ok := statusIndex[s]; ok {
		return workflow[i].badge
	}
	return "gray"
}

// Position returns the zero-based workflow position of s, or -1.
func (s Status) Position() int {
	if i, ok := statusIndex[s]; ok {
		return i
	}
	return -1
}
