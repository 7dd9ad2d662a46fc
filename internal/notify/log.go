package notify

import (
	"context"

	log "github.com/sirupsen/logrus"
)

// LogPublisher writes notifications to the log instead of a broker. It is
// used when no MQTT broker is configured.
type LogPublisher struct{}

func (LogPublisher) Notify(_ context.Context, n Notification) error {
	log.WithFields(log.Fields{
		"channel":    n.Channel,
		"to":         n.To,
		"subject":    n.Subject,
		"job_id":     n.JobID,
		"invoice_id": n.InvoiceID,
	}).Info(n.Message)
	return nil
}

func (LogPublisher) StatusChanged(_ context.Context, e StatusEvent) error {
	log.WithFields(log.Fields{
		"job_id":     e.JobID,
		"from":       e.From,
		"to":         e.To,
		"changed_by": e.ChangedBy,
	}).Info("Job status changed")
	return nil
}
