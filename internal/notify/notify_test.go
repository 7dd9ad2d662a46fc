package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/icdtuning/garage/internal/models"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeToken struct {
	done chan struct{}
	err  error
}

func completedToken(err error) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool                     { <-t.done; return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type published struct {
	topic   string
	qos     byte
	payload []byte
}

type fakeClient struct {
	token mqtt.Token
	sent  []published
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.sent = append(c.sent, published{topic: topic, qos: qos, payload: payload.([]byte)})
	return c.token
}

func testJob() models.Job {
	return models.Job{
		ID:            primitive.NewObjectID(),
		CustomerName:  "Karthik",
		ContactNumber: "+91 90000 11111",
		CarBrand:      "Honda",
		CarModel:      "City",
		Year:          2019,
	}
}

func TestMQTTPublisher_Notify(t *testing.T) {
	client := &fakeClient{token: completedToken(nil)}
	p := NewMQTTPublisher(client, "icd")

	job := testJob()
	n := ReadyForDelivery(job, "ICD Tuning", time.Now())
	require.NoError(t, p.Notify(context.Background(), n))

	require.Len(t, client.sent, 1)
	assert.Equal(t, "icd/notifications/whatsapp", client.sent[0].topic)
	assert.Equal(t, byte(1), client.sent[0].qos)

	var got Notification
	require.NoError(t, json.Unmarshal(client.sent[0].payload, &got))
	assert.Equal(t, job.ContactNumber, got.To)
	assert.Equal(t, job.ID.Hex(), got.JobID)
	assert.Contains(t, got.Message, "Hi Karthik, your City service is completed")
}

func TestMQTTPublisher_StatusChanged(t *testing.T) {
	client := &fakeClient{token: completedToken(nil)}
	p := NewMQTTPublisher(client, "")

	err := p.StatusChanged(context.Background(), StatusEvent{
		JobID: "j1",
		From:  models.StatusInProgress,
		To:    models.StatusWorkComplete,
	})
	require.NoError(t, err)
	require.Len(t, client.sent, 1)
	assert.Equal(t, "garage/jobs/status", client.sent[0].topic)
	assert.Contains(t, string(client.sent[0].payload), `"to":"Work complete"`)
}

func TestMQTTPublisher_BrokerError(t *testing.T) {
	brokerErr := errors.New("not connected")
	p := NewMQTTPublisher(&fakeClient{token: completedToken(brokerErr)}, "garage")

	err := p.Notify(context.Background(), Notification{Channel: ChannelEmail})
	assert.ErrorIs(t, err, brokerErr)
}

func TestMQTTPublisher_Timeout(t *testing.T) {
	pending := &fakeToken{done: make(chan struct{})}
	p := NewMQTTPublisher(&fakeClient{token: pending}, "garage")
	p.timeout = 10 * time.Millisecond

	err := p.Notify(context.Background(), Notification{Channel: ChannelEmail})
	assert.ErrorIs(t, err, ErrPublishTimeout)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p.timeout = time.Minute
	err = p.Notify(ctx, Notification{Channel: ChannelEmail})
	assert.ErrorIs(t, err, ErrPublishTimeout)
}

func TestInvoiceMessages(t *testing.T) {
	job := testJob()
	inv := models.Invoice{
		ID:            primitive.NewObjectID(),
		InvoiceNumber: "ICD-2025-0007",
		JobID:         job.ID.Hex(),
		GrandTotal:    4425,
	}
	now := time.Now()

	customer := InvoiceForCustomer(inv, job, now)
	assert.Equal(t, ChannelWhatsApp, customer.Channel)
	assert.Equal(t, job.ContactNumber, customer.To)
	assert.Equal(t, "Your invoice ICD-2025-0007 is ready. Total: ₹4425.00", customer.Message)
	assert.Equal(t, inv.ID.Hex(), customer.InvoiceID)

	accountant := InvoiceForAccountant(inv, job, "books@example.com", now)
	assert.Equal(t, ChannelEmail, accountant.Channel)
	assert.Equal(t, "books@example.com", accountant.To)
	assert.Equal(t, "Invoice ICD-2025-0007", accountant.Subject)
	assert.Equal(t, "Invoice for Karthik - City", accountant.Message)
}

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	var p Publisher = LogPublisher{}
	require.NoError(t, p.Notify(context.Background(), Notification{Channel: ChannelEmail, To: "a@b.c", Message: "hello"}))
	require.NoError(t, p.StatusChanged(context.Background(), StatusEvent{JobID: "j1", To: models.StatusWashed}))

	out := buf.String()
	assert.Contains(t, out, "hello")
	assert.Contains(t, out, "Job status changed")
	assert.Contains(t, out, "j1")
}
