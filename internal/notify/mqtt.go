package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
)

// ErrPublishTimeout is returned when the broker does not acknowledge a
// publish before the context or the publisher timeout expires.
var ErrPublishTimeout = errors.New("mqtt publish timed out")

// mqttClient is the part of mqtt.Client the publisher needs.
type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTPublisher publishes JSON payloads with QoS 1 under a topic prefix:
// <prefix>/notifications/<channel> and <prefix>/jobs/status.
type MQTTPublisher struct {
	client  mqttClient
	prefix  string
	timeout time.Duration
}

// NewMQTTPublisher wraps a connected client.
func NewMQTTPublisher(client mqttClient, prefix string) *MQTTPublisher {
	if prefix == "" {
		prefix = "garage"
	}
	return &MQTTPublisher{client: client, prefix: prefix, timeout: 5 * time.Second}
}

// ConnectMQTT dials brokerURL and waits for the connection.
func ConnectMQTT(brokerURL, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.WithError(err).Warn("MQTT connection lost")
		})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(15 * time.Second) {
		return nil, fmt.Errorf("connect to %s: timed out", brokerURL)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", brokerURL, err)
	}
	return client, nil
}

// Notify publishes n on the notifications topic for its channel.
func (p *MQTTPublisher) Notify(ctx context.Context, n Notification) error {
	return p.publish(ctx, p.prefix+"/notifications/"+string(n.Channel), n)
}

// StatusChanged publishes e on the job status topic.
func (p *MQTTPublisher) StatusChanged(ctx context.Context, e StatusEvent) error {
	return p.publish(ctx, p.prefix+"/jobs/status", e)
}

func (p *MQTTPublisher) publish(ctx context.Context, topic string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", topic, err)
	}

	token := p.client.Publish(topic, 1, false, payload)

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrPublishTimeout, ctx.Err())
	case <-timer.C:
		return ErrPublishTimeout
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}
