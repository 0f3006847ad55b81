package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/ukydev/campus-rath/internal/models"
)

// Publisher fans a freshly written vehicle document out to other consumers.
type Publisher interface {
	Publish(ctx context.Context, state models.VehicleState) error
}

// Topic returns the state topic of a vehicle.
func Topic(vehicleID string) string {
	return fmt.Sprintf("rath/vehicles/%s/state", vehicleID)
}

// NewMQTTClient connects to broker.
func NewMQTTClient(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}
	return client, nil
}

// MQTTPublisher publishes retained vehicle state messages so late subscribers
// immediately see the last published document.
type MQTTPublisher struct {
	client  mqtt.Client
	topic   string
	timeout time.Duration
}

// NewMQTTPublisher creates a publisher for one vehicle.
func NewMQTTPublisher(client mqtt.Client, vehicleID string) *MQTTPublisher {
	return &MQTTPublisher{
		client:  client,
		topic:   Topic(vehicleID),
		timeout: 5 * time.Second,
	}
}

// Publish sends state with QoS 1.
func (p *MQTTPublisher) Publish(ctx context.Context, state models.VehicleState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal vehicle state: %w", err)
	}

	token := p.client.Publish(p.topic, 1, true, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.timeout):
		return fmt.Errorf("mqtt publish to %s: timed out", p.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish to %s: %w", p.topic, err)
	}
	return nil
}
