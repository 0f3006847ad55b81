package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/campus-rath/internal/config"
	"github.com/ukydev/campus-rath/internal/models"
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

func (t *fakeToken) Wait() bool                       { <-t.done; return true }
func (t *fakeToken) WaitTimeout(d time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}            { return t.done }
func (t *fakeToken) Error() error                     { return t.err }

// fakeClient records publishes; every other mqtt.Client method is unused.
type fakeClient struct {
	mqtt.Client
	token    mqtt.Token
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.topic = topic
	c.qos = qos
	c.retained = retained
	c.payload = payload.([]byte)
	return c.token
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "rath/vehicles/rath01/state", Topic("rath01"))
}

func TestMQTTPublisher_Publish(t *testing.T) {
	client := &fakeClient{token: completedToken(nil)}
	publisher := NewMQTTPublisher(client, "rath01")

	state := models.ActiveState(models.LocationSample{Latitude: 25.1, Longitude: 81.2}, 1715003456)
	require.NoError(t, publisher.Publish(context.Background(), state))

	assert.Equal(t, "rath/vehicles/rath01/state", client.topic)
	assert.Equal(t, byte(1), client.qos)
	assert.True(t, client.retained)

	var got models.VehicleState
	require.NoError(t, json.Unmarshal(client.payload, &got))
	assert.Equal(t, state, got)
}

func TestMQTTPublisher_PublishError(t *testing.T) {
	client := &fakeClient{token: completedToken(errors.New("not connected"))}
	publisher := NewMQTTPublisher(client, "rath01")

	err := publisher.Publish(context.Background(), models.OfflineState("Charging"))
	assert.Error(t, err)
}

func TestMQTTPublisher_ContextCancelled(t *testing.T) {
	client := &fakeClient{token: &fakeToken{done: make(chan struct{})}}
	publisher := NewMQTTPublisher(client, "rath01")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := publisher.Publish(ctx, models.OfflineState("Charging"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpen_WithoutBroker(t *testing.T) {
	publisher, closeFn, err := Open(&config.Config{})
	require.NoError(t, err)
	assert.Nil(t, publisher)
	closeFn()
}
