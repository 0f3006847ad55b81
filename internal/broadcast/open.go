package broadcast

import (
	log "github.com/sirupsen/logrus"

	"github.com/ukydev/campus-rath/internal/config"
)

// Open connects the MQTT publisher when a broker is configured. Without one
// it returns a nil Publisher and a no-op close.
func Open(cfg *config.Config) (Publisher, func(), error) {
	if cfg.MQTTBroker == "" {
		return nil, func() {}, nil
	}
	client, err := NewMQTTClient(cfg.MQTTBroker, cfg.MQTTClientID)
	if err != nil {
		return nil, func() {}, err
	}
	log.WithFields(log.Fields{
		"broker": cfg.MQTTBroker,
		"topic":  Topic(cfg.VehicleID),
	}).Info("Publishing vehicle state over MQTT")
	return NewMQTTPublisher(client, cfg.VehicleID), func() { client.Disconnect(250) }, nil
}
