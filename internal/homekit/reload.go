package homekit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Reloader restarts a bridge's user-facing service so a state file
// change takes visible effect. Invoked at most once per completed sync
// cycle with actionable mutations.
type Reloader interface {
	Reload(ctx context.Context, bridgeID string) error
}

// Publisher is the MQTT publish capability the reloader needs.
// Satisfied by *mqtt.Client.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// reloadRequest is the payload published on the reload topic. An
// automation on the Home Assistant side consumes it and calls the
// homekit.reload service for the named bridge.
type reloadRequest struct {
	BridgeID    string `json:"bridge_id"`
	RequestedAt string `json:"requested_at"`
}

// MQTTReloader publishes reload requests over MQTT with QoS 1.
type MQTTReloader struct {
	publisher Publisher
	topic     func(bridgeID string) string
}

// NewMQTTReloader creates a reloader that publishes to the topic
// returned by topic for each bridge.
func NewMQTTReloader(publisher Publisher, topic func(bridgeID string) string) *MQTTReloader {
	return &MQTTReloader{publisher: publisher, topic: topic}
}

// Reload publishes a reload request for the bridge.
// Returns ErrReloadFailed if the request cannot be delivered.
func (r *MQTTReloader) Reload(_ context.Context, bridgeID string) error {
	payload, err := json.Marshal(reloadRequest{
		BridgeID:    bridgeID,
		RequestedAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrReloadFailed, err)
	}

	if err := r.publisher.Publish(r.topic(bridgeID), payload, 1, false); err != nil {
		return fmt.Errorf("%w: %w", ErrReloadFailed, err)
	}
	return nil
}
