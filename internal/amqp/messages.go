package amqp

import (
	"encoding/json"
	"time"
)

// SnapshotSyncMessage tells the worker that local state moved past the
// cloud copy. It carries only the revision; the worker exports the
// snapshot itself, so a burst of mutations collapses into one upload.
type SnapshotSyncMessage struct {
	Revision  string    `json:"revision"`
	Timestamp time.Time `json:"timestamp"`
}

// NewSnapshotSyncMessage creates a sync message for the given revision
func NewSnapshotSyncMessage(revision string) *SnapshotSyncMessage {
	return &SnapshotSyncMessage{
		Revision:  revision,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *SnapshotSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SnapshotSyncMessageFromJSON creates a message from JSON bytes
func SnapshotSyncMessageFromJSON(data []byte) (*SnapshotSyncMessage, error) {
	var msg SnapshotSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
