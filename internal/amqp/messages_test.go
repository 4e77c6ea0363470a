package amqp

import (
	"testing"
	"time"
)

func TestSnapshotSyncMessageRoundTrip(t *testing.T) {
	msg := NewSnapshotSyncMessage("0b6f3f2e-1d5f-4b7a-9f64-6f2c9a2f7e11")
	if msg.Timestamp.IsZero() {
		t.Fatal("timestamp should be set")
	}

	data, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}

	got, err := SnapshotSyncMessageFromJSON(data)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if got.Revision != msg.Revision {
		t.Fatalf("revision = %q, want %q", got.Revision, msg.Revision)
	}
	if !got.Timestamp.Truncate(time.Millisecond).Equal(msg.Timestamp.Truncate(time.Millisecond)) {
		t.Fatalf("timestamp = %v, want %v", got.Timestamp, msg.Timestamp)
	}
}

func TestSnapshotSyncMessageFromBadJSON(t *testing.T) {
	if _, err := SnapshotSyncMessageFromJSON([]byte("{")); err == nil {
		t.Fatal("expected error for truncated JSON")
	}
}
