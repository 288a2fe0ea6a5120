package queue

import (
	"context"
	"testing"
	"time"
)

func TestInMemoryRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	q := NewInMemory(4)
	if err := q.Publish(ctx, Message{Type: "scan", Body: []byte("rec-1")}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	msgs, err := q.Consume(ctx)
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	select {
	case msg := <-msgs:
		if msg.Type != "scan" || string(msg.Body) != "rec-1" {
			t.Fatalf("got %q/%q", msg.Type, msg.Body)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for message")
	}
}

func TestEncodeDecode(t *testing.T) {
	msg := Message{Type: "scan", Body: []byte("2f6b1c")}
	got := decode(encode(msg))
	if got.Type != msg.Type || string(got.Body) != string(msg.Body) {
		t.Fatalf("round trip got %q/%q", got.Type, got.Body)
	}

	// A body containing the separator keeps everything after the first one.
	got = decode("scan|a|b")
	if got.Type != "scan" || string(got.Body) != "a|b" {
		t.Fatalf("got %q/%q", got.Type, got.Body)
	}

	// Legacy payload without a type.
	got = decode("naked")
	if got.Type != "" || string(got.Body) != "naked" {
		t.Fatalf("got %q/%q", got.Type, got.Body)
	}
}
