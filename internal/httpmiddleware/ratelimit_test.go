package httpmiddleware

import "testing"

func TestTokenBucketExhaustion(t *testing.T) {
	l := NewSimpleTokenBucket(3, 3)
	for i := 0; i < 3; i++ {
		if !l.allow("gate-1") {
			t.Fatalf("request %d refused before capacity spent", i+1)
		}
	}
	if l.allow("gate-1") {
		t.Fatal("request allowed past capacity")
	}
	// Other clients keep their own bucket.
	if !l.allow("gate-2") {
		t.Fatal("separate client refused")
	}
}

func TestTokenBucketDefaultsCapacity(t *testing.T) {
	l := NewSimpleTokenBucket(0, 10)
	if l.capacity != 10 {
		t.Fatalf("capacity = %d, want rate fallback 10", l.capacity)
	}
}
