package middleware

import (
	"testing"
	"time"
)

func TestDeduper_SeenWithinTTL(t *testing.T) {
	d := NewDeduper(time.Minute)

	if d.Seen("msg-1") {
		t.Fatal("first sighting must not be a duplicate")
	}
	if !d.Seen("msg-1") {
		t.Fatal("second sighting must be a duplicate")
	}
	if d.Seen("msg-2") {
		t.Fatal("distinct id must not be a duplicate")
	}
}

func TestDeduper_ExpiresAfterTTL(t *testing.T) {
	d := NewDeduper(time.Minute)
	base := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return base }

	d.Seen("msg-1")
	d.now = func() time.Time { return base.Add(2 * time.Minute) }

	if d.Seen("msg-1") {
		t.Fatal("id past TTL must read as new")
	}
}

func TestDeduper_EmptyIDNeverDeduplicated(t *testing.T) {
	d := NewDeduper(time.Minute)
	if d.Seen("") || d.Seen("") {
		t.Fatal("empty id must never be marked duplicate")
	}
	if d.Len() != 0 {
		t.Fatalf("Len = %d, want 0", d.Len())
	}
}

func TestDeduper_DefaultTTL(t *testing.T) {
	d := NewDeduper(0)
	if d.ttl != DefaultDedupTTL {
		t.Fatalf("ttl = %v, want %v", d.ttl, DefaultDedupTTL)
	}
}
