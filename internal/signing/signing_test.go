package signing

import (
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestSigner(t *testing.T) {
	s := NewSigner([]byte("topsecret"))
	sig := s.Sign("cand123", 1700000000)
	if len(sig) == 0 {
		t.Fatalf("expected signature")
	}
	if !s.Validate("cand123", "1700000000", sig) {
		t.Fatalf("expected signature to validate")
	}
	// Validate must be strict about every parameter.
	if s.Validate("wrong", "1700000000", sig) {
		t.Fatalf("expected validation to fail for wrong candidate id")
	}
	if s.Validate("cand123", "42", sig) {
		t.Fatalf("expected validation to fail for wrong expiry")
	}
	if s.Validate("cand123", "soon", sig) {
		t.Fatalf("expected validation to fail for malformed expiry")
	}
	if NewSigner([]byte("other")).Validate("cand123", "1700000000", sig) {
		t.Fatalf("expected validation to fail for another secret")
	}
}

func TestCVLinkRoundTrip(t *testing.T) {
	now := time.Unix(1700000000, 0)
	s := NewSigner([]byte("topsecret"))
	s.now = func() time.Time { return now }

	link := s.CVLink("cand-1", 5*time.Minute)
	if !strings.HasPrefix(link, "/cv/cand-1?") {
		t.Fatalf("link: %s", link)
	}
	u, err := url.Parse(link)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	q := u.Query()
	if !s.Verify("cand-1", q.Get("expires"), q.Get("sig")) {
		t.Fatalf("fresh link should verify")
	}

	s.now = func() time.Time { return now.Add(6 * time.Minute) }
	if s.Verify("cand-1", q.Get("expires"), q.Get("sig")) {
		t.Fatalf("expired link must not verify")
	}
}
