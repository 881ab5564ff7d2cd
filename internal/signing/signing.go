// Package signing issues and checks expiring HMAC links for stored CVs.
package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// Signer generates and validates HMAC based signatures.
type Signer struct {
	secret []byte
	now    func() time.Time
}

// NewSigner creates a Signer.
func NewSigner(secret []byte) *Signer {
	return &Signer{secret: secret, now: time.Now}
}

// Sign returns the hex signature for a candidate's CV link.
func (s *Signer) Sign(candidateID string, expiresUnix int64) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(fmt.Sprintf("cv:%s:%d", candidateID, expiresUnix)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Validate checks the signature in constant time. It does not look at the
// clock; see Verify.
func (s *Signer) Validate(candidateID, expires, signature string) bool {
	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return false
	}
	expected := s.Sign(candidateID, exp)
	// hmac.Equal performs constant-time comparison to avoid timing attacks.
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Verify reports whether the link is authentic and not yet expired.
func (s *Signer) Verify(candidateID, expires, signature string) bool {
	if !s.Validate(candidateID, expires, signature) {
		return false
	}
	exp, _ := strconv.ParseInt(expires, 10, 64)
	return s.now().Unix() <= exp
}

// CVLink builds the relative download path for a candidate's CV, valid for ttl.
func (s *Signer) CVLink(candidateID string, ttl time.Duration) string {
	exp := s.now().Add(ttl).Unix()
	q := url.Values{}
	q.Set("expires", strconv.FormatInt(exp, 10))
	q.Set("sig", s.Sign(candidateID, exp))
	return "/cv/" + url.PathEscape(candidateID) + "?" + q.Encode()
}
