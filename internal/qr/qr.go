// Package qr derives verifiable appointment credentials from scheduling
// facts. A credential is a self-describing string that can be parsed
// offline, plus a verification URL and an external render reference; no
// pixels are generated here.
package qr

import (
	"crypto/rand"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidCredential = errors.New("invalid qr credential")

const base36Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Credential is the value object attached to a schedule at approval time.
type Credential struct {
	UniqueID        string
	VerificationURL string
	ImageURL        string
}

// ParsedCredential is the outcome of parsing a unique ID. It is a hint to
// fetch and verify, never an authorization token.
type ParsedCredential struct {
	ScheduleID int64
	FarmerID   int64
}

// Service builds credentials against a frontend base URL and an external
// QR-render endpoint.
type Service struct {
	frontendBaseURL string
	renderBaseURL   string
	now             func() time.Time
}

func NewService(frontendBaseURL, renderBaseURL string) *Service {
	return &Service{
		frontendBaseURL: strings.TrimRight(frontendBaseURL, "/"),
		renderBaseURL:   strings.TrimRight(renderBaseURL, "/"),
		now:             time.Now,
	}
}

// Issue mints the credential for a schedule. The unique ID encodes the
// schedule and farmer IDs so it can be parsed without a database lookup:
//
//	ST-<scheduleID>-<farmerID>-<unixMillis>-<6 base36 chars>
//
// Center and date ride along as query parameters on the verification URL
// rather than in the ID, keeping the 5-token grammar stable.
func (s *Service) Issue(scheduleID, farmerID, centerID int64, scheduledDate time.Time) Credential {
	uniqueID := fmt.Sprintf("ST-%d-%d-%d-%s",
		scheduleID, farmerID, s.now().UnixMilli(), randomBase36(6))

	verification := fmt.Sprintf("%s/verify-schedule/%s?center=%d&date=%s",
		s.frontendBaseURL, uniqueID, centerID, scheduledDate.Format("2006-01-02"))

	cred := Credential{
		UniqueID:        uniqueID,
		VerificationURL: verification,
	}

	// The render endpoint is optional; without one the credential stays
	// text-only and the workflow proceeds on the verification URL alone.
	if s.renderBaseURL != "" {
		cred.ImageURL = fmt.Sprintf("%s?size=300x300&data=%s",
			s.renderBaseURL, url.QueryEscape(verification))
	}

	return cred
}

// Parse splits a unique ID back into the scheduling facts it encodes.
// It is a pure string-grammar operation: exactly five dash-separated
// tokens, an "ST" prefix, and integer schedule/farmer IDs.
func Parse(uniqueID string) (ParsedCredential, error) {
	tokens := strings.Split(uniqueID, "-")
	if len(tokens) != 5 || tokens[0] != "ST" {
		return ParsedCredential{}, ErrInvalidCredential
	}

	scheduleID, err := strconv.ParseInt(tokens[1], 10, 64)
	if err != nil {
		return ParsedCredential{}, ErrInvalidCredential
	}

	farmerID, err := strconv.ParseInt(tokens[2], 10, 64)
	if err != nil {
		return ParsedCredential{}, ErrInvalidCredential
	}

	return ParsedCredential{ScheduleID: scheduleID, FarmerID: farmerID}, nil
}

func randomBase36(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand only fails when the OS entropy source is broken;
		// fall back to the clock so issuance never blocks the workflow.
		millis := time.Now().UnixNano()
		for i := range buf {
			buf[i] = byte(millis >> (i * 8))
		}
	}
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = base36Alphabet[int(b)%len(base36Alphabet)]
	}
	return string(out)
}
