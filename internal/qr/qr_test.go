package qr

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	svc := NewService("https://app.example.com/", "https://render.example.com/qr")
	date := time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)

	cred := svc.Issue(123, 456, 7, date)

	assert.True(t, strings.HasPrefix(cred.UniqueID, "ST-123-456-"))
	assert.Len(t, strings.Split(cred.UniqueID, "-"), 5)

	assert.Contains(t, cred.VerificationURL, "https://app.example.com/verify-schedule/"+cred.UniqueID)
	assert.Contains(t, cred.VerificationURL, "center=7")
	assert.Contains(t, cred.VerificationURL, "date=2026-09-14")
	assert.Contains(t, cred.ImageURL, "https://render.example.com/qr?size=300x300&data=")

	parsed, err := Parse(cred.UniqueID)
	require.NoError(t, err)
	assert.Equal(t, int64(123), parsed.ScheduleID)
	assert.Equal(t, int64(456), parsed.FarmerID)
}

func TestIssueWithoutRenderEndpoint(t *testing.T) {
	svc := NewService("https://app.example.com", "")
	cred := svc.Issue(1, 2, 3, time.Now())

	assert.Empty(t, cred.ImageURL)
	assert.NotEmpty(t, cred.VerificationURL)
}

func TestIssueUniqueness(t *testing.T) {
	svc := NewService("https://app.example.com", "")
	date := time.Now()

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		cred := svc.Issue(9, 9, 9, date)
		assert.False(t, seen[cred.UniqueID], "duplicate credential %s", cred.UniqueID)
		seen[cred.UniqueID] = true
	}
}

func TestParseInvalid(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"wrong prefix", "XX-1-2-3-ABCDEF"},
		{"too few tokens", "ST-1-2-3"},
		{"too many tokens", "ST-1-2-3-4-5"},
		{"non-numeric schedule id", "ST-abc-2-3-ABCDEF"},
		{"non-numeric farmer id", "ST-1-abc-3-ABCDEF"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.in)
			assert.ErrorIs(t, err, ErrInvalidCredential)
		})
	}
}
