package entity

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	today := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		offset int
		want   Tier
		wantOK bool
	}{
		{name: "61 days out is outside the window", offset: 61, wantOK: false},
		{name: "60 days", offset: 60, want: Tier60Day, wantOK: true},
		{name: "31 days", offset: 31, want: Tier60Day, wantOK: true},
		{name: "30 days", offset: 30, want: Tier30Day, wantOK: true},
		{name: "8 days", offset: 8, want: Tier30Day, wantOK: true},
		{name: "7 days", offset: 7, want: Tier7Day, wantOK: true},
		{name: "1 day", offset: 1, want: Tier7Day, wantOK: true},
		{name: "today", offset: 0, want: TierExpired, wantOK: true},
		{name: "yesterday", offset: -1, want: TierExpired, wantOK: true},
		{name: "long expired", offset: -400, want: TierExpired, wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Classify(today.AddDate(0, 0, tt.offset), today)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassify_IgnoresTimeOfDay(t *testing.T) {
	today := time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC)
	expiry := time.Date(2026, 3, 8, 0, 1, 0, 0, time.UTC)

	got, ok := Classify(expiry, today)
	require.True(t, ok)
	assert.Equal(t, Tier7Day, got)
	assert.Equal(t, 7, DaysUntil(expiry, today))
}

func TestDay(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 02:00 UTC on the 2nd is still the 1st in New York.
	instant := time.Date(2026, 3, 2, 2, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), Day(instant, loc))
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), Day(instant, nil))
}

func TestTierUrgency(t *testing.T) {
	for i := 1; i < len(Tiers); i++ {
		assert.Less(t, Tiers[i-1].Urgency(), Tiers[i].Urgency())
	}
	assert.Zero(t, Tier("90_day").Urgency())
}

func TestParseTier(t *testing.T) {
	for _, tier := range Tiers {
		got, err := ParseTier(tier.String())
		require.NoError(t, err)
		assert.Equal(t, tier, got)
	}

	_, err := ParseTier("14_day")
	assert.ErrorIs(t, err, ErrInvalidData)
}

func TestEscalationRoles(t *testing.T) {
	assert.Equal(t, []Role{RoleSupervisor}, EscalationRoles(Tier60Day))
	assert.Equal(t, []Role{RoleSupervisor, RoleAdmin}, EscalationRoles(Tier30Day))
	assert.Equal(t, []Role{RoleSupervisor, RoleAdmin, RoleInternalAuditor}, EscalationRoles(Tier7Day))
	assert.Equal(t, EscalationRoles(Tier7Day), EscalationRoles(TierExpired))
	assert.Nil(t, EscalationRoles("bogus"))
}

func TestCertificationFlags(t *testing.T) {
	ct := CertificationType{AlertAt60: true, AlertAt7: true}
	assert.True(t, ct.Enables(Tier60Day))
	assert.False(t, ct.Enables(Tier30Day))
	assert.True(t, ct.Enables(Tier7Day))
	assert.False(t, ct.Enables(TierExpired))

	c := Certification{Alert30Sent: true, AlertExpiredSent: true}
	assert.False(t, c.AlertSent(Tier60Day))
	assert.True(t, c.AlertSent(Tier30Day))
	assert.True(t, c.AlertSent(TierExpired))

	assert.Equal(t, "alert_7_sent", AlertColumn(Tier7Day))
	assert.Empty(t, AlertColumn("bogus"))
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{err: nil, want: ""},
		{err: fmt.Errorf("worker: %w", ErrDataNotFound), want: "missing_data"},
		{err: fmt.Errorf("x: %w", ErrMissingData), want: "missing_data"},
		{err: ErrNoRecipients, want: "no_recipients"},
		{err: fmt.Errorf("smtp: %w: %w", ErrTransport, errors.New("dial")), want: "transport"},
		{err: ErrStoreUnavailable, want: "store_unavailable"},
		{err: errors.New("boom"), want: "internal"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorKind(tt.err))
	}
}

func TestRunResultMerge(t *testing.T) {
	r := RunResult{RemindersCreated: 1, EmailsSent: 2, Errors: []string{"a"}}
	r.Merge(RunResult{RemindersCreated: 1, EmailsSent: 1, EmailsFailed: 1, Skipped: 3, Errors: []string{"b"}})

	assert.Equal(t, 2, r.RemindersCreated)
	assert.Equal(t, 3, r.EmailsSent)
	assert.Equal(t, 1, r.EmailsFailed)
	assert.Equal(t, 3, r.Skipped)
	assert.Equal(t, []string{"a", "b"}, r.Errors)
}
