package entity

import (
	"fmt"
	"math"
	"time"
)

type Tier string

const (
	Tier60Day   Tier = "60_day"
	Tier30Day   Tier = "30_day"
	Tier7Day    Tier = "7_day"
	TierExpired Tier = "expired"
)

// AlertWindowDays is the widest threshold; certifications further out are not evaluated.
const AlertWindowDays = 60

// Tiers lists every tier from least to most urgent.
var Tiers = []Tier{Tier60Day, Tier30Day, Tier7Day, TierExpired}

func (t Tier) IsValid() bool {
	switch t {
	case Tier60Day, Tier30Day, Tier7Day, TierExpired:
		return true
	}
	return false
}

func (t Tier) String() string {
	return string(t)
}

// Urgency orders tiers: 60_day=1 < 30_day=2 < 7_day=3 < expired=4. Unknown tiers are 0.
func (t Tier) Urgency() int {
	switch t {
	case Tier60Day:
		return 1
	case Tier30Day:
		return 2
	case Tier7Day:
		return 3
	case TierExpired:
		return 4
	}
	return 0
}

func ParseTier(s string) (Tier, error) {
	t := Tier(s)
	if !t.IsValid() {
		return "", fmt.Errorf("tier %q: %w", s, ErrInvalidData)
	}
	return t, nil
}

type Role string

const (
	RoleWorker          Role = "worker"
	RoleSupervisor      Role = "supervisor"
	RoleAdmin           Role = "admin"
	RoleInternalAuditor Role = "internal_auditor"
)

// EscalationRoles returns the directory roles notified in addition to the worker, in resolution order.
func EscalationRoles(t Tier) []Role {
	switch t {
	case Tier60Day:
		return []Role{RoleSupervisor}
	case Tier30Day:
		return []Role{RoleSupervisor, RoleAdmin}
	case Tier7Day, TierExpired:
		return []Role{RoleSupervisor, RoleAdmin, RoleInternalAuditor}
	}
	return nil
}

// Day truncates t to midnight UTC of its calendar date in loc.
func Day(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysUntil is ceil((expiry - today) in days) with both sides already truncated to day precision.
func DaysUntil(expiry, today time.Time) int {
	e := Day(expiry, time.UTC)
	t := Day(today, time.UTC)
	return int(math.Ceil(e.Sub(t).Hours() / 24))
}

// Classify maps an expiry date to the single tier it falls in on today, most urgent first.
// ok is false when the certification is outside the alert window.
func Classify(expiry, today time.Time) (tier Tier, ok bool) {
	days := DaysUntil(expiry, today)
	switch {
	case days <= 0:
		return TierExpired, true
	case days <= 7:
		return Tier7Day, true
	case days <= 30:
		return Tier30Day, true
	case days <= AlertWindowDays:
		return Tier60Day, true
	}
	return "", false
}
