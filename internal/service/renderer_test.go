package service

import (
	"testing"
	"time"

	"certalert/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewFor(t *testing.T) {
	tests := []struct {
		tier           entity.Tier
		urgency        int
		listRoles      bool
		safetyContact  bool
		workRestricted bool
	}{
		{tier: entity.Tier60Day, urgency: 1},
		{tier: entity.Tier30Day, urgency: 2},
		{tier: entity.Tier7Day, urgency: 3, listRoles: true, safetyContact: true},
		{tier: entity.TierExpired, urgency: 4, listRoles: true, safetyContact: true, workRestricted: true},
	}

	for _, tt := range tests {
		t.Run(tt.tier.String(), func(t *testing.T) {
			v, err := ViewFor(tt.tier)
			require.NoError(t, err)

			assert.Equal(t, tt.urgency, v.Urgency)
			assert.Equal(t, tt.listRoles, v.ListRoles)
			assert.Equal(t, tt.safetyContact, v.ShowSafetyContact)
			assert.Equal(t, tt.workRestricted, v.WorkRestricted)
			assert.Equal(t, tt.workRestricted, v.StatusChanged)
			assert.Equal(t, entity.EscalationRoles(tt.tier), v.NotifiedRoles)
		})
	}

	_, err := ViewFor("bogus")
	assert.ErrorIs(t, err, entity.ErrInvalidData)
}

func renderInput(today time.Time, days int) RenderInput {
	expiry := today.AddDate(0, 0, days)
	return RenderInput{
		Certification: entity.Certification{
			Type:              entity.CertificationType{Name: "First Aid", Code: "FA"},
			CertificateNumber: "FA-42",
			ExpiryDate:        &expiry,
		},
		Worker: entity.Worker{FirstName: "Jane"},
		Company: entity.Company{
			Name:               "Acme <Construction>",
			SafetyManagerName:  "Sam Safety",
			SafetyManagerEmail: "sam@acme.test",
		},
		Recipients: []Recipient{
			{Role: entity.RoleWorker, Email: "jane@acme.test"},
			{Role: entity.RoleSupervisor, Email: "sup@acme.test"},
			{Role: entity.RoleAdmin, Email: "sam@acme.test"},
			{Role: entity.RoleInternalAuditor, Email: "audit@acme.test"},
		},
		Today: today,
	}
}

func TestRenderer_Render(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	today := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	t.Run("60 day reminder", func(t *testing.T) {
		c, err := r.Render(entity.Tier60Day, renderInput(today, 45))
		require.NoError(t, err)

		assert.Equal(t, "Reminder: First Aid expires in 45 days", c.Subject)
		assert.Contains(t, c.TextBody, "Hi Jane")
		assert.Contains(t, c.TextBody, "April 15, 2026")
		assert.NotContains(t, c.TextBody, "Notified roles")
		assert.NotContains(t, c.TextBody, "sam@acme.test")
	})

	t.Run("7 day lists roles and safety contact", func(t *testing.T) {
		c, err := r.Render(entity.Tier7Day, renderInput(today, 5))
		require.NoError(t, err)

		assert.Equal(t, "URGENT: First Aid expires in 5 days", c.Subject)
		assert.Contains(t, c.TextBody, "Internal Auditor")
		assert.Contains(t, c.TextBody, "sam@acme.test")
		assert.Contains(t, c.HTMLBody, "<li>Supervisor</li>")
	})

	t.Run("7 day lists only roles that were reached", func(t *testing.T) {
		in := renderInput(today, 5)
		in.Recipients = in.Recipients[:2]

		c, err := r.Render(entity.Tier7Day, in)
		require.NoError(t, err)

		assert.Contains(t, c.TextBody, "  - Supervisor\n")
		assert.NotContains(t, c.TextBody, "Internal Auditor")
		assert.NotContains(t, c.TextBody, "Safety Manager / Administrator")
		assert.NotContains(t, c.TextBody, "  - Worker")
		assert.NotContains(t, c.HTMLBody, "Internal Auditor")
		assert.Equal(t, entity.EscalationRoles(entity.Tier7Day), c.View.NotifiedRoles)
	})

	t.Run("7 day without escalation recipients omits the role list", func(t *testing.T) {
		in := renderInput(today, 5)
		in.Recipients = in.Recipients[:1]

		c, err := r.Render(entity.Tier7Day, in)
		require.NoError(t, err)

		assert.NotContains(t, c.TextBody, "Notified roles")
		assert.NotContains(t, c.HTMLBody, "Notified roles")
	})

	t.Run("30 day names who was informed", func(t *testing.T) {
		in := renderInput(today, 20)

		c, err := r.Render(entity.Tier30Day, in)
		require.NoError(t, err)
		assert.Contains(t, c.TextBody, "Your supervisor and the Acme <Construction> safety team have been informed.")

		in.Recipients = in.Recipients[:2]
		c, err = r.Render(entity.Tier30Day, in)
		require.NoError(t, err)
		assert.Contains(t, c.TextBody, "Your supervisor has been informed.")
		assert.NotContains(t, c.TextBody, "safety team")

		in.Recipients = in.Recipients[:1]
		c, err = r.Render(entity.Tier30Day, in)
		require.NoError(t, err)
		assert.NotContains(t, c.TextBody, "informed")
	})

	t.Run("expired", func(t *testing.T) {
		in := renderInput(today, 0)
		in.Certification.Status = entity.CertificationExpired

		c, err := r.Render(entity.TierExpired, in)
		require.NoError(t, err)

		assert.True(t, c.View.WorkRestricted)
		assert.Equal(t, "EXPIRED: First Aid has expired, work restriction in effect", c.Subject)
		assert.Contains(t, c.TextBody, "Days remaining: EXPIRED")
		assert.Contains(t, c.TextBody, "status has been changed to expired")
		assert.Contains(t, c.HTMLBody, "status has been changed to expired")
	})

	t.Run("expired while still active does not claim a status change", func(t *testing.T) {
		in := renderInput(today, -3)
		in.Certification.Status = entity.CertificationActive

		c, err := r.Render(entity.TierExpired, in)
		require.NoError(t, err)

		assert.True(t, c.View.StatusChanged)
		assert.Contains(t, c.TextBody, "work restriction is now in effect")
		assert.NotContains(t, c.TextBody, "status has been changed")
		assert.NotContains(t, c.HTMLBody, "status has been changed")
	})

	t.Run("html is escaped", func(t *testing.T) {
		c, err := r.Render(entity.Tier30Day, renderInput(today, 20))
		require.NoError(t, err)

		assert.Contains(t, c.HTMLBody, "Acme &lt;Construction&gt;")
		assert.Contains(t, c.TextBody, "Acme <Construction>")
	})

	t.Run("missing expiry", func(t *testing.T) {
		in := renderInput(today, 5)
		in.Certification.ExpiryDate = nil

		_, err := r.Render(entity.Tier7Day, in)
		assert.ErrorIs(t, err, entity.ErrMissingData)
	})
}
