package service

import (
	"context"
	"testing"

	"certalert/internal/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func emails(rcs []Recipient) []string {
	return addresses(rcs)
}

func TestResolver_Escalation(t *testing.T) {
	store := newMemStore()
	company := store.seedCompany("acme.test")
	worker := store.seedWorker(company, "jane@acme.test")
	r := NewResolver(store)

	tests := []struct {
		tier entity.Tier
		want []string
	}{
		{
			tier: entity.Tier60Day,
			want: []string{"jane@acme.test", "supervisor@acme.test"},
		},
		{
			tier: entity.Tier30Day,
			want: []string{"jane@acme.test", "supervisor@acme.test", "admin@acme.test"},
		},
		{
			tier: entity.Tier7Day,
			want: []string{"jane@acme.test", "supervisor@acme.test", "admin@acme.test", "internal_auditor@acme.test"},
		},
		{
			tier: entity.TierExpired,
			want: []string{"jane@acme.test", "supervisor@acme.test", "admin@acme.test", "internal_auditor@acme.test"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.tier.String(), func(t *testing.T) {
			got, err := r.Resolve(context.Background(), tt.tier, worker, company)
			require.NoError(t, err)
			assert.Equal(t, tt.want, emails(got))
			assert.Equal(t, entity.RoleWorker, got[0].Role)
			assert.Equal(t, "Jane Doe", got[0].Name)
		})
	}
}

func TestResolver_Deduplicates(t *testing.T) {
	store := newMemStore()
	company := store.seedCompany("acme.test")
	// The worker is also the company's supervisor and auditor under different casing.
	worker := store.seedWorker(company, " Supervisor@ACME.test ")
	store.contacts[2].Email = "SUPERVISOR@acme.test"

	got, err := NewResolver(store).Resolve(context.Background(), entity.Tier7Day, worker, company)
	require.NoError(t, err)

	assert.Equal(t, []string{"Supervisor@ACME.test", "admin@acme.test"}, emails(got))
}

func TestResolver_AdminFallsBackToSafetyManager(t *testing.T) {
	store := newMemStore()
	company := &entity.Company{
		ID:                 uuid.New(),
		SafetyManagerName:  "Sam Safety",
		SafetyManagerEmail: "sam@acme.test",
	}
	worker := store.seedWorker(company, "jane@acme.test")

	got, err := NewResolver(store).Resolve(context.Background(), entity.Tier30Day, worker, company)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, entity.RoleAdmin, got[1].Role)
	assert.Equal(t, "sam@acme.test", got[1].Email)
}

func TestResolver_NoRecipients(t *testing.T) {
	store := newMemStore()
	company := &entity.Company{ID: uuid.New()}
	worker := store.seedWorker(company, "")

	_, err := NewResolver(store).Resolve(context.Background(), entity.Tier60Day, worker, company)
	assert.ErrorIs(t, err, entity.ErrNoRecipients)
}

func TestResolver_InvalidInput(t *testing.T) {
	r := NewResolver(newMemStore())

	_, err := r.Resolve(context.Background(), "bogus", nil, &entity.Company{})
	assert.ErrorIs(t, err, entity.ErrInvalidData)

	_, err = r.Resolve(context.Background(), entity.Tier7Day, nil, nil)
	assert.ErrorIs(t, err, entity.ErrMissingData)
}
