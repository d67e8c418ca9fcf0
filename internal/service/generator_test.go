package service

import (
	"context"
	"testing"
	"time"

	"certalert/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testToday = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func TestGenerator_Generate(t *testing.T) {
	store := newMemStore()
	company := store.seedCompany("acme.test")
	worker := store.seedWorker(company, "jane@acme.test")

	in5 := store.seedCert(worker, testToday.AddDate(0, 0, 5))
	in45 := store.seedCert(worker, testToday.AddDate(0, 0, 45))
	store.seedCert(worker, testToday.AddDate(0, 0, 90))

	flagged := store.seedCert(worker, testToday.AddDate(0, 0, 20))
	flagged.Alert30Sent = true

	disabled := store.seedCert(worker, testToday.AddDate(0, 0, 3))
	disabled.Type.AlertAt7 = false

	revoked := store.seedCert(worker, testToday.AddDate(0, 0, 3))
	revoked.Status = entity.CertificationRevoked

	g := NewGenerator(store, reminderStore{store}, zap.NewNop())

	created, err := g.Generate(context.Background(), testToday)
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	rems := store.remindersFor(in5.ID)
	require.Len(t, rems, 1)
	assert.Equal(t, entity.Tier7Day, rems[0].Tier)
	assert.Equal(t, entity.ReminderPending, rems[0].Status)
	assert.Equal(t, testToday, rems[0].ScheduledDate)
	assert.Equal(t, company.ID, rems[0].CompanyID)

	rems = store.remindersFor(in45.ID)
	require.Len(t, rems, 1)
	assert.Equal(t, entity.Tier60Day, rems[0].Tier)

	assert.Empty(t, store.remindersFor(flagged.ID))
	assert.Empty(t, store.remindersFor(disabled.ID))
	assert.Empty(t, store.remindersFor(revoked.ID))
}

func TestGenerator_NoDuplicates(t *testing.T) {
	store := newMemStore()
	company := store.seedCompany("acme.test")
	worker := store.seedWorker(company, "jane@acme.test")
	cert := store.seedCert(worker, testToday.AddDate(0, 0, 10))

	g := NewGenerator(store, reminderStore{store}, zap.NewNop())

	for i := 0; i < 3; i++ {
		_, err := g.Generate(context.Background(), testToday)
		require.NoError(t, err)
	}

	rems := store.remindersFor(cert.ID)
	require.Len(t, rems, 1)
	assert.Equal(t, entity.Tier30Day, rems[0].Tier)
}

func TestGenerator_StoreUnavailable(t *testing.T) {
	t.Run("list", func(t *testing.T) {
		store := newMemStore()
		store.listErr = errStoreDown

		_, err := NewGenerator(store, reminderStore{store}, zap.NewNop()).Generate(context.Background(), testToday)
		assert.ErrorIs(t, err, entity.ErrStoreUnavailable)
		assert.ErrorIs(t, err, errStoreDown)
	})

	t.Run("create", func(t *testing.T) {
		store := newMemStore()
		company := store.seedCompany("acme.test")
		store.seedCert(store.seedWorker(company, "jane@acme.test"), testToday.AddDate(0, 0, 10))
		store.createErr = errStoreDown

		created, err := NewGenerator(store, reminderStore{store}, zap.NewNop()).Generate(context.Background(), testToday)
		assert.ErrorIs(t, err, entity.ErrStoreUnavailable)
		assert.Zero(t, created)
	})
}
