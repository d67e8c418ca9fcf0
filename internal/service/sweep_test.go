package service

import (
	"context"
	"testing"

	"certalert/internal/entity"
	"certalert/internal/metrics"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSweeper_Sweep(t *testing.T) {
	store := newMemStore()
	company := store.seedCompany("acme.test")
	worker := store.seedWorker(company, "jane@acme.test")
	cert := store.seedCert(worker, testToday)
	later := store.seedCert(worker, testToday.AddDate(0, 0, 1))

	transport := &recordingTransport{}
	sweeper := NewSweeper(store, reminderStore{store}, newTestDispatcher(t, store, transport), nil, zap.NewNop())

	res, err := sweeper.Sweep(context.Background(), testToday)
	require.NoError(t, err)
	assert.Equal(t, 1, res.RemindersCreated)
	assert.Equal(t, 1, res.EmailsSent)
	assert.Empty(t, res.Errors)

	got := store.cert(cert.ID)
	assert.Equal(t, entity.CertificationExpired, got.Status)
	assert.True(t, got.AlertExpiredSent)

	rems := store.remindersFor(cert.ID)
	require.Len(t, rems, 1)
	assert.Equal(t, entity.TierExpired, rems[0].Tier)
	assert.Equal(t, entity.ReminderSent, rems[0].Status)

	assert.Equal(t, entity.CertificationActive, store.cert(later.ID).Status)

	msgs := transport.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].TextBody, "status has been changed to expired")

	res, err = sweeper.Sweep(context.Background(), testToday)
	require.NoError(t, err)
	assert.Zero(t, res.RemindersCreated)
	assert.Zero(t, res.EmailsSent)
	assert.Len(t, store.remindersFor(cert.ID), 1)
	assert.Len(t, transport.messages(), 1)
}

func TestSweeper_ExistingReminderOnlyTransitions(t *testing.T) {
	store := newMemStore()
	company := store.seedCompany("acme.test")
	cert := store.seedCert(store.seedWorker(company, "jane@acme.test"), testToday)
	store.seedPending(cert, entity.TierExpired, testToday)

	transport := &recordingTransport{}
	sweeper := NewSweeper(store, reminderStore{store}, newTestDispatcher(t, store, transport), nil, zap.NewNop())

	res, err := sweeper.Sweep(context.Background(), testToday)
	require.NoError(t, err)
	assert.Zero(t, res.RemindersCreated)
	assert.Empty(t, transport.messages())
	assert.Equal(t, entity.CertificationExpired, store.cert(cert.ID).Status)
	assert.Len(t, store.remindersFor(cert.ID), 1)
}

func TestSweeper_DeliveryFailureIsCounted(t *testing.T) {
	store := newMemStore()
	company := store.seedCompany("acme.test")
	cert := store.seedCert(store.seedWorker(company, "jane@acme.test"), testToday)

	transport := &recordingTransport{failFor: map[string]error{"jane@acme.test": errStoreDown}}
	sweeper := NewSweeper(store, reminderStore{store}, newTestDispatcher(t, store, transport), nil, zap.NewNop())

	res, err := sweeper.Sweep(context.Background(), testToday)
	require.NoError(t, err)
	assert.Equal(t, 1, res.RemindersCreated)
	assert.Equal(t, 1, res.EmailsFailed)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "[transport]")

	got := store.cert(cert.ID)
	assert.Equal(t, entity.CertificationExpired, got.Status)
	assert.False(t, got.AlertExpiredSent)
}

// lostRaceStore reports that another run already moved the certification out of active.
type lostRaceStore struct{ *memStore }

func (s lostRaceStore) Expire(ctx context.Context, id uuid.UUID) (bool, error) {
	if _, err := s.memStore.Expire(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func TestSweeper_CountsTransitions(t *testing.T) {
	expired := metrics.SweepTransitions.WithLabelValues("expired")
	unchanged := metrics.SweepTransitions.WithLabelValues("unchanged")

	t.Run("transitioned", func(t *testing.T) {
		store := newMemStore()
		company := store.seedCompany("acme.test")
		store.seedCert(store.seedWorker(company, "jane@acme.test"), testToday)

		before, beforeUnchanged := testutil.ToFloat64(expired), testutil.ToFloat64(unchanged)

		sweeper := NewSweeper(store, reminderStore{store}, newTestDispatcher(t, store, &recordingTransport{}), nil, zap.NewNop())
		_, err := sweeper.Sweep(context.Background(), testToday)
		require.NoError(t, err)

		assert.Equal(t, before+1, testutil.ToFloat64(expired))
		assert.Equal(t, beforeUnchanged, testutil.ToFloat64(unchanged))
	})

	t.Run("already left active", func(t *testing.T) {
		store := newMemStore()
		company := store.seedCompany("acme.test")
		cert := store.seedCert(store.seedWorker(company, "jane@acme.test"), testToday)

		before, beforeUnchanged := testutil.ToFloat64(expired), testutil.ToFloat64(unchanged)

		sweeper := NewSweeper(lostRaceStore{store}, reminderStore{store}, newTestDispatcher(t, store, &recordingTransport{}), nil, zap.NewNop())
		res, err := sweeper.Sweep(context.Background(), testToday)
		require.NoError(t, err)
		assert.Empty(t, res.Errors)

		assert.Equal(t, before, testutil.ToFloat64(expired))
		assert.Equal(t, beforeUnchanged+1, testutil.ToFloat64(unchanged))
		assert.Equal(t, entity.CertificationExpired, store.cert(cert.ID).Status)
	})
}
