package audit

import (
	"context"
	"testing"
	"time"

	"erpcore/internal/metrics"
	"erpcore/internal/models"
	"erpcore/internal/store"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSweepRemovesOnlyOldRows(t *testing.T) {
	mem := store.NewMemory()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, mem.Audit().CreateBatch(context.Background(), []models.AuditLog{
		{EntityType: EntityUser, EntityID: "1", FieldName: "Phone", ChangedAt: now.AddDate(0, 0, -40)},
		{EntityType: EntityUser, EntityID: "1", FieldName: "Email", ChangedAt: now.AddDate(0, 0, -10)},
	}))

	m := metrics.Nop()
	s := NewSweeper(mem.Audit(), 30, "@daily", zap.NewNop().Sugar(), m)
	s.now = func() time.Time { return now }

	n, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuditPurged))

	_, total, err := mem.Audit().Query(context.Background(), store.AuditFilter{}, models.Page{Number: 1, Size: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

func TestSweeperDisabledByDefault(t *testing.T) {
	mem := store.NewMemory()
	s := NewSweeper(mem.Audit(), 0, "0 3 * * *", zap.NewNop().Sugar(), metrics.Nop())
	assert.False(t, s.Enabled())
	require.NoError(t, s.Start())
	n, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	s.Stop()
}

func TestSweeperRejectsBadSchedule(t *testing.T) {
	s := NewSweeper(store.NewMemory().Audit(), 7, "not a schedule", zap.NewNop().Sugar(), metrics.Nop())
	assert.Error(t, s.Start())

	ok := NewSweeper(store.NewMemory().Audit(), 7, "0 3 * * *", zap.NewNop().Sugar(), metrics.Nop())
	require.NoError(t, ok.Start())
	ok.Stop()
}
