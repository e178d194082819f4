package shared

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

type captureExecer struct {
	sql  string
	args []any
}

func (c *captureExecer) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	c.sql = sql
	c.args = args
	return pgconn.CommandTag{}, nil
}

func TestAuditRecordDefaultsTimestamp(t *testing.T) {
	exec := &captureExecer{}
	logger := NewAuditLogger(exec)

	before := time.Now()
	err := logger.Record(context.Background(), AuditLog{
		ActorID:  uuid.New(),
		Action:   "CREATE",
		Entity:   "performance_records",
		EntityID: uuid.NewString(),
	})
	require.NoError(t, err)

	require.Len(t, exec.args, 6)
	at, ok := exec.args[5].(time.Time)
	require.True(t, ok)
	require.False(t, at.IsZero())
	require.False(t, at.Before(before))
	require.False(t, at.After(time.Now()))
}

func TestAuditRecordKeepsExplicitTimestamp(t *testing.T) {
	exec := &captureExecer{}
	logger := NewAuditLogger(exec)

	at := time.Date(2025, 10, 13, 8, 30, 0, 0, time.UTC)
	err := logger.Record(context.Background(), AuditLog{
		ActorID:  uuid.New(),
		Action:   "UPDATE",
		Entity:   "announcements",
		EntityID: uuid.NewString(),
		At:       at,
	})
	require.NoError(t, err)
	require.Equal(t, at, exec.args[5])
}

func TestAuditRecordRejectsIncompleteEntry(t *testing.T) {
	exec := &captureExecer{}
	logger := NewAuditLogger(exec)

	err := logger.Record(context.Background(), AuditLog{Entity: "profiles"})
	require.Error(t, err)
	require.Empty(t, exec.sql)
}
