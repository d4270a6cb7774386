package service

import (
	"context"
	"testing"
	"time"

	auditdomain "github.com/smallbiznis/glazeops/internal/audit/domain"
	"github.com/smallbiznis/glazeops/internal/audit/repository"
	"github.com/smallbiznis/glazeops/internal/clock"
	obscontext "github.com/smallbiznis/glazeops/internal/observability/context"
	"github.com/smallbiznis/glazeops/internal/testutil"
	"github.com/smallbiznis/glazeops/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db := testutil.SetupTestDB(t)
	return NewService(Params{
		DB:    db,
		Log:   testutil.Logger(),
		GenID: testutil.NewNode(t),
		Clock: clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
	}).(*Service)
}

func TestAuditLogRecordsActorAndRequest(t *testing.T) {
	svc := newTestService(t)
	ctx := obscontext.WithActor(context.Background(), obscontext.ActorTypeAdmin, "42")
	ctx = obscontext.WithRequestID(ctx, "req-1")
	ctx = obscontext.WithClientIP(ctx, "10.0.0.8")

	require.NoError(t, svc.AuditLog(ctx, nil, "payment.verify", "payment", "99", map[string]any{"amount": "40.00"}))

	resp, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{TargetType: "payment"})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 1)
	entry := resp.AuditLogs[0]
	assert.Equal(t, "admin", entry.ActorType)
	require.NotNil(t, entry.ActorID)
	assert.Equal(t, "42", *entry.ActorID)
	assert.Equal(t, "10.0.0.8", entry.IPAddress)
	assert.Equal(t, "req-1", entry.Metadata["request_id"])
}

func TestAuditLogRejectsEmptyAction(t *testing.T) {
	svc := newTestService(t)
	err := svc.AuditLog(context.Background(), nil, " ", "payment", "1", nil)
	assert.ErrorIs(t, err, auditdomain.ErrInvalidAction)
}

func TestListPages(t *testing.T) {
	svc := newTestService(t)
	for i := 0; i < 3; i++ {
		require.NoError(t, svc.AuditLog(context.Background(), nil, "settings.update", "settings", "paypal", nil))
	}

	first, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{Pagination: pagination.Pagination{PageSize: 2}})
	require.NoError(t, err)
	assert.Len(t, first.AuditLogs, 2)
	assert.True(t, first.HasMore)

	second, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{Pagination: pagination.Pagination{PageSize: 2, PageToken: first.NextPageToken}})
	require.NoError(t, err)
	assert.Len(t, second.AuditLogs, 1)
	assert.False(t, second.HasMore)

	_, err = svc.List(context.Background(), auditdomain.ListAuditLogRequest{Pagination: pagination.Pagination{PageToken: "%%%"}})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidPageToken)
}
