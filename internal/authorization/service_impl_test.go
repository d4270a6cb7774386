package authorization

import (
	"context"
	"testing"

	"github.com/smallbiznis/glazeops/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	db := testutil.SetupTestDB(t)
	enforcer, err := NewEnforcer(db)
	require.NoError(t, err)
	return NewService(Params{DB: db, Log: testutil.Logger(), Enforcer: enforcer})
}

func TestAuthorizeByRole(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	staff := Actor{UserID: "1001", Role: "staff"}
	admin := Actor{UserID: "1002", Role: "admin"}

	assert.NoError(t, svc.Authorize(ctx, staff, ObjectPayment, ActionPaymentSubmit))
	assert.ErrorIs(t, svc.Authorize(ctx, staff, ObjectPayment, ActionPaymentReview), ErrForbidden)
	assert.ErrorIs(t, svc.Authorize(ctx, staff, ObjectSettings, ActionSettingsManage), ErrForbidden)

	assert.NoError(t, svc.Authorize(ctx, admin, ObjectPayment, ActionPaymentReview))
	assert.NoError(t, svc.Authorize(ctx, admin, ObjectSettings, ActionSettingsManage))
	assert.NoError(t, svc.Authorize(ctx, admin, ObjectCampaign, ActionCampaignSend))
}

func TestRoleChangeTakesEffect(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Authorize(ctx, Actor{UserID: "7", Role: "admin"}, ObjectUser, ActionUserManage))
	assert.ErrorIs(t, svc.Authorize(ctx, Actor{UserID: "7", Role: "staff"}, ObjectUser, ActionUserManage), ErrForbidden)
}

func TestAuthorizeRejectsBadInput(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Authorize(ctx, Actor{UserID: "abc", Role: "admin"}, ObjectUser, ActionView), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, Actor{UserID: "1", Role: "admin"}, "", ActionView), ErrInvalidObject)
	assert.ErrorIs(t, svc.Authorize(ctx, Actor{UserID: "1", Role: "admin"}, ObjectUser, " "), ErrInvalidAction)
	assert.ErrorIs(t, svc.Authorize(ctx, Actor{UserID: "1"}, ObjectUser, ActionView), ErrForbidden)
}

func TestSeedIsIdempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	_, err := NewEnforcer(db)
	require.NoError(t, err)
	first := testutil.Count(t, db, "casbin_rule", "")
	_, err = NewEnforcer(db)
	require.NoError(t, err)
	assert.Equal(t, first, testutil.Count(t, db, "casbin_rule", ""))
}
