package token

import (
	"testing"
	"time"

	"github.com/smallbiznis/glazeops/internal/auth/domain"
	"github.com/smallbiznis/glazeops/internal/clock"
	"github.com/smallbiznis/glazeops/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	fixed := clock.NewFakeClock(time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC))
	issuer := NewIssuer(config.Config{AuthJWTSecret: "s3cret", AuthTokenTTL: time.Hour}, fixed)

	raw, expiresAt, err := issuer.Issue(&domain.User{ID: 42, Email: "ops@example.com", Role: domain.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, fixed.Now().Add(time.Hour), expiresAt)

	principal, err := issuer.Parse(raw)
	require.NoError(t, err)
	assert.EqualValues(t, 42, principal.UserID)
	assert.Equal(t, domain.RoleAdmin, principal.Role)

	fixed.Advance(2 * time.Hour)
	_, err = issuer.Parse(raw)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestParseRejectsForeignTokens(t *testing.T) {
	fixed := clock.NewFakeClock(time.Now())
	ours := NewIssuer(config.Config{AuthJWTSecret: "ours"}, fixed)
	theirs := NewIssuer(config.Config{AuthJWTSecret: "theirs"}, fixed)

	raw, _, err := theirs.Issue(&domain.User{ID: 1, Role: domain.RoleStaff})
	require.NoError(t, err)

	_, err = ours.Parse(raw)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	_, err = ours.Parse("not-a-jwt")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestUnconfiguredSecret(t *testing.T) {
	issuer := NewIssuer(config.Config{}, clock.NewFakeClock(time.Now()))
	_, _, err := issuer.Issue(&domain.User{ID: 1})
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
}
