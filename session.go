package gatehouse

import (
	"context"
	"time"

	"github.com/xraph/gatehouse/user"
)

// ValidateSession runs the session gate. Anonymous principals pass; an
// authenticated one is valid only while its user is logged in and its
// token was issued after the user's last logout.
func (e *Engine) ValidateSession(ctx context.Context, p *Principal) (bool, error) {
	if !p.HasClaims() {
		return true, nil
	}
	ctx = e.scoped(principalContext(ctx, p))
	u, err := e.store.GetUser(ctx, p.UserID)
	if err != nil {
		return false, wrap("validate session", err)
	}
	if u == nil {
		return false, nil
	}
	return SessionValid(u, p.IssuedAt), nil
}

// SessionValid reports whether a token issued at issuedAt is still valid
// for u. Times are compared at whole-second precision, the precision of a
// token's iat claim, so a token issued in the same second as a logout is
// invalid.
func SessionValid(u *user.User, issuedAt time.Time) bool {
	if u == nil || !u.LoggedIn {
		return false
	}
	if u.LastLogOut == nil {
		return true
	}
	return issuedAt.Truncate(time.Second).After(u.LastLogOut.Truncate(time.Second))
}
