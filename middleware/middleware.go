// Package middleware provides HTTP authentication and authorization
// middleware for gatehouse, in net/http and forge flavours.
//
// Authenticate reads the bearer token and stores the principal in the
// request context. The gates that follow read it back from there:
//
//	h := middleware.Authenticate(issuer)(
//		middleware.SessionHandler(eng)(
//			middleware.AuthorizeHandler(eng, "DeleteUser")(next)))
package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"

	"github.com/xraph/forge"

	"github.com/xraph/gatehouse"
	"github.com/xraph/gatehouse/auth"
)

// Denial is the JSON body written when a gate rejects a request.
type Denial struct {
	Error              string   `json:"error"`
	Action             string   `json:"action,omitempty"`
	MissingRoles       []string `json:"missing_roles"`
	MissingPermissions []string `json:"missing_permissions"`
	Require            string   `json:"require"`
}

// gate decides a request for the principal found in ctx.
type gate func(ctx context.Context, p *gatehouse.Principal) (*gatehouse.Decision, error)

// AuthOption configures Authenticate.
type AuthOption func(*authConfig)

type authConfig struct {
	trusted []netip.Prefix
}

// WithTrustedProxies makes Authenticate read the client address from
// X-Forwarded-For when the peer is one of the given networks. Without it
// the header is ignored.
func WithTrustedProxies(proxies ...netip.Prefix) AuthOption {
	return func(c *authConfig) { c.trusted = append(c.trusted, proxies...) }
}

// ParseTrustedProxies parses addresses ("10.0.0.1") and networks
// ("10.0.0.0/8") for WithTrustedProxies.
func ParseTrustedProxies(entries []string) ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(entries))
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if p, err := netip.ParsePrefix(e); err == nil {
			out = append(out, p.Masked())
			continue
		}
		a, err := netip.ParseAddr(e)
		if err != nil {
			return nil, fmt.Errorf("middleware: trusted proxy %q: %w", e, err)
		}
		out = append(out, netip.PrefixFrom(a, a.BitLen()))
	}
	return out, nil
}

// Authenticate parses an "Authorization: Bearer" token and stores the
// principal in the request context. Requests without the header continue
// anonymously; a malformed or invalid token is rejected with 401.
func Authenticate(issuer *auth.Issuer, opts ...AuthOption) func(http.Handler) http.Handler {
	cfg := &authConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := gatehouse.WithRequestIP(r.Context(), clientIP(r, cfg.trusted))

			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				w.Header().Set("Content-Type", "application/json")
				writeError(w, http.StatusUnauthorized, "malformed authorization header")
				return
			}
			p, err := issuer.Parse(token)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			next.ServeHTTP(w, r.WithContext(gatehouse.WithPrincipal(ctx, p)))
		})
	}
}

// SessionHandler rejects authenticated requests whose session has ended.
func SessionHandler(eng *gatehouse.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			valid, err := eng.ValidateSession(r.Context(), PrincipalFrom(r.Context()))
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			if !valid {
				w.Header().Set("Content-Type", "application/json")
				writeError(w, http.StatusUnauthorized, "session expired")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AuthorizeHandler runs the role/permission gate of an action.
func AuthorizeHandler(eng *gatehouse.Engine, action string) func(http.Handler) http.Handler {
	return httpGate(actionGate(eng, action))
}

// RouteAction names the action of a route: "METHOD /path/template".
func RouteAction(method, path string) string {
	return strings.ToUpper(method) + " " + path
}

// ──────────────────────────────────────────────────
// Forge middleware
// ──────────────────────────────────────────────────

// Session is the forge flavour of SessionHandler.
func Session(eng *gatehouse.Engine) forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			valid, err := eng.ValidateSession(ctx.Context(), PrincipalFrom(ctx.Context()))
			if err != nil {
				return err
			}
			if !valid {
				ctx.SetHeader("Content-Type", "application/json")
				return writeError(ctx.Response(), http.StatusUnauthorized, "session expired")
			}
			return next(ctx)
		}
	}
}

// Authorize enforces the requirements registered for an action.
func Authorize(eng *gatehouse.Engine, action string) forge.Middleware {
	return forgeGate(actionGate(eng, action))
}

// AuthorizeRoute enforces the requirements registered under the route's
// action name (see RouteAction).
func AuthorizeRoute(eng *gatehouse.Engine, method, path string) forge.Middleware {
	return Authorize(eng, RouteAction(method, path))
}

// RequireRoles admits callers holding every listed role.
func RequireRoles(eng *gatehouse.Engine, roles ...string) forge.Middleware {
	return forgeGate(func(ctx context.Context, p *gatehouse.Principal) (*gatehouse.Decision, error) {
		return eng.CheckRoles(ctx, p, roles...)
	})
}

// RequirePermissions admits callers holding every listed permission.
func RequirePermissions(eng *gatehouse.Engine, perms ...string) forge.Middleware {
	return forgeGate(func(ctx context.Context, p *gatehouse.Principal) (*gatehouse.Decision, error) {
		return eng.CheckPermissions(ctx, p, perms...)
	})
}

// RequireAnyPermission admits callers holding at least one listed
// permission.
func RequireAnyPermission(eng *gatehouse.Engine, perms ...string) forge.Middleware {
	return forgeGate(func(ctx context.Context, p *gatehouse.Principal) (*gatehouse.Decision, error) {
		return eng.CheckAnyPermission(ctx, p, perms...)
	})
}

// PrincipalFrom returns the caller stored by Authenticate. Inside a forge
// app that authenticates on its own, a numeric forge user ID is used
// instead; such principals carry no claims, so pair them with the store
// validator.
func PrincipalFrom(ctx context.Context) *gatehouse.Principal {
	if p := gatehouse.PrincipalFromContext(ctx); p != nil {
		return p
	}
	uid, err := strconv.ParseInt(forge.UserIDFromContext(ctx), 10, 64)
	if err != nil || uid <= 0 {
		return nil
	}
	tenant, _ := gatehouse.TenantFromContext(ctx)
	return &gatehouse.Principal{UserID: uid, TenantID: tenant}
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func actionGate(eng *gatehouse.Engine, action string) gate {
	return func(ctx context.Context, p *gatehouse.Principal) (*gatehouse.Decision, error) {
		return eng.Authorize(ctx, p, action)
	}
}

func httpGate(g gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d, err := g(r.Context(), PrincipalFrom(r.Context()))
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			if !d.Allowed {
				w.Header().Set("Content-Type", "application/json")
				_ = writeDenial(w, d)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func forgeGate(g gate) forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			d, err := g(ctx.Context(), PrincipalFrom(ctx.Context()))
			if err != nil {
				return err
			}
			if !d.Allowed {
				ctx.SetHeader("Content-Type", "application/json")
				return writeDenial(ctx.Response(), d)
			}
			return next(ctx)
		}
	}
}

type statusWriter interface {
	io.Writer
	WriteHeader(code int)
}

// NewDenial builds the rejection body of a decision.
func NewDenial(d *gatehouse.Decision) *Denial {
	body := &Denial{
		Error:              "access denied",
		Action:             d.Action,
		MissingRoles:       d.MissingRoles,
		MissingPermissions: d.MissingPermissions,
		Require:            string(d.Require),
	}
	if body.MissingRoles == nil {
		body.MissingRoles = []string{}
	}
	if body.MissingPermissions == nil {
		body.MissingPermissions = []string{}
	}
	if body.Require == "" {
		body.Require = string(gatehouse.RequireAll)
	}
	return body
}

func writeDenial(w statusWriter, d *gatehouse.Decision) error {
	w.WriteHeader(http.StatusUnauthorized)
	return json.NewEncoder(w).Encode(NewDenial(d))
}

func writeError(w statusWriter, code int, msg string) error {
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// clientIP returns the peer address. Behind a trusted proxy it walks
// X-Forwarded-For from the right and returns the first hop that is not
// itself trusted.
func clientIP(r *http.Request, trusted []netip.Prefix) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if len(trusted) == 0 || !isTrusted(host, trusted) {
		return host
	}
	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		if !isTrusted(hop, trusted) {
			return hop
		}
		host = hop
	}
	return host
}

func isTrusted(addr string, trusted []netip.Prefix) bool {
	a, err := netip.ParseAddr(addr)
	if err != nil {
		return false
	}
	a = a.Unmap()
	for _, p := range trusted {
		if p.Contains(a) {
			return true
		}
	}
	return false
}
