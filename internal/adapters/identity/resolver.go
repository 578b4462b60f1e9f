package identity

import (
	"net"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/vncsmyrnk/pollvote/internal/core/domain"
	"github.com/vncsmyrnk/pollvote/internal/core/ports"
)

const AccessTokenCookie = "access_token"

// JWTResolver reads an HS256 access token from the Authorization header or the
// access_token cookie. The token subject is the user id.
type JWTResolver struct {
	secret       []byte
	trustProxies bool
}

func NewJWTResolver(secret string, trustProxies bool) ports.IdentityResolver {
	return &JWTResolver{
		secret:       []byte(secret),
		trustProxies: trustProxies,
	}
}

func (r *JWTResolver) Resolve(req *http.Request) domain.Identity {
	address := ClientAddress(req, r.trustProxies)

	raw := bearerToken(req)
	if raw == "" || len(r.secret) == 0 {
		return domain.Anonymous(address)
	}

	userID, err := r.subject(raw)
	if err != nil {
		return domain.Anonymous(address)
	}
	return domain.Authenticated(userID, address)
}

func (r *JWTResolver) subject(raw string) (uuid.UUID, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		return r.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return uuid.Nil, err
	}

	sub, err := token.Claims.GetSubject()
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.Parse(sub)
}

func bearerToken(req *http.Request) string {
	if h := req.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if c, err := req.Cookie(AccessTokenCookie); err == nil {
		return c.Value
	}
	return ""
}

// ClientAddress returns the caller's IP. Forwarding headers are only honoured
// when the service sits behind a trusted proxy.
func ClientAddress(req *http.Request, trustProxies bool) string {
	if trustProxies {
		if xff := req.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
		if xri := strings.TrimSpace(req.Header.Get("X-Real-IP")); xri != "" {
			return xri
		}
	}

	ip, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}
	return ip
}
