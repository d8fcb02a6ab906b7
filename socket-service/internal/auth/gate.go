package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jevah-app/jevahapp-backend-sub001/pkg/log"
	"github.com/jevah-app/jevahapp-backend-sub001/pkg/middleware"
	"github.com/jevah-app/jevahapp-backend-sub001/pkg/response"
	"github.com/jevah-app/jevahapp-backend-sub001/socket-service/internal/domain"
	"github.com/jevah-app/jevahapp-backend-sub001/socket-service/internal/store"
)

// QueryTokenKey is the handshake query parameter carrying the access token.
const QueryTokenKey = "token"

// Gate authenticates a connection before it is admitted.
type Gate struct {
	verifier middleware.TokenValidator
	accounts store.AccountStore
	timeout  time.Duration
}

func NewGate(verifier middleware.TokenValidator, accounts store.AccountStore, timeout time.Duration) *Gate {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Gate{verifier: verifier, accounts: accounts, timeout: timeout}
}

// TokenFromRequest reads the token from the handshake query, then the Authorization header.
func TokenFromRequest(r *http.Request) string {
	if token := strings.TrimSpace(r.URL.Query().Get(QueryTokenKey)); token != "" {
		return token
	}
	return middleware.BearerToken(r.Header.Get(middleware.AuthHeaderKey))
}

// Verify checks the token signature and expiry only, returning its user id.
func (g *Gate) Verify(token string) (string, error) {
	if token == "" {
		return "", domain.ErrAuthenticationRequired
	}
	claims, err := g.verifier.ValidateToken(token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrAuthenticationFailed, err)
	}
	return claims.Identity(), nil
}

// Authenticate verifies token and loads the account it refers to.
func (g *Gate) Authenticate(ctx context.Context, token string) (domain.Identity, error) {
	if token == "" {
		return domain.Identity{}, domain.ErrAuthenticationRequired
	}

	claims, err := g.verifier.ValidateToken(token)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %v", domain.ErrAuthenticationFailed, err)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	account, err := g.accounts.FindUserByID(ctx, claims.Identity())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrInvalidID) {
			return domain.Identity{}, domain.ErrAccountNotFound
		}
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldUserID, claims.Identity()).Msg("account lookup failed")
		return domain.Identity{}, fmt.Errorf("%w: account lookup: %v", domain.ErrAuthenticationFailed, err)
	}

	identity := account.Identity()
	if identity.Email == "" {
		identity.Email = claims.Email
	}
	if identity.Role == "" {
		identity.Role = claims.Role
	}
	return identity, nil
}

// Reject answers a refused handshake with 401 and the error's code.
func Reject(c *gin.Context, err error) {
	code := domain.AuthCode(err)
	var message string
	switch code {
	case domain.CodeAuthenticationRequired:
		message = "Authentication required"
	case domain.CodeAccountNotFound:
		message = "Account not found"
	default:
		message = "Authentication failed"
	}
	response.Abort(c, http.StatusUnauthorized, code, message)
}
