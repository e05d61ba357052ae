package api

import (
	"net/http"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/gin-gonic/gin"

	"github.com/Aidin1998/foodhub/common/apiutil"
	"github.com/Aidin1998/foodhub/internal/identity"
	"github.com/Aidin1998/foodhub/pkg/errors"
)

const identityKey = "identity"

var (
	headerToken = jwtmiddleware.AuthHeaderTokenExtractor
	// Browsers cannot set headers on a websocket upgrade, so /ws also
	// accepts ?token=.
	headerOrQueryToken = jwtmiddleware.MultiTokenExtractor(
		jwtmiddleware.AuthHeaderTokenExtractor,
		jwtmiddleware.ParameterTokenExtractor("token"),
	)
)

// authMiddleware verifies the caller's token and stores its identity on the
// context.
func (s *Server) authMiddleware(extractor jwtmiddleware.TokenExtractor) gin.HandlerFunc {
	return func(c *gin.Context) {
		var authErr error
		middleware := jwtmiddleware.New(
			s.deps.Tokens.ValidateToken,
			jwtmiddleware.WithTokenExtractor(extractor),
			jwtmiddleware.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
				authErr = err
			}),
		)

		passed := false
		var handler http.HandlerFunc = func(w http.ResponseWriter, r *http.Request) {
			id, err := identity.FromClaims(r.Context().Value(jwtmiddleware.ContextKey{}))
			if err != nil {
				authErr = err
				return
			}
			passed = true
			c.Request = r
			c.Set(identityKey, *id)
			c.Next()
		}

		middleware.CheckJWT(handler).ServeHTTP(c.Writer, c.Request)

		if !passed {
			apiutil.Error(c, unauthorized(authErr))
		}
	}
}

func unauthorized(err error) error {
	var kind *errors.Error
	switch {
	case errors.As(err, &kind):
		return err
	case errors.Is(err, jwtmiddleware.ErrJWTMissing):
		return errors.Unauthorized.Explain("authorization token required")
	case err == nil:
		return errors.Unauthorized.Explain("invalid token")
	default:
		return errors.Unauthorized.Explain("invalid token").Wrap(err)
	}
}

func requireOperator() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !callerOf(c).IsOperator() {
			apiutil.Error(c, errors.Forbidden.Explain("operator access required"))
			return
		}
		c.Next()
	}
}

func callerOf(c *gin.Context) identity.Identity {
	if v, ok := c.Get(identityKey); ok {
		if id, ok := v.(identity.Identity); ok {
			return id
		}
	}
	return identity.Identity{}
}
