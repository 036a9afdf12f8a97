package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ihp-inventory/internal/models"
	"ihp-inventory/internal/utils"
)

type contextKey string

const ContextEmail contextKey = "email"

var (
	ErrUnauthorized = errors.New("unauthorized access")
	ErrForbidden    = errors.New("forbidden access")
)

// Gate is a capability check run before a handler. It either allows the
// request, returning the context the handler should see, or denies it.
// Denials wrap ErrUnauthorized or ErrForbidden; any other error is treated
// as a server failure.
type Gate interface {
	Check(r *http.Request) (context.Context, error)
}

type GateFunc func(r *http.Request) (context.Context, error)

func (f GateFunc) Check(r *http.Request) (context.Context, error) { return f(r) }

// AllowAll lets every request through.
var AllowAll Gate = GateFunc(func(r *http.Request) (context.Context, error) {
	return r.Context(), nil
})

// Require runs the gates in order and stops at the first denial.
func Require(gates ...Gate) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, g := range gates {
				ctx, err := g.Check(r)
				if err != nil {
					denied(w, r, err)
					return
				}
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func denied(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrUnauthorized):
		utils.JSONError(w, ErrUnauthorized.Error(), http.StatusUnauthorized)
	case errors.Is(err, ErrForbidden):
		utils.JSONError(w, ErrForbidden.Error(), http.StatusForbidden)
	default:
		utils.LoggerFrom(r.Context(), nil).Error("access check failed", "error", err)
		utils.JSONError(w, "Server error while checking access", http.StatusInternalServerError)
	}
	authDenials.WithLabelValues(routeName(r), fmt.Sprint(statusForDenial(err))).Inc()
}

func statusForDenial(err error) int {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// EmailFromContext returns the email of the caller verified by VerifyJWT.
func EmailFromContext(ctx context.Context) string {
	email, _ := ctx.Value(ContextEmail).(string)
	return email
}

// VerifyJWT accepts requests carrying a valid bearer token and stores the
// token's email in the request context.
func VerifyJWT(issuer *utils.TokenIssuer) Gate {
	return GateFunc(func(r *http.Request) (context.Context, error) {
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			return nil, ErrUnauthorized
		}
		tokenStr := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))

		claims, err := issuer.ParseJWT(tokenStr)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
		}
		return context.WithValue(r.Context(), ContextEmail, claims.Email), nil
	})
}

// VerifyAdmin must run after VerifyJWT. The caller is an admin when listed in
// bootstrap or when their user document has role "admin".
func VerifyAdmin(users *mongo.Collection, bootstrap []string, timeout time.Duration) Gate {
	return GateFunc(func(r *http.Request) (context.Context, error) {
		email := EmailFromContext(r.Context())
		if email == "" {
			return nil, ErrUnauthorized
		}
		if slices.Contains(bootstrap, email) {
			return r.Context(), nil
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		var user models.Document
		err := users.FindOne(ctx, bson.M{"email": email},
			options.FindOne().SetProjection(bson.M{"role": 1})).Decode(&user)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrForbidden
		}
		if err != nil {
			return nil, fmt.Errorf("load user role: %w", err)
		}
		if !models.IsAdmin(user) {
			return nil, ErrForbidden
		}
		return r.Context(), nil
	})
}
