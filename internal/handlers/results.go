package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"ihp-inventory/internal/middleware"
	"ihp-inventory/internal/utils"
)

const defaultTimeout = 5 * time.Second

// Server error codes for a stored value that cannot be read as a number.
const (
	codeTypeMismatch      = 14
	codeConversionFailure = 241
)

var validate = validator.New()

var errInvalidID = errors.New("invalid object id")

// Write results mirror the shape the driver reports, so clients see the same
// acknowledged/count fields the previous server returned.
type InsertResult struct {
	Acknowledged bool `json:"acknowledged"`
	InsertedID   any  `json:"insertedId"`
}

type UpdateResult struct {
	Acknowledged  bool  `json:"acknowledged"`
	MatchedCount  int64 `json:"matchedCount"`
	ModifiedCount int64 `json:"modifiedCount"`
}

type DeleteResult struct {
	Acknowledged bool  `json:"acknowledged"`
	DeletedCount int64 `json:"deletedCount"`
}

// dbContext derives the per-call database context from the request so a
// client disconnect cancels the query.
func dbContext(r *http.Request, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return context.WithTimeout(r.Context(), timeout)
}

func objectIDVar(r *http.Request, name string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(mux.Vars(r)[name])
	if err != nil {
		return primitive.NilObjectID, errInvalidID
	}
	return id, nil
}

func performedBy(ctx context.Context) string {
	if email := middleware.EmailFromContext(ctx); email != "" {
		return email
	}
	return "anonymous"
}

// serverError logs err against the request and answers with a generic 500.
func serverError(w http.ResponseWriter, r *http.Request, log *slog.Logger, message string, err error) {
	utils.LoggerFrom(r.Context(), log).Error(message,
		"error", err,
		"method", r.Method,
		"path", r.URL.Path)
	utils.JSONError(w, message, http.StatusInternalServerError)
}

func audit(ctx context.Context, r *http.Request, l *utils.Logger, log *slog.Logger, entity, action string, data any) {
	if err := l.Log(ctx, entity, action, performedBy(r.Context()), data); err != nil {
		utils.LoggerFrom(r.Context(), log).Warn("audit log write failed",
			"entity", entity,
			"action", action,
			"error", err)
	}
}

func emptyIfNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func isNonNumeric(err error) bool {
	var se mongo.ServerError
	return errors.As(err, &se) &&
		(se.HasErrorCode(codeConversionFailure) || se.HasErrorCode(codeTypeMismatch))
}
