package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"

	"ihp-inventory/internal/constants"
	"ihp-inventory/internal/middleware"
	"ihp-inventory/internal/models"
	"ihp-inventory/internal/utils"
)

type UserHandler struct {
	Collection  *mongo.Collection
	AuditLogger *utils.Logger
	Log         *slog.Logger
	Timeout     time.Duration
	// Admins are the bootstrap admin emails from configuration. They sign in
	// with the configured admin password and cannot be registered.
	Admins []string
	// PasswordCost is the bcrypt cost; zero means bcrypt.DefaultCost.
	PasswordCost int
}

// hideHash keeps password hashes out of user reads.
var hideHash = bson.M{models.PasswordHashField: 0}

func NewUserHandler(coll *mongo.Collection, audit *utils.Logger, log *slog.Logger) *UserHandler {
	return &UserHandler{Collection: coll, AuditLogger: audit, Log: log}
}

// POST /users
//
// Registration is a single upsert guarded by the unique email index: the
// document is only written when no user with that email exists.
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var user models.Document
	if err := utils.DecodeObject(r, &user); err != nil {
		utils.JSONError(w, "Invalid user data", http.StatusBadRequest)
		return
	}

	email := models.UserEmail(user)
	if err := validate.Var(email, "required,email"); err != nil {
		utils.JSONError(w, "Invalid user data", http.StatusBadRequest)
		return
	}
	if slices.Contains(h.Admins, email) {
		utils.JSONError(w, "Email is reserved", http.StatusConflict)
		return
	}

	user = models.SanitizeUser(user)
	user["email"] = email

	cost := h.PasswordCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if err := models.HashPassword(user, cost); err != nil {
		if errors.Is(err, models.ErrInvalidPassword) {
			utils.JSONError(w, "Invalid user data", http.StatusBadRequest)
			return
		}
		serverError(w, r, h.Log, "Server error while adding user", err)
		return
	}

	ctx, cancel := dbContext(r, h.Timeout)
	defer cancel()

	res, err := h.Collection.UpdateOne(ctx,
		bson.M{"email": email},
		bson.M{"$setOnInsert": user},
		options.Update().SetUpsert(true),
	)
	if mongo.IsDuplicateKeyError(err) || (err == nil && res.UpsertedCount == 0) {
		utils.JSONError(w, "User already exists", http.StatusConflict)
		return
	}
	if err != nil {
		serverError(w, r, h.Log, "Server error while adding user", err)
		return
	}

	audit(ctx, r, h.AuditLogger, h.Log, models.UserEntity, constants.Create, models.PublicUser(user))

	utils.WriteJSON(w, http.StatusCreated, InsertResult{Acknowledged: true, InsertedID: res.UpsertedID})
}

// GET /users
func (h *UserHandler) GetUsers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := dbContext(r, h.Timeout)
	defer cancel()

	cursor, err := h.Collection.Find(ctx, bson.M{}, options.Find().SetProjection(hideHash))
	if err != nil {
		serverError(w, r, h.Log, "Failed to fetch users", err)
		return
	}
	defer cursor.Close(ctx)

	var users []models.Document
	if err = cursor.All(ctx, &users); err != nil {
		serverError(w, r, h.Log, "Error decoding users", err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, emptyIfNil(users))
}

// GET /users/{email}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	email := mux.Vars(r)["email"]

	ctx, cancel := dbContext(r, h.Timeout)
	defer cancel()

	var user models.Document
	err := h.Collection.FindOne(ctx, bson.M{"email": email},
		options.FindOne().SetProjection(hideHash)).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		utils.JSONError(w, "User not found", http.StatusNotFound)
		return
	}
	if err != nil {
		serverError(w, r, h.Log, "Failed to fetch user", err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, user)
}

// GET /users/admin/{email}
//
// Callers may only ask about themselves.
func (h *UserHandler) CheckAdmin(w http.ResponseWriter, r *http.Request) {
	email := mux.Vars(r)["email"]
	if caller := middleware.EmailFromContext(r.Context()); caller != "" && caller != email {
		utils.JSONError(w, middleware.ErrForbidden.Error(), http.StatusForbidden)
		return
	}

	if slices.Contains(h.Admins, email) {
		utils.WriteJSON(w, http.StatusOK, map[string]bool{"admin": true})
		return
	}

	ctx, cancel := dbContext(r, h.Timeout)
	defer cancel()

	var user models.Document
	err := h.Collection.FindOne(ctx, bson.M{"email": email},
		options.FindOne().SetProjection(bson.M{"role": 1})).Decode(&user)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		serverError(w, r, h.Log, "Failed to fetch user", err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]bool{"admin": models.IsAdmin(user)})
}

// PATCH /users/admin/{email}
func (h *UserHandler) PromoteUser(w http.ResponseWriter, r *http.Request) {
	email := mux.Vars(r)["email"]

	ctx, cancel := dbContext(r, h.Timeout)
	defer cancel()

	res, err := h.Collection.UpdateOne(ctx,
		bson.M{"email": email},
		bson.M{"$set": bson.M{"role": models.RoleAdmin}},
	)
	if err != nil {
		serverError(w, r, h.Log, "Server error while updating user", err)
		return
	}
	if res.MatchedCount == 0 {
		utils.JSONError(w, "User not found", http.StatusNotFound)
		return
	}

	audit(ctx, r, h.AuditLogger, h.Log, models.UserEntity, constants.Promote, email)

	utils.WriteJSON(w, http.StatusOK, UpdateResult{
		Acknowledged:  true,
		MatchedCount:  res.MatchedCount,
		ModifiedCount: res.ModifiedCount,
	})
}
