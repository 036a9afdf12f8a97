package handlers

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ihp-inventory/internal/middleware"
	"ihp-inventory/internal/models"
	"ihp-inventory/internal/utils"
)

type AuthHandler struct {
	Users   *mongo.Collection
	Issuer  *utils.TokenIssuer
	Log     *slog.Logger
	Timeout time.Duration

	// Bootstrap admins are not looked up; they must present AdminPassword.
	Admins        []string
	AdminPassword string
}

type TokenRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

// POST /jwt issues an access token to a caller who proves the password of a
// registered user or, for bootstrap admin emails, the configured admin
// password.
func (a *AuthHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := utils.DecodeObject(r, &req); err != nil {
		utils.JSONError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		utils.JSONError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	ok, err := a.verify(r, req)
	if err != nil {
		serverError(w, r, a.Log, "Server error while issuing token", err)
		return
	}
	if !ok {
		utils.LoggerFrom(r.Context(), a.Log).Info("token refused", "email", req.Email)
		utils.JSONError(w, middleware.ErrUnauthorized.Error(), http.StatusUnauthorized)
		return
	}

	token, err := a.Issuer.GenerateJWT(req.Email)
	if err != nil {
		serverError(w, r, a.Log, "Server error while issuing token", err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, TokenResponse{Token: token})
}

func (a *AuthHandler) verify(r *http.Request, req TokenRequest) (bool, error) {
	if slices.Contains(a.Admins, req.Email) {
		return a.AdminPassword != "" &&
			subtle.ConstantTimeCompare([]byte(req.Password), []byte(a.AdminPassword)) == 1, nil
	}

	ctx, cancel := dbContext(r, a.Timeout)
	defer cancel()

	var user models.Document
	err := a.Users.FindOne(ctx, bson.M{"email": req.Email},
		options.FindOne().SetProjection(bson.M{models.PasswordHashField: 1})).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return models.PasswordMatches(user, req.Password), nil
}
