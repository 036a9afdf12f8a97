package models

import (
	"errors"
	"fmt"
	"maps"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/crypto/bcrypt"
)

// Users and writers are schema-less: whatever object the client posts is
// stored as is, apart from the server-owned keys below.
type Document = bson.M

const (
	RoleAdmin = "admin"

	// PasswordHashField holds the bcrypt hash of the password a user
	// registered with. It never leaves the server.
	PasswordHashField = "passwordHash"
	MinPasswordLength = 8

	UserEntity   = "user"
	WriterEntity = "writer"
)

// UserEmail returns the trimmed email of a user document, or "" when it is
// missing or not a string.
func UserEmail(doc Document) string {
	email, _ := doc["email"].(string)
	return strings.TrimSpace(email)
}

// IsAdmin reports whether the stored user carries the admin role.
func IsAdmin(doc Document) bool {
	role, _ := doc["role"].(string)
	return role == RoleAdmin
}

var ErrInvalidPassword = errors.New("password must be a string of 8 to 72 bytes")

// SanitizeUser drops keys clients must not set themselves on registration.
func SanitizeUser(doc Document) Document {
	delete(doc, "_id")
	delete(doc, "role")
	delete(doc, PasswordHashField)
	return doc
}

// HashPassword replaces a plain "password" key with its bcrypt hash. A
// document without a password is left alone.
func HashPassword(doc Document, cost int) error {
	raw, ok := doc["password"]
	delete(doc, "password")
	if !ok || raw == nil {
		return nil
	}

	password, ok := raw.(string)
	if !ok || len(password) < MinPasswordLength {
		return ErrInvalidPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return ErrInvalidPassword
	}
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	doc[PasswordHashField] = string(hash)
	return nil
}

// PasswordMatches reports whether password matches the stored hash. Users
// registered without a password never match.
func PasswordMatches(doc Document, password string) bool {
	hash, _ := doc[PasswordHashField].(string)
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// PublicUser is a copy of doc safe to log or return.
func PublicUser(doc Document) Document {
	out := maps.Clone(doc)
	delete(out, PasswordHashField)
	return out
}
