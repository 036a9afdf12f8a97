package handlers_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
	"golang.org/x/crypto/bcrypt"

	"ihp-inventory/internal/handlers"
	"ihp-inventory/internal/utils"
)

const (
	testSecret        = "inventory-test-secret"
	testAdminPassword = "bootstrap-admin-pass"
)

// newRouter wires every collection to the mock collection of the subtest, so
// mock responses are consumed in the order the handler issues commands.
func newRouter(mt *mtest.T) *mux.Router {
	return handlers.NewRouter(handlers.Deps{
		Users:   mt.Coll,
		Books:   mt.Coll,
		Writers: mt.Coll,
		Log:     utils.NopLogger(),

		PasswordCost: bcrypt.MinCost,
	})
}

func newAuthRouter(mt *mtest.T, admins ...string) (*mux.Router, *utils.TokenIssuer) {
	issuer := utils.NewTokenIssuer(testSecret, time.Hour)
	return handlers.NewRouter(handlers.Deps{
		Users:       mt.Coll,
		Books:       mt.Coll,
		Writers:     mt.Coll,
		Issuer:      issuer,
		Log:         utils.NopLogger(),
		AuthEnabled:   true,
		AdminEmails:   admins,
		AdminPassword: testAdminPassword,
		PasswordCost:  bcrypt.MinCost,
	}), issuer
}

func do(t testing.TB, h http.Handler, method, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func bearer(t testing.TB, issuer *utils.TokenIssuer, email string) []string {
	t.Helper()
	token, err := issuer.GenerateJWT(email)
	require.NoError(t, err)
	return []string{"Authorization", "Bearer " + token}
}

func decode[T any](t testing.TB, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v), "body: %s", w.Body.String())
	return v
}

func message(t testing.TB, w *httptest.ResponseRecorder) string {
	return decode[map[string]any](t, w)["message"].(string)
}

func upsertedResponse(id primitive.ObjectID) bson.D {
	return mtest.CreateSuccessResponse(
		bson.E{Key: "n", Value: 1},
		bson.E{Key: "nModified", Value: 0},
		bson.E{Key: "upserted", Value: bson.A{
			bson.D{{Key: "index", Value: 0}, {Key: "_id", Value: id}},
		}},
	)
}

func updatedResponse(matched, modified int) bson.D {
	return mtest.CreateSuccessResponse(
		bson.E{Key: "n", Value: matched},
		bson.E{Key: "nModified", Value: modified},
	)
}

func cursor(ns string, docs ...bson.D) bson.D {
	return mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, docs...)
}

func passwordHash(t testing.TB, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}
