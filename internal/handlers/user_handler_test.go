package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
	"golang.org/x/crypto/bcrypt"
)

func TestUserHandler_CreateUser(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("new email is inserted", func(mt *mtest.T) {
		id := primitive.NewObjectID()
		mt.AddMockResponses(upsertedResponse(id))

		w := do(mt, newRouter(mt), http.MethodPost, "/users",
			`{"email":"clerk@ihp.test","name":"Clerk","role":"admin"}`)

		require.Equal(mt, http.StatusCreated, w.Code, w.Body.String())
		body := decode[map[string]any](mt, w)
		assert.Equal(mt, true, body["acknowledged"])
		assert.Equal(mt, id.Hex(), body["insertedId"])

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		assert.Equal(mt, "update", started.CommandName)
		update := started.Command.Lookup("updates").Array().Index(0).Value().Document()
		assert.True(mt, update.Lookup("upsert").Boolean())
		assert.Equal(mt, "clerk@ihp.test", update.Lookup("q", "email").StringValue())

		onInsert := update.Lookup("u", "$setOnInsert").Document()
		assert.Equal(mt, "Clerk", onInsert.Lookup("name").StringValue())
		_, err := onInsert.LookupErr("role")
		assert.Error(mt, err, "client supplied role must be dropped")
	})

	mt.Run("password is stored as a bcrypt hash", func(mt *mtest.T) {
		mt.AddMockResponses(upsertedResponse(primitive.NewObjectID()))

		w := do(mt, newRouter(mt), http.MethodPost, "/users",
			`{"email":"clerk@ihp.test","password":"correct horse","passwordHash":"forged"}`)

		require.Equal(mt, http.StatusCreated, w.Code, w.Body.String())

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		onInsert := started.Command.Lookup("updates").Array().Index(0).Value().Document().
			Lookup("u", "$setOnInsert").Document()
		_, err := onInsert.LookupErr("password")
		assert.Error(mt, err, "plain password must not be stored")
		hash := onInsert.Lookup("passwordHash").StringValue()
		assert.NotEqual(mt, "forged", hash)
		assert.NoError(mt, bcrypt.CompareHashAndPassword([]byte(hash), []byte("correct horse")))
	})

	mt.Run("short password is rejected", func(mt *mtest.T) {
		for _, body := range []string{`{"email":"clerk@ihp.test","password":"short"}`, `{"email":"clerk@ihp.test","password":12345678}`} {
			w := do(mt, newRouter(mt), http.MethodPost, "/users", body)

			assert.Equal(mt, http.StatusBadRequest, w.Code, "body %q", body)
		}
		assert.Nil(mt, mt.GetStartedEvent())
	})

	mt.Run("existing email is a conflict", func(mt *mtest.T) {
		mt.AddMockResponses(updatedResponse(1, 0))

		w := do(mt, newRouter(mt), http.MethodPost, "/users", `{"email":"clerk@ihp.test"}`)

		assert.Equal(mt, http.StatusConflict, w.Code)
		assert.Equal(mt, "User already exists", message(mt, w))

		// the single command was the guarded upsert, nothing else wrote
		assert.NotNil(mt, mt.GetStartedEvent())
		assert.Nil(mt, mt.GetStartedEvent())
	})

	mt.Run("duplicate key from unique index is a conflict", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error collection: IHP_INV.users index: email_unique",
		}))

		w := do(mt, newRouter(mt), http.MethodPost, "/users", `{"email":"clerk@ihp.test"}`)

		assert.Equal(mt, http.StatusConflict, w.Code)
	})

	mt.Run("missing email is rejected before any write", func(mt *mtest.T) {
		for _, body := range []string{`{"name":"No Email"}`, `{"email":""}`, `{"email":"not-an-email"}`, `null`, `[]`, ``} {
			w := do(mt, newRouter(mt), http.MethodPost, "/users", body)

			assert.Equal(mt, http.StatusBadRequest, w.Code, "body %q", body)
			assert.Equal(mt, "Invalid user data", message(mt, w))
		}
		assert.Nil(mt, mt.GetStartedEvent())
	})

	mt.Run("database failure is a server error", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    2,
			Name:    "BadValue",
			Message: "boom",
		}))

		w := do(mt, newRouter(mt), http.MethodPost, "/users", `{"email":"clerk@ihp.test"}`)

		assert.Equal(mt, http.StatusInternalServerError, w.Code)
		assert.Equal(mt, "Server error while adding user", message(mt, w))
	})
}

func TestUserHandler_GetUsers(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("returns every stored user", func(mt *mtest.T) {
		mt.AddMockResponses(cursor("IHP_INV.users",
			bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "email", Value: "a@ihp.test"}},
			bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "email", Value: "b@ihp.test"}},
			bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "email", Value: "c@ihp.test"}},
		))

		w := do(mt, newRouter(mt), http.MethodGet, "/users", "")

		require.Equal(mt, http.StatusOK, w.Code)
		users := decode[[]map[string]any](mt, w)
		assert.Len(mt, users, 3)
		assert.Equal(mt, "b@ihp.test", users[1]["email"])

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		assert.Equal(mt, int32(0), started.Command.Lookup("projection", "passwordHash").Int32())
	})

	mt.Run("empty collection is an empty list", func(mt *mtest.T) {
		mt.AddMockResponses(cursor("IHP_INV.users"))

		w := do(mt, newRouter(mt), http.MethodGet, "/users", "")

		require.Equal(mt, http.StatusOK, w.Code)
		assert.JSONEq(mt, `[]`, w.Body.String())
	})
}

func TestUserHandler_GetUser(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("found", func(mt *mtest.T) {
		mt.AddMockResponses(cursor("IHP_INV.users",
			bson.D{{Key: "email", Value: "a@ihp.test"}, {Key: "name", Value: "Anika"}},
		))

		w := do(mt, newRouter(mt), http.MethodGet, "/users/a@ihp.test", "")

		require.Equal(mt, http.StatusOK, w.Code)
		assert.Equal(mt, "Anika", decode[map[string]any](mt, w)["name"])

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		assert.Equal(mt, int32(0), started.Command.Lookup("projection", "passwordHash").Int32())
	})

	mt.Run("absent", func(mt *mtest.T) {
		mt.AddMockResponses(cursor("IHP_INV.users"))

		w := do(mt, newRouter(mt), http.MethodGet, "/users/ghost@ihp.test", "")

		assert.Equal(mt, http.StatusNotFound, w.Code)
	})
}

func TestUserHandler_Admin(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("check reports stored role", func(mt *mtest.T) {
		mt.AddMockResponses(cursor("IHP_INV.users",
			bson.D{{Key: "email", Value: "boss@ihp.test"}, {Key: "role", Value: "admin"}},
		))

		w := do(mt, newRouter(mt), http.MethodGet, "/users/admin/boss@ihp.test", "")

		require.Equal(mt, http.StatusOK, w.Code)
		assert.JSONEq(mt, `{"admin":true}`, w.Body.String())
	})

	mt.Run("check for unknown user is false", func(mt *mtest.T) {
		mt.AddMockResponses(cursor("IHP_INV.users"))

		w := do(mt, newRouter(mt), http.MethodGet, "/users/admin/ghost@ihp.test", "")

		require.Equal(mt, http.StatusOK, w.Code)
		assert.JSONEq(mt, `{"admin":false}`, w.Body.String())
	})

	mt.Run("promote sets role", func(mt *mtest.T) {
		mt.AddMockResponses(updatedResponse(1, 1))

		w := do(mt, newRouter(mt), http.MethodPatch, "/users/admin/clerk@ihp.test", "")

		require.Equal(mt, http.StatusOK, w.Code)
		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		update := started.Command.Lookup("updates").Array().Index(0).Value().Document()
		assert.Equal(mt, "admin", update.Lookup("u", "$set", "role").StringValue())
	})

	mt.Run("promote unknown user", func(mt *mtest.T) {
		mt.AddMockResponses(updatedResponse(0, 0))

		w := do(mt, newRouter(mt), http.MethodPatch, "/users/admin/ghost@ihp.test", "")

		assert.Equal(mt, http.StatusNotFound, w.Code)
	})
}
