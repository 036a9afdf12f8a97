package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestWriterHandler_AddWriter(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("any object is a writer", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		w := do(mt, newRouter(mt), http.MethodPost, "/writers",
			`{"_id":"client","name":"Humayun Ahmed","born":1948,"tags":["novelist"]}`)

		require.Equal(mt, http.StatusCreated, w.Code, w.Body.String())

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		doc := started.Command.Lookup("documents").Array().Index(0).Value().Document()
		assert.Equal(mt, "Humayun Ahmed", doc.Lookup("name").StringValue())
		assert.Equal(mt, bson.TypeObjectID, doc.Lookup("_id").Type, "server generates the id")
	})

	mt.Run("invalid writer data", func(mt *mtest.T) {
		for _, body := range []string{`null`, `["x"]`, `7`, ``} {
			w := do(mt, newRouter(mt), http.MethodPost, "/writers", body)

			assert.Equal(mt, http.StatusBadRequest, w.Code, "body %q", body)
			assert.Equal(mt, "Invalid writer data", message(mt, w))
		}
		assert.Nil(mt, mt.GetStartedEvent())
	})

	mt.Run("insert failure", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Name: "BadValue", Message: "boom"}))

		w := do(mt, newRouter(mt), http.MethodPost, "/writers", `{"name":"x"}`)

		assert.Equal(mt, http.StatusInternalServerError, w.Code)
		assert.Equal(mt, "Server error while adding writer", message(mt, w))
	})
}

func TestWriterHandler_GetWriters(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("lists every writer", func(mt *mtest.T) {
		mt.AddMockResponses(cursor("IHP_INV.writers",
			bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "name", Value: "Humayun Ahmed"}},
			bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "name", Value: "Jibanananda Das"}},
		))

		w := do(mt, newRouter(mt), http.MethodGet, "/writers", "")

		require.Equal(mt, http.StatusOK, w.Code)
		assert.Len(mt, decode[[]map[string]any](mt, w), 2)
	})

	mt.Run("empty", func(mt *mtest.T) {
		mt.AddMockResponses(cursor("IHP_INV.writers"))

		w := do(mt, newRouter(mt), http.MethodGet, "/writers", "")

		assert.JSONEq(mt, `[]`, w.Body.String())
	})
}
