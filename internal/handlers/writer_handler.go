package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"ihp-inventory/internal/constants"
	"ihp-inventory/internal/models"
	"ihp-inventory/internal/utils"
)

// WriterHandler stores writers as opaque documents; any JSON object is a
// valid writer.
type WriterHandler struct {
	Collection  *mongo.Collection
	AuditLogger *utils.Logger
	Log         *slog.Logger
	Timeout     time.Duration
}

// POST /writers
func (h *WriterHandler) AddWriter(w http.ResponseWriter, r *http.Request) {
	var writer models.Document
	if err := utils.DecodeObject(r, &writer); err != nil {
		utils.JSONError(w, "Invalid writer data", http.StatusBadRequest)
		return
	}
	delete(writer, "_id")

	ctx, cancel := dbContext(r, h.Timeout)
	defer cancel()

	res, err := h.Collection.InsertOne(ctx, writer)
	if err != nil {
		serverError(w, r, h.Log, "Server error while adding writer", err)
		return
	}

	audit(ctx, r, h.AuditLogger, h.Log, models.WriterEntity, constants.Create, writer)

	utils.WriteJSON(w, http.StatusCreated, InsertResult{Acknowledged: true, InsertedID: res.InsertedID})
}

// GET /writers
func (h *WriterHandler) GetWriters(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := dbContext(r, h.Timeout)
	defer cancel()

	cursor, err := h.Collection.Find(ctx, bson.M{})
	if err != nil {
		serverError(w, r, h.Log, "Failed to fetch writers", err)
		return
	}
	defer cursor.Close(ctx)

	var writers []models.Document
	if err = cursor.All(ctx, &writers); err != nil {
		serverError(w, r, h.Log, "Error decoding writers", err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, emptyIfNil(writers))
}
