package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ihp-inventory/internal/constants"
	"ihp-inventory/internal/models"
	"ihp-inventory/internal/utils"
)

type BookHandler struct {
	BookCollection *mongo.Collection
	AuditLogger    *utils.Logger
	Log            *slog.Logger
	Timeout        time.Duration
}

func NewBookHandler(bookColl *mongo.Collection, audit *utils.Logger, log *slog.Logger) *BookHandler {
	return &BookHandler{
		BookCollection: bookColl,
		AuditLogger:    audit,
		Log:            log,
	}
}

// POST /books
func (h *BookHandler) AddBook(w http.ResponseWriter, r *http.Request) {
	var body models.Document
	if err := utils.DecodeObject(r, &body); err != nil {
		utils.JSONError(w, "Invalid book data", http.StatusBadRequest)
		return
	}
	book, err := models.NewBookDocument(body)
	if err != nil {
		utils.JSONError(w, "Invalid book data", http.StatusBadRequest)
		return
	}

	ctx, cancel := dbContext(r, h.Timeout)
	defer cancel()

	res, err := h.BookCollection.InsertOne(ctx, book)
	if err != nil {
		serverError(w, r, h.Log, "Server error while adding book", err)
		return
	}

	audit(ctx, r, h.AuditLogger, h.Log, models.BookEntity, constants.Create, book)

	utils.WriteJSON(w, http.StatusCreated, InsertResult{Acknowledged: true, InsertedID: res.InsertedID})
}

// GET /books
func (h *BookHandler) GetBooks(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := dbContext(r, h.Timeout)
	defer cancel()

	cursor, err := h.BookCollection.Find(ctx, bson.M{})
	if err != nil {
		serverError(w, r, h.Log, "Failed to fetch books", err)
		return
	}
	defer cursor.Close(ctx)

	var books []models.Document
	if err = cursor.All(ctx, &books); err != nil {
		serverError(w, r, h.Log, "Error decoding books", err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, emptyIfNil(books))
}

// GET /books/{id}
func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	id, err := objectIDVar(r, "id")
	if err != nil {
		utils.JSONError(w, "Invalid book id", http.StatusBadRequest)
		return
	}

	ctx, cancel := dbContext(r, h.Timeout)
	defer cancel()

	var book models.Document
	err = h.BookCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&book)
	if errors.Is(err, mongo.ErrNoDocuments) {
		utils.JSONError(w, "Book not found", http.StatusNotFound)
		return
	}
	if err != nil {
		serverError(w, r, h.Log, "Failed to fetch book", err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, book)
}

// PATCH /books/{id}
//
// Only fields present in the body are written. An absent or null field keeps
// its stored value.
func (h *BookHandler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	id, err := objectIDVar(r, "id")
	if err != nil {
		utils.JSONError(w, "Invalid book id", http.StatusBadRequest)
		return
	}

	var patch models.BookPatch
	if err := utils.DecodeObject(r, &patch); err != nil {
		utils.JSONError(w, "Invalid book data", http.StatusBadRequest)
		return
	}

	set := patch.SetDoc()
	if len(set) == 0 {
		utils.JSONError(w, "No update fields provided", http.StatusBadRequest)
		return
	}

	ctx, cancel := dbContext(r, h.Timeout)
	defer cancel()

	result, err := h.BookCollection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		serverError(w, r, h.Log, "Server error while updating book", err)
		return
	}
	if result.MatchedCount == 0 {
		utils.JSONError(w, "Book not found", http.StatusNotFound)
		return
	}

	audit(ctx, r, h.AuditLogger, h.Log, models.BookEntity, constants.Update, bson.M{"_id": id, "set": set})

	utils.WriteJSON(w, http.StatusOK, UpdateResult{
		Acknowledged:  true,
		MatchedCount:  result.MatchedCount,
		ModifiedCount: result.ModifiedCount,
	})
}

// PATCH /books/restock/{id}
//
// The stored quantity may be a number or a numeric string, so the delta is
// added by an update pipeline that converts it first. The whole update runs
// on the server, so concurrent restocks of the same book never lose one.
func (h *BookHandler) RestockBook(w http.ResponseWriter, r *http.Request) {
	id, err := objectIDVar(r, "id")
	if err != nil {
		utils.JSONError(w, "Invalid book id", http.StatusBadRequest)
		return
	}

	var req models.RestockRequest
	if err := utils.DecodeObject(r, &req); err != nil {
		utils.JSONError(w, "Invalid restock data", http.StatusBadRequest)
		return
	}
	if req.Quantity == nil || *req.Quantity <= 0 {
		utils.JSONError(w, "Restock quantity must be a positive integer; stock reductions are not supported", http.StatusBadRequest)
		return
	}
	delta := *req.Quantity

	ctx, cancel := dbContext(r, h.Timeout)
	defer cancel()

	var book models.Document
	err = h.BookCollection.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		restockPipeline(int64(delta)),
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&book)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		utils.JSONError(w, "Book not found", http.StatusNotFound)
		return
	case isNonNumeric(err):
		utils.JSONError(w, "Stored quantity is not numeric", http.StatusConflict)
		return
	case err != nil:
		serverError(w, r, h.Log, "Server error while restocking book", err)
		return
	}

	audit(ctx, r, h.AuditLogger, h.Log, models.BookEntity, constants.Restock, bson.M{"_id": id, "delta": delta})

	utils.WriteJSON(w, http.StatusOK, book)
}

// restockPipeline sets quantity to toLong(quantity) + delta. A missing or
// null quantity counts as zero.
func restockPipeline(delta int64) mongo.Pipeline {
	stored := bson.D{{Key: "$toLong", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$quantity", 0}}}}}
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "quantity", Value: bson.D{{Key: "$add", Value: bson.A{stored, delta}}}},
		}}},
	}
}

// DELETE /books/{id}
func (h *BookHandler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	id, err := objectIDVar(r, "id")
	if err != nil {
		utils.JSONError(w, "Invalid book id", http.StatusBadRequest)
		return
	}

	ctx, cancel := dbContext(r, h.Timeout)
	defer cancel()

	result, err := h.BookCollection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		serverError(w, r, h.Log, "Delete failed", err)
		return
	}
	if result.DeletedCount == 0 {
		utils.JSONError(w, "Book not found", http.StatusNotFound)
		return
	}

	audit(ctx, r, h.AuditLogger, h.Log, models.BookEntity, constants.Delete, id)

	utils.WriteJSON(w, http.StatusOK, DeleteResult{Acknowledged: true, DeletedCount: result.DeletedCount})
}
