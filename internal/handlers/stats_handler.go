package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"ihp-inventory/internal/utils"
)

type StatsHandler struct {
	BookCol   *mongo.Collection
	WriterCol *mongo.Collection
	UserCol   *mongo.Collection
	Log       *slog.Logger
	Timeout   time.Duration
}

type Stats struct {
	BookTitles int64 `json:"book_titles"`
	TotalStock int64 `json:"total_stock"`
	Writers    int64 `json:"writers"`
	Users      int64 `json:"users"`
}

// GET /stats
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := dbContext(r, h.Timeout)
	defer cancel()

	var stats Stats

	// 1. Titles and units in stock. Quantities stored as numeric strings
	// count; unreadable ones count as zero.
	stock := bson.D{{Key: "$convert", Value: bson.D{
		{Key: "input", Value: "$quantity"},
		{Key: "to", Value: "long"},
		{Key: "onError", Value: 0},
		{Key: "onNull", Value: 0},
	}}}
	cursor, err := h.BookCol.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "titles", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "stock", Value: bson.D{{Key: "$sum", Value: stock}}},
		}}},
	})
	if err != nil {
		serverError(w, r, h.Log, "Failed to compute stats", err)
		return
	}
	var totals []struct {
		Titles int64 `bson:"titles"`
		Stock  int64 `bson:"stock"`
	}
	if err := cursor.All(ctx, &totals); err != nil {
		serverError(w, r, h.Log, "Failed to compute stats", err)
		return
	}
	if len(totals) > 0 {
		stats.BookTitles = totals[0].Titles
		stats.TotalStock = totals[0].Stock
	}

	// 2. Writers
	if stats.Writers, err = h.WriterCol.CountDocuments(ctx, bson.M{}); err != nil {
		serverError(w, r, h.Log, "Failed to compute stats", err)
		return
	}

	// 3. Users
	if stats.Users, err = h.UserCol.CountDocuments(ctx, bson.M{}); err != nil {
		serverError(w, r, h.Log, "Failed to compute stats", err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, stats)
}
