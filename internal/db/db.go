// Package db owns the MongoDB client lifecycle. The client is created once in
// main and handed to handlers as collections; nothing here is global.
package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	UsersCollection     = "users"
	BooksCollection     = "books"
	WritersCollection   = "writers"
	AuditLogsCollection = "audit_logs"
)

type DB struct {
	Client *mongo.Client
	Name   string
}

// Connect dials the cluster with Stable API v1 in strict mode and verifies the
// connection with a ping before returning.
func Connect(ctx context.Context, uri, name string) (*DB, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1).
		SetStrict(true).
		SetDeprecationErrors(true)

	opts := options.Client().ApplyURI(uri).SetServerAPIOptions(serverAPI)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	d := &DB{Client: client, Name: name}
	if err := d.Ping(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return d, nil
}

func (d *DB) Ping(ctx context.Context) error {
	if err := d.Client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("ping mongo: %w", err)
	}
	return nil
}

func (d *DB) Disconnect(ctx context.Context) error {
	return d.Client.Disconnect(ctx)
}

func (d *DB) Collection(name string) *mongo.Collection {
	return d.Client.Database(d.Name).Collection(name)
}

// maxReportedDuplicates caps the emails listed when the index cannot be built.
const maxReportedDuplicates = 20

// EnsureIndexes creates the unique email index that backs duplicate user
// rejection. Databases written before the index existed may already hold
// duplicate emails; the build then fails and the error names them.
func EnsureIndexes(ctx context.Context, users *mongo.Collection) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("email_unique"),
	})
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		if dups, derr := DuplicateEmails(ctx, users); derr == nil && len(dups) > 0 {
			return fmt.Errorf("create users email index: duplicate emails %s: "+
				"merge or delete the extra user documents, then restart: %w",
				strings.Join(dups, ", "), err)
		}
	}
	return fmt.Errorf("create users email index: %w", err)
}

// DuplicateEmails lists emails held by more than one user document.
func DuplicateEmails(ctx context.Context, users *mongo.Collection) ([]string, error) {
	cursor, err := users.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$email"},
			{Key: "n", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$match", Value: bson.D{{Key: "n", Value: bson.D{{Key: "$gt", Value: 1}}}}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
		{{Key: "$limit", Value: maxReportedDuplicates}},
	})
	if err != nil {
		return nil, fmt.Errorf("find duplicate emails: %w", err)
	}
	defer cursor.Close(ctx)

	var groups []struct {
		Email any `bson:"_id"`
	}
	if err := cursor.All(ctx, &groups); err != nil {
		return nil, fmt.Errorf("decode duplicate emails: %w", err)
	}

	out := make([]string, 0, len(groups))
	for _, g := range groups {
		out = append(out, fmt.Sprint(g.Email))
	}
	return out, nil
}
