package models

import (
	"go.mongodb.org/mongo-driver/bson"
)

// NewBookDocument prepares a posted book for insertion. Books are stored as
// the client sent them: unknown keys are kept and missing keys are not added.
// Only quantity (an integer) and keywords (a list of strings) are normalised.
func NewBookDocument(doc Document) (Document, error) {
	delete(doc, "_id")

	if v, ok := doc["quantity"]; ok && v != nil {
		q, err := ParseQuantity(v)
		if err != nil {
			return nil, err
		}
		doc["quantity"] = int64(q)
	}
	if v, ok := doc["keywords"]; ok && v != nil {
		k, err := ParseKeywords(v)
		if err != nil {
			return nil, err
		}
		doc["keywords"] = []string(k)
	}
	return doc, nil
}

// BookPatch is the fixed set of fields PATCH /books/{id} may touch. A nil
// field was absent (or null) in the request and is left as stored.
type BookPatch struct {
	BookName      *string   `json:"bookName"`
	LocalizedName *string   `json:"localizedName"`
	Price         *float64  `json:"price"`
	BuyingPrice   *float64  `json:"buyingPrice"`
	Discount      *float64  `json:"discount"`
	Quantity      *Quantity `json:"quantity"`
	WriterName    *string   `json:"writerName"`
	Keywords      *Keywords `json:"keywords"`
	Category      *string   `json:"category"`
	Publication   *string   `json:"publication"`
	Description   *string   `json:"description"`
}

// SetDoc returns the $set document for the fields present in the patch.
func (p BookPatch) SetDoc() bson.M {
	set := bson.M{}
	if p.BookName != nil {
		set["bookName"] = *p.BookName
	}
	if p.LocalizedName != nil {
		set["localizedName"] = *p.LocalizedName
	}
	if p.Price != nil {
		set["price"] = *p.Price
	}
	if p.BuyingPrice != nil {
		set["buyingPrice"] = *p.BuyingPrice
	}
	if p.Discount != nil {
		set["discount"] = *p.Discount
	}
	if p.Quantity != nil {
		set["quantity"] = *p.Quantity
	}
	if p.WriterName != nil {
		set["writerName"] = *p.WriterName
	}
	if p.Keywords != nil {
		set["keywords"] = *p.Keywords
	}
	if p.Category != nil {
		set["category"] = *p.Category
	}
	if p.Publication != nil {
		set["publication"] = *p.Publication
	}
	if p.Description != nil {
		set["description"] = *p.Description
	}
	return set
}

type RestockRequest struct {
	Quantity *Quantity `json:"quantity"`
}

const (
	BookEntity = "book"
)
