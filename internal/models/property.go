package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PriceChange is one entry in a property's price history. UpdatedAt is kept
// as a plain "YYYY-MM-DDTHH:mm:ss" string because the dashboard's date-range
// filters parse that exact shape.
type PriceChange struct {
	Price     float64 `bson:"price" json:"price"`
	UpdatedAt string  `bson:"updated_at" json:"updated_at"`
}

// Property mirrors the listing documents in the properties collection.
// Field names follow the collection schema; only the fields the tracking
// job reads or writes are mapped here.
type Property struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	Zpid            string             `bson:"zpid" json:"zpid"`
	Price           float64            `bson:"price" json:"price"`
	RawHomeStatusCd string             `bson:"rawHomeStatusCd,omitempty" json:"rawHomeStatusCd,omitempty"`
	TimeOnZillow    string             `bson:"timeOnZillow,omitempty" json:"timeOnZillow,omitempty"`
	PriceChanges    []PriceChange      `bson:"priceChanges,omitempty" json:"priceChanges,omitempty"`
	UpdatedAt       string             `bson:"update_at,omitempty" json:"update_at,omitempty"`
	InsertedAt      time.Time          `bson:"insertedAt,omitempty" json:"insertedAt,omitempty"`
}

// PropertyUpdate is the subset of property fields a tracking run may write.
// Nil pointers (and a nil history slice) mean "leave the stored value alone".
type PropertyUpdate struct {
	HomeStatus   *string
	TimeOnZillow *string
	Price        *float64
	PriceChanges []PriceChange
	UpdatedAt    *string
}

func (u PropertyUpdate) IsZero() bool {
	return u.HomeStatus == nil &&
		u.TimeOnZillow == nil &&
		u.Price == nil &&
		u.PriceChanges == nil &&
		u.UpdatedAt == nil
}

// Set renders the update as the document for a $set operation, containing
// only the fields that are present.
func (u PropertyUpdate) Set() bson.M {
	set := bson.M{}
	if u.HomeStatus != nil {
		set["rawHomeStatusCd"] = *u.HomeStatus
	}
	if u.TimeOnZillow != nil {
		set["timeOnZillow"] = *u.TimeOnZillow
	}
	if u.Price != nil {
		set["price"] = *u.Price
	}
	if u.PriceChanges != nil {
		set["priceChanges"] = u.PriceChanges
	}
	if u.UpdatedAt != nil {
		set["update_at"] = *u.UpdatedAt
	}
	return set
}
