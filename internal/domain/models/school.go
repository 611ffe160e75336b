// internal/domain/models/school.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// School includes case/diacritic-insensitive name fields for uniqueness checks.
//
// Students is a denormalized index of the active students whose SchoolID
// points here. Student.SchoolID is authoritative; this array is kept in
// sync on every student write and repaired by the reconcile worker.
type School struct {
	ID          primitive.ObjectID   `bson:"_id" json:"id"`
	BrandName   string               `bson:"brand_name" json:"brand_name"`
	BrandNameCI string               `bson:"brand_name_ci" json:"-"`
	LongName    string               `bson:"long_name" json:"long_name"`
	LongNameCI  string               `bson:"long_name_ci" json:"-"`
	Address     string               `bson:"address,omitempty" json:"address,omitempty"`
	Country     string               `bson:"country,omitempty" json:"country,omitempty"`
	City        string               `bson:"city,omitempty" json:"city,omitempty"`
	Zipcode     string               `bson:"zipcode,omitempty" json:"zipcode,omitempty"`
	Students    []primitive.ObjectID `bson:"students" json:"students"`
	Status      string               `bson:"status" json:"status"`

	CreatedBy primitive.ObjectID  `bson:"created_by" json:"created_by"`
	DeletedBy *primitive.ObjectID `bson:"deleted_by,omitempty" json:"deleted_by,omitempty"`
	DeletedAt *time.Time          `bson:"deleted_at,omitempty" json:"deleted_at,omitempty"`
	CreatedAt time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time           `bson:"updated_at" json:"updated_at"`
}

// ListsStudent reports whether id is present in the denormalized students array.
func (s *School) ListsStudent(id primitive.ObjectID) bool {
	for _, sid := range s.Students {
		if sid == id {
			return true
		}
	}
	return false
}
