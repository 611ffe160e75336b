// internal/domain/models/student.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Student belongs to exactly one school and may be linked to a User account.
type Student struct {
	ID          primitive.ObjectID  `bson:"_id" json:"id"`
	FirstName   string              `bson:"first_name" json:"first_name"`
	LastName    string              `bson:"last_name" json:"last_name"`
	Email       string              `bson:"email" json:"email"`
	DateOfBirth *time.Time          `bson:"date_of_birth,omitempty" json:"date_of_birth,omitempty"`
	SchoolID    primitive.ObjectID  `bson:"school_id" json:"school_id"`
	UserID      *primitive.ObjectID `bson:"user_id,omitempty" json:"user_id,omitempty"`
	Status      string              `bson:"status" json:"status"`

	CreatedBy primitive.ObjectID  `bson:"created_by" json:"created_by"`
	DeletedBy *primitive.ObjectID `bson:"deleted_by,omitempty" json:"deleted_by,omitempty"`
	DeletedAt *time.Time          `bson:"deleted_at,omitempty" json:"deleted_at,omitempty"`
	CreatedAt time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time           `bson:"updated_at" json:"updated_at"`
}
