// internal/domain/models/errorlog.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrorLog is an append-only record of a failed operation. Nothing in the
// application reads these back; they exist for operators.
type ErrorLog struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ErrorStack     string             `bson:"error_stack" json:"error_stack"`
	FunctionName   string             `bson:"function_name" json:"function_name"`
	Path           string             `bson:"path" json:"path"`
	ParameterInput string             `bson:"parameter_input" json:"parameter_input"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
}
