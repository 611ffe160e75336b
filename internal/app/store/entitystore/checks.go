// internal/app/store/entitystore/checks.go
package entitystore

import (
	"context"

	"github.com/dalemusser/schoolhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ExistsActive reports whether an active record of kind has this id.
func (s *Store) ExistsActive(ctx context.Context, kind models.Kind, id primitive.ObjectID) (bool, error) {
	return s.Exists(ctx, kind, bson.M{"_id": id})
}

// FieldTaken reports whether an active record of kind stores value in
// field, ignoring excludeID. value must already be in stored form
// (lower-cased email, folded name).
func (s *Store) FieldTaken(ctx context.Context, kind models.Kind, field, value string, excludeID *primitive.ObjectID) (bool, error) {
	filter := bson.M{field: value}
	if excludeID != nil {
		filter["_id"] = bson.M{"$ne": *excludeID}
	}
	return s.Exists(ctx, kind, filter)
}
