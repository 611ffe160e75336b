// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/schoolhub/internal/app/system/status"
	"github.com/dalemusser/schoolhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates collections (if missing) and tries to attach JSON-Schema
// validators. Servers that don't support collMod/validators are logged and
// skipped.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	ensure := func(coll string, schema bson.M) {
		if _, err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			if isUnsupported(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	ensure(models.KindUser.Collection(), usersSchema())
	ensure(models.KindSchool.Collection(), schoolsSchema())
	ensure(models.KindStudent.Collection(), studentsSchema())
	ensure("error_logs", errorLogsSchema())
	ensure("audit_events", nil)

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers ---------------------- */

func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{"name": name})
	if err != nil {
		return false, err
	}
	return len(names) > 0, nil
}

// ensureCollection idempotently makes sure <name> exists.
// Returns created==true only if this call created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	if exists, listErr := collectionExists(ctx, db, name); listErr == nil && exists {
		return false, nil
	}
	if err := db.CreateCollection(ctx, name); err != nil {
		if isNamespaceExistsErr(err) {
			return false, nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return true, nil
}

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	if err := db.RunCommand(ctx, cmd).Err(); err != nil {
		return err
	}
	zap.L().Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func commandMatches(err error, codes []int32, words ...string) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		for _, c := range codes {
			if ce.Code == c {
				return true
			}
		}
	}
	s := strings.ToLower(err.Error())
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func isNamespaceExistsErr(err error) bool {
	return commandMatches(err, []int32{48}, "already exists", "namespace exists")
}

// isUnsupported covers "no such command" (59) and "not implemented" (115).
func isUnsupported(err error) bool {
	return commandMatches(err, []int32{59, 115}, "no such command", "not implemented", "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

var (
	nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}
	statuses = bson.M{"enum": bson.A{status.Active, status.Deleted}}
	optStr   = bson.M{"bsonType": bson.A{"string", "null"}}
	optID    = bson.M{"bsonType": bson.A{"objectId", "null"}}
	optDate  = bson.M{"bsonType": bson.A{"date", "null"}}
)

func roleEnum() bson.A {
	out := bson.A{}
	for _, r := range models.Roles {
		out = append(out, r)
	}
	return out
}

func usersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"first_name", "last_name", "email", "roles", "status"},
			"properties": bson.M{
				"first_name":    nonBlank,
				"last_name":     nonBlank,
				"email":         nonBlank,
				"password_hash": optStr,
				"roles": bson.M{
					"bsonType":    "array",
					"minItems":    1,
					"uniqueItems": true,
					"items":       bson.M{"enum": roleEnum()},
				},
				"status":     statuses,
				"deleted_by": optID,
				"deleted_at": optDate,
			},
		},
	}
}

func schoolsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"brand_name", "brand_name_ci", "long_name", "long_name_ci", "students", "status"},
			"properties": bson.M{
				"brand_name":    nonBlank,
				"brand_name_ci": nonBlank,
				"long_name":     nonBlank,
				"long_name_ci":  nonBlank,
				"address":       optStr,
				"country":       optStr,
				"city":          optStr,
				"zipcode":       optStr,
				"students": bson.M{
					"bsonType":    "array",
					"items":       bson.M{"bsonType": "objectId"},
					"uniqueItems": true,
				},
				"status":     statuses,
				"deleted_by": optID,
				"deleted_at": optDate,
			},
		},
	}
}

func studentsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"first_name", "last_name", "email", "school_id", "status"},
			"properties": bson.M{
				"first_name":    nonBlank,
				"last_name":     nonBlank,
				"email":         nonBlank,
				"date_of_birth": optDate,
				"school_id":     bson.M{"bsonType": "objectId"},
				"user_id":       optID,
				"status":        statuses,
				"deleted_by":    optID,
				"deleted_at":    optDate,
			},
		},
	}
}

func errorLogsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"function_name", "created_at"},
			"properties": bson.M{
				"error_stack":     bson.M{"bsonType": "string"},
				"function_name":   bson.M{"bsonType": "string"},
				"path":            bson.M{"bsonType": "string"},
				"parameter_input": bson.M{"bsonType": "string"},
				"created_at":      bson.M{"bsonType": "date"},
			},
		},
	}
}
