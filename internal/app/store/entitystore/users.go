// internal/app/store/entitystore/users.go
package entitystore

import (
	"context"
	"time"

	"github.com/dalemusser/schoolhub/internal/app/store/storeerr"
	"github.com/dalemusser/schoolhub/internal/app/system/status"
	"github.com/dalemusser/schoolhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CreateUser inserts u as an active user. The protected base role is
// always present in the stored role set.
func (s *Store) CreateUser(ctx context.Context, u models.User) (models.User, error) {
	now := time.Now().UTC()
	u.ID = primitive.NewObjectID()
	u.Roles = models.WithBaseRole(u.Roles)
	u.Status = status.Active
	u.CreatedAt = now
	u.UpdatedAt = now
	if err := s.Create(ctx, models.KindUser, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, storeerr.ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return u, nil
}

// GetUser returns the active user with id.
func (s *Store) GetUser(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	var u models.User
	ok, err := s.FindOne(ctx, models.KindUser, bson.M{"_id": id}, &u)
	if err != nil {
		return models.User{}, err
	}
	if !ok {
		return models.User{}, storeerr.ErrNotFound
	}
	return u, nil
}

// FindUserByEmail returns the active user with this (normalized) email.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	ok, err := s.FindOne(ctx, models.KindUser, bson.M{"email": email}, &u)
	if err != nil {
		return models.User{}, err
	}
	if !ok {
		return models.User{}, storeerr.ErrNotFound
	}
	return u, nil
}

// FindUsersByIDs loads the active users among ids, in no particular order.
func (s *Store) FindUsersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []models.User
	if err := s.Find(ctx, models.KindUser, bson.M{"_id": bson.M{"$in": ids}}, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// ListUsers pages through active users in creation order.
func (s *Store) ListUsers(ctx context.Context, limit, offset int64) ([]models.User, error) {
	var users []models.User
	err := s.Find(ctx, models.KindUser, bson.M{}, &users,
		Sort(bson.D{{Key: "_id", Value: 1}}), Page(limit, offset))
	if err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateUser sets the non-empty name and email fields of patch.
func (s *Store) UpdateUser(ctx context.Context, id primitive.ObjectID, patch models.User) (models.User, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if patch.FirstName != "" {
		set["first_name"] = patch.FirstName
	}
	if patch.LastName != "" {
		set["last_name"] = patch.LastName
	}
	if patch.Email != "" {
		set["email"] = patch.Email
	}
	if patch.PasswordHash != "" {
		set["password_hash"] = patch.PasswordHash
	}
	return s.updateUser(ctx, id, bson.M{"$set": set})
}

// AddRoles adds roles to the user's role set.
func (s *Store) AddRoles(ctx context.Context, id primitive.ObjectID, roles []string) (models.User, error) {
	return s.updateUser(ctx, id, bson.M{
		"$addToSet": bson.M{"roles": bson.M{"$each": roles}},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	})
}

// RemoveRole pulls role from the user's role set. Callers must refuse the
// protected base role before calling.
func (s *Store) RemoveRole(ctx context.Context, id primitive.ObjectID, role string) (models.User, error) {
	return s.updateUser(ctx, id, bson.M{
		"$pull": bson.M{"roles": role},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
}

// SoftDeleteUser marks the user deleted by actor.
func (s *Store) SoftDeleteUser(ctx context.Context, id, actor primitive.ObjectID) (models.User, error) {
	return s.updateUser(ctx, id, softDelete(actor))
}

// HardDeleteUser removes the user document. Used to undo a partially
// completed multi-step create.
func (s *Store) HardDeleteUser(ctx context.Context, id primitive.ObjectID) error {
	return s.HardDelete(ctx, models.KindUser, id)
}

func (s *Store) updateUser(ctx context.Context, id primitive.ObjectID, patch bson.M) (models.User, error) {
	var u models.User
	ok, err := s.UpdateOne(ctx, models.KindUser, bson.M{"_id": id}, patch, &u)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, storeerr.ErrDuplicateEmail
		}
		return models.User{}, err
	}
	if !ok {
		return models.User{}, storeerr.ErrNotFound
	}
	return u, nil
}

func softDelete(actor primitive.ObjectID) bson.M {
	now := time.Now().UTC()
	return bson.M{"$set": bson.M{
		"status":     status.Deleted,
		"deleted_by": actor,
		"deleted_at": now,
		"updated_at": now,
	}}
}
