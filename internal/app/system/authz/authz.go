// internal/app/system/authz/authz.go
package authz

import (
	"context"

	"github.com/dalemusser/schoolhub/internal/app/system/apperr"
	"github.com/dalemusser/schoolhub/internal/app/system/auth"
	"github.com/dalemusser/schoolhub/internal/app/system/loaders"
	"github.com/dalemusser/schoolhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SignedIn returns the current actor, or Unauthorized when the request
// carries no valid token.
//
// The token only names the account. The actor is reloaded through the
// request's UserByID loader and its roles come from the stored record,
// so a deleted account or a removed role takes effect before the token
// expires.
func SignedIn(ctx context.Context) (*auth.Actor, error) {
	a, ok := auth.CurrentActor(ctx)
	if !ok {
		return nil, apperr.New(apperr.Unauthorized, "sign in required")
	}
	s, ok := loaders.FromContext(ctx)
	if !ok {
		return nil, apperr.New(apperr.Internal, "no loader scope on request")
	}
	u, err := s.UserByID.Load(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperr.New(apperr.Unauthorized, "this account no longer exists")
	}
	return &auth.Actor{ID: u.ID, Email: u.Email, Roles: u.Roles}, nil
}

// RequireAnyRole returns the actor if it holds at least one of roles.
func RequireAnyRole(ctx context.Context, roles ...string) (*auth.Actor, error) {
	a, err := SignedIn(ctx)
	if err != nil {
		return nil, err
	}
	if !a.HasAnyRole(roles...) {
		return nil, apperr.New(apperr.Unauthorized, "you do not have permission to perform this action")
	}
	return a, nil
}

// RequireAdmin returns the actor if it is an admin.
func RequireAdmin(ctx context.Context) (*auth.Actor, error) {
	return RequireAnyRole(ctx, models.RoleAdmin)
}

// RequireStudentManager returns the actor if it may create, edit or
// delete students (admins and staff).
func RequireStudentManager(ctx context.Context) (*auth.Actor, error) {
	return RequireAnyRole(ctx, models.RoleAdmin, models.RoleStaff)
}

// RequireAdminOrSelf returns the actor if it is an admin or is target.
func RequireAdminOrSelf(ctx context.Context, target primitive.ObjectID) (*auth.Actor, error) {
	a, err := SignedIn(ctx)
	if err != nil {
		return nil, err
	}
	if a.ID == target || a.HasAnyRole(models.RoleAdmin) {
		return a, nil
	}
	return nil, apperr.New(apperr.Unauthorized, "you may only change your own account")
}
