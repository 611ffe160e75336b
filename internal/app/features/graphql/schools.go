package graphql

import (
	"context"

	"github.com/dalemusser/schoolhub/internal/app/store/audit"
	"github.com/dalemusser/schoolhub/internal/app/system/authz"
	"github.com/dalemusser/schoolhub/internal/domain/models"
	graphql "github.com/graph-gophers/graphql-go"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type createSchoolArgs struct {
	Input createSchoolInput
}

// CreateSchool adds a school with an empty student list. Admin only.
func (r *Resolver) CreateSchool(ctx context.Context, args createSchoolArgs) (*schoolResolver, error) {
	actor, err := authz.RequireAdmin(ctx)
	if err != nil {
		return nil, r.fail(ctx, "createSchool", args, err)
	}
	sc, err := newSchool(args.Input)
	if err != nil {
		return nil, r.fail(ctx, "createSchool", args, err)
	}
	if err := r.requireSchoolNames(ctx, sc, nil); err != nil {
		return nil, r.fail(ctx, "createSchool", args, err)
	}
	sc.CreatedBy = actor.ID

	sc, err = r.d.Store.CreateSchool(ctx, sc)
	if err != nil {
		return nil, r.fail(ctx, "createSchool", args, err)
	}
	r.d.Audit.Entity(ctx, audit.EventSchoolCreated, models.KindSchool, sc.ID, &actor.ID, map[string]string{"long_name": sc.LongName})
	return &schoolResolver{r: r, s: sc}, nil
}

type updateSchoolArgs struct {
	ID    graphql.ID
	Input schoolInput
}

// UpdateSchool edits a school's names or address. Admin only.
func (r *Resolver) UpdateSchool(ctx context.Context, args updateSchoolArgs) (*schoolResolver, error) {
	id, err := parseID("id", args.ID)
	if err != nil {
		return nil, r.fail(ctx, "updateSchool", args, err)
	}
	actor, err := authz.RequireAdmin(ctx)
	if err != nil {
		return nil, r.fail(ctx, "updateSchool", args, err)
	}
	patch, err := newSchoolPatch(args.Input, false)
	if err != nil {
		return nil, r.fail(ctx, "updateSchool", args, err)
	}
	if err := r.requireSchoolNames(ctx, patch, &id); err != nil {
		return nil, r.fail(ctx, "updateSchool", args, err)
	}

	sc, err := r.d.Store.UpdateSchool(ctx, id, patch)
	if err != nil {
		return nil, r.fail(ctx, "updateSchool", args, err)
	}
	r.forgetSchool(ctx, id)
	r.d.Audit.Entity(ctx, audit.EventSchoolUpdated, models.KindSchool, id, &actor.ID, nil)
	return &schoolResolver{r: r, s: sc}, nil
}

// DeleteSchool soft-deletes a school that no active student references.
// Admin only.
func (r *Resolver) DeleteSchool(ctx context.Context, args idArgs) (*schoolResolver, error) {
	id, err := parseID("id", args.ID)
	if err != nil {
		return nil, r.fail(ctx, "deleteSchool", args, err)
	}
	actor, err := authz.RequireAdmin(ctx)
	if err != nil {
		return nil, r.fail(ctx, "deleteSchool", args, err)
	}
	if err := r.d.Checker.RequireActive(ctx, models.KindSchool, id); err != nil {
		return nil, r.fail(ctx, "deleteSchool", args, err)
	}
	if err := r.d.Checker.RequireNoActiveStudents(ctx, id); err != nil {
		return nil, r.fail(ctx, "deleteSchool", args, err)
	}

	sc, err := r.d.Store.SoftDeleteSchool(ctx, id, actor.ID)
	if err != nil {
		return nil, r.fail(ctx, "deleteSchool", args, err)
	}
	r.forgetSchool(ctx, id)
	r.d.Audit.Entity(ctx, audit.EventSchoolDeleted, models.KindSchool, id, &actor.ID, nil)
	return &schoolResolver{r: r, s: sc}, nil
}

// requireSchoolNames checks whichever of the two names sc carries.
func (r *Resolver) requireSchoolNames(ctx context.Context, sc models.School, exclude *primitive.ObjectID) error {
	if sc.LongName != "" {
		if err := r.d.Checker.RequireUnique(ctx, models.KindSchool, "long_name", sc.LongName, exclude); err != nil {
			return err
		}
	}
	if sc.BrandName != "" {
		if err := r.d.Checker.RequireUnique(ctx, models.KindSchool, "brand_name", sc.BrandName, exclude); err != nil {
			return err
		}
	}
	return nil
}

func (r *Resolver) forgetSchool(ctx context.Context, id primitive.ObjectID) {
	if s, err := scope(ctx); err == nil {
		s.ForgetSchool(id)
	}
}
