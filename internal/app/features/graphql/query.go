package graphql

import (
	"context"

	"github.com/dalemusser/schoolhub/internal/app/system/authz"
	"github.com/dalemusser/schoolhub/internal/app/system/paging"
	graphql "github.com/graph-gophers/graphql-go"
)

type idArgs struct {
	ID graphql.ID
}

type pageArgs struct {
	Limit  *int32
	Offset *int32
}

// Me returns the signed-in user.
func (r *Resolver) Me(ctx context.Context) (*userResolver, error) {
	a, err := authz.SignedIn(ctx)
	if err != nil {
		return nil, r.fail(ctx, "me", nil, err)
	}
	return r.loadUser(ctx, a.ID)
}

func (r *Resolver) User(ctx context.Context, args idArgs) (*userResolver, error) {
	if _, err := authz.SignedIn(ctx); err != nil {
		return nil, r.fail(ctx, "user", args, err)
	}
	id, err := parseID("id", args.ID)
	if err != nil {
		return nil, r.fail(ctx, "user", args, err)
	}
	return r.loadUser(ctx, id)
}

func (r *Resolver) Users(ctx context.Context, args pageArgs) ([]*userResolver, error) {
	if _, err := authz.SignedIn(ctx); err != nil {
		return nil, r.fail(ctx, "users", args, err)
	}
	w, err := paging.Parse(args.Limit, args.Offset)
	if err != nil {
		return nil, r.fail(ctx, "users", args, err)
	}
	s, err := scope(ctx)
	if err != nil {
		return nil, r.fail(ctx, "users", args, err)
	}
	rows, err := r.d.Store.ListUsers(ctx, w.Limit, w.Offset)
	if err != nil {
		return nil, r.fail(ctx, "users", args, err)
	}
	out := make([]*userResolver, len(rows))
	for i := range rows {
		s.UserByID.Prime(rows[i].ID, &rows[i])
		out[i] = &userResolver{r: r, u: rows[i]}
	}
	return out, nil
}

func (r *Resolver) School(ctx context.Context, args idArgs) (*schoolResolver, error) {
	if _, err := authz.SignedIn(ctx); err != nil {
		return nil, r.fail(ctx, "school", args, err)
	}
	id, err := parseID("id", args.ID)
	if err != nil {
		return nil, r.fail(ctx, "school", args, err)
	}
	return r.loadSchool(ctx, id)
}

func (r *Resolver) Schools(ctx context.Context, args pageArgs) ([]*schoolResolver, error) {
	if _, err := authz.SignedIn(ctx); err != nil {
		return nil, r.fail(ctx, "schools", args, err)
	}
	w, err := paging.Parse(args.Limit, args.Offset)
	if err != nil {
		return nil, r.fail(ctx, "schools", args, err)
	}
	s, err := scope(ctx)
	if err != nil {
		return nil, r.fail(ctx, "schools", args, err)
	}
	rows, err := r.d.Store.ListSchools(ctx, w.Limit, w.Offset)
	if err != nil {
		return nil, r.fail(ctx, "schools", args, err)
	}
	out := make([]*schoolResolver, len(rows))
	for i := range rows {
		s.SchoolByID.Prime(rows[i].ID, &rows[i])
		out[i] = &schoolResolver{r: r, s: rows[i]}
	}
	return out, nil
}

func (r *Resolver) Student(ctx context.Context, args idArgs) (*studentResolver, error) {
	if _, err := authz.SignedIn(ctx); err != nil {
		return nil, r.fail(ctx, "student", args, err)
	}
	id, err := parseID("id", args.ID)
	if err != nil {
		return nil, r.fail(ctx, "student", args, err)
	}
	return r.loadStudent(ctx, id)
}

type studentsArgs struct {
	SchoolID *graphql.ID
	Limit    *int32
	Offset   *int32
}

func (r *Resolver) Students(ctx context.Context, args studentsArgs) ([]*studentResolver, error) {
	if _, err := authz.SignedIn(ctx); err != nil {
		return nil, r.fail(ctx, "students", args, err)
	}
	w, err := paging.Parse(args.Limit, args.Offset)
	if err != nil {
		return nil, r.fail(ctx, "students", args, err)
	}
	schoolID, err := parseOptID("schoolId", args.SchoolID)
	if err != nil {
		return nil, r.fail(ctx, "students", args, err)
	}
	s, err := scope(ctx)
	if err != nil {
		return nil, r.fail(ctx, "students", args, err)
	}
	rows, err := r.d.Store.ListStudents(ctx, schoolID, w.Limit, w.Offset)
	if err != nil {
		return nil, r.fail(ctx, "students", args, err)
	}
	out := make([]*studentResolver, len(rows))
	for i := range rows {
		s.StudentByID.Prime(rows[i].ID, &rows[i])
		out[i] = &studentResolver{r: r, s: rows[i]}
	}
	return out, nil
}
