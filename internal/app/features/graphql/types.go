package graphql

import (
	"context"

	"github.com/dalemusser/schoolhub/internal/domain/models"
	graphql "github.com/graph-gophers/graphql-go"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func gid(id primitive.ObjectID) graphql.ID { return graphql.ID(id.Hex()) }

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// createdBy resolves a creator reference through the UserByID loader.
func (r *Resolver) createdBy(ctx context.Context, id primitive.ObjectID) (*userResolver, error) {
	if id.IsZero() {
		return nil, nil
	}
	return r.loadUser(ctx, id)
}

func (r *Resolver) loadUser(ctx context.Context, id primitive.ObjectID) (*userResolver, error) {
	s, err := scope(ctx)
	if err != nil {
		return nil, r.fail(ctx, "loadUser", id.Hex(), err)
	}
	u, err := s.UserByID.Load(ctx, id)
	if err != nil {
		return nil, r.fail(ctx, "loadUser", id.Hex(), err)
	}
	if u == nil {
		return nil, nil
	}
	return &userResolver{r: r, u: *u}, nil
}

func (r *Resolver) loadSchool(ctx context.Context, id primitive.ObjectID) (*schoolResolver, error) {
	s, err := scope(ctx)
	if err != nil {
		return nil, r.fail(ctx, "loadSchool", id.Hex(), err)
	}
	sc, err := s.SchoolByID.Load(ctx, id)
	if err != nil {
		return nil, r.fail(ctx, "loadSchool", id.Hex(), err)
	}
	if sc == nil {
		return nil, nil
	}
	return &schoolResolver{r: r, s: *sc}, nil
}

func (r *Resolver) loadStudent(ctx context.Context, id primitive.ObjectID) (*studentResolver, error) {
	s, err := scope(ctx)
	if err != nil {
		return nil, r.fail(ctx, "loadStudent", id.Hex(), err)
	}
	st, err := s.StudentByID.Load(ctx, id)
	if err != nil {
		return nil, r.fail(ctx, "loadStudent", id.Hex(), err)
	}
	if st == nil {
		return nil, nil
	}
	return &studentResolver{r: r, s: *st}, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| User                                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

type userResolver struct {
	r *Resolver
	u models.User
}

func (u *userResolver) ID() graphql.ID { return gid(u.u.ID) }
func (u *userResolver) FirstName() string { return u.u.FirstName }
func (u *userResolver) LastName() string { return u.u.LastName }
func (u *userResolver) Email() string { return u.u.Email }
func (u *userResolver) Roles() []string { return append([]string(nil), u.u.Roles...) }
func (u *userResolver) Status() string { return u.u.Status }
func (u *userResolver) CreatedAt() graphql.Time { return graphql.Time{Time: u.u.CreatedAt} }
func (u *userResolver) UpdatedAt() graphql.Time { return graphql.Time{Time: u.u.UpdatedAt} }

// Student is the student record linked to this account, if any.
func (u *userResolver) Student(ctx context.Context) (*studentResolver, error) {
	s, err := scope(ctx)
	if err != nil {
		return nil, u.r.fail(ctx, "User.student", u.u.ID.Hex(), err)
	}
	st, err := s.StudentByUser.Load(ctx, u.u.ID)
	if err != nil {
		return nil, u.r.fail(ctx, "User.student", u.u.ID.Hex(), err)
	}
	if st == nil {
		return nil, nil
	}
	return &studentResolver{r: u.r, s: *st}, nil
}

func (u *userResolver) CreatedBy(ctx context.Context) (*userResolver, error) {
	return u.r.createdBy(ctx, u.u.CreatedBy)
}

/*─────────────────────────────────────────────────────────────────────────────*
| School                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

type schoolResolver struct {
	r *Resolver
	s models.School
}

func (s *schoolResolver) ID() graphql.ID { return gid(s.s.ID) }
func (s *schoolResolver) BrandName() string { return s.s.BrandName }
func (s *schoolResolver) LongName() string { return s.s.LongName }
func (s *schoolResolver) Address() *string { return optString(s.s.Address) }
func (s *schoolResolver) Country() *string { return optString(s.s.Country) }
func (s *schoolResolver) City() *string { return optString(s.s.City) }
func (s *schoolResolver) Zipcode() *string { return optString(s.s.Zipcode) }
func (s *schoolResolver) Status() string { return s.s.Status }
func (s *schoolResolver) CreatedAt() graphql.Time { return graphql.Time{Time: s.s.CreatedAt} }
func (s *schoolResolver) UpdatedAt() graphql.Time { return graphql.Time{Time: s.s.UpdatedAt} }

// Students lists the school's active students. It reads student.school_id,
// not the denormalized array, so a drifted array never hides a student.
func (s *schoolResolver) Students(ctx context.Context) ([]*studentResolver, error) {
	sc, err := scope(ctx)
	if err != nil {
		return nil, s.r.fail(ctx, "School.students", s.s.ID.Hex(), err)
	}
	rows, err := sc.StudentsBySchool.Load(ctx, s.s.ID)
	if err != nil {
		return nil, s.r.fail(ctx, "School.students", s.s.ID.Hex(), err)
	}
	out := make([]*studentResolver, len(rows))
	for i, st := range rows {
		sc.StudentByID.Prime(st.ID, &rows[i])
		out[i] = &studentResolver{r: s.r, s: st}
	}
	return out, nil
}

func (s *schoolResolver) CreatedBy(ctx context.Context) (*userResolver, error) {
	return s.r.createdBy(ctx, s.s.CreatedBy)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Student                                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

type studentResolver struct {
	r *Resolver
	s models.Student
}

func (s *studentResolver) ID() graphql.ID { return gid(s.s.ID) }
func (s *studentResolver) FirstName() string { return s.s.FirstName }
func (s *studentResolver) LastName() string { return s.s.LastName }
func (s *studentResolver) Email() string { return s.s.Email }
func (s *studentResolver) Status() string { return s.s.Status }
func (s *studentResolver) CreatedAt() graphql.Time { return graphql.Time{Time: s.s.CreatedAt} }
func (s *studentResolver) UpdatedAt() graphql.Time { return graphql.Time{Time: s.s.UpdatedAt} }

func (s *studentResolver) DateOfBirth() *string {
	if s.s.DateOfBirth == nil {
		return nil
	}
	d := s.s.DateOfBirth.UTC().Format(dateLayout)
	return &d
}

// School is nil when the student's school has been deleted.
func (s *studentResolver) School(ctx context.Context) (*schoolResolver, error) {
	return s.r.loadSchool(ctx, s.s.SchoolID)
}

func (s *studentResolver) User(ctx context.Context) (*userResolver, error) {
	if s.s.UserID == nil {
		return nil, nil
	}
	return s.r.loadUser(ctx, *s.s.UserID)
}

func (s *studentResolver) CreatedBy(ctx context.Context) (*userResolver, error) {
	return s.r.createdBy(ctx, s.s.CreatedBy)
}
