package graphql

import (
	"context"
	"time"

	"github.com/dalemusser/schoolhub/internal/app/store/audit"
	"github.com/dalemusser/schoolhub/internal/app/system/apperr"
	"github.com/dalemusser/schoolhub/internal/app/system/auth"
	"github.com/dalemusser/schoolhub/internal/app/system/authz"
	"github.com/dalemusser/schoolhub/internal/app/system/compensate"
	"github.com/dalemusser/schoolhub/internal/app/system/logctx"
	"github.com/dalemusser/schoolhub/internal/domain/models"
	graphql "github.com/graph-gophers/graphql-go"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// atomically runs fn in a transaction when the store supports one. Every
// step fn registers is undone, newest first, if fn or the commit fails,
// so standalone servers and the in-memory store end up in the same state
// a rolled-back transaction would leave. The undo runs outside the
// session on the request context.
func (r *Resolver) atomically(ctx context.Context, fn func(ctx context.Context, steps *compensate.Steps) error) error {
	var steps compensate.Steps
	err := r.d.Txn.Run(ctx, func(tctx context.Context) error {
		// The driver may retry fn on a transient error.
		steps = compensate.Steps{}
		return fn(tctx, &steps)
	})
	if err != nil {
		_ = steps.Rollback(ctx, logctx.Logger(ctx, r.d.Log))
	}
	return err
}

type createStudentArgs struct {
	Input createStudentInput
}

// CreateStudent adds a student and lists it on its school. Admins and
// staff only.
func (r *Resolver) CreateStudent(ctx context.Context, args createStudentArgs) (*studentResolver, error) {
	in := redacted{Email: args.Input.Email}
	actor, err := authz.RequireStudentManager(ctx)
	if err != nil {
		return nil, r.fail(ctx, "createStudent", in, err)
	}
	st, err := newStudent(args.Input, time.Now().UTC())
	if err != nil {
		return nil, r.fail(ctx, "createStudent", in, err)
	}
	if err := r.d.Checker.RequireUnique(ctx, models.KindStudent, "email", st.Email, nil); err != nil {
		return nil, r.fail(ctx, "createStudent", in, err)
	}
	if err := r.d.Checker.RequireActive(ctx, models.KindSchool, st.SchoolID); err != nil {
		return nil, r.fail(ctx, "createStudent", in, err)
	}
	if st.UserID != nil {
		if err := r.requireUnlinkedUser(ctx, *st.UserID); err != nil {
			return nil, r.fail(ctx, "createStudent", in, err)
		}
	}
	st.CreatedBy = actor.ID

	err = r.atomically(ctx, func(ctx context.Context, steps *compensate.Steps) error {
		created, err := r.d.Store.CreateStudent(ctx, st)
		if err != nil {
			return err
		}
		steps.Add("delete student", func(ctx context.Context) error {
			return r.d.Store.HardDeleteStudent(ctx, created.ID)
		})
		st = created
		return r.d.Relations.OnStudentCreated(ctx, created)
	})
	if err != nil {
		return nil, r.fail(ctx, "createStudent", in, err)
	}

	r.forgetStudent(ctx, st)
	r.d.Audit.Entity(ctx, audit.EventStudentCreated, models.KindStudent, st.ID, &actor.ID, map[string]string{"school_id": st.SchoolID.Hex()})
	return &studentResolver{r: r, s: st}, nil
}

// requireUnlinkedUser fails unless userID is an active user with no
// active student record.
func (r *Resolver) requireUnlinkedUser(ctx context.Context, userID primitive.ObjectID) error {
	if err := r.d.Checker.RequireActive(ctx, models.KindUser, userID); err != nil {
		return err
	}
	linked, err := r.d.Store.FindStudentsByUserIDs(ctx, []primitive.ObjectID{userID})
	if err != nil {
		return err
	}
	if len(linked) > 0 {
		return apperr.New(apperr.ConflictAlreadyExists, "this user already has a student record")
	}
	return nil
}

type createStudentWithUserArgs struct {
	Input createStudentWithUserInput
}

// CreateStudentWithUser creates a login account and a student linked to
// it. Either both records exist afterwards or neither does.
func (r *Resolver) CreateStudentWithUser(ctx context.Context, args createStudentWithUserArgs) (*studentResolver, error) {
	in := redacted{Email: args.Input.Email}
	actor, err := authz.RequireStudentManager(ctx)
	if err != nil {
		return nil, r.fail(ctx, "createStudentWithUser", in, err)
	}
	d, err := newStudentWithUser(args.Input, time.Now().UTC())
	if err != nil {
		return nil, r.fail(ctx, "createStudentWithUser", in, err)
	}
	st := d.student
	if err := r.d.Checker.RequireUnique(ctx, models.KindUser, "email", st.Email, nil); err != nil {
		return nil, r.fail(ctx, "createStudentWithUser", in, err)
	}
	if err := r.d.Checker.RequireUnique(ctx, models.KindStudent, "email", st.Email, nil); err != nil {
		return nil, r.fail(ctx, "createStudentWithUser", in, err)
	}
	if err := r.d.Checker.RequireActive(ctx, models.KindSchool, st.SchoolID); err != nil {
		return nil, r.fail(ctx, "createStudentWithUser", in, err)
	}
	hash, err := auth.HashPassword(d.password)
	if err != nil {
		return nil, r.fail(ctx, "createStudentWithUser", in, apperr.Wrap(apperr.Internal, err, "could not hash password"))
	}
	st.CreatedBy = actor.ID

	var u models.User
	err = r.atomically(ctx, func(ctx context.Context, steps *compensate.Steps) error {
		var err error
		u, err = r.d.Store.CreateUser(ctx, models.User{
			FirstName:    st.FirstName,
			LastName:     st.LastName,
			Email:        st.Email,
			PasswordHash: hash,
			Roles:        models.WithBaseRole(nil),
			CreatedBy:    actor.ID,
		})
		if err != nil {
			return err
		}
		userID := u.ID
		steps.Add("delete user", func(ctx context.Context) error {
			return r.d.Store.HardDeleteUser(ctx, userID)
		})

		draft := st
		draft.UserID = &userID
		created, err := r.d.Store.CreateStudent(ctx, draft)
		if err != nil {
			return err
		}
		steps.Add("delete student", func(ctx context.Context) error {
			return r.d.Store.HardDeleteStudent(ctx, created.ID)
		})
		st = created
		return r.d.Relations.OnStudentCreated(ctx, created)
	})
	if err != nil {
		return nil, r.fail(ctx, "createStudentWithUser", in, err)
	}

	r.forgetStudent(ctx, st)
	r.d.Audit.Entity(ctx, audit.EventUserCreated, models.KindUser, u.ID, &actor.ID, map[string]string{"student_id": st.ID.Hex()})
	r.d.Audit.Entity(ctx, audit.EventStudentCreated, models.KindStudent, st.ID, &actor.ID, map[string]string{"school_id": st.SchoolID.Hex()})
	return &studentResolver{r: r, s: st}, nil
}

type updateStudentArgs struct {
	ID    graphql.ID
	Input updateStudentInput
}

// UpdateStudent edits a student. A new schoolId moves the student: both
// schools' arrays change with the student record or not at all.
func (r *Resolver) UpdateStudent(ctx context.Context, args updateStudentArgs) (*studentResolver, error) {
	id, err := parseID("id", args.ID)
	if err != nil {
		return nil, r.fail(ctx, "updateStudent", args, err)
	}
	actor, err := authz.RequireStudentManager(ctx)
	if err != nil {
		return nil, r.fail(ctx, "updateStudent", args, err)
	}
	patch, err := newStudentPatch(args.Input, time.Now().UTC())
	if err != nil {
		return nil, r.fail(ctx, "updateStudent", args, err)
	}
	if patch.Email != "" {
		if err := r.d.Checker.RequireUnique(ctx, models.KindStudent, "email", patch.Email, &id); err != nil {
			return nil, r.fail(ctx, "updateStudent", args, err)
		}
	}
	old, err := r.d.Store.GetStudent(ctx, id)
	if err != nil {
		return nil, r.fail(ctx, "updateStudent", args, err)
	}
	moving := !patch.SchoolID.IsZero() && patch.SchoolID != old.SchoolID

	var updated models.Student
	err = r.atomically(ctx, func(ctx context.Context, steps *compensate.Steps) error {
		if moving {
			if err := r.d.Relations.OnStudentSchoolChanged(ctx, id, old.SchoolID, patch.SchoolID); err != nil {
				return err
			}
			steps.Add("move student back", func(ctx context.Context) error {
				return r.d.Store.MoveStudent(ctx, id, patch.SchoolID, old.SchoolID)
			})
		}
		var err error
		updated, err = r.d.Store.UpdateStudent(ctx, id, patch)
		return err
	})
	if err != nil {
		return nil, r.fail(ctx, "updateStudent", args, err)
	}

	r.forgetStudent(ctx, old)
	r.forgetStudent(ctx, updated)
	if moving {
		r.d.Audit.StudentMoved(ctx, id, old.SchoolID, updated.SchoolID, &actor.ID)
	}
	r.d.Audit.Entity(ctx, audit.EventStudentUpdated, models.KindStudent, id, &actor.ID, nil)
	return &studentResolver{r: r, s: updated}, nil
}

// DeleteStudent soft-deletes a student and takes it off every school
// that lists it. Admins and staff only.
func (r *Resolver) DeleteStudent(ctx context.Context, args idArgs) (*studentResolver, error) {
	id, err := parseID("id", args.ID)
	if err != nil {
		return nil, r.fail(ctx, "deleteStudent", args, err)
	}
	actor, err := authz.RequireStudentManager(ctx)
	if err != nil {
		return nil, r.fail(ctx, "deleteStudent", args, err)
	}
	old, err := r.d.Store.GetStudent(ctx, id)
	if err != nil {
		return nil, r.fail(ctx, "deleteStudent", args, err)
	}

	var (
		deleted models.Student
		pulled  []primitive.ObjectID
	)
	err = r.atomically(ctx, func(ctx context.Context, steps *compensate.Steps) error {
		var err error
		pulled, err = r.d.Relations.OnStudentDeleted(ctx, id)
		for _, schoolID := range pulled {
			steps.Add("relist student", func(ctx context.Context) error {
				return r.d.Store.AddStudentToSchool(ctx, schoolID, id)
			})
		}
		if err != nil {
			return err
		}
		deleted, err = r.d.Store.SoftDeleteStudent(ctx, id, actor.ID)
		return err
	})
	if err != nil {
		return nil, r.fail(ctx, "deleteStudent", args, err)
	}

	r.forgetStudent(ctx, old)
	for _, schoolID := range pulled {
		r.forgetSchool(ctx, schoolID)
	}
	r.d.Audit.Entity(ctx, audit.EventStudentDeleted, models.KindStudent, id, &actor.ID, nil)
	return &studentResolver{r: r, s: deleted}, nil
}

func (r *Resolver) forgetStudent(ctx context.Context, st models.Student) {
	if s, err := scope(ctx); err == nil {
		s.ForgetStudent(st)
	}
}
