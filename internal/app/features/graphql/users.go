package graphql

import (
	"context"
	"errors"

	"github.com/dalemusser/schoolhub/internal/app/policy/invariants"
	"github.com/dalemusser/schoolhub/internal/app/store/audit"
	"github.com/dalemusser/schoolhub/internal/app/store/storeerr"
	"github.com/dalemusser/schoolhub/internal/app/system/apperr"
	"github.com/dalemusser/schoolhub/internal/app/system/auth"
	"github.com/dalemusser/schoolhub/internal/app/system/authz"
	"github.com/dalemusser/schoolhub/internal/app/system/logctx"
	"github.com/dalemusser/schoolhub/internal/app/system/normalize"
	"github.com/dalemusser/schoolhub/internal/domain/models"
	graphql "github.com/graph-gophers/graphql-go"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// errBadLogin is returned for both unknown emails and wrong passwords.
var errBadLogin = apperr.New(apperr.Unauthorized, "invalid email or password")

type loginArgs struct {
	Email    string
	Password string
}

// redacted is what gets logged in place of login arguments.
type redacted struct {
	Email string `json:"email"`
}

type authPayload struct {
	token     string
	expiresAt graphql.Time
	user      *userResolver
}

func (p *authPayload) Token() string { return p.token }
func (p *authPayload) ExpiresAt() graphql.Time { return p.expiresAt }
func (p *authPayload) User() *userResolver { return p.user }

// Login exchanges credentials for a bearer token.
func (r *Resolver) Login(ctx context.Context, args loginArgs) (*authPayload, error) {
	in := redacted{Email: normalize.Email(args.Email)}
	if r.d.Tokens == nil {
		return nil, r.fail(ctx, "login", in, apperr.New(apperr.Internal, "token issuing is not configured"))
	}

	if ok, reason := r.d.Logins.Check(logctx.From(ctx).IP, in.Email); !ok {
		return nil, r.fail(ctx, "login", in, apperr.New(apperr.Unauthorized, "%s", reason))
	}

	u, err := r.d.Store.FindUserByEmail(ctx, in.Email)
	if errors.Is(err, storeerr.ErrNotFound) {
		r.d.Audit.LoginFailedUserNotFound(ctx, in.Email)
		return nil, r.fail(ctx, "login", in, errBadLogin)
	}
	if err != nil {
		return nil, r.fail(ctx, "login", in, err)
	}
	if u.PasswordHash == "" || !auth.CheckPassword(u.PasswordHash, args.Password) {
		r.d.Audit.LoginFailedWrongPassword(ctx, u.ID, in.Email)
		return nil, r.fail(ctx, "login", in, errBadLogin)
	}

	token, exp, err := r.d.Tokens.Issue(u)
	if err != nil {
		return nil, r.fail(ctx, "login", in, apperr.Wrap(apperr.Internal, err, "could not issue token"))
	}
	r.d.Logins.ResetEmail(in.Email)
	r.d.Audit.LoginSuccess(ctx, u.ID, u.Email)
	return &authPayload{
		token:     token,
		expiresAt: graphql.Time{Time: exp},
		user:      &userResolver{r: r, u: u},
	}, nil
}

type createUserArgs struct {
	Input createUserInput
}

// CreateUser adds an account. Admin only.
func (r *Resolver) CreateUser(ctx context.Context, args createUserArgs) (*userResolver, error) {
	in := redacted{Email: args.Input.Email}
	actor, err := authz.RequireAdmin(ctx)
	if err != nil {
		return nil, r.fail(ctx, "createUser", in, err)
	}
	d, err := newUserDraft(args.Input)
	if err != nil {
		return nil, r.fail(ctx, "createUser", in, err)
	}
	if err := r.d.Checker.RequireUnique(ctx, models.KindUser, "email", d.user.Email, nil); err != nil {
		return nil, r.fail(ctx, "createUser", in, err)
	}
	hash, err := auth.HashPassword(d.password)
	if err != nil {
		return nil, r.fail(ctx, "createUser", in, apperr.Wrap(apperr.Internal, err, "could not hash password"))
	}
	d.user.PasswordHash = hash
	d.user.CreatedBy = actor.ID

	u, err := r.d.Store.CreateUser(ctx, d.user)
	if err != nil {
		return nil, r.fail(ctx, "createUser", in, err)
	}
	r.d.Audit.Entity(ctx, audit.EventUserCreated, models.KindUser, u.ID, &actor.ID, nil)
	return &userResolver{r: r, u: u}, nil
}

type updateUserArgs struct {
	ID    graphql.ID
	Input updateUserInput
}

// UpdateUser edits names, email or password. Admins may edit anyone;
// other users only themselves.
func (r *Resolver) UpdateUser(ctx context.Context, args updateUserArgs) (*userResolver, error) {
	in := map[string]any{"id": args.ID}
	id, err := parseID("id", args.ID)
	if err != nil {
		return nil, r.fail(ctx, "updateUser", in, err)
	}
	actor, err := authz.RequireAdminOrSelf(ctx, id)
	if err != nil {
		return nil, r.fail(ctx, "updateUser", in, err)
	}
	p, err := newUserPatch(args.Input)
	if err != nil {
		return nil, r.fail(ctx, "updateUser", in, err)
	}
	if p.user.Email != "" {
		if err := r.d.Checker.RequireUnique(ctx, models.KindUser, "email", p.user.Email, &id); err != nil {
			return nil, r.fail(ctx, "updateUser", in, err)
		}
	}
	if p.password != "" {
		if p.user.PasswordHash, err = auth.HashPassword(p.password); err != nil {
			return nil, r.fail(ctx, "updateUser", in, apperr.Wrap(apperr.Internal, err, "could not hash password"))
		}
	}

	u, err := r.d.Store.UpdateUser(ctx, id, p.user)
	if err != nil {
		return nil, r.fail(ctx, "updateUser", in, err)
	}
	r.forgetUser(ctx, id)
	r.d.Audit.Entity(ctx, audit.EventUserUpdated, models.KindUser, id, &actor.ID, nil)
	return &userResolver{r: r, u: u}, nil
}

// DeleteUser soft-deletes an account. Admin only; nobody may delete themselves.
func (r *Resolver) DeleteUser(ctx context.Context, args idArgs) (*userResolver, error) {
	id, err := parseID("id", args.ID)
	if err != nil {
		return nil, r.fail(ctx, "deleteUser", args, err)
	}
	actor, err := authz.RequireAdmin(ctx)
	if err != nil {
		return nil, r.fail(ctx, "deleteUser", args, err)
	}
	if err := invariants.RequireNotSelf(actor.ID, id); err != nil {
		return nil, r.fail(ctx, "deleteUser", args, err)
	}

	u, err := r.d.Store.SoftDeleteUser(ctx, id, actor.ID)
	if err != nil {
		return nil, r.fail(ctx, "deleteUser", args, err)
	}
	r.forgetUser(ctx, id)
	r.d.Audit.Entity(ctx, audit.EventUserDeleted, models.KindUser, id, &actor.ID, nil)
	return &userResolver{r: r, u: u}, nil
}

type roleArgs struct {
	ID   graphql.ID
	Role string
}

// AddRole grants a role. Admin only.
func (r *Resolver) AddRole(ctx context.Context, args roleArgs) (*userResolver, error) {
	id, err := parseID("id", args.ID)
	if err != nil {
		return nil, r.fail(ctx, "addRole", args, err)
	}
	actor, err := authz.RequireAdmin(ctx)
	if err != nil {
		return nil, r.fail(ctx, "addRole", args, err)
	}
	name, err := role(args.Role)
	if err != nil {
		return nil, r.fail(ctx, "addRole", args, err)
	}

	u, err := r.d.Store.AddRoles(ctx, id, []string{name})
	if err != nil {
		return nil, r.fail(ctx, "addRole", args, err)
	}
	r.forgetUser(ctx, id)
	r.d.Audit.RoleAdded(ctx, id, &actor.ID, name)
	return &userResolver{r: r, u: u}, nil
}

// DeleteRole revokes a role. Admin only; the base role is protected.
func (r *Resolver) DeleteRole(ctx context.Context, args roleArgs) (*userResolver, error) {
	id, err := parseID("id", args.ID)
	if err != nil {
		return nil, r.fail(ctx, "deleteRole", args, err)
	}
	actor, err := authz.RequireAdmin(ctx)
	if err != nil {
		return nil, r.fail(ctx, "deleteRole", args, err)
	}
	name := normalize.Role(args.Role)
	if err := invariants.RequireRemovableRole(name); err != nil {
		return nil, r.fail(ctx, "deleteRole", args, err)
	}

	u, err := r.d.Store.RemoveRole(ctx, id, name)
	if err != nil {
		return nil, r.fail(ctx, "deleteRole", args, err)
	}
	r.forgetUser(ctx, id)
	r.d.Audit.RoleRemoved(ctx, id, &actor.ID, name)
	return &userResolver{r: r, u: u}, nil
}

func (r *Resolver) forgetUser(ctx context.Context, id primitive.ObjectID) {
	if s, err := scope(ctx); err == nil {
		s.ForgetUser(id)
	}
}
