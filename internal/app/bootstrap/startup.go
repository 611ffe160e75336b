// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/schoolhub/internal/app/store/storeerr"
	"github.com/dalemusser/schoolhub/internal/app/system/auth"
	"github.com/dalemusser/schoolhub/internal/app/system/metrics"
	"github.com/dalemusser/schoolhub/internal/app/system/normalize"
	"github.com/dalemusser/schoolhub/internal/app/system/timeouts"
	"github.com/dalemusser/schoolhub/internal/app/system/workers"
	"github.com/dalemusser/schoolhub/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built: metric
// registration, the bootstrap admin, and the reconcile worker.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("metrics registration failed", zap.Error(err))
		return err
	}

	svc := deps.Services
	if appCfg.AdminEmail != "" {
		if err := ensureAdmin(ctx, svc.Store, appCfg.AdminEmail, appCfg.AdminPassword, logger); err != nil {
			return err
		}
	}

	if appCfg.ReconcileInterval > 0 {
		svc.reconciler = workers.NewReconciler(svc.Relations, logger, appCfg.ReconcileInterval, timeouts.Batch())
		svc.reconciler.Start()
	}
	return nil
}

// adminStore is the slice of the entity store ensureAdmin needs.
type adminStore interface {
	FindUserByEmail(ctx context.Context, email string) (models.User, error)
	CreateUser(ctx context.Context, u models.User) (models.User, error)
	AddRoles(ctx context.Context, id primitive.ObjectID, roles []string) (models.User, error)
}

// ensureAdmin makes sure an active user with email holds the admin role,
// creating the account when none exists.
func ensureAdmin(ctx context.Context, store adminStore, email, password string, logger *zap.Logger) error {
	email = normalize.Email(email)

	u, err := store.FindUserByEmail(ctx, email)
	switch {
	case err == nil:
		if u.HasRole(models.RoleAdmin) {
			return nil
		}
		if _, err := store.AddRoles(ctx, u.ID, []string{models.RoleAdmin}); err != nil {
			logger.Error("failed to promote bootstrap admin", zap.String("email", email), zap.Error(err))
			return err
		}
		logger.Info("promoted existing user to admin", zap.String("email", email))
		return nil
	case !errors.Is(err, storeerr.ErrNotFound):
		logger.Error("failed to look up bootstrap admin", zap.String("email", email), zap.Error(err))
		return err
	}

	if password == "" {
		return fmt.Errorf("admin_password is required to create bootstrap admin %s", email)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	u, err = store.CreateUser(ctx, models.User{
		FirstName:    "Admin",
		LastName:     "User",
		Email:        email,
		PasswordHash: hash,
		Roles:        models.WithBaseRole([]string{models.RoleAdmin}),
	})
	if err != nil {
		logger.Error("failed to create bootstrap admin", zap.String("email", email), zap.Error(err))
		return err
	}
	logger.Info("created bootstrap admin", zap.String("email", email), zap.String("user_id", u.ID.Hex()))
	return nil
}
