// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown stops background work, flushes pending error-log writes and
// then disconnects from MongoDB.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if svc := deps.Services; svc != nil {
		if svc.reconciler != nil {
			svc.reconciler.Stop()
		}
		svc.Sink.Wait()
	}

	if deps.SchoolHubMongoClient != nil {
		logger.Info("disconnecting SchoolHub MongoDB client")
		if err := deps.SchoolHubMongoClient.Disconnect(ctx); err != nil {
			logger.Error("MongoDB disconnect failed", zap.Error(err))
			return err
		}
	}
	return nil
}
