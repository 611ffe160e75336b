// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app. The Mongo
// fields are nil when store_backend is "memory".
type DBDeps struct {
	SchoolHubMongoClient   *mongo.Client
	SchoolHubMongoDatabase *mongo.Database

	// Services is shared by pointer so Startup can attach the workers it
	// starts and Shutdown can stop them.
	Services *Services
}
