package graphql

import (
	"context"
	"fmt"

	"github.com/dalemusser/schoolhub/internal/app/system/apperr"
	"github.com/dalemusser/schoolhub/internal/app/system/errorsink"
	"github.com/dalemusser/schoolhub/internal/app/system/loaders"
	"github.com/dalemusser/schoolhub/internal/app/system/logctx"
	"github.com/dalemusser/schoolhub/internal/app/system/metrics"
	graphql "github.com/graph-gophers/graphql-go"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// fail classifies err, counts it, reports it to the error sink and
// returns it in the form graphql-go turns into {"extensions":{"code":..}}.
// The *apperr.Error must be returned unwrapped for that to work.
func (r *Resolver) fail(ctx context.Context, op string, input any, err error) error {
	if err == nil {
		return nil
	}
	e := apperr.From(err)
	metrics.GraphQLErrors.WithLabelValues(string(e.Code)).Inc()

	log := logctx.Logger(ctx, r.d.Log).With(zap.String("op", op), zap.String("code", string(e.Code)))
	switch e.Code {
	case apperr.BackendUnavailable, apperr.Internal:
		log.Error("graphql operation failed", zap.Error(err))
	default:
		log.Debug("graphql operation rejected", zap.String("reason", e.Msg))
	}

	r.d.Sink.Log(ctx, errorsink.Entry{
		Stack:          fmt.Sprintf("%+v", err),
		FunctionName:   op,
		Path:           logctx.From(ctx).Path,
		ParameterInput: input,
	})
	return e
}

// scope returns the request's loader scope.
func scope(ctx context.Context) (*loaders.Scope, error) {
	s, ok := loaders.FromContext(ctx)
	if !ok {
		return nil, apperr.New(apperr.Internal, "request has no loader scope")
	}
	return s, nil
}

func parseID(field string, id graphql.ID) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(string(id))
	if err != nil {
		return primitive.NilObjectID, apperr.New(apperr.InvalidArgument, "%s is not a valid id", field)
	}
	return oid, nil
}

func parseOptID(field string, id *graphql.ID) (*primitive.ObjectID, error) {
	if id == nil {
		return nil, nil
	}
	oid, err := parseID(field, *id)
	if err != nil {
		return nil, err
	}
	return &oid, nil
}

// paging applies defaults and bounds to limit/offset arguments.