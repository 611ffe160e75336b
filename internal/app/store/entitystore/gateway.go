// internal/app/store/entitystore/gateway.go
package entitystore

import (
	"context"

	"github.com/dalemusser/schoolhub/internal/app/system/apperr"
	"github.com/dalemusser/schoolhub/internal/app/system/paging"
	"github.com/dalemusser/schoolhub/internal/app/system/status"
	"github.com/dalemusser/schoolhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Store is the MongoDB entity gateway for users, schools and students.
//
// Every read and write goes through scope(), which adds the default
// status != "deleted" condition unless the caller passes IncludeDeleted
// or names status in the filter itself.
type Store struct {
	db  *mongo.Database
	log *zap.Logger
}

func New(db *mongo.Database, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{db: db, log: log}
}

// Option adjusts a single gateway call.
type Option func(*callOpts)

type callOpts struct {
	includeDeleted bool
	sort           bson.D
	limit, skip    int64
}

// IncludeDeleted disables the default soft-delete filter.
func IncludeDeleted() Option { return func(o *callOpts) { o.includeDeleted = true } }

// Sort orders Find results.
func Sort(d bson.D) Option { return func(o *callOpts) { o.sort = d } }

// Page limits Find results. Zero limit means no limit.
func Page(limit, offset int64) Option {
	return func(o *callOpts) { o.limit, o.skip = limit, offset }
}

func collect(opts []Option) callOpts {
	var o callOpts
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

func (s *Store) coll(kind models.Kind) *mongo.Collection {
	return s.db.Collection(kind.Collection())
}

// scope returns a copy of filter with the soft-delete condition applied.
func scope(filter bson.M, o callOpts) bson.M {
	out := bson.M{}
	for k, v := range filter {
		out[k] = v
	}
	if o.includeDeleted {
		return out
	}
	if _, ok := out["status"]; !ok {
		out["status"] = bson.M{"$ne": status.Deleted}
	}
	return out
}

// fail classifies a driver error as a backend failure.
func fail(err error, format string, args ...any) error {
	return apperr.Unavailable(errors.Wrapf(err, format, args...))
}

// Find decodes every matching record of kind into out (a pointer to a slice).
func (s *Store) Find(ctx context.Context, kind models.Kind, filter bson.M, out any, opts ...Option) error {
	o := collect(opts)
	fo := options.Find()
	if len(o.sort) > 0 {
		fo.SetSort(o.sort)
	}
	paging.ApplyToFind(fo, o.limit, o.skip)
	cur, err := s.coll(kind).Find(ctx, scope(filter, o), fo)
	if err != nil {
		return fail(err, "find %s", kind)
	}
	defer cur.Close(ctx)
	if err := cur.All(ctx, out); err != nil {
		return fail(err, "decode %s", kind)
	}
	return nil
}

// FindOne decodes the first match into out. It reports false when
// nothing matched.
func (s *Store) FindOne(ctx context.Context, kind models.Kind, filter bson.M, out any, opts ...Option) (bool, error) {
	err := s.coll(kind).FindOne(ctx, scope(filter, collect(opts))).Decode(out)
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, fail(err, "find one %s", kind)
	}
	return true, nil
}

// Exists reports whether any record of kind matches filter.
func (s *Store) Exists(ctx context.Context, kind models.Kind, filter bson.M, opts ...Option) (bool, error) {
	err := s.coll(kind).FindOne(ctx, scope(filter, collect(opts)),
		options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, fail(err, "exists %s", kind)
	}
	return true, nil
}

// Count returns the number of records of kind matching filter.
func (s *Store) Count(ctx context.Context, kind models.Kind, filter bson.M, opts ...Option) (int64, error) {
	n, err := s.coll(kind).CountDocuments(ctx, scope(filter, collect(opts)))
	if err != nil {
		return 0, fail(err, "count %s", kind)
	}
	return n, nil
}

// Create inserts doc. Duplicate-key errors are returned unwrapped so the
// typed helpers can map them to the right sentinel.
func (s *Store) Create(ctx context.Context, kind models.Kind, doc any) error {
	if _, err := s.coll(kind).InsertOne(ctx, doc); err != nil {
		if wafflemongo.IsDup(err) {
			return err
		}
		return fail(err, "create %s", kind)
	}
	return nil
}

// UpdateOne applies patch to the first match and decodes the updated
// record into out (which may be nil). It reports false when nothing matched.
// Duplicate-key errors are returned unwrapped.
func (s *Store) UpdateOne(ctx context.Context, kind models.Kind, filter, patch bson.M, out any, opts ...Option) (bool, error) {
	res := s.coll(kind).FindOneAndUpdate(ctx, scope(filter, collect(opts)), patch,
		options.FindOneAndUpdate().SetReturnDocument(options.After))
	err := res.Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		if wafflemongo.IsDup(err) {
			return false, err
		}
		return false, fail(err, "update %s", kind)
	}
	if out != nil {
		if err := res.Decode(out); err != nil {
			return false, fail(err, "decode %s", kind)
		}
	}
	return true, nil
}

// Op is one update in a BulkWrite.
type Op struct {
	Filter bson.M
	Update bson.M
}

// BulkWrite sends ops to the server in one ordered round-trip. The
// default filter is applied to every op.
func (s *Store) BulkWrite(ctx context.Context, kind models.Kind, ops []Op, opts ...Option) error {
	if len(ops) == 0 {
		return nil
	}
	o := collect(opts)
	wm := make([]mongo.WriteModel, 0, len(ops))
	for _, op := range ops {
		wm = append(wm, mongo.NewUpdateOneModel().SetFilter(scope(op.Filter, o)).SetUpdate(op.Update))
	}
	if _, err := s.coll(kind).BulkWrite(ctx, wm, options.BulkWrite().SetOrdered(true)); err != nil {
		return fail(err, "bulk write %s", kind)
	}
	return nil
}

// HardDelete removes the record outright. Only compensating steps use it;
// normal deletes are soft.
func (s *Store) HardDelete(ctx context.Context, kind models.Kind, id any) error {
	if _, err := s.coll(kind).DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fail(err, "delete %s", kind)
	}
	return nil
}
