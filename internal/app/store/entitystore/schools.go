// internal/app/store/entitystore/schools.go
package entitystore

import (
	"context"
	"strings"
	"time"

	"github.com/dalemusser/schoolhub/internal/app/store/storeerr"
	"github.com/dalemusser/schoolhub/internal/app/system/status"
	"github.com/dalemusser/schoolhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CreateSchool inserts sc as an active school with an empty student index.
func (s *Store) CreateSchool(ctx context.Context, sc models.School) (models.School, error) {
	now := time.Now().UTC()
	sc.ID = primitive.NewObjectID()
	sc.BrandNameCI = text.Fold(sc.BrandName)
	sc.LongNameCI = text.Fold(sc.LongName)
	sc.Students = []primitive.ObjectID{}
	sc.Status = status.Active
	sc.CreatedAt = now
	sc.UpdatedAt = now
	if err := s.Create(ctx, models.KindSchool, sc); err != nil {
		if wafflemongo.IsDup(err) {
			return models.School{}, schoolDup(err)
		}
		return models.School{}, err
	}
	return sc, nil
}

// schoolDup picks the sentinel matching the index named in a duplicate-key error.
func schoolDup(err error) error {
	if strings.Contains(err.Error(), "brand_name_ci") {
		return storeerr.ErrDuplicateBrandName
	}
	return storeerr.ErrDuplicateLongName
}

// GetSchool returns the active school with id.
func (s *Store) GetSchool(ctx context.Context, id primitive.ObjectID) (models.School, error) {
	var sc models.School
	ok, err := s.FindOne(ctx, models.KindSchool, bson.M{"_id": id}, &sc)
	if err != nil {
		return models.School{}, err
	}
	if !ok {
		return models.School{}, storeerr.ErrNotFound
	}
	return sc, nil
}

// FindSchoolsByIDs loads the active schools among ids, in no particular order.
func (s *Store) FindSchoolsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.School, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var schools []models.School
	if err := s.Find(ctx, models.KindSchool, bson.M{"_id": bson.M{"$in": ids}}, &schools); err != nil {
		return nil, err
	}
	return schools, nil
}

// ListSchools pages through active schools ordered by long name.
func (s *Store) ListSchools(ctx context.Context, limit, offset int64) ([]models.School, error) {
	var schools []models.School
	err := s.Find(ctx, models.KindSchool, bson.M{}, &schools,
		Sort(bson.D{{Key: "long_name_ci", Value: 1}, {Key: "_id", Value: 1}}), Page(limit, offset))
	if err != nil {
		return nil, err
	}
	return schools, nil
}

// ListActiveSchoolIDs returns the id of every active school.
func (s *Store) ListActiveSchoolIDs(ctx context.Context) ([]primitive.ObjectID, error) {
	var rows []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := s.Find(ctx, models.KindSchool, bson.M{}, &rows); err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	return ids, nil
}

// UpdateSchool sets the non-empty descriptive fields of patch.
func (s *Store) UpdateSchool(ctx context.Context, id primitive.ObjectID, patch models.School) (models.School, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if patch.BrandName != "" {
		set["brand_name"] = patch.BrandName
		set["brand_name_ci"] = text.Fold(patch.BrandName)
	}
	if patch.LongName != "" {
		set["long_name"] = patch.LongName
		set["long_name_ci"] = text.Fold(patch.LongName)
	}
	if patch.Address != "" {
		set["address"] = patch.Address
	}
	if patch.Country != "" {
		set["country"] = patch.Country
	}
	if patch.City != "" {
		set["city"] = patch.City
	}
	if patch.Zipcode != "" {
		set["zipcode"] = patch.Zipcode
	}
	return s.updateSchool(ctx, id, bson.M{"$set": set})
}

// SoftDeleteSchool marks the school deleted by actor. Callers check for
// active students first.
func (s *Store) SoftDeleteSchool(ctx context.Context, id, actor primitive.ObjectID) (models.School, error) {
	return s.updateSchool(ctx, id, softDelete(actor))
}

func (s *Store) updateSchool(ctx context.Context, id primitive.ObjectID, patch bson.M) (models.School, error) {
	var sc models.School
	ok, err := s.UpdateOne(ctx, models.KindSchool, bson.M{"_id": id}, patch, &sc)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return models.School{}, schoolDup(err)
		}
		return models.School{}, err
	}
	if !ok {
		return models.School{}, storeerr.ErrNotFound
	}
	return sc, nil
}

// FindSchoolsListingStudent returns every active school whose student
// index contains studentID.
func (s *Store) FindSchoolsListingStudent(ctx context.Context, studentID primitive.ObjectID) ([]models.School, error) {
	var schools []models.School
	if err := s.Find(ctx, models.KindSchool, bson.M{"students": studentID}, &schools); err != nil {
		return nil, err
	}
	return schools, nil
}

// AddStudentToSchool adds studentID to the school's index if absent.
func (s *Store) AddStudentToSchool(ctx context.Context, schoolID, studentID primitive.ObjectID) error {
	ok, err := s.UpdateOne(ctx, models.KindSchool, bson.M{"_id": schoolID}, bson.M{
		"$addToSet": bson.M{"students": studentID},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	}, nil)
	if err != nil {
		return err
	}
	if !ok {
		return storeerr.ErrNotFound
	}
	return nil
}

// PullStudentFromSchool removes studentID from the school's index. A
// school that does not list the student is left untouched.
func (s *Store) PullStudentFromSchool(ctx context.Context, schoolID, studentID primitive.ObjectID) error {
	_, err := s.UpdateOne(ctx, models.KindSchool, bson.M{"_id": schoolID}, bson.M{
		"$pull": bson.M{"students": studentID},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}, nil)
	return err
}

// MoveStudent pulls studentID from one school's index and adds it to
// another's in a single bulk round-trip. The two writes are not atomic.
func (s *Store) MoveStudent(ctx context.Context, studentID, from, to primitive.ObjectID) error {
	now := time.Now().UTC()
	return s.BulkWrite(ctx, models.KindSchool, []Op{
		{
			Filter: bson.M{"_id": from},
			Update: bson.M{"$pull": bson.M{"students": studentID}, "$set": bson.M{"updated_at": now}},
		},
		{
			Filter: bson.M{"_id": to},
			Update: bson.M{"$addToSet": bson.M{"students": studentID}, "$set": bson.M{"updated_at": now}},
		},
	})
}

// SetSchoolStudents replaces the school's student index.
func (s *Store) SetSchoolStudents(ctx context.Context, schoolID primitive.ObjectID, ids []primitive.ObjectID) error {
	if ids == nil {
		ids = []primitive.ObjectID{}
	}
	_, err := s.UpdateOne(ctx, models.KindSchool, bson.M{"_id": schoolID}, bson.M{
		"$set": bson.M{"students": ids, "updated_at": time.Now().UTC()},
	}, nil)
	return err
}
