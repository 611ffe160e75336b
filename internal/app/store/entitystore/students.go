// internal/app/store/entitystore/students.go
package entitystore

import (
	"context"
	"time"

	"github.com/dalemusser/schoolhub/internal/app/store/storeerr"
	"github.com/dalemusser/schoolhub/internal/app/system/status"
	"github.com/dalemusser/schoolhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CreateStudent inserts st as an active student. The school index is
// maintained separately by the relationship maintainer.
func (s *Store) CreateStudent(ctx context.Context, st models.Student) (models.Student, error) {
	now := time.Now().UTC()
	st.ID = primitive.NewObjectID()
	st.Status = status.Active
	st.CreatedAt = now
	st.UpdatedAt = now
	if err := s.Create(ctx, models.KindStudent, st); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Student{}, storeerr.ErrDuplicateEmail
		}
		return models.Student{}, err
	}
	return st, nil
}

// GetStudent returns the active student with id.
func (s *Store) GetStudent(ctx context.Context, id primitive.ObjectID) (models.Student, error) {
	var st models.Student
	ok, err := s.FindOne(ctx, models.KindStudent, bson.M{"_id": id}, &st)
	if err != nil {
		return models.Student{}, err
	}
	if !ok {
		return models.Student{}, storeerr.ErrNotFound
	}
	return st, nil
}

func (s *Store) findStudentsIn(ctx context.Context, field string, ids []primitive.ObjectID) ([]models.Student, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var students []models.Student
	err := s.Find(ctx, models.KindStudent, bson.M{field: bson.M{"$in": ids}}, &students,
		Sort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	return students, nil
}

// FindStudentsByIDs loads the active students among ids.
func (s *Store) FindStudentsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Student, error) {
	return s.findStudentsIn(ctx, "_id", ids)
}

// FindStudentsBySchoolIDs loads the active students enrolled in any of schoolIDs.
func (s *Store) FindStudentsBySchoolIDs(ctx context.Context, schoolIDs []primitive.ObjectID) ([]models.Student, error) {
	return s.findStudentsIn(ctx, "school_id", schoolIDs)
}

// FindStudentsByUserIDs loads the active students linked to any of userIDs.
func (s *Store) FindStudentsByUserIDs(ctx context.Context, userIDs []primitive.ObjectID) ([]models.Student, error) {
	return s.findStudentsIn(ctx, "user_id", userIDs)
}

// ListStudents pages through active students, optionally within one school.
func (s *Store) ListStudents(ctx context.Context, schoolID *primitive.ObjectID, limit, offset int64) ([]models.Student, error) {
	filter := bson.M{}
	if schoolID != nil {
		filter["school_id"] = *schoolID
	}
	var students []models.Student
	err := s.Find(ctx, models.KindStudent, filter, &students,
		Sort(bson.D{{Key: "_id", Value: 1}}), Page(limit, offset))
	if err != nil {
		return nil, err
	}
	return students, nil
}

// ActiveStudentIDsBySchool returns the ids of active students whose
// school_id is schoolID.
func (s *Store) ActiveStudentIDsBySchool(ctx context.Context, schoolID primitive.ObjectID) ([]primitive.ObjectID, error) {
	var rows []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	err := s.Find(ctx, models.KindStudent, bson.M{"school_id": schoolID}, &rows,
		Sort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	return ids, nil
}

// CountActiveStudentsBySchool counts active students referencing schoolID.
func (s *Store) CountActiveStudentsBySchool(ctx context.Context, schoolID primitive.ObjectID) (int64, error) {
	return s.Count(ctx, models.KindStudent, bson.M{"school_id": schoolID})
}

// UpdateStudent sets the non-empty fields of patch. A non-zero SchoolID
// moves the student; the caller keeps the school index in step.
func (s *Store) UpdateStudent(ctx context.Context, id primitive.ObjectID, patch models.Student) (models.Student, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if patch.FirstName != "" {
		set["first_name"] = patch.FirstName
	}
	if patch.LastName != "" {
		set["last_name"] = patch.LastName
	}
	if patch.Email != "" {
		set["email"] = patch.Email
	}
	if patch.DateOfBirth != nil {
		set["date_of_birth"] = *patch.DateOfBirth
	}
	if !patch.SchoolID.IsZero() {
		set["school_id"] = patch.SchoolID
	}
	return s.updateStudent(ctx, id, bson.M{"$set": set})
}

// SoftDeleteStudent marks the student deleted by actor.
func (s *Store) SoftDeleteStudent(ctx context.Context, id, actor primitive.ObjectID) (models.Student, error) {
	return s.updateStudent(ctx, id, softDelete(actor))
}

// HardDeleteStudent removes the student document. Used to undo a
// partially completed multi-step create.
func (s *Store) HardDeleteStudent(ctx context.Context, id primitive.ObjectID) error {
	return s.HardDelete(ctx, models.KindStudent, id)
}

func (s *Store) updateStudent(ctx context.Context, id primitive.ObjectID, patch bson.M) (models.Student, error) {
	var st models.Student
	ok, err := s.UpdateOne(ctx, models.KindStudent, bson.M{"_id": id}, patch, &st)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return models.Student{}, storeerr.ErrDuplicateEmail
		}
		return models.Student{}, err
	}
	if !ok {
		return models.Student{}, storeerr.ErrNotFound
	}
	return st, nil
}
