// Package memstore is an in-process entity store with the same semantics
// as the MongoDB gateway: soft-deleted records are invisible, emails and
// school names are unique among active records, and every returned
// record is a copy.
//
// It backs the "memory" store_backend and the resolver and core tests.
package memstore

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dalemusser/schoolhub/internal/app/store/storeerr"
	"github.com/dalemusser/schoolhub/internal/app/system/paging"
	"github.com/dalemusser/schoolhub/internal/app/system/status"
	"github.com/dalemusser/schoolhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Store struct {
	mu       sync.RWMutex
	users    map[primitive.ObjectID]models.User
	schools  map[primitive.ObjectID]models.School
	students map[primitive.ObjectID]models.Student
}

func New() *Store {
	return &Store{
		users:    map[primitive.ObjectID]models.User{},
		schools:  map[primitive.ObjectID]models.School{},
		students: map[primitive.ObjectID]models.Student{},
	}
}

func active(st string) bool { return st != status.Deleted }

func less(a, b primitive.ObjectID) bool { return bytes.Compare(a[:], b[:]) < 0 }

func cloneIDs(ids []primitive.ObjectID) []primitive.ObjectID {
	out := make([]primitive.ObjectID, len(ids))
	copy(out, ids)
	return out
}

func cloneSchool(s models.School) models.School {
	s.Students = cloneIDs(s.Students)
	return s
}

func cloneUser(u models.User) models.User {
	u.Roles = append([]string(nil), u.Roles...)
	return u
}

func idSet(ids []primitive.ObjectID) map[primitive.ObjectID]bool {
	m := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}

func markDeleted(st *string, by **primitive.ObjectID, at **time.Time, updated *time.Time, actor primitive.ObjectID) {
	now := time.Now().UTC()
	*st = status.Deleted
	*by = &actor
	*at = &now
	*updated = now
}

// ExistsActive reports whether an active record of kind has this id.
func (s *Store) ExistsActive(_ context.Context, kind models.Kind, id primitive.ObjectID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch kind {
	case models.KindUser:
		u, ok := s.users[id]
		return ok && active(u.Status), nil
	case models.KindSchool:
		sc, ok := s.schools[id]
		return ok && active(sc.Status), nil
	case models.KindStudent:
		st, ok := s.students[id]
		return ok && active(st.Status), nil
	}
	return false, nil
}

// FieldTaken reports whether an active record of kind stores value in
// field, ignoring excludeID. Recognised fields are email for users and
// students, and long_name_ci / brand_name_ci for schools.
func (s *Store) FieldTaken(_ context.Context, kind models.Kind, field, value string, excludeID *primitive.ObjectID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var exclude primitive.ObjectID
	if excludeID != nil {
		exclude = *excludeID
	}
	return s.taken(kind, field, value, exclude), nil
}

// taken must be called with s.mu held.
func (s *Store) taken(kind models.Kind, field, value string, exclude primitive.ObjectID) bool {
	switch kind {
	case models.KindUser:
		for id, u := range s.users {
			if id != exclude && active(u.Status) && field == "email" && u.Email == value {
				return true
			}
		}
	case models.KindStudent:
		for id, st := range s.students {
			if id != exclude && active(st.Status) && field == "email" && st.Email == value {
				return true
			}
		}
	case models.KindSchool:
		for id, sc := range s.schools {
			if id == exclude || !active(sc.Status) {
				continue
			}
			if (field == "long_name_ci" && sc.LongNameCI == value) ||
				(field == "brand_name_ci" && sc.BrandNameCI == value) {
				return true
			}
		}
	}
	return false
}

// ---- users ----

func (s *Store) CreateUser(_ context.Context, u models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.taken(models.KindUser, "email", u.Email, primitive.NilObjectID) {
		return models.User{}, storeerr.ErrDuplicateEmail
	}
	now := time.Now().UTC()
	u.ID = primitive.NewObjectID()
	u.Roles = models.WithBaseRole(u.Roles)
	u.Status = status.Active
	u.CreatedAt = now
	u.UpdatedAt = now
	s.users[u.ID] = cloneUser(u)
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id primitive.ObjectID) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok || !active(u.Status) {
		return models.User{}, storeerr.ErrNotFound
	}
	return cloneUser(u), nil
}

func (s *Store) FindUserByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if active(u.Status) && u.Email == email {
			return cloneUser(u), nil
		}
	}
	return models.User{}, storeerr.ErrNotFound
}

func (s *Store) FindUsersByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.User
	for id := range idSet(ids) {
		if u, ok := s.users[id]; ok && active(u.Status) {
			out = append(out, cloneUser(u))
		}
	}
	return out, nil
}

func (s *Store) ListUsers(_ context.Context, limit, offset int64) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.User
	for _, u := range s.users {
		if active(u.Status) {
			out = append(out, cloneUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i].ID, out[j].ID) })
	return paging.Slice(out, limit, offset), nil
}

func (s *Store) UpdateUser(_ context.Context, id primitive.ObjectID, patch models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok || !active(u.Status) {
		return models.User{}, storeerr.ErrNotFound
	}
	if patch.Email != "" && s.taken(models.KindUser, "email", patch.Email, id) {
		return models.User{}, storeerr.ErrDuplicateEmail
	}
	if patch.FirstName != "" {
		u.FirstName = patch.FirstName
	}
	if patch.LastName != "" {
		u.LastName = patch.LastName
	}
	if patch.Email != "" {
		u.Email = patch.Email
	}
	if patch.PasswordHash != "" {
		u.PasswordHash = patch.PasswordHash
	}
	u.UpdatedAt = time.Now().UTC()
	s.users[id] = u
	return cloneUser(u), nil
}

func (s *Store) AddRoles(_ context.Context, id primitive.ObjectID, roles []string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok || !active(u.Status) {
		return models.User{}, storeerr.ErrNotFound
	}
	for _, r := range roles {
		if !u.HasRole(r) {
			u.Roles = append(u.Roles, r)
		}
	}
	u.UpdatedAt = time.Now().UTC()
	s.users[id] = u
	return cloneUser(u), nil
}

func (s *Store) RemoveRole(_ context.Context, id primitive.ObjectID, role string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok || !active(u.Status) {
		return models.User{}, storeerr.ErrNotFound
	}
	kept := u.Roles[:0:0]
	for _, r := range u.Roles {
		if r != role {
			kept = append(kept, r)
		}
	}
	u.Roles = kept
	u.UpdatedAt = time.Now().UTC()
	s.users[id] = u
	return cloneUser(u), nil
}

func (s *Store) SoftDeleteUser(_ context.Context, id, actor primitive.ObjectID) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok || !active(u.Status) {
		return models.User{}, storeerr.ErrNotFound
	}
	markDeleted(&u.Status, &u.DeletedBy, &u.DeletedAt, &u.UpdatedAt, actor)
	s.users[id] = u
	return cloneUser(u), nil
}

func (s *Store) HardDeleteUser(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
	return nil
}

// ---- schools ----

func (s *Store) CreateSchool(_ context.Context, sc models.School) (models.School, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc.BrandNameCI = text.Fold(sc.BrandName)
	sc.LongNameCI = text.Fold(sc.LongName)
	if s.taken(models.KindSchool, "long_name_ci", sc.LongNameCI, primitive.NilObjectID) {
		return models.School{}, storeerr.ErrDuplicateLongName
	}
	if s.taken(models.KindSchool, "brand_name_ci", sc.BrandNameCI, primitive.NilObjectID) {
		return models.School{}, storeerr.ErrDuplicateBrandName
	}
	now := time.Now().UTC()
	sc.ID = primitive.NewObjectID()
	sc.Students = []primitive.ObjectID{}
	sc.Status = status.Active
	sc.CreatedAt = now
	sc.UpdatedAt = now
	s.schools[sc.ID] = cloneSchool(sc)
	return sc, nil
}

func (s *Store) GetSchool(_ context.Context, id primitive.ObjectID) (models.School, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, ok := s.schools[id]
	if !ok || !active(sc.Status) {
		return models.School{}, storeerr.ErrNotFound
	}
	return cloneSchool(sc), nil
}

func (s *Store) FindSchoolsByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.School, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.School
	for id := range idSet(ids) {
		if sc, ok := s.schools[id]; ok && active(sc.Status) {
			out = append(out, cloneSchool(sc))
		}
	}
	return out, nil
}

func (s *Store) ListSchools(_ context.Context, limit, offset int64) ([]models.School, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.School
	for _, sc := range s.schools {
		if active(sc.Status) {
			out = append(out, cloneSchool(sc))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LongNameCI != out[j].LongNameCI {
			return out[i].LongNameCI < out[j].LongNameCI
		}
		return less(out[i].ID, out[j].ID)
	})
	return paging.Slice(out, limit, offset), nil
}

func (s *Store) ListActiveSchoolIDs(_ context.Context) ([]primitive.ObjectID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []primitive.ObjectID
	for id, sc := range s.schools {
		if active(sc.Status) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return less(ids[i], ids[j]) })
	return ids, nil
}

func (s *Store) UpdateSchool(_ context.Context, id primitive.ObjectID, patch models.School) (models.School, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.schools[id]
	if !ok || !active(sc.Status) {
		return models.School{}, storeerr.ErrNotFound
	}
	if patch.LongName != "" {
		if s.taken(models.KindSchool, "long_name_ci", text.Fold(patch.LongName), id) {
			return models.School{}, storeerr.ErrDuplicateLongName
		}
		sc.LongName, sc.LongNameCI = patch.LongName, text.Fold(patch.LongName)
	}
	if patch.BrandName != "" {
		if s.taken(models.KindSchool, "brand_name_ci", text.Fold(patch.BrandName), id) {
			return models.School{}, storeerr.ErrDuplicateBrandName
		}
		sc.BrandName, sc.BrandNameCI = patch.BrandName, text.Fold(patch.BrandName)
	}
	if patch.Address != "" {
		sc.Address = patch.Address
	}
	if patch.Country != "" {
		sc.Country = patch.Country
	}
	if patch.City != "" {
		sc.City = patch.City
	}
	if patch.Zipcode != "" {
		sc.Zipcode = patch.Zipcode
	}
	sc.UpdatedAt = time.Now().UTC()
	s.schools[id] = sc
	return cloneSchool(sc), nil
}

func (s *Store) SoftDeleteSchool(_ context.Context, id, actor primitive.ObjectID) (models.School, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.schools[id]
	if !ok || !active(sc.Status) {
		return models.School{}, storeerr.ErrNotFound
	}
	markDeleted(&sc.Status, &sc.DeletedBy, &sc.DeletedAt, &sc.UpdatedAt, actor)
	s.schools[id] = sc
	return cloneSchool(sc), nil
}

func (s *Store) FindSchoolsListingStudent(_ context.Context, studentID primitive.ObjectID) ([]models.School, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.School
	for _, sc := range s.schools {
		if active(sc.Status) && sc.ListsStudent(studentID) {
			out = append(out, cloneSchool(sc))
		}
	}
	return out, nil
}

// addToSet and pull must be called with s.mu held. They report false when
// the school is missing or deleted.
func (s *Store) addToSet(schoolID, studentID primitive.ObjectID) bool {
	sc, ok := s.schools[schoolID]
	if !ok || !active(sc.Status) {
		return false
	}
	if !sc.ListsStudent(studentID) {
		sc.Students = append(cloneIDs(sc.Students), studentID)
		sc.UpdatedAt = time.Now().UTC()
		s.schools[schoolID] = sc
	}
	return true
}

func (s *Store) pull(schoolID, studentID primitive.ObjectID) bool {
	sc, ok := s.schools[schoolID]
	if !ok || !active(sc.Status) {
		return false
	}
	kept := make([]primitive.ObjectID, 0, len(sc.Students))
	for _, id := range sc.Students {
		if id != studentID {
			kept = append(kept, id)
		}
	}
	sc.Students = kept
	sc.UpdatedAt = time.Now().UTC()
	s.schools[schoolID] = sc
	return true
}

func (s *Store) AddStudentToSchool(_ context.Context, schoolID, studentID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.addToSet(schoolID, studentID) {
		return storeerr.ErrNotFound
	}
	return nil
}

func (s *Store) PullStudentFromSchool(_ context.Context, schoolID, studentID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pull(schoolID, studentID)
	return nil
}

func (s *Store) MoveStudent(_ context.Context, studentID, from, to primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pull(from, studentID)
	s.addToSet(to, studentID)
	return nil
}

func (s *Store) SetSchoolStudents(_ context.Context, schoolID primitive.ObjectID, ids []primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.schools[schoolID]
	if !ok || !active(sc.Status) {
		return nil
	}
	sc.Students = cloneIDs(ids)
	sc.UpdatedAt = time.Now().UTC()
	s.schools[schoolID] = sc
	return nil
}

// ---- students ----

func (s *Store) CreateStudent(_ context.Context, st models.Student) (models.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.taken(models.KindStudent, "email", st.Email, primitive.NilObjectID) {
		return models.Student{}, storeerr.ErrDuplicateEmail
	}
	now := time.Now().UTC()
	st.ID = primitive.NewObjectID()
	st.Status = status.Active
	st.CreatedAt = now
	st.UpdatedAt = now
	s.students[st.ID] = st
	return st, nil
}

func (s *Store) GetStudent(_ context.Context, id primitive.ObjectID) (models.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.students[id]
	if !ok || !active(st.Status) {
		return models.Student{}, storeerr.ErrNotFound
	}
	return st, nil
}

func (s *Store) filterStudents(keep func(models.Student) bool) []models.Student {
	var out []models.Student
	for _, st := range s.students {
		if active(st.Status) && keep(st) {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i].ID, out[j].ID) })
	return out
}

func (s *Store) FindStudentsByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := idSet(ids)
	return s.filterStudents(func(st models.Student) bool { return set[st.ID] }), nil
}

func (s *Store) FindStudentsBySchoolIDs(_ context.Context, schoolIDs []primitive.ObjectID) ([]models.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := idSet(schoolIDs)
	return s.filterStudents(func(st models.Student) bool { return set[st.SchoolID] }), nil
}

func (s *Store) FindStudentsByUserIDs(_ context.Context, userIDs []primitive.ObjectID) ([]models.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := idSet(userIDs)
	return s.filterStudents(func(st models.Student) bool { return st.UserID != nil && set[*st.UserID] }), nil
}

func (s *Store) ListStudents(_ context.Context, schoolID *primitive.ObjectID, limit, offset int64) ([]models.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.filterStudents(func(st models.Student) bool { return schoolID == nil || st.SchoolID == *schoolID })
	return paging.Slice(out, limit, offset), nil
}

func (s *Store) ActiveStudentIDsBySchool(_ context.Context, schoolID primitive.ObjectID) ([]primitive.ObjectID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []primitive.ObjectID
	for _, st := range s.filterStudents(func(st models.Student) bool { return st.SchoolID == schoolID }) {
		ids = append(ids, st.ID)
	}
	return ids, nil
}

func (s *Store) CountActiveStudentsBySchool(ctx context.Context, schoolID primitive.ObjectID) (int64, error) {
	ids, err := s.ActiveStudentIDsBySchool(ctx, schoolID)
	return int64(len(ids)), err
}

func (s *Store) UpdateStudent(_ context.Context, id primitive.ObjectID, patch models.Student) (models.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.students[id]
	if !ok || !active(st.Status) {
		return models.Student{}, storeerr.ErrNotFound
	}
	if patch.Email != "" && s.taken(models.KindStudent, "email", patch.Email, id) {
		return models.Student{}, storeerr.ErrDuplicateEmail
	}
	if patch.FirstName != "" {
		st.FirstName = patch.FirstName
	}
	if patch.LastName != "" {
		st.LastName = patch.LastName
	}
	if patch.Email != "" {
		st.Email = patch.Email
	}
	if patch.DateOfBirth != nil {
		d := *patch.DateOfBirth
		st.DateOfBirth = &d
	}
	if !patch.SchoolID.IsZero() {
		st.SchoolID = patch.SchoolID
	}
	st.UpdatedAt = time.Now().UTC()
	s.students[id] = st
	return st, nil
}

func (s *Store) SoftDeleteStudent(_ context.Context, id, actor primitive.ObjectID) (models.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.students[id]
	if !ok || !active(st.Status) {
		return models.Student{}, storeerr.ErrNotFound
	}
	markDeleted(&st.Status, &st.DeletedBy, &st.DeletedAt, &st.UpdatedAt, actor)
	s.students[id] = st
	return st, nil
}

func (s *Store) HardDeleteStudent(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.students, id)
	return nil
}

// CountUsers returns the number of user documents, deleted ones included.
// Tests use it to prove that no orphan was left behind.
func (s *Store) CountUsers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}
