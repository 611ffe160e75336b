package graphql

import (
	"time"

	"github.com/dalemusser/schoolhub/internal/app/system/apperr"
	"github.com/dalemusser/schoolhub/internal/app/system/inputval"
	"github.com/dalemusser/schoolhub/internal/app/system/normalize"
	"github.com/dalemusser/schoolhub/internal/domain/models"
	graphql "github.com/graph-gophers/graphql-go"
)

// dateLayout is the wire format of dateOfBirth.
const dateLayout = "2006-01-02"

// GraphQL argument shapes. Field names match the schema case-insensitively.

type createUserInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Roles     *[]string
}

type updateUserInput struct {
	FirstName *string
	LastName  *string
	Email     *string
	Password  *string
}

type schoolInput struct {
	BrandName *string
	LongName  *string
	Address   *string
	Country   *string
	City      *string
	Zipcode   *string
}

type createSchoolInput struct {
	BrandName string
	LongName  string
	Address   *string
	Country   *string
	City      *string
	Zipcode   *string
}

type createStudentInput struct {
	FirstName   string
	LastName    string
	Email       string
	DateOfBirth *string
	SchoolID    graphql.ID
	UserID      *graphql.ID
}

type createStudentWithUserInput struct {
	FirstName   string
	LastName    string
	Email       string
	DateOfBirth *string
	SchoolID    graphql.ID
	Password    string
}

type updateStudentInput struct {
	FirstName   *string
	LastName    *string
	Email       *string
	DateOfBirth *string
	SchoolID    *graphql.ID
}

func invalid(format string, args ...any) error {
	return apperr.New(apperr.InvalidArgument, format, args...)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Field rules                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

func personName(field, raw string) (string, error) {
	v := normalize.TitleName(raw)
	if !inputval.IsValidName(v) {
		return "", invalid("%s is not a valid name", field)
	}
	return v, nil
}

func email(raw string) (string, error) {
	v := normalize.Email(raw)
	if !inputval.IsValidEmail(v) {
		return "", invalid("email is not a valid address")
	}
	return v, nil
}

func password(raw string) (string, error) {
	if !inputval.IsValidPassword(raw) {
		return "", invalid("password must be %d to %d characters", inputval.MinPasswordLen, inputval.MaxPasswordLen)
	}
	return raw, nil
}

func role(raw string) (string, error) {
	v := normalize.Role(raw)
	for _, r := range models.Roles {
		if r == v {
			return v, nil
		}
	}
	return "", invalid("unknown role %q", raw)
}

func text(field, raw string) (string, error) {
	v := normalize.Text(raw)
	if !inputval.IsValidText(v) {
		return "", invalid("%s must be non-empty and at most %d characters", field, inputval.MaxTextLen)
	}
	return v, nil
}

func optText(field string, raw *string) (string, error) {
	if raw == nil {
		return "", nil
	}
	return text(field, *raw)
}

func optZipcode(raw *string) (string, error) {
	if raw == nil {
		return "", nil
	}
	v := normalize.Zipcode(*raw)
	if !inputval.IsValidZipcode(v) {
		return "", invalid("zipcode is not valid")
	}
	return v, nil
}

func dateOfBirth(raw *string, now time.Time) (*time.Time, error) {
	if raw == nil {
		return nil, nil
	}
	d, err := time.Parse(dateLayout, *raw)
	if err != nil {
		return nil, invalid("dateOfBirth must be formatted YYYY-MM-DD")
	}
	if !inputval.IsPastOrToday(d, now) {
		return nil, invalid("dateOfBirth cannot be in the future")
	}
	return &d, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Drafts                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

// userDraft is a validated createUser input.
type userDraft struct {
	user     models.User
	password string
}

func newUserDraft(in createUserInput) (userDraft, error) {
	var d userDraft
	var err error
	if d.user.FirstName, err = personName("firstName", in.FirstName); err != nil {
		return d, err
	}
	if d.user.LastName, err = personName("lastName", in.LastName); err != nil {
		return d, err
	}
	if d.user.Email, err = email(in.Email); err != nil {
		return d, err
	}
	if d.password, err = password(in.Password); err != nil {
		return d, err
	}
	if in.Roles != nil {
		for _, raw := range *in.Roles {
			r, err := role(raw)
			if err != nil {
				return d, err
			}
			d.user.Roles = append(d.user.Roles, r)
		}
	}
	d.user.Roles = models.WithBaseRole(d.user.Roles)
	return d, nil
}

// userPatch is a validated updateUser input. Empty fields are left alone.
type userPatch struct {
	user     models.User
	password string
}

func newUserPatch(in updateUserInput) (userPatch, error) {
	var p userPatch
	var err error
	if in.FirstName != nil {
		if p.user.FirstName, err = personName("firstName", *in.FirstName); err != nil {
			return p, err
		}
	}
	if in.LastName != nil {
		if p.user.LastName, err = personName("lastName", *in.LastName); err != nil {
			return p, err
		}
	}
	if in.Email != nil {
		if p.user.Email, err = email(*in.Email); err != nil {
			return p, err
		}
	}
	if in.Password != nil {
		if p.password, err = password(*in.Password); err != nil {
			return p, err
		}
	}
	if p.user.FirstName == "" && p.user.LastName == "" && p.user.Email == "" && p.password == "" {
		return p, invalid("nothing to update")
	}
	return p, nil
}

func newSchool(in createSchoolInput) (models.School, error) {
	return newSchoolPatch(schoolInput{
		BrandName: &in.BrandName,
		LongName:  &in.LongName,
		Address:   in.Address,
		Country:   in.Country,
		City:      in.City,
		Zipcode:   in.Zipcode,
	}, true)
}

// newSchoolPatch validates school fields; when full is set both names are required.
func newSchoolPatch(in schoolInput, full bool) (models.School, error) {
	var s models.School
	var err error
	if full && (in.BrandName == nil || in.LongName == nil) {
		return s, invalid("brandName and longName are required")
	}
	if s.BrandName, err = optText("brandName", in.BrandName); err != nil {
		return s, err
	}
	if s.LongName, err = optText("longName", in.LongName); err != nil {
		return s, err
	}
	if s.Address, err = optText("address", in.Address); err != nil {
		return s, err
	}
	if s.Country, err = optText("country", in.Country); err != nil {
		return s, err
	}
	if s.City, err = optText("city", in.City); err != nil {
		return s, err
	}
	if s.Zipcode, err = optZipcode(in.Zipcode); err != nil {
		return s, err
	}
	if !full && s.BrandName == "" && s.LongName == "" && s.Address == "" &&
		s.Country == "" && s.City == "" && s.Zipcode == "" {
		return s, invalid("nothing to update")
	}
	return s, nil
}

// studentFields validates the fields shared by both student create inputs.
func studentFields(first, last, mail string, dob *string, schoolID graphql.ID, now time.Time) (models.Student, error) {
	var s models.Student
	var err error
	if s.FirstName, err = personName("firstName", first); err != nil {
		return s, err
	}
	if s.LastName, err = personName("lastName", last); err != nil {
		return s, err
	}
	if s.Email, err = email(mail); err != nil {
		return s, err
	}
	if s.DateOfBirth, err = dateOfBirth(dob, now); err != nil {
		return s, err
	}
	if s.SchoolID, err = parseID("schoolId", schoolID); err != nil {
		return s, err
	}
	return s, nil
}

func newStudent(in createStudentInput, now time.Time) (models.Student, error) {
	s, err := studentFields(in.FirstName, in.LastName, in.Email, in.DateOfBirth, in.SchoolID, now)
	if err != nil {
		return s, err
	}
	if s.UserID, err = parseOptID("userId", in.UserID); err != nil {
		return s, err
	}
	return s, nil
}

// studentWithUserDraft is a validated createStudentWithUser input.
type studentWithUserDraft struct {
	student  models.Student
	password string
}

func newStudentWithUser(in createStudentWithUserInput, now time.Time) (studentWithUserDraft, error) {
	var d studentWithUserDraft
	var err error
	if d.student, err = studentFields(in.FirstName, in.LastName, in.Email, in.DateOfBirth, in.SchoolID, now); err != nil {
		return d, err
	}
	if d.password, err = password(in.Password); err != nil {
		return d, err
	}
	return d, nil
}

func newStudentPatch(in updateStudentInput, now time.Time) (models.Student, error) {
	var s models.Student
	var err error
	if in.FirstName != nil {
		if s.FirstName, err = personName("firstName", *in.FirstName); err != nil {
			return s, err
		}
	}
	if in.LastName != nil {
		if s.LastName, err = personName("lastName", *in.LastName); err != nil {
			return s, err
		}
	}
	if in.Email != nil {
		if s.Email, err = email(*in.Email); err != nil {
			return s, err
		}
	}
	if s.DateOfBirth, err = dateOfBirth(in.DateOfBirth, now); err != nil {
		return s, err
	}
	if in.SchoolID != nil {
		if s.SchoolID, err = parseID("schoolId", *in.SchoolID); err != nil {
			return s, err
		}
	}
	if s.FirstName == "" && s.LastName == "" && s.Email == "" && s.DateOfBirth == nil && s.SchoolID.IsZero() {
		return s, invalid("nothing to update")
	}
	return s, nil
}
