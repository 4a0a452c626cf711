// Package report defines the enrollment report record, the summary shape and
// the rules a record must satisfy before it is stored.
package report

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// DateLayout is the wire and storage format of report dates.
const DateLayout = "2006-01-02"

// Report is one submitted measurement for one office on one date.
// Records are immutable once stored.
type Report struct {
	Date                string `json:"date" bson:"date" validate:"required,datetime=2006-01-02"`
	Office              string `json:"office" bson:"office" validate:"required"`
	TotalEmployees      int    `json:"totalEmployees" bson:"totalEmployees" validate:"gte=0"`
	RegisteredEmployees int    `json:"registeredEmployees" bson:"registeredEmployees" validate:"gte=0,ltefield=TotalEmployees"`
	EnrolledEmployees   int    `json:"enrolledEmployees" bson:"enrolledEmployees" validate:"gte=0,ltefield=RegisteredEmployees"`
	CompletedCourses    int    `json:"completedCourses" bson:"completedCourses" validate:"gte=0"`
}

// Summary holds the four counters reduced over a set of reports.
type Summary struct {
	TotalEmployees      int `json:"totalEmployees" bson:"totalEmployees"`
	RegisteredEmployees int `json:"registeredEmployees" bson:"registeredEmployees"`
	EnrolledEmployees   int `json:"enrolledEmployees" bson:"enrolledEmployees"`
	CompletedCourses    int `json:"completedCourses" bson:"completedCourses"`
}

// Add accumulates r into s.
func (s *Summary) Add(r Report) {
	s.TotalEmployees += r.TotalEmployees
	s.RegisteredEmployees += r.RegisteredEmployees
	s.EnrolledEmployees += r.EnrolledEmployees
	s.CompletedCourses += r.CompletedCourses
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report errors by wire name so messages match what clients send.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// Normalize returns a copy of r with surrounding whitespace removed from the
// office and date.
func (r Report) Normalize() Report {
	r.Office = strings.TrimSpace(r.Office)
	r.Date = strings.TrimSpace(r.Date)
	return r
}

// Validate checks the record shape and the business rules
// registered <= total and enrolled <= registered. The first violation is
// returned as a *ValidationError.
func (r Report) Validate() error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return fromFieldError(verrs[0])
	}
	return err
}

// Time returns the report date as a UTC midnight time.
func (r Report) Time() (time.Time, error) {
	return ParseDate(r.Date)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// ValidDate reports whether s is a YYYY-MM-DD calendar date.
func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

func fromFieldError(fe validator.FieldError) error {
	switch fe.Tag() {
	case "required":
		return invalid(fe.Field(), ErrMissingField, fe.Field()+" is required")
	case "datetime":
		return invalid(fe.Field(), ErrInvalidDate, "date must be a calendar date (YYYY-MM-DD)")
	case "gte":
		return invalid(fe.Field(), ErrNegative, fe.Field()+" must not be negative")
	case "ltefield":
		switch fe.StructField() {
		case "RegisteredEmployees":
			return invalid(fe.Field(), ErrRegisteredExceedsTotal, "Registered employees cannot be more than total employees")
		case "EnrolledEmployees":
			return invalid(fe.Field(), ErrEnrolledExceedsRegistered, "Enrolled employees cannot be more than registered employees")
		}
	}
	return invalid(fe.Field(), ErrInvalidReport, fe.Error())
}
