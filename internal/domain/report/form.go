package report

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Value is an unparsed count as submitted. It accepts JSON numbers and JSON
// strings so that both typed clients and form-backed pages can post.
type Value string

// UnmarshalJSON keeps the raw literal for numbers and the decoded text for strings.
func (v *Value) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*v = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = Value(s)
		return nil
	}
	*v = Value(b)
	return nil
}

// Form is a report submission before any parsing has happened.
type Form struct {
	Date                string `json:"date"`
	Office              string `json:"office"`
	TotalEmployees      Value  `json:"totalEmployees"`
	RegisteredEmployees Value  `json:"registeredEmployees"`
	EnrolledEmployees   Value  `json:"enrolledEmployees"`
	CompletedCourses    Value  `json:"completedCourses"`
}

// FormFromValues builds a Form from url-encoded form fields.
func FormFromValues(v url.Values) Form {
	return Form{
		Date:                v.Get("date"),
		Office:              v.Get("office"),
		TotalEmployees:      Value(v.Get("totalEmployees")),
		RegisteredEmployees: Value(v.Get("registeredEmployees")),
		EnrolledEmployees:   Value(v.Get("enrolledEmployees")),
		CompletedCourses:    Value(v.Get("completedCourses")),
	}
}

type countField struct {
	name string
	raw  Value
	dst  *int
}

// ParseForm validates f, then parses it into a Report, then applies the
// business rules. Every count must be a whole, non-negative base-10 number;
// anything else fails before the rules run. An empty date means the UTC
// calendar date of now.
func ParseForm(f Form, now time.Time) (Report, error) {
	var r Report
	fields := []countField{
		{name: "totalEmployees", raw: f.TotalEmployees, dst: &r.TotalEmployees},
		{name: "registeredEmployees", raw: f.RegisteredEmployees, dst: &r.RegisteredEmployees},
		{name: "enrolledEmployees", raw: f.EnrolledEmployees, dst: &r.EnrolledEmployees},
		{name: "completedCourses", raw: f.CompletedCourses, dst: &r.CompletedCourses},
	}

	r.Office = strings.TrimSpace(f.Office)
	if r.Office == "" {
		return Report{}, invalid("office", ErrMissingField, "office is required")
	}

	for _, fd := range fields {
		if err := checkCount(fd.name, strings.TrimSpace(string(fd.raw))); err != nil {
			return Report{}, err
		}
	}
	for _, fd := range fields {
		n, err := strconv.Atoi(strings.TrimSpace(string(fd.raw)))
		if err != nil {
			return Report{}, invalid(fd.name, ErrNotANumber, fd.name+" must be a whole number")
		}
		*fd.dst = n
	}

	r.Date = strings.TrimSpace(f.Date)
	if r.Date == "" {
		r.Date = now.UTC().Format(DateLayout)
	} else if !ValidDate(r.Date) {
		return Report{}, invalid("date", ErrInvalidDate, "date must be a calendar date (YYYY-MM-DD)")
	}

	if err := r.Validate(); err != nil {
		return Report{}, err
	}
	return r, nil
}

func checkCount(name, s string) error {
	if s == "" {
		return invalid(name, ErrMissingField, name+" is required")
	}
	digits := s
	if s[0] == '-' {
		digits = s[1:]
	}
	if digits == "" {
		return invalid(name, ErrNotANumber, name+" must be a whole number")
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return invalid(name, ErrNotANumber, name+" must be a whole number")
		}
	}
	if s[0] == '-' {
		return invalid(name, ErrNegative, name+" must not be negative")
	}
	return nil
}
