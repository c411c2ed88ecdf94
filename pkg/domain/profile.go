package domain

import (
	"math"
	"time"
)

// DateLayout is the calendar format of registration dates (YYYY-MM-DD).
const DateLayout = "2006-01-02"

// ProfileFields are the mutable fields of a profile, in their stored form.
// The JSON names are the store's record field names.
type ProfileFields struct {
	StudentID        string `json:"id"`
	Name             string `json:"name"`
	DepartmentID     int    `json:"department"`
	YearOfStudy      string `json:"year_of_study"`
	RegistrationDate string `json:"date_of_registration"`
}

// StudentProfile represents one registered student.
// UserID is the auth-issued identity and the record key; it is not part of the record body.
type StudentProfile struct {
	UserID string `json:"-"`
	ProfileFields
}

// DepartmentName returns the catalog name of the profile's department.
func (p StudentProfile) DepartmentName() string {
	return DepartmentName(p.DepartmentID)
}

// RegisteredOn parses RegistrationDate. ok is false when the date is malformed.
func (p StudentProfile) RegisteredOn() (t time.Time, ok bool) {
	return ParseDate(p.RegistrationDate)
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, bool) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// FormatDate formats t as YYYY-MM-DD in t's location.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ProfileFromRecord builds a profile from a decoded store record.
// Missing or mistyped fields become zero values instead of failing, so a
// single corrupt record never prevents the rest of a snapshot from loading.
func ProfileFromRecord(userID string, record any) StudentProfile {
	p := StudentProfile{UserID: userID}
	m, ok := record.(map[string]any)
	if !ok {
		return p
	}
	p.StudentID = stringField(m, "id")
	p.Name = stringField(m, "name")
	p.DepartmentID = intField(m, "department")
	p.YearOfStudy = stringField(m, "year_of_study")
	p.RegistrationDate = stringField(m, "date_of_registration")
	return p
}

// Record returns the profile's store representation as a generic map.
func (f ProfileFields) Record() map[string]any {
	return map[string]any{
		"id":                   f.StudentID,
		"name":                 f.Name,
		"department":           f.DepartmentID,
		"year_of_study":        f.YearOfStudy,
		"date_of_registration": f.RegistrationDate,
	}
}

func stringField(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func intField(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case float64:
		if v == math.Trunc(v) && v >= math.MinInt32 && v <= math.MaxInt32 {
			return int(v)
		}
	case int:
		return v
	case int64:
		return int(v)
	}
	return 0
}
