package domain

import (
	"sort"
	"time"
)

// DirectoryEntry is one student in the directory listing.
type DirectoryEntry struct {
	Profile StudentProfile
	// RegisteredOn is the parsed registration date; zero when HasDate is false.
	RegisteredOn time.Time
	HasDate      bool
	// SameDepartment is true when the viewer has a profile in the same department.
	SameDepartment bool
}

// Directory is the viewer's own profile plus everyone else, ordered by registration date.
type Directory struct {
	Own     *StudentProfile
	Entries []DirectoryEntry
}

// AssembleDirectory extracts the viewer's own record and orders the rest by
// ascending registration date. Records whose date does not parse are kept
// and sort before every dated record. Equal dates keep their input order.
// The function does no I/O and may be re-run on every snapshot.
func AssembleDirectory(records []StudentProfile, viewerID string) Directory {
	var dir Directory
	entries := make([]DirectoryEntry, 0, len(records))
	for _, r := range records {
		if viewerID != "" && r.UserID == viewerID {
			own := r
			dir.Own = &own
			continue
		}
		t, ok := r.RegisteredOn()
		entries = append(entries, DirectoryEntry{Profile: r, RegisteredOn: t, HasDate: ok})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.HasDate || !b.HasDate {
			return !a.HasDate && b.HasDate
		}
		return a.RegisteredOn.Before(b.RegisteredOn)
	})

	if dir.Own != nil {
		for i := range entries {
			entries[i].SameDepartment = entries[i].Profile.DepartmentID == dir.Own.DepartmentID
		}
	}
	dir.Entries = entries
	return dir
}

// Profiles returns the ordered profiles without the per-entry metadata.
func (d Directory) Profiles() []StudentProfile {
	out := make([]StudentProfile, len(d.Entries))
	for i, e := range d.Entries {
		out[i] = e.Profile
	}
	return out
}

// Greeting is the header shown above the directory.
func (d Directory) Greeting() string {
	if d.Own == nil || d.Own.Name == "" {
		return "Hello"
	}
	return "Hello " + d.Own.Name
}
