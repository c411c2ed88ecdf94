package domain

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func student(uid, date string, dept int) StudentProfile {
	return StudentProfile{
		UserID: uid,
		ProfileFields: ProfileFields{
			StudentID:        "22L-0001",
			Name:             "student " + uid,
			DepartmentID:     dept,
			YearOfStudy:      "2",
			RegistrationDate: date,
		},
	}
}

func userIDs(entries []DirectoryEntry) []string {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.Profile.UserID
	}
	return ids
}

func TestAssembleDirectory_SortsByDate(t *testing.T) {
	records := []StudentProfile{
		student("c", "2024-03-01", 1),
		student("a", "2023-09-15", 1),
		student("b", "2024-01-20", 2),
	}

	dir := AssembleDirectory(records, "")
	require.Nil(t, dir.Own)
	assert.Equal(t, []string{"a", "b", "c"}, userIDs(dir.Entries))
}

func TestAssembleDirectory_ExtractsOwnProfile(t *testing.T) {
	records := []StudentProfile{
		student("other", "2024-01-01", 2),
		student("me", "2023-01-01", 1),
	}

	dir := AssembleDirectory(records, "me")
	require.NotNil(t, dir.Own)
	assert.Equal(t, "me", dir.Own.UserID)
	assert.Equal(t, []string{"other"}, userIDs(dir.Entries))
	assert.Equal(t, "Hello student me", dir.Greeting())
}

func TestAssembleDirectory_NoOwnProfile(t *testing.T) {
	dir := AssembleDirectory([]StudentProfile{student("x", "2024-01-01", 1)}, "me")
	assert.Nil(t, dir.Own)
	assert.Len(t, dir.Entries, 1)
	assert.False(t, dir.Entries[0].SameDepartment, "no highlight without an own profile")
	assert.Equal(t, "Hello", dir.Greeting())
}

func TestAssembleDirectory_MalformedDatesSortFirst(t *testing.T) {
	records := []StudentProfile{
		student("dated", "2020-05-05", 1),
		student("garbage", "05/05/2020", 1),
		student("empty", "", 1),
		student("earlier", "2019-01-01", 1),
	}

	var dir Directory
	require.NotPanics(t, func() { dir = AssembleDirectory(records, "") })
	assert.Equal(t, []string{"garbage", "empty", "earlier", "dated"}, userIDs(dir.Entries))
	assert.False(t, dir.Entries[0].HasDate)
	assert.True(t, dir.Entries[3].HasDate)
}

func TestAssembleDirectory_SameDepartmentHighlight(t *testing.T) {
	records := []StudentProfile{
		student("me", "2023-01-01", 3),
		student("peer", "2023-02-01", 3),
		student("stranger", "2023-03-01", 5),
	}

	dir := AssembleDirectory(records, "me")
	require.Len(t, dir.Entries, 2)
	assert.True(t, dir.Entries[0].SameDepartment)
	assert.False(t, dir.Entries[1].SameDepartment)
}

func TestAssembleDirectory_Empty(t *testing.T) {
	dir := AssembleDirectory(nil, "me")
	assert.Nil(t, dir.Own)
	assert.Empty(t, dir.Entries)
	assert.Empty(t, dir.Profiles())
}

// genRecords draws up to 30 profiles with unique user IDs and dates drawn
// from a small pool, so ties and malformed dates are common.
func genRecords(rt *rapid.T) []StudentProfile {
	dates := []string{"2023-01-01", "2023-06-15", "2024-02-29", "2024-12-31", "not-a-date", ""}
	n := rapid.IntRange(0, 30).Draw(rt, "n")
	records := make([]StudentProfile, n)
	for i := range records {
		date := rapid.SampledFrom(dates).Draw(rt, fmt.Sprintf("date%d", i))
		dept := rapid.IntRange(1, 7).Draw(rt, fmt.Sprintf("dept%d", i))
		records[i] = student(fmt.Sprintf("u%02d", i), date, dept)
	}
	return records
}

func TestAssembleDirectory_OrderIsNonDecreasingAndStable(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		records := genRecords(rt)
		dir := AssembleDirectory(records, "")

		if len(dir.Entries) != len(records) {
			rt.Fatalf("got %d entries, want %d", len(dir.Entries), len(records))
		}

		inputPos := make(map[string]int, len(records))
		for i, r := range records {
			inputPos[r.UserID] = i
		}

		for i := 1; i < len(dir.Entries); i++ {
			prev, cur := dir.Entries[i-1], dir.Entries[i]
			key := func(e DirectoryEntry) time.Time {
				if !e.HasDate {
					return time.Time{}
				}
				return e.RegisteredOn
			}
			if key(cur).Before(key(prev)) {
				rt.Fatalf("entry %d (%s) sorts before entry %d (%s)", i, cur.Profile.RegistrationDate, i-1, prev.Profile.RegistrationDate)
			}
			if prev.HasDate && !cur.HasDate {
				rt.Fatalf("undated entry %d after dated entry", i)
			}
			sameKey := prev.HasDate == cur.HasDate && key(prev).Equal(key(cur))
			if sameKey && inputPos[prev.Profile.UserID] > inputPos[cur.Profile.UserID] {
				rt.Fatalf("tie at %d not stable: %s before %s", i, prev.Profile.UserID, cur.Profile.UserID)
			}
		}
	})
}

func TestAssembleDirectory_ViewerNeverListed(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		records := genRecords(rt)
		if len(records) == 0 {
			return
		}
		viewer := records[rapid.IntRange(0, len(records)-1).Draw(rt, "viewer")].UserID

		dir := AssembleDirectory(records, viewer)
		if dir.Own == nil || dir.Own.UserID != viewer {
			rt.Fatalf("own profile = %v, want %s", dir.Own, viewer)
		}
		for _, e := range dir.Entries {
			if e.Profile.UserID == viewer {
				rt.Fatalf("viewer %s listed in directory", viewer)
			}
		}
		if len(dir.Entries) != len(records)-1 {
			rt.Fatalf("got %d entries, want %d", len(dir.Entries), len(records)-1)
		}
	})
}
