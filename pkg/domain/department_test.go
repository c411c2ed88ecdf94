package domain

import "testing"

func TestDepartmentID(t *testing.T) {
	tests := []struct {
		name string
		dept string
		want int
	}{
		{"computer science", "Computer Science", 1},
		{"data science", "Data Science", 7},
		{"civil engineering", "Civil Engineering", 4},
		{"unknown empty", "", UnknownDepartment},
		{"unknown lowercase", "computer science", UnknownDepartment},
		{"unknown name", "Astrology", UnknownDepartment},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DepartmentID(tt.dept); got != tt.want {
				t.Errorf("DepartmentID(%q) = %d, want %d", tt.dept, got, tt.want)
			}
		})
	}
}

func TestDepartmentName(t *testing.T) {
	tests := []struct {
		id   int
		want string
	}{
		{1, "Computer Science"},
		{3, "Artificial Intelligence"},
		{7, "Data Science"},
		{0, UnknownDepartmentName},
		{-1, UnknownDepartmentName},
		{8, UnknownDepartmentName},
	}

	for _, tt := range tests {
		if got := DepartmentName(tt.id); got != tt.want {
			t.Errorf("DepartmentName(%d) = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestDepartmentRoundTrip(t *testing.T) {
	for _, name := range DepartmentNames() {
		if got := DepartmentName(DepartmentID(name)); got != name {
			t.Errorf("DepartmentName(DepartmentID(%q)) = %q", name, got)
		}
	}
}

func TestDepartmentNamesOrderStable(t *testing.T) {
	want := []string{
		"Computer Science",
		"Software Engineering",
		"Artificial Intelligence",
		"Civil Engineering",
		"Electrical Engineering",
		"Mechanical Engineering",
		"Data Science",
	}
	for round := 0; round < 3; round++ {
		got := DepartmentNames()
		if len(got) != len(want) {
			t.Fatalf("len(DepartmentNames()) = %d, want %d", len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("round %d: DepartmentNames()[%d] = %q, want %q", round, i, got[i], want[i])
			}
		}
	}
}

func TestDepartmentNamesReturnsCopy(t *testing.T) {
	names := DepartmentNames()
	names[0] = "Alchemy"
	if DepartmentNames()[0] != "Computer Science" {
		t.Error("mutating the returned slice changed the catalog")
	}
}

func TestValidDepartmentID(t *testing.T) {
	if ValidDepartmentID(NoDepartment) {
		t.Error("ValidDepartmentID(0) = true, want false")
	}
	if !ValidDepartmentID(5) {
		t.Error("ValidDepartmentID(5) = false, want true")
	}
}
