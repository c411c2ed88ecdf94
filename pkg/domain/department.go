package domain

// Department is one entry of the fixed academic department catalog.
type Department struct {
	ID   int
	Name string
}

const (
	// NoDepartment is the "unselected" ID. It is never valid on a saved profile.
	NoDepartment = 0
	// UnknownDepartment is returned by DepartmentID for names not in the catalog.
	UnknownDepartment = -1
	// UnknownDepartmentName is returned by DepartmentName for IDs not in the catalog.
	UnknownDepartmentName = "Unknown"
)

// Departments is the catalog in declaration order. IDs are stored in profiles; do not reorder.
var Departments = []Department{
	{ID: 1, Name: "Computer Science"},
	{ID: 2, Name: "Software Engineering"},
	{ID: 3, Name: "Artificial Intelligence"},
	{ID: 4, Name: "Civil Engineering"},
	{ID: 5, Name: "Electrical Engineering"},
	{ID: 6, Name: "Mechanical Engineering"},
	{ID: 7, Name: "Data Science"},
}

// DepartmentID returns the ID for a department name, or UnknownDepartment.
func DepartmentID(name string) int {
	for _, d := range Departments {
		if d.Name == name {
			return d.ID
		}
	}
	return UnknownDepartment
}

// DepartmentName returns the display name for an ID, or UnknownDepartmentName.
func DepartmentName(id int) string {
	for _, d := range Departments {
		if d.ID == id {
			return d.Name
		}
	}
	return UnknownDepartmentName
}

// DepartmentNames returns the catalog names in declaration order.
func DepartmentNames() []string {
	names := make([]string, len(Departments))
	for i, d := range Departments {
		names[i] = d.Name
	}
	return names
}

// ValidDepartmentID reports whether id resolves to a catalog entry.
func ValidDepartmentID(id int) bool {
	return DepartmentName(id) != UnknownDepartmentName
}
