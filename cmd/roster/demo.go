package main

import (
	"context"
	"fmt"

	"github.com/naveenspark/roster/internal/memory"
	"github.com/naveenspark/roster/pkg/domain"
)

const (
	demoEmail    = "demo@roster.dev"
	demoPassword = "demo123"
)

var demoStudents = []domain.StudentProfile{
	{UserID: "demo-bilal", ProfileFields: domain.ProfileFields{StudentID: "21L-0451", Name: "Bilal Ahmed", DepartmentID: 1, YearOfStudy: "3", RegistrationDate: "2024-09-02"}},
	{UserID: "demo-sana", ProfileFields: domain.ProfileFields{StudentID: "22L-1190", Name: "Sana Tariq", DepartmentID: 3, YearOfStudy: "2", RegistrationDate: "2025-09-01"}},
	{UserID: "demo-umar", ProfileFields: domain.ProfileFields{StudentID: "20L-0077", Name: "Umar Farooq", DepartmentID: 5, YearOfStudy: "4", RegistrationDate: "2023-08-28"}},
	{UserID: "demo-hira", ProfileFields: domain.ProfileFields{StudentID: "23L-2034", Name: "Hira Malik", DepartmentID: 1, YearOfStudy: "1", RegistrationDate: "2026-09-04"}},
	{UserID: "demo-zain", ProfileFields: domain.ProfileFields{StudentID: "22L-0912", Name: "Zain Abbas", DepartmentID: 7, YearOfStudy: "2", RegistrationDate: "2025-09-03"}},
}

// seedDemo fills the in-memory backend with a signed-up demo account and a
// handful of other students.
func seedDemo(ctx context.Context, b *memory.Backend) error {
	acct, err := b.CreateAccount(ctx, demoEmail, demoPassword)
	if err != nil {
		return fmt.Errorf("seeding demo account: %w", err)
	}
	err = b.SetProfile(ctx, acct.UserID, domain.ProfileFields{
		StudentID:        "22L-1234",
		Name:             "Demo Student",
		DepartmentID:     1,
		YearOfStudy:      "2",
		RegistrationDate: "2025-09-01",
	})
	if err != nil {
		return fmt.Errorf("seeding demo profile: %w", err)
	}
	for _, p := range demoStudents {
		b.Put(p)
	}
	return nil
}
