package seed

import (
	"time"

	"github.com/jwalitptl/dental-admin/internal/model"
)

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func ptr[T any](v T) *T { return &v }

// Accounts returns the fixed login accounts. Passwords are in clear text; the
// seeder hashes them when the password mode asks for it.
func Accounts() []model.Account {
	return []model.Account{
		{ID: "1", Role: model.RoleAdmin, Email: "admin@entnt.in", Password: "admin123"},
		{ID: "2", Role: model.RolePatient, Email: "john@entnt.in", Password: "patient123", PatientID: "p1"},
		{ID: "3", Role: model.RolePatient, Email: "jane@entnt.in", Password: "patient123", PatientID: "p2"},
	}
}

func Patients() []model.Patient {
	return []model.Patient{
		{
			Base:             model.Base{ID: "p1", CreatedAt: ts("2024-01-15T10:00:00Z"), UpdatedAt: ts("2024-01-15T10:00:00Z")},
			Name:             "John Doe",
			DOB:              "1990-05-10",
			Contact:          "1234567890",
			Email:            "john@entnt.in",
			Address:          "123 Main St, City, State 12345",
			HealthInfo:       "No known allergies. History of orthodontic treatment.",
			EmergencyContact: "Jane Doe - 0987654321",
			InsuranceInfo:    "Blue Cross Blue Shield - Policy #12345",
		},
		{
			Base:             model.Base{ID: "p2", CreatedAt: ts("2024-01-20T14:30:00Z"), UpdatedAt: ts("2024-01-20T14:30:00Z")},
			Name:             "Jane Smith",
			DOB:              "1985-03-20",
			Contact:          "9876543210",
			Email:            "jane@entnt.in",
			Address:          "456 Oak Ave, City, State 54321",
			HealthInfo:       "Allergic to penicillin. Previous root canal treatment.",
			EmergencyContact: "John Smith - 1122334455",
			InsuranceInfo:    "Aetna - Policy #67890",
		},
		{
			Base:             model.Base{ID: "p3", CreatedAt: ts("2024-02-01T09:15:00Z"), UpdatedAt: ts("2024-02-01T09:15:00Z")},
			Name:             "Robert Johnson",
			DOB:              "1978-11-15",
			Contact:          "5551234567",
			Email:            "robert@example.com",
			Address:          "789 Pine Rd, City, State 13579",
			HealthInfo:       "Diabetic. Regular cleaning every 3 months.",
			EmergencyContact: "Mary Johnson - 5559876543",
			InsuranceInfo:    "Cigna - Policy #24681",
		},
	}
}

func Incidents() []model.Incident {
	return []model.Incident{
		{
			Base:            model.Base{ID: "i1", CreatedAt: ts("2024-12-15T08:00:00Z"), UpdatedAt: ts("2024-12-15T08:00:00Z")},
			PatientID:       "p1",
			Title:           "Routine Cleaning",
			Description:     "Regular dental cleaning and checkup",
			Comments:        "Good oral health, no issues found",
			AppointmentDate: ts("2025-01-15T10:00:00Z"),
			Cost:            ptr(120.0),
			Treatment:       ptr("Professional cleaning and fluoride treatment"),
			Status:          model.IncidentStatusCompleted,
			NextDate:        ptr(ts("2025-07-15T10:00:00Z")),
			Files:           []model.FileAttachment{},
		},
		{
			Base:            model.Base{ID: "i2", CreatedAt: ts("2024-12-20T16:30:00Z"), UpdatedAt: ts("2024-12-20T16:30:00Z")},
			PatientID:       "p1",
			Title:           "Toothache Treatment",
			Description:     "Upper molar pain requiring examination",
			Comments:        "Sensitive to cold, possible cavity",
			AppointmentDate: ts("2025-01-25T14:00:00Z"),
			Status:          model.IncidentStatusScheduled,
			Files:           []model.FileAttachment{},
		},
		{
			Base:            model.Base{ID: "i3", CreatedAt: ts("2024-12-18T13:45:00Z"), UpdatedAt: ts("2024-12-18T13:45:00Z")},
			PatientID:       "p2",
			Title:           "Crown Replacement",
			Description:     "Replace old crown on lower left molar",
			Comments:        "Crown showing signs of wear",
			AppointmentDate: ts("2025-01-22T11:00:00Z"),
			Cost:            ptr(850.0),
			Treatment:       ptr("Crown removal and replacement"),
			Status:          model.IncidentStatusInProgress,
			Files:           []model.FileAttachment{},
		},
		{
			Base:            model.Base{ID: "i4", CreatedAt: ts("2024-12-22T11:00:00Z"), UpdatedAt: ts("2024-12-22T11:00:00Z")},
			PatientID:       "p3",
			Title:           "Diabetes Checkup",
			Description:     "Routine checkup for diabetic patient",
			Comments:        "Monitor gum health closely",
			AppointmentDate: ts("2025-01-30T09:30:00Z"),
			Status:          model.IncidentStatusScheduled,
			Files:           []model.FileAttachment{},
		},
	}
}
