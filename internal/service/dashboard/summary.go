package dashboard

import (
	"sync"
	"time"

	"github.com/jwalitptl/dental-admin/internal/model"
)

const (
	AdminUpcomingLimit = 10
	RecentLimit        = 5
	// FallbackWelcomeName greets a patient whose record cannot be found.
	FallbackWelcomeName = "Patient"
)

// NamedIncident pairs an incident with its patient's display name.
type NamedIncident struct {
	model.Incident
	PatientName string `json:"patientName"`
}

type AdminSummary struct {
	TotalPatients   int                          `json:"totalPatients"`
	TodaysCount     int                          `json:"todaysAppointments"`
	TotalRevenue    float64                      `json:"totalRevenue"`
	CompletedCount  int                          `json:"completedTreatments"`
	Upcoming        []NamedIncident              `json:"upcoming"`
	Recent          []NamedIncident              `json:"recent"`
	StatusBreakdown map[model.IncidentStatus]int `json:"statusBreakdown"`
}

type PatientSummary struct {
	WelcomeName     string           `json:"welcomeName"`
	Upcoming        []model.Incident `json:"upcoming"`
	RecentCompleted []model.Incident `json:"recentCompleted"`
	TotalTreatments int              `json:"totalTreatments"`
	TotalCost       float64          `json:"totalCost"`
	UpcomingCount   int              `json:"upcomingCount"`
	CompletedCount  int              `json:"completedCount"`
}

func BuildAdminSummary(patients []model.Patient, incidents []model.Incident, now time.Time) AdminSummary {
	s := adminTotals(patients, incidents)
	withSchedule(&s, patients, incidents, now)
	return s
}

// adminTotals fills the fields that depend on the collections only.
func adminTotals(patients []model.Patient, incidents []model.Incident) AdminSummary {
	return AdminSummary{
		TotalPatients:   len(patients),
		TotalRevenue:    TotalRevenue(incidents),
		CompletedCount:  len(Completed(incidents)),
		Recent:          named(patients, Recent(incidents, RecentLimit)),
		StatusBreakdown: StatusCounts(incidents),
	}
}

// withSchedule fills the fields that move with the clock.
func withSchedule(s *AdminSummary, patients []model.Patient, incidents []model.Incident, now time.Time) {
	upcoming := Upcoming(incidents, now)
	if len(upcoming) > AdminUpcomingLimit {
		upcoming = upcoming[:AdminUpcomingLimit]
	}
	s.TodaysCount = len(Todays(incidents, now))
	s.Upcoming = named(patients, upcoming)
}

// BuildPatientSummary scopes every figure to the account's own patient record.
// TotalCost sums completed treatments only.
func BuildPatientSummary(account model.Account, patients []model.Patient, incidents []model.Incident, now time.Time) PatientSummary {
	mine := ForPatient(incidents, account.PatientID)
	name := FallbackWelcomeName
	for _, p := range patients {
		if p.ID == account.PatientID {
			name = p.Name
			break
		}
	}
	completed := Completed(mine)
	upcoming := Upcoming(mine, now)
	return PatientSummary{
		WelcomeName:     name,
		Upcoming:        upcoming,
		RecentCompleted: Recent(completed, RecentLimit),
		TotalTreatments: len(mine),
		TotalCost:       TotalRevenue(mine),
		UpcomingCount:   len(upcoming),
		CompletedCount:  len(completed),
	}
}

func named(patients []model.Patient, incidents []model.Incident) []NamedIncident {
	out := make([]NamedIncident, 0, len(incidents))
	for _, inc := range incidents {
		out = append(out, NamedIncident{Incident: inc, PatientName: PatientName(patients, inc.PatientID)})
	}
	return out
}

// Memo caches the clock-independent admin totals for one record-store
// version. Upcoming and TodaysCount are recomputed from the given collections
// on every call.
type Memo struct {
	mu      sync.Mutex
	version uint64
	valid   bool
	totals  AdminSummary
}

// Admin returns the admin summary of patients and incidents at now. version
// must be the record-store version the two collections were read at.
func (m *Memo) Admin(version uint64, patients []model.Patient, incidents []model.Incident, now time.Time) AdminSummary {
	m.mu.Lock()
	if !m.valid || m.version != version {
		m.totals = adminTotals(patients, incidents)
		m.version = version
		m.valid = true
	}
	s := m.totals
	m.mu.Unlock()

	withSchedule(&s, patients, incidents, now)
	return s
}
