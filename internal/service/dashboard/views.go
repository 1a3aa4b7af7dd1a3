// Package dashboard derives the numbers and lists shown on the admin and
// patient dashboards. Everything here is a pure function of its inputs.
package dashboard

import (
	"sort"
	"time"

	"github.com/jwalitptl/dental-admin/internal/model"
)

const UnknownPatient = "Unknown Patient"

// Upcoming returns incidents whose appointment is strictly after now, earliest
// first. Equal dates keep their collection order.
func Upcoming(incidents []model.Incident, now time.Time) []model.Incident {
	out := []model.Incident{}
	for _, inc := range incidents {
		if inc.AppointmentDate.After(now) {
			out = append(out, inc)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AppointmentDate.Before(out[j].AppointmentDate)
	})
	return out
}

// Todays returns incidents on the same calendar day as now, judged in now's
// location.
func Todays(incidents []model.Incident, now time.Time) []model.Incident {
	y, m, d := now.Date()
	out := []model.Incident{}
	for _, inc := range incidents {
		iy, im, id := inc.AppointmentDate.In(now.Location()).Date()
		if iy == y && im == m && id == d {
			out = append(out, inc)
		}
	}
	return out
}

func Completed(incidents []model.Incident) []model.Incident {
	return byStatus(incidents, model.IncidentStatusCompleted)
}

// TotalRevenue sums the cost of completed incidents; a missing cost counts as 0.
func TotalRevenue(incidents []model.Incident) float64 {
	var total float64
	for _, inc := range incidents {
		if inc.Status == model.IncidentStatusCompleted {
			total += inc.CostOrZero()
		}
	}
	return total
}

func PatientName(patients []model.Patient, id string) string {
	for _, p := range patients {
		if p.ID == id {
			return p.Name
		}
	}
	return UnknownPatient
}

// ForPatient keeps only the given patient's incidents.
func ForPatient(incidents []model.Incident, patientID string) []model.Incident {
	out := []model.Incident{}
	for _, inc := range incidents {
		if inc.PatientID == patientID {
			out = append(out, inc)
		}
	}
	return out
}

// StatusCounts reports a count for every status, zero included.
func StatusCounts(incidents []model.Incident) map[model.IncidentStatus]int {
	counts := make(map[model.IncidentStatus]int, len(model.IncidentStatuses))
	for _, s := range model.IncidentStatuses {
		counts[s] = 0
	}
	for _, inc := range incidents {
		if _, ok := counts[inc.Status]; ok {
			counts[inc.Status]++
		}
	}
	return counts
}

// Recent returns the first n incidents in collection order.
func Recent(incidents []model.Incident, n int) []model.Incident {
	if n < 0 {
		n = 0
	}
	if n > len(incidents) {
		n = len(incidents)
	}
	return append([]model.Incident{}, incidents[:n]...)
}

func byStatus(incidents []model.Incident, status model.IncidentStatus) []model.Incident {
	out := []model.Incident{}
	for _, inc := range incidents {
		if inc.Status == status {
			out = append(out, inc)
		}
	}
	return out
}
