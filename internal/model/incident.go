package model

import (
	"time"
)

type IncidentStatus string

const (
	IncidentStatusScheduled  IncidentStatus = "Scheduled"
	IncidentStatusInProgress IncidentStatus = "In Progress"
	IncidentStatusCompleted  IncidentStatus = "Completed"
	IncidentStatusCancelled  IncidentStatus = "Cancelled"
)

// IncidentStatuses lists every status in display order.
var IncidentStatuses = []IncidentStatus{
	IncidentStatusScheduled,
	IncidentStatusInProgress,
	IncidentStatusCompleted,
	IncidentStatusCancelled,
}

func (s IncidentStatus) Valid() bool {
	for _, v := range IncidentStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Incident is a single appointment or treatment for a patient.
type Incident struct {
	Base
	PatientID       string           `json:"patientId" validate:"required"`
	Title           string           `json:"title" validate:"required"`
	Description     string           `json:"description"`
	Comments        string           `json:"comments"`
	AppointmentDate time.Time        `json:"appointmentDate"`
	Cost            *float64         `json:"cost,omitempty" validate:"omitempty,gte=0"`
	Treatment       *string          `json:"treatment,omitempty"`
	Status          IncidentStatus   `json:"status" validate:"incident_status"`
	NextDate        *time.Time       `json:"nextDate,omitempty"`
	Files           []FileAttachment `json:"files"`
}

// FileAttachment is an uploaded document embedded in its incident. The URL
// holds the full content as a data URI.
type FileAttachment struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	Type       string    `json:"type"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploadedAt"`
}

type NewIncident struct {
	PatientID       string           `json:"patientId" binding:"required"`
	Title           string           `json:"title" binding:"required"`
	Description     string           `json:"description"`
	Comments        string           `json:"comments"`
	AppointmentDate time.Time        `json:"appointmentDate" binding:"required"`
	Cost            *float64         `json:"cost,omitempty"`
	Treatment       *string          `json:"treatment,omitempty"`
	Status          IncidentStatus   `json:"status"`
	NextDate        *time.Time       `json:"nextDate,omitempty"`
	Files           []FileAttachment `json:"files"`
}

// IncidentPatch is a shallow-merge update. Nil fields are left untouched.
type IncidentPatch struct {
	PatientID       *string           `json:"patientId"`
	Title           *string           `json:"title"`
	Description     *string           `json:"description"`
	Comments        *string           `json:"comments"`
	AppointmentDate *time.Time        `json:"appointmentDate"`
	Cost            *float64          `json:"cost"`
	Treatment       *string           `json:"treatment"`
	Status          *IncidentStatus   `json:"status"`
	NextDate        *time.Time        `json:"nextDate"`
	Files           *[]FileAttachment `json:"files"`
}

func (n NewIncident) Build() Incident {
	status := n.Status
	if status == "" {
		status = IncidentStatusScheduled
	}
	files := n.Files
	if files == nil {
		files = []FileAttachment{}
	}
	return Incident{
		PatientID:       n.PatientID,
		Title:           n.Title,
		Description:     n.Description,
		Comments:        n.Comments,
		AppointmentDate: n.AppointmentDate,
		Cost:            n.Cost,
		Treatment:       n.Treatment,
		Status:          status,
		NextDate:        n.NextDate,
		Files:           files,
	}
}

// Apply merges the patch into inc.
func (ip IncidentPatch) Apply(inc *Incident) {
	setString(&inc.PatientID, ip.PatientID)
	setString(&inc.Title, ip.Title)
	setString(&inc.Description, ip.Description)
	setString(&inc.Comments, ip.Comments)
	if ip.AppointmentDate != nil {
		inc.AppointmentDate = *ip.AppointmentDate
	}
	if ip.Cost != nil {
		c := *ip.Cost
		inc.Cost = &c
	}
	if ip.Treatment != nil {
		t := *ip.Treatment
		inc.Treatment = &t
	}
	if ip.Status != nil {
		inc.Status = *ip.Status
	}
	if ip.NextDate != nil {
		d := *ip.NextDate
		inc.NextDate = &d
	}
	if ip.Files != nil {
		inc.Files = append([]FileAttachment{}, (*ip.Files)...)
	}
}

// Clone returns a deep copy so callers cannot alias the store's snapshot.
func (inc Incident) Clone() Incident {
	out := inc
	if inc.Cost != nil {
		c := *inc.Cost
		out.Cost = &c
	}
	if inc.Treatment != nil {
		t := *inc.Treatment
		out.Treatment = &t
	}
	if inc.NextDate != nil {
		d := *inc.NextDate
		out.NextDate = &d
	}
	out.Files = append([]FileAttachment{}, inc.Files...)
	return out
}

// CostOrZero treats a missing cost as 0.
func (inc Incident) CostOrZero() float64 {
	if inc.Cost == nil {
		return 0
	}
	return *inc.Cost
}
