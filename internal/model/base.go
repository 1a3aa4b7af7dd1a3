package model

import (
	"time"
)

// Base contains common fields for all stored records
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Storage keys of the persisted collections
const (
	KeyAccounts       = "dental_users"
	KeyPatients       = "dental_patients"
	KeyIncidents      = "dental_incidents"
	KeyCurrentSession = "dental_current_user"
)

// ID prefixes for generated record tokens
const (
	PatientIDPrefix    = "p"
	IncidentIDPrefix   = "i"
	AttachmentIDPrefix = "f"
)
