package records

import (
	"context"

	"github.com/jwalitptl/dental-admin/internal/model"
	apperrors "github.com/jwalitptl/dental-admin/pkg/errors"
)

// CreateIncident appends a new incident. The patient id is not checked
// against the patient collection.
func (s *Service) CreateIncident(ctx context.Context, in model.NewIncident) (*model.Incident, error) {
	inc := in.Build()
	if err := s.check("incident", inc); err != nil {
		return nil, err
	}

	s.mu.Lock()
	inc.ID = s.newID(model.IncidentIDPrefix, func(id string) bool { return s.incidentIndex(id) >= 0 })
	now := s.timestamp()
	inc.CreatedAt, inc.UpdatedAt = now, now

	next := append(append(make([]model.Incident, 0, len(s.incidents)+1), s.incidents...), inc)
	if err := s.persist(ctx, model.KeyIncidents, next); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.incidents = next
	change := s.commit(CollectionIncidents, OpCreate, inc.ID, nil)

	s.logger.Info("incident created", "incident_id", inc.ID, "patient_id", inc.PatientID)
	s.release(change)
	out := inc.Clone()
	return &out, nil
}

// UpdateIncident merges patch into the incident. Any status may follow any
// other. An unknown id writes nothing and returns ErrRecordNotFound.
func (s *Service) UpdateIncident(ctx context.Context, id string, patch model.IncidentPatch) (*model.Incident, error) {
	return s.mutateIncident(ctx, id, func(inc *model.Incident) error {
		patch.Apply(inc)
		return s.check("incident", *inc)
	})
}

// AttachFile appends an encoded attachment to the incident's files.
func (s *Service) AttachFile(ctx context.Context, incidentID string, file model.FileAttachment) (*model.Incident, error) {
	return s.mutateIncident(ctx, incidentID, func(inc *model.Incident) error {
		inc.Files = append(append([]model.FileAttachment{}, inc.Files...), file)
		return nil
	})
}

func (s *Service) mutateIncident(ctx context.Context, id string, fn func(*model.Incident) error) (*model.Incident, error) {
	s.mu.Lock()
	idx := s.incidentIndex(id)
	if idx < 0 {
		s.mu.Unlock()
		return nil, apperrors.NewNotFound("incident "+id, apperrors.ErrRecordNotFound)
	}
	inc := s.incidents[idx].Clone()
	if err := fn(&inc); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	inc.UpdatedAt = s.touch(inc.UpdatedAt)

	next := append([]model.Incident{}, s.incidents...)
	next[idx] = inc
	if err := s.persist(ctx, model.KeyIncidents, next); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.incidents = next
	change := s.commit(CollectionIncidents, OpUpdate, id, nil)

	s.release(change)
	out := inc.Clone()
	return &out, nil
}

// DeleteIncident removes the incident; an unknown id is a no-op.
func (s *Service) DeleteIncident(ctx context.Context, id string) error {
	s.mu.Lock()
	idx := s.incidentIndex(id)
	if idx < 0 {
		s.mu.Unlock()
		return nil
	}
	next := make([]model.Incident, 0, len(s.incidents)-1)
	next = append(next, s.incidents[:idx]...)
	next = append(next, s.incidents[idx+1:]...)
	if err := s.persist(ctx, model.KeyIncidents, next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.incidents = next
	change := s.commit(CollectionIncidents, OpDelete, id, nil)

	s.release(change)
	return nil
}

// Incidents returns a deep copy of the collection in insertion order.
func (s *Service) Incidents() []model.Incident {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Incident, len(s.incidents))
	for i := range s.incidents {
		out[i] = s.incidents[i].Clone()
	}
	return out
}

func (s *Service) Incident(id string) (*model.Incident, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.incidentIndex(id)
	if idx < 0 {
		return nil, false
	}
	inc := s.incidents[idx].Clone()
	return &inc, true
}

// IncidentsForPatient returns the patient's incidents in insertion order.
func (s *Service) IncidentsForPatient(patientID string) []model.Incident {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Incident{}
	for i := range s.incidents {
		if s.incidents[i].PatientID == patientID {
			out = append(out, s.incidents[i].Clone())
		}
	}
	return out
}

// Snapshot returns both collections and the version they belong to, read
// under a single lock.
func (s *Service) Snapshot() ([]model.Patient, []model.Incident, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	incidents := make([]model.Incident, len(s.incidents))
	for i := range s.incidents {
		incidents[i] = s.incidents[i].Clone()
	}
	return append([]model.Patient{}, s.patients...), incidents, s.version
}
