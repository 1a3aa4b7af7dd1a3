package records

import (
	"context"
	"fmt"

	"github.com/jwalitptl/dental-admin/internal/model"
	apperrors "github.com/jwalitptl/dental-admin/pkg/errors"
)

func (s *Service) CreatePatient(ctx context.Context, in model.NewPatient) (*model.Patient, error) {
	p := in.Build()
	if err := s.check("patient", p); err != nil {
		return nil, err
	}

	s.mu.Lock()
	p.ID = s.newID(model.PatientIDPrefix, func(id string) bool { return s.patientIndex(id) >= 0 })
	now := s.timestamp()
	p.CreatedAt, p.UpdatedAt = now, now

	next := append(append(make([]model.Patient, 0, len(s.patients)+1), s.patients...), p)
	if err := s.persist(ctx, model.KeyPatients, next); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.patients = next
	change := s.commit(CollectionPatients, OpCreate, p.ID, nil)

	s.logger.Info("patient created", "patient_id", p.ID)
	s.release(change)
	return &p, nil
}

// UpdatePatient merges patch into the patient. An unknown id writes nothing
// and returns ErrRecordNotFound.
func (s *Service) UpdatePatient(ctx context.Context, id string, patch model.PatientPatch) (*model.Patient, error) {
	s.mu.Lock()
	idx := s.patientIndex(id)
	if idx < 0 {
		s.mu.Unlock()
		return nil, apperrors.NewNotFound("patient "+id, apperrors.ErrRecordNotFound)
	}
	p := s.patients[idx]
	patch.Apply(&p)
	if err := s.check("patient", p); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	p.UpdatedAt = s.touch(p.UpdatedAt)

	next := append([]model.Patient{}, s.patients...)
	next[idx] = p
	if err := s.persist(ctx, model.KeyPatients, next); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.patients = next
	change := s.commit(CollectionPatients, OpUpdate, id, nil)

	s.release(change)
	return &p, nil
}

// DeletePatient removes the patient and all of its incidents. Patients are
// written first; if the incidents write then fails, the patients value is put
// back so the two keys never disagree. An unknown id is a no-op.
func (s *Service) DeletePatient(ctx context.Context, id string) error {
	s.mu.Lock()
	idx := s.patientIndex(id)
	if idx < 0 {
		s.mu.Unlock()
		return nil
	}

	prevPatients := s.patients
	nextPatients := make([]model.Patient, 0, len(s.patients)-1)
	nextPatients = append(nextPatients, s.patients[:idx]...)
	nextPatients = append(nextPatients, s.patients[idx+1:]...)

	var removed []string
	nextIncidents := make([]model.Incident, 0, len(s.incidents))
	for _, inc := range s.incidents {
		if inc.PatientID == id {
			removed = append(removed, inc.ID)
			continue
		}
		nextIncidents = append(nextIncidents, inc)
	}

	if err := s.persist(ctx, model.KeyPatients, nextPatients); err != nil {
		s.mu.Unlock()
		return err
	}
	if len(removed) > 0 {
		if err := s.persist(ctx, model.KeyIncidents, nextIncidents); err != nil {
			if rbErr := s.persist(ctx, model.KeyPatients, prevPatients); rbErr != nil {
				s.logger.Error(rbErr, "failed to roll back patients after cascade failure", "patient_id", id)
				s.mu.Unlock()
				return fmt.Errorf("failed to delete patient %s: %w (rollback also failed: %v)", id, err, rbErr)
			}
			s.mu.Unlock()
			return err
		}
		s.incidents = nextIncidents
	}
	s.patients = nextPatients
	change := s.commit(CollectionPatients, OpDelete, id, removed)

	s.logger.Info("patient deleted", "patient_id", id, "incidents_removed", len(removed))
	s.release(change)
	return nil
}

// Patients returns a copy of the collection in insertion order.
func (s *Service) Patients() []model.Patient {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Patient{}, s.patients...)
}

func (s *Service) Patient(id string) (*model.Patient, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.patientIndex(id)
	if idx < 0 {
		return nil, false
	}
	p := s.patients[idx]
	return &p, true
}
