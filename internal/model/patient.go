package model

type Patient struct {
	Base
	Name             string `json:"name" validate:"required"`
	DOB              string `json:"dob"`
	Contact          string `json:"contact"`
	Email            string `json:"email" validate:"omitempty,email"`
	Address          string `json:"address"`
	HealthInfo       string `json:"healthInfo"`
	EmergencyContact string `json:"emergencyContact"`
	InsuranceInfo    string `json:"insuranceInfo"`
	ProfileImage     string `json:"profileImage,omitempty"`
}

// NewPatient holds the fields a caller may supply when creating a patient.
type NewPatient struct {
	Name             string `json:"name" binding:"required"`
	DOB              string `json:"dob"`
	Contact          string `json:"contact"`
	Email            string `json:"email"`
	Address          string `json:"address"`
	HealthInfo       string `json:"healthInfo"`
	EmergencyContact string `json:"emergencyContact"`
	InsuranceInfo    string `json:"insuranceInfo"`
	ProfileImage     string `json:"profileImage,omitempty"`
}

// PatientPatch is a shallow-merge update. Nil fields are left untouched.
type PatientPatch struct {
	Name             *string `json:"name"`
	DOB              *string `json:"dob"`
	Contact          *string `json:"contact"`
	Email            *string `json:"email"`
	Address          *string `json:"address"`
	HealthInfo       *string `json:"healthInfo"`
	EmergencyContact *string `json:"emergencyContact"`
	InsuranceInfo    *string `json:"insuranceInfo"`
	ProfileImage     *string `json:"profileImage"`
}

func (n NewPatient) Build() Patient {
	return Patient{
		Name:             n.Name,
		DOB:              n.DOB,
		Contact:          n.Contact,
		Email:            n.Email,
		Address:          n.Address,
		HealthInfo:       n.HealthInfo,
		EmergencyContact: n.EmergencyContact,
		InsuranceInfo:    n.InsuranceInfo,
		ProfileImage:     n.ProfileImage,
	}
}

// Apply merges the patch into p.
func (pp PatientPatch) Apply(p *Patient) {
	setString(&p.Name, pp.Name)
	setString(&p.DOB, pp.DOB)
	setString(&p.Contact, pp.Contact)
	setString(&p.Email, pp.Email)
	setString(&p.Address, pp.Address)
	setString(&p.HealthInfo, pp.HealthInfo)
	setString(&p.EmergencyContact, pp.EmergencyContact)
	setString(&p.InsuranceInfo, pp.InsuranceInfo)
	setString(&p.ProfileImage, pp.ProfileImage)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
