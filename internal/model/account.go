package model

type Role string

const (
	RoleAdmin   Role = "Admin"
	RolePatient Role = "Patient"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RolePatient
}

// Account is a login identity. Accounts are only ever written by the fixture
// seeder; the application never mutates them.
type Account struct {
	ID        string `json:"id"`
	Role      Role   `json:"role"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	PatientID string `json:"patientId,omitempty"`
}

// Public returns a copy safe to hand to callers outside the auth service.
func (a Account) Public() Account {
	a.Password = ""
	return a
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	AccessToken string  `json:"access_token"`
	Account     Account `json:"account"`
}
