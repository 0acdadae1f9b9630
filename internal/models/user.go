package models

// User roles. Role strings are part of the external contract and appear in
// issued tokens; the server never trusts a client-asserted role.
const (
	RoleOwner  = "Owner"
	RoleRenter = "Renter"
	RoleAdmin  = "Admin"
)

// User represents a registered account: a property owner, a renter, or an admin.
type User struct {
	BaseModel
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Email        string `gorm:"uniqueIndex" json:"email"`
	PasswordHash string `json:"-"`
	Role         string `gorm:"index" json:"role"`
}

// DisplayName returns the name passed to the payment gateway as payer name.
func (u *User) DisplayName() string {
	if u.FirstName == "" && u.LastName == "" {
		return "Client"
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
