package model

import (
	"strings"
	"time"
)

// Passenger is a traveller known to the passenger directory.  A passenger
// is identified by passport or national id card; both columns are unique
// and either may be absent.  Passengers are created lazily on the first
// confirmed booking and never deleted by the reservation service.
type Passenger struct {
	ID        uint64    `json:"passenger_id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Passport  *string   `json:"passport,omitempty"`
	IDCard    *string   `json:"id_card,omitempty"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

// IdentityDocument is the natural key used to deduplicate passengers.
type IdentityDocument struct {
	Passport string
	IDCard   string
}

// Normalize trims both document numbers and upper-cases them.
func (d IdentityDocument) Normalize() IdentityDocument {
	return IdentityDocument{
		Passport: strings.ToUpper(strings.TrimSpace(d.Passport)),
		IDCard:   strings.ToUpper(strings.TrimSpace(d.IDCard)),
	}
}

// Empty reports whether neither document number is present.
func (d IdentityDocument) Empty() bool {
	n := d.Normalize()
	return n.Passport == "" && n.IDCard == ""
}
