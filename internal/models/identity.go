package models

// Role distinguishes administrators from regular submitters.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleSubmitter Role = "submitter"
)

// Identity is the caller context passed to every scope and mutation decision.
// RegistrationNumber is the submitter's scope key and stays empty until the
// first successful creation pins it.
type Identity struct {
	Role               Role   `json:"role"`
	RegistrationNumber string `json:"registrationNumber,omitempty"`
}

func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

// HasScope reports whether a submitter has a pinned scope key.
func (i Identity) HasScope() bool { return i.RegistrationNumber != "" }
