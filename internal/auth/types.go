package auth

import "strings"

// Principal is the authenticated caller, derived from a verified token and a
// user lookup. It lives for the request only.
type Principal struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone,omitempty"`
	Photo  string `json:"photo,omitempty"`
	RoleID int64  `json:"roleId"`
}

// Privilege is the create/read/update/delete bitset for one (role, feature)
// pair.
type Privilege struct {
	RoleID      int64
	FeatureID   int64
	FeatureName string
	Create      bool
	Read        bool
	Update      bool
	Delete      bool
}

// Role groups privileges.
type Role struct {
	ID         int64
	Name       string
	Status     bool
	Privileges []Privilege
}

// Allows reports whether the role holds the required flag for the feature,
// matched case-insensitively.
func (r Role) Allows(feature string, required Flag) bool {
	p, ok := r.privilegeFor(feature)
	if !ok {
		return false
	}
	switch required {
	case FlagCreate:
		return p.Create
	case FlagRead:
		return p.Read
	case FlagUpdate:
		return p.Update
	case FlagDelete:
		return p.Delete
	default:
		return false
	}
}

func (r Role) privilegeFor(feature string) (Privilege, bool) {
	for _, p := range r.Privileges {
		if strings.EqualFold(p.FeatureName, feature) {
			return p, true
		}
	}
	return Privilege{}, false
}

// Flag identifies one privilege bit.
type Flag int

const (
	FlagCreate Flag = iota
	FlagRead
	FlagUpdate
	FlagDelete
)
