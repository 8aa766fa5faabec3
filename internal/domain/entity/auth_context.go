package entity

import "github.com/google/uuid"

// AuthContext is the verified identity attached to a single request.
// It is a value type; handlers receive a copy and cannot alter what later middleware sees.
type AuthContext struct {
	SubjectID uuid.UUID
	Role      Role
}

// IsZero reports whether no identity was established.
func (a AuthContext) IsZero() bool {
	return a.SubjectID == uuid.Nil
}
