package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Principal is the verified identity making a request. It is produced by
// the auth middleware from an already-verified token and passed explicitly
// to every service call; nothing in this package persists it.
type Principal struct {
	UserID primitive.ObjectID
	Role   UserRole
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
