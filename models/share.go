package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ShareLevel string

const (
	ShareLevelViewer ShareLevel = "VIEWER"
	ShareLevelEditor ShareLevel = "EDITOR"
)

func (l ShareLevel) Valid() bool {
	return l == ShareLevelViewer || l == ShareLevelEditor
}

// Satisfies reports whether a held level covers the required one.
// EDITOR implies VIEWER capability; the reverse does not hold.
func (l ShareLevel) Satisfies(required ShareLevel) bool {
	if required == ShareLevelViewer {
		return l == ShareLevelViewer || l == ShareLevelEditor
	}
	return l == ShareLevelEditor
}

// ShareGrant records "item is shared with grantee at level". At most one
// grant exists per (item, grantee) pair; re-sharing upserts the level.
type ShareGrant struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ItemID    primitive.ObjectID `bson:"item_id" json:"item_id"`
	GranteeID primitive.ObjectID `bson:"grantee_id" json:"grantee_id"`
	Level     ShareLevel         `bson:"level" json:"level"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}
