package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ItemKind string

const (
	ItemKindFile   ItemKind = "FILE"
	ItemKindFolder ItemKind = "FOLDER"
)

func (k ItemKind) Valid() bool {
	return k == ItemKindFile || k == ItemKindFolder
}

type DocumentCategory string

const (
	CategoryPDF        DocumentCategory = "PDF"
	CategoryWord       DocumentCategory = "WORD"
	CategoryExcel      DocumentCategory = "EXCEL"
	CategoryPowerPoint DocumentCategory = "POWERPOINT"
	CategoryOther      DocumentCategory = "OTHER"
)

func (c DocumentCategory) Valid() bool {
	switch c {
	case CategoryPDF, CategoryWord, CategoryExcel, CategoryPowerPoint, CategoryOther:
		return true
	}
	return false
}

// FileMetadata is embedded in the item document for FILE items.
type FileMetadata struct {
	MimeType   string           `bson:"mime_type" json:"mime_type"`
	Size       int64            `bson:"size" json:"size"`
	StorageKey string           `bson:"storage_key" json:"-"`
	Version    int              `bson:"version" json:"version"`
	Category   DocumentCategory `bson:"category" json:"category"`
}

// Item is a node in the drive tree. A nil ParentID means the item sits at
// the root. FOLDER items never carry FileMetadata; FILE items always do.
type Item struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Name         string              `bson:"name" json:"name"`
	Kind         ItemKind            `bson:"kind" json:"kind"`
	OwnerID      primitive.ObjectID  `bson:"owner_id" json:"owner_id"`
	ParentID     *primitive.ObjectID `bson:"parent_id,omitempty" json:"parent_id,omitempty"`
	IsTrashed    bool                `bson:"is_trashed" json:"is_trashed"`
	FileMetadata *FileMetadata       `bson:"file_metadata,omitempty" json:"file_metadata,omitempty"`
	CreatedAt    time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time           `bson:"updated_at" json:"updated_at"`
}

// OwnerSummary is the slice of a user record attached to item responses.
type OwnerSummary struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}
