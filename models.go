package places

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the user model. PlaceIDs is the owned-set side of the
// Place<->User linkage; Version guards it against concurrent writers.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID   `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name          string      `bun:"name,notnull" json:"name,omitempty"`
	Email         string      `bun:"email,notnull,unique" json:"email,omitempty"`
	Phone         string      `bun:"phone" json:"phone,omitempty"`
	PasswordHash  string      `bun:"password_hash" json:"-"`
	Image         string      `bun:"image" json:"image,omitempty"`
	PlaceIDs      []uuid.UUID `bun:"place_ids,type:jsonb" json:"places"`
	Version       int64       `bun:"version,notnull,default:1" json:"-"`
	CreatedAt     *time.Time  `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time  `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// HasPlaceID reports membership in the owned-set
func (u *User) HasPlaceID(id uuid.UUID) bool {
	for _, pid := range u.PlaceIDs {
		if pid == id {
			return true
		}
	}
	return false
}

// AddPlaceID appends without duplicating
func (u *User) AddPlaceID(id uuid.UUID) *User {
	if !u.HasPlaceID(id) {
		u.PlaceIDs = append(u.PlaceIDs, id)
	}
	return u
}

// RemovePlaceID drops id from the owned-set, preserving order
func (u *User) RemovePlaceID(id uuid.UUID) *User {
	out := u.PlaceIDs[:0]
	for _, pid := range u.PlaceIDs {
		if pid != id {
			out = append(out, pid)
		}
	}
	u.PlaceIDs = out
	return u
}

// Place is the place model. OwnerID references exactly one User; the
// owning user's place_ids must contain ID whenever both are committed.
type Place struct {
	bun.BaseModel `bun:"table:places,alias:plc"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Title         string     `bun:"title,notnull" json:"title,omitempty"`
	Description   string     `bun:"description,notnull" json:"description,omitempty"`
	Address       string     `bun:"address,notnull" json:"address,omitempty"`
	Lat           float64    `bun:"lat" json:"lat"`
	Lng           float64    `bun:"lng" json:"lng"`
	Image         string     `bun:"image" json:"image,omitempty"`
	OwnerID       uuid.UUID  `bun:"owner_id,notnull,type:uuid" json:"creator,omitempty"`
	Owner         *User      `bun:"rel:belongs-to,join:owner_id=id" json:"-"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}
