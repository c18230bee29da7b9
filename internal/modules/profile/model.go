// README: User profile with home location, as read by the matching engine.
package profile

import (
	"errors"
	"time"

	"carpool/internal/types"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrBadRequest = errors.New("bad request")
)

// UserLocation is a user's identity and published home location. Home is nil
// until the address has been geocoded.
type UserLocation struct {
	ID          types.ID
	Email       string
	DisplayName string
	AvatarURL   *string
	HomeAddress *string
	Home        *types.Point
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Eligible reports whether the user can take part in matching.
func (u UserLocation) Eligible() bool {
	return u.Home != nil && u.Home.Valid()
}

// Identity is what the auth layer knows about a caller.
type Identity struct {
	UID     types.ID
	Email   string
	Name    string
	Picture string
}

// CandidateQuery pages through geocoded users around a center point.
type CandidateQuery struct {
	Exclude  types.ID
	Center   types.Point
	RadiusMi float64
	AfterID  types.ID
	Limit    int
}
