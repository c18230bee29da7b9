// README: Commute preference aggregate, enums and validation.
package preference

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"carpool/internal/types"
)

type Direction string

const (
	DirectionToWork   Direction = "TO_WORK"
	DirectionFromWork Direction = "FROM_WORK"
)

func (d Direction) Valid() bool {
	return d == DirectionToWork || d == DirectionFromWork
}

type Role string

const (
	RoleDriver Role = "DRIVER"
	RoleRider  Role = "RIDER"
	RoleEither Role = "EITHER"
)

func (r Role) Valid() bool {
	return r == RoleDriver || r == RoleRider || r == RoleEither
}

// Weekday indexes the commuting week: 0 is Monday, 4 is Friday.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
)

var weekdayNames = [...]string{"Mon", "Tue", "Wed", "Thu", "Fri"}

func (w Weekday) Valid() bool { return w >= Monday && w <= Friday }

func (w Weekday) String() string {
	if !w.Valid() {
		return "Weekday(" + strconv.Itoa(int(w)) + ")"
	}
	return weekdayNames[w]
}

// Workweek is Monday through Friday.
func Workweek() []Weekday {
	return []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday}
}

const minutesPerDay = 24 * 60

// CommutePreference is one user's acceptable departure window for a direction.
// Times are minutes after midnight.
type CommutePreference struct {
	ID          types.ID
	UserID      types.ID
	Direction   Direction
	EarliestMin int
	LatestMin   int
	Days        []Weekday
	Role        Role
}

var ErrBadRequest = errors.New("bad request")

// Validate checks enum membership, time ordering and the day set.
func (p CommutePreference) Validate() error {
	if !p.Direction.Valid() {
		return fmt.Errorf("%w: invalid direction %q", ErrBadRequest, p.Direction)
	}
	if !p.Role.Valid() {
		return fmt.Errorf("%w: invalid role %q", ErrBadRequest, p.Role)
	}
	if p.EarliestMin < 0 || p.EarliestMin >= minutesPerDay || p.LatestMin < 0 || p.LatestMin >= minutesPerDay {
		return fmt.Errorf("%w: departure times must be within the day", ErrBadRequest)
	}
	if p.LatestMin <= p.EarliestMin {
		return fmt.Errorf("%w: latest departure must be after earliest departure", ErrBadRequest)
	}
	if len(p.Days) == 0 {
		return fmt.Errorf("%w: select at least one day", ErrBadRequest)
	}
	for _, d := range p.Days {
		if !d.Valid() {
			return fmt.Errorf("%w: invalid day %d", ErrBadRequest, int(d))
		}
	}
	return nil
}

// NormalizeDays returns the day set sorted and without duplicates.
func NormalizeDays(days []Weekday) []Weekday {
	seen := make(map[Weekday]bool, len(days))
	out := make([]Weekday, 0, len(days))
	for _, d := range days {
		if seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseClock parses "HH:MM" into minutes after midnight.
func ParseClock(s string) (int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(hh) != 2 || len(mm) != 2 {
		return 0, fmt.Errorf("%w: invalid time format %q", ErrBadRequest, s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("%w: invalid hour in %q", ErrBadRequest, s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: invalid minute in %q", ErrBadRequest, s)
	}
	return h*60 + m, nil
}

// FormatClock renders minutes after midnight as "HH:MM".
func FormatClock(min int) string {
	return fmt.Sprintf("%02d:%02d", min/60, min%60)
}
