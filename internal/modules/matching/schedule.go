package matching

import "carpool/internal/modules/preference"

// Overlap is the intersection of two weekly departure windows.
type Overlap struct {
	Start      int
	End        int
	Minutes    int
	CommonDays []preference.Weekday
}

// Viable reports whether the two windows share time on at least one day.
func (o Overlap) Viable() bool {
	return o.Minutes > 0 && len(o.CommonDays) > 0
}

// ScheduleOverlap intersects two preferences. Disjoint day sets short-circuit
// to a zero overlap without looking at the times.
func ScheduleOverlap(a, b preference.CommutePreference) Overlap {
	inB := make(map[preference.Weekday]bool, len(b.Days))
	for _, d := range b.Days {
		inB[d] = true
	}
	var common []preference.Weekday
	for _, d := range a.Days {
		if inB[d] {
			common = append(common, d)
			delete(inB, d)
		}
	}
	if len(common) == 0 {
		return Overlap{}
	}

	start := max(a.EarliestMin, b.EarliestMin)
	end := min(a.LatestMin, b.LatestMin)
	return Overlap{
		Start:      start,
		End:        end,
		Minutes:    max(0, end-start),
		CommonDays: common,
	}
}

// RolesCompatible rejects only the rider/rider pairing; EITHER satisfies any role.
func RolesCompatible(a, b preference.Role) bool {
	return !(a == preference.RoleRider && b == preference.RoleRider)
}
