// Package schedule projects medication courses into individual dose times.
package schedule

import (
	"sort"
	"time"

	"healthlog/pkg/domain"
)

// MaxDosesPerCourse bounds the projection of a single course.
const MaxDosesPerCourse = 1000

// Dose is one planned administration of a course.
type Dose struct {
	CourseID string
	MemberID string
	MedName  string
	Dose     string
	Index    int
	At       time.Time
}

// ForCourse returns every dose of c, starting at its start time and repeating
// every IntervalHours while before start+DurationDays. Deleted courses and
// courses with a non-positive interval or duration yield nothing.
func ForCourse(c domain.MedCourse) []Dose {
	if c.DeletedAtISO != nil || c.IntervalHours <= 0 || c.DurationDays <= 0 {
		return nil
	}
	start, ok := domain.ParseISO(c.StartAtISO)
	if !ok {
		return nil
	}
	step := time.Duration(c.IntervalHours * float64(time.Hour))
	if step <= 0 {
		return nil
	}
	end := start.Add(time.Duration(c.DurationDays * 24 * float64(time.Hour)))

	var doses []Dose
	for at, i := start, 0; at.Before(end) && i < MaxDosesPerCourse; at, i = at.Add(step), i+1 {
		doses = append(doses, Dose{
			CourseID: c.ID,
			MemberID: c.MemberID,
			MedName:  c.MedName,
			Dose:     c.Dose,
			Index:    i,
			At:       at,
		})
	}
	return doses
}

// Upcoming returns the doses at or after now across the live courses of
// memberID ("" for everyone), earliest first, at most limit (0 for all).
func Upcoming(d domain.LogDocument, memberID string, now time.Time, limit int) []Dose {
	var out []Dose
	for _, c := range d.ActiveCourses(memberID) {
		for _, dose := range ForCourse(c) {
			if !dose.At.Before(now) {
				out = append(out, dose)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].At.Equal(out[j].At) {
			return out[i].At.Before(out[j].At)
		}
		return out[i].CourseID < out[j].CourseID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Next returns the first upcoming dose of course c, if any.
func Next(c domain.MedCourse, now time.Time) (Dose, bool) {
	for _, dose := range ForCourse(c) {
		if !dose.At.Before(now) {
			return dose, true
		}
	}
	return Dose{}, false
}
