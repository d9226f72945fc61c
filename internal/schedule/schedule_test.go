package schedule

import (
	"testing"
	"time"

	"healthlog/pkg/domain"
)

var start = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

func course(id string, interval, days float64) domain.MedCourse {
	return domain.MedCourse{
		ID:            id,
		MemberID:      "member-1",
		MedName:       "Amoxicillin",
		Dose:          "250mg",
		StartAtISO:    domain.FormatISO(start),
		IntervalHours: interval,
		DurationDays:  days,
	}
}

func TestForCourseCountsDoses(t *testing.T) {
	doses := ForCourse(course("c1", 8, 2))
	if len(doses) != 6 {
		t.Fatalf("expected 6 doses, got %d", len(doses))
	}
	if !doses[0].At.Equal(start) || !doses[5].At.Equal(start.Add(40*time.Hour)) {
		t.Fatalf("unexpected bounds %v .. %v", doses[0].At, doses[5].At)
	}
	if doses[3].Index != 3 || doses[3].MedName != "Amoxicillin" || doses[3].Dose != "250mg" {
		t.Fatalf("unexpected dose %+v", doses[3])
	}
}

func TestForCourseSkipsInvalid(t *testing.T) {
	deleted := course("c1", 8, 2)
	ts := domain.FormatISO(start)
	deleted.DeletedAtISO = &ts
	badStart := course("c2", 8, 2)
	badStart.StartAtISO = "soon"
	for name, c := range map[string]domain.MedCourse{
		"deleted":       deleted,
		"zero interval": course("c3", 0, 2),
		"zero duration": course("c4", 8, 0),
		"bad start":     badStart,
	} {
		if got := ForCourse(c); len(got) != 0 {
			t.Fatalf("%s: expected no doses, got %d", name, len(got))
		}
	}
}

func TestForCourseIsBounded(t *testing.T) {
	if got := ForCourse(course("c1", 0.01, 365)); len(got) != MaxDosesPerCourse {
		t.Fatalf("expected cap at %d, got %d", MaxDosesPerCourse, len(got))
	}
}

func TestUpcomingMergesCourses(t *testing.T) {
	other := course("c2", 12, 1)
	other.MemberID = "member-2"
	other.StartAtISO = domain.FormatISO(start.Add(time.Hour))
	doc := domain.LogDocument{MedCourses: []domain.MedCourse{course("c1", 8, 1), other}}
	now := start.Add(30 * time.Minute)

	all := Upcoming(doc, "", now, 0)
	// c1: 16:00, 00:00 ; c2: 09:00, 21:00
	if len(all) != 4 {
		t.Fatalf("expected 4 upcoming doses, got %d", len(all))
	}
	if all[0].CourseID != "c2" || all[1].CourseID != "c1" {
		t.Fatalf("expected chronological order, got %+v", all)
	}
	if got := Upcoming(doc, "member-2", now, 1); len(got) != 1 || got[0].CourseID != "c2" {
		t.Fatalf("unexpected filtered result %+v", got)
	}

	next, ok := Next(doc.MedCourses[0], now)
	if !ok || !next.At.Equal(start.Add(8*time.Hour)) {
		t.Fatalf("unexpected next dose %+v %v", next, ok)
	}
	if _, ok := Next(doc.MedCourses[0], start.Add(48*time.Hour)); ok {
		t.Fatalf("finished course must have no next dose")
	}
}
