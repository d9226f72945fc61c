package normalize

import (
	"encoding/json"
	"fmt"
	"reflect"
	"testing"
	"time"

	"healthlog/pkg/domain"
)

var fixedNow = time.Date(2024, time.March, 1, 8, 0, 0, 0, time.UTC)

func testOptions() Options {
	n := 0
	return Options{
		Now: func() time.Time { return fixedNow },
		NewID: func() string {
			n++
			return fmt.Sprintf("gen-%d", n)
		},
	}
}

func decodeAny(t *testing.T, s string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	return v
}

var garbageInputs = []string{
	`null`,
	`[]`,
	`42`,
	`"text"`,
	`{}`,
	`{"members": null}`,
	`{"members": []}`,
	`{"members": [1, "x", null]}`,
	`{"episodes": "nope", "temps": {"a": 1}, "meds": [null, 3]}`,
	`{"episodes": [{"severity": "9", "memberId": 7}], "temps": [{"tempC": "38.5"}]}`,
	`{"lastUpdatedAtISO": 12, "medCatalog": [{"name": "  Zinc ", "isFavorite": "true"}]}`,
}

func TestEnsureLogIdempotent(t *testing.T) {
	for _, in := range garbageInputs {
		once := EnsureLog(decodeAny(t, in), testOptions())
		twice := EnsureLog(once, testOptions())
		if !reflect.DeepEqual(once, twice) {
			t.Fatalf("log normalization not idempotent for %s:\n%+v\n%+v", in, once, twice)
		}
	}
}

func TestEnsureHouseholdIdempotent(t *testing.T) {
	for _, in := range garbageInputs {
		once := EnsureHousehold(decodeAny(t, in), testOptions())
		twice := EnsureHousehold(once, testOptions())
		if !reflect.DeepEqual(once, twice) {
			t.Fatalf("household normalization not idempotent for %s:\n%+v\n%+v", in, once, twice)
		}
	}
}

func TestHouseholdSlotInvariant(t *testing.T) {
	ten := `{"members": [`
	for i := 0; i < 10; i++ {
		if i > 0 {
			ten += ","
		}
		ten += fmt.Sprintf(`{"id": "m%d", "name": "P%d"}`, i, i)
	}
	ten += `]}`
	for _, in := range []string{`{"members": []}`, `{"members": null}`, `{}`, `null`, ten} {
		h := EnsureHousehold(decodeAny(t, in), testOptions())
		if len(h.Members) != domain.MemberSlots {
			t.Fatalf("%s: expected %d members, got %d", in, domain.MemberSlots, len(h.Members))
		}
		ids := map[string]bool{}
		for _, m := range h.Members {
			if m.ID == "" || ids[m.ID] {
				t.Fatalf("%s: member ids must be unique and non-empty: %+v", in, h.Members)
			}
			ids[m.ID] = true
		}
	}
	h := EnsureHousehold(decodeAny(t, ten), testOptions())
	if h.Members[0].ID != "m0" || h.Members[3].ID != "m3" {
		t.Fatalf("expected first four members kept, got %+v", h.Members)
	}
}

func TestHouseholdSynthesizedSlotsAreStable(t *testing.T) {
	a := EnsureHousehold(nil, testOptions())
	b := EnsureHousehold(map[string]any{}, Options{Now: func() time.Time { return fixedNow }})
	for i := range a.Members {
		if a.Members[i].ID != b.Members[i].ID || a.Members[i].Name != domain.DefaultMemberName(i) {
			t.Fatalf("synthesized slot %d differs: %+v vs %+v", i, a.Members[i], b.Members[i])
		}
	}
}

func TestHouseholdDuplicateIDsReassigned(t *testing.T) {
	in := `{"members": [{"id": "member-2", "name": "Ada"}, {"id": "member-2", "name": "Bo"}]}`
	h := EnsureHousehold(decodeAny(t, in), testOptions())
	if h.Members[0].ID != "member-2" || h.Members[1].ID == "member-2" {
		t.Fatalf("expected second duplicate to be reassigned: %+v", h.Members)
	}
	if h.Members[1].Name != "Bo" {
		t.Fatalf("expected name preserved, got %q", h.Members[1].Name)
	}
}

func TestEnsureLogCoercion(t *testing.T) {
	in := `{
	  "lastUpdatedAtISO": "2024-02-01T00:00:00.000Z",
	  "episodes": [{"id": "e1", "memberId": "m1", "severity": "9", "deletedAtISO": ""}],
	  "temps": [{"id": "t1", "episodeId": "e1", "tempC": "38.5", "updatedAtISO": "2024-02-02T00:00:00.000Z"}],
	  "symptoms": [{"symptoms": ["cough", 3, "fever"]}],
	  "medCourses": [{"intervalHours": "8", "durationDays": 5}]
	}`
	d := EnsureLog(decodeAny(t, in), testOptions())
	ep := d.Episodes[0]
	if ep.Severity != domain.MaxSeverity {
		t.Fatalf("severity not clamped: %d", ep.Severity)
	}
	if ep.DeletedAtISO != nil {
		t.Fatalf("empty tombstone must normalise to nil")
	}
	if ep.CreatedAtISO != "2024-02-01T00:00:00.000Z" {
		t.Fatalf("expected document timestamp fallback, got %q", ep.CreatedAtISO)
	}
	temp := d.Temps[0]
	if temp.TempC != 38.5 || temp.MemberID != "m1" {
		t.Fatalf("unexpected temp %+v", temp)
	}
	if temp.CreatedAtISO != "2024-02-02T00:00:00.000Z" {
		t.Fatalf("created should backfill from updated, got %q", temp.CreatedAtISO)
	}
	if got := d.Symptoms[0].Symptoms; !reflect.DeepEqual(got, []string{"cough", "fever"}) {
		t.Fatalf("unexpected symptoms %v", got)
	}
	if d.Symptoms[0].ID != "gen-1" {
		t.Fatalf("expected generated id, got %q", d.Symptoms[0].ID)
	}
	if c := d.MedCourses[0]; c.IntervalHours != 8 || c.DurationDays != 5 {
		t.Fatalf("unexpected course %+v", c)
	}
	if d.Meds == nil || d.MedCatalog == nil {
		t.Fatalf("collections must be non-nil")
	}
}

func TestEnsureLogNowFallback(t *testing.T) {
	d := EnsureLog(decodeAny(t, `{"temps": [{"id": "t"}]}`), testOptions())
	want := domain.FormatISO(fixedNow)
	if d.LastUpdatedAtISO != want || d.Temps[0].CreatedAtISO != want || d.Temps[0].UpdatedAtISO != want {
		t.Fatalf("expected now fallback, got %+v", d)
	}
}

// A legacy entry without an owner picks up the owner of its episode.
func TestLegacyEntryMemberBackfill(t *testing.T) {
	in := `{"episodes": [{"id": "e", "memberId": "m"}], "temps": [{"id": "t", "episodeId": "e", "tempC": 38.5}]}`
	d := EnsureLog(decodeAny(t, in), testOptions())
	if d.Temps[0].MemberID != "m" {
		t.Fatalf("expected memberId backfill, got %q", d.Temps[0].MemberID)
	}
	if d.Temps[0].TempC != 38.5 {
		t.Fatalf("temperature changed: %v", d.Temps[0].TempC)
	}
}

func TestMedNameBackfilledFromCatalog(t *testing.T) {
	in := `{"medCatalog": [{"id": "c1", "name": "Ibuprofen"}], "meds": [{"id": "x", "memberId": "m", "medId": "c1"}]}`
	d := EnsureLog(decodeAny(t, in), testOptions())
	if d.Meds[0].MedName != "Ibuprofen" {
		t.Fatalf("expected cached name, got %q", d.Meds[0].MedName)
	}
}

func TestDecodeInvalidJSON(t *testing.T) {
	d := DecodeLog([]byte("{not json"), testOptions())
	if d.SchemaVersion != domain.SchemaVersion || len(d.Episodes) != 0 {
		t.Fatalf("expected empty document, got %+v", d)
	}
	h := DecodeHousehold([]byte(""), testOptions())
	if len(h.Members) != domain.MemberSlots {
		t.Fatalf("expected default household")
	}
}

func TestEnsureLogAcceptsTypedDocument(t *testing.T) {
	src := domain.NewLogDocument(fixedNow)
	src, _, err := domain.AddTemp(src, domain.EntryRef{MemberID: "m"}, 37.5, fixedNow)
	if err != nil {
		t.Fatalf("add temp: %v", err)
	}
	got := EnsureLog(src, testOptions())
	if len(got.Temps) != 1 || got.Temps[0].ID != src.Temps[0].ID || got.Temps[0].EpisodeID != nil {
		t.Fatalf("typed document not preserved: %+v", got.Temps)
	}
}

func TestEnsureLogRepeatedIDsMadeUnique(t *testing.T) {
	in := `{
	  "episodes": [{"id": "e", "category": "flu"}, {"id": "e", "category": "cold"}],
	  "temps": [{"id": "x", "tempC": 38}, {"id": "x", "tempC": 39}, {"id": "x~2", "tempC": 40}]
	}`
	d := EnsureLog(decodeAny(t, in), testOptions())
	got := []string{d.Temps[0].ID, d.Temps[1].ID, d.Temps[2].ID}
	if !reflect.DeepEqual(got, []string{"x", "x~2", "x~2~2"}) {
		t.Fatalf("unexpected temp ids %v", got)
	}
	if d.Episodes[0].ID != "e" || d.Episodes[1].ID != "e~2" || d.Episodes[1].Category != "cold" {
		t.Fatalf("unexpected episodes %+v", d.Episodes)
	}
	if again := EnsureLog(d, testOptions()); !reflect.DeepEqual(again, d) {
		t.Fatalf("renamed ids must be stable on a second pass")
	}
}

// Normalizing never unlinks entries from a deleted episode; that happens when
// the episode is deleted.
func TestTombstonedEpisodeKeepsLinkedEntries(t *testing.T) {
	in := `{
	  "episodes": [{"id": "e", "memberId": "m", "updatedAtISO": "2024-02-01T00:00:00.000Z", "deletedAtISO": "2024-02-03T00:00:00.000Z"}],
	  "temps": [{"id": "t", "episodeId": "e", "tempC": 38.1}]
	}`
	d := EnsureLog(decodeAny(t, in), testOptions())
	d = EnsureLog(d, testOptions())
	if d.Temps[0].EpisodeID == nil || *d.Temps[0].EpisodeID != "e" {
		t.Fatalf("episode link must survive normalization, got %v", d.Temps[0].EpisodeID)
	}
	if d.Temps[0].MemberID != "m" {
		t.Fatalf("expected owner from tombstoned episode, got %q", d.Temps[0].MemberID)
	}
	if len(d.Episodes) != 1 || d.Episodes[0].DeletedAtISO == nil {
		t.Fatalf("tombstoned episode must stay in the collection: %+v", d.Episodes)
	}
	if active := d.ActiveEpisodes(""); len(active) != 0 {
		t.Fatalf("tombstoned episode must not be active: %+v", active)
	}
}

func TestSeverityClampedBeforeConversion(t *testing.T) {
	in := `{"episodes": [{"id": "a", "severity": 1e300}, {"id": "b", "severity": -1e300}, {"id": "c", "severity": 3.6}]}`
	d := EnsureLog(decodeAny(t, in), testOptions())
	got := []int{d.Episodes[0].Severity, d.Episodes[1].Severity, d.Episodes[2].Severity}
	if !reflect.DeepEqual(got, []int{domain.MaxSeverity, domain.MinSeverity, 4}) {
		t.Fatalf("unexpected severities %v", got)
	}
}

func TestCallerFallbackTimestamp(t *testing.T) {
	opts := testOptions()
	opts.FallbackISO = "2023-12-31T00:00:00.000Z"
	d := EnsureLog(decodeAny(t, `{"temps": [{"id": "t"}]}`), opts)
	if d.Temps[0].CreatedAtISO != opts.FallbackISO || d.LastUpdatedAtISO != opts.FallbackISO {
		t.Fatalf("expected caller fallback, got %+v", d)
	}

	withDoc := EnsureLog(decodeAny(t, `{"lastUpdatedAtISO": "2024-02-01T00:00:00.000Z", "temps": [{"id": "t"}]}`), opts)
	if withDoc.Temps[0].UpdatedAtISO != "2024-02-01T00:00:00.000Z" {
		t.Fatalf("document timestamp must take precedence, got %q", withDoc.Temps[0].UpdatedAtISO)
	}

	h := EnsureHousehold(nil, opts)
	if h.Members[0].CreatedAtISO != opts.FallbackISO {
		t.Fatalf("synthesized members should use the caller fallback, got %q", h.Members[0].CreatedAtISO)
	}
}
