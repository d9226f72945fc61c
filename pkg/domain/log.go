package domain

import (
	"strings"
	"time"
)

// Severity bounds for episodes.
const (
	MinSeverity     = 1
	MaxSeverity     = 5
	DefaultSeverity = 3
)

// Plausible body temperature range accepted from input.
const (
	MinTempC = 30.0
	MaxTempC = 45.0
)

// NewLogDocument returns an empty log document.
func NewLogDocument(now time.Time) LogDocument {
	return LogDocument{
		SchemaVersion:    SchemaVersion,
		LastUpdatedAtISO: FormatISO(now),
		Episodes:         []Episode{},
		Temps:            []TempEntry{},
		Meds:             []MedEntry{},
		Symptoms:         []SymptomEntry{},
		MedCatalog:       []MedCatalogItem{},
		MedCourses:       []MedCourse{},
	}
}

// EpisodeInput describes a new episode.
type EpisodeInput struct {
	MemberID  string
	Category  string
	Severity  int
	Notes     string
	StartedAt time.Time
}

// EpisodePatch is a partial episode update; nil fields are left unchanged.
type EpisodePatch struct {
	Category     *string
	Severity     *int
	Notes        *string
	StartedAtISO *string
}

// FindEpisode returns the live episode with the given id.
func (d LogDocument) FindEpisode(id string) (Episode, bool) {
	for _, e := range d.Episodes {
		if e.ID == id && e.DeletedAtISO == nil {
			return e, true
		}
	}
	return Episode{}, false
}

// StartEpisode appends a new ongoing episode.
func StartEpisode(d LogDocument, in EpisodeInput, now time.Time) (LogDocument, Episode, error) {
	if strings.TrimSpace(in.MemberID) == "" {
		return d, Episode{}, ValidationError{Field: "memberId", Message: "required"}
	}
	severity := in.Severity
	if severity == 0 {
		severity = DefaultSeverity
	}
	if severity < MinSeverity || severity > MaxSeverity {
		return d, Episode{}, ValidationError{Field: "severity", Message: "must be between 1 and 5"}
	}
	started := in.StartedAt
	if started.IsZero() {
		started = now
	}
	ts := FormatISO(now)
	ep := Episode{
		ID:           NewID(),
		MemberID:     in.MemberID,
		Category:     strings.TrimSpace(in.Category),
		Severity:     severity,
		Notes:        in.Notes,
		StartedAtISO: FormatISO(started),
		CreatedAtISO: ts,
		UpdatedAtISO: ts,
	}
	out := d.Clone()
	out.Episodes = append(out.Episodes, ep)
	return out, ep, nil
}

// UpdateEpisode applies patch to a live episode.
func UpdateEpisode(d LogDocument, id string, patch EpisodePatch, now time.Time) (LogDocument, error) {
	if patch.Severity != nil && (*patch.Severity < MinSeverity || *patch.Severity > MaxSeverity) {
		return d, ValidationError{Field: "severity", Message: "must be between 1 and 5"}
	}
	if patch.StartedAtISO != nil {
		if _, ok := ParseISO(*patch.StartedAtISO); !ok {
			return d, ValidationError{Field: "startedAtISO", Message: "not a timestamp"}
		}
	}
	return mutateEpisode(d, id, now, func(e *Episode) {
		if patch.Category != nil {
			e.Category = strings.TrimSpace(*patch.Category)
		}
		if patch.Severity != nil {
			e.Severity = *patch.Severity
		}
		if patch.Notes != nil {
			e.Notes = *patch.Notes
		}
		if patch.StartedAtISO != nil {
			e.StartedAtISO = *patch.StartedAtISO
		}
	})
}

// EndEpisode marks a live episode as ended at the given time.
func EndEpisode(d LogDocument, id string, at, now time.Time) (LogDocument, error) {
	if at.IsZero() {
		at = now
	}
	return mutateEpisode(d, id, now, func(e *Episode) { e.EndedAtISO = isoPtr(at) })
}

// ReopenEpisode clears the end of a live episode.
func ReopenEpisode(d LogDocument, id string, now time.Time) (LogDocument, error) {
	return mutateEpisode(d, id, now, func(e *Episode) { e.EndedAtISO = nil })
}

// DeleteEpisode tombstones an episode and unlinks every entry that referenced it.
// Entries are never removed along with their episode.
func DeleteEpisode(d LogDocument, id string, now time.Time) (LogDocument, error) {
	out, err := mutateEpisode(d, id, now, func(e *Episode) { e.DeletedAtISO = isoPtr(now) })
	if err != nil {
		return d, err
	}
	ts := FormatISO(now)
	for i := range out.Temps {
		if refersTo(out.Temps[i].EpisodeID, id) {
			out.Temps[i].EpisodeID = nil
			out.Temps[i].UpdatedAtISO = ts
		}
	}
	for i := range out.Meds {
		if refersTo(out.Meds[i].EpisodeID, id) {
			out.Meds[i].EpisodeID = nil
			out.Meds[i].UpdatedAtISO = ts
		}
	}
	for i := range out.Symptoms {
		if refersTo(out.Symptoms[i].EpisodeID, id) {
			out.Symptoms[i].EpisodeID = nil
			out.Symptoms[i].UpdatedAtISO = ts
		}
	}
	for i := range out.MedCourses {
		if refersTo(out.MedCourses[i].EpisodeID, id) {
			out.MedCourses[i].EpisodeID = nil
			out.MedCourses[i].UpdatedAtISO = ts
		}
	}
	return out, nil
}

func mutateEpisode(d LogDocument, id string, now time.Time, mutate func(*Episode)) (LogDocument, error) {
	out := d.Clone()
	for i := range out.Episodes {
		if out.Episodes[i].ID != id || out.Episodes[i].DeletedAtISO != nil {
			continue
		}
		mutate(&out.Episodes[i])
		out.Episodes[i].UpdatedAtISO = FormatISO(now)
		return out, nil
	}
	return d, ErrNotFound{Entity: EntityEpisode, ID: id}
}

func refersTo(ref *string, id string) bool {
	return ref != nil && *ref == id
}

// EntryRef carries the owner and optional episode link shared by all entries.
type EntryRef struct {
	MemberID  string
	EpisodeID string
	At        time.Time
	Notes     string
}

// resolveRef validates the episode link and fills the member from it when missing.
func (d LogDocument) resolveRef(ref EntryRef) (memberID string, episodeID *string, err error) {
	memberID = strings.TrimSpace(ref.MemberID)
	if ref.EpisodeID != "" {
		ep, ok := d.FindEpisode(ref.EpisodeID)
		if !ok {
			return "", nil, ErrNotFound{Entity: EntityEpisode, ID: ref.EpisodeID}
		}
		if memberID == "" {
			memberID = ep.MemberID
		}
		id := ep.ID
		episodeID = &id
	}
	if memberID == "" {
		return "", nil, ValidationError{Field: "memberId", Message: "required"}
	}
	return memberID, episodeID, nil
}

// AddTemp appends a temperature reading.
func AddTemp(d LogDocument, ref EntryRef, tempC float64, now time.Time) (LogDocument, TempEntry, error) {
	if tempC < MinTempC || tempC > MaxTempC {
		return d, TempEntry{}, ValidationError{Field: "tempC", Message: "outside plausible range"}
	}
	memberID, episodeID, err := d.resolveRef(ref)
	if err != nil {
		return d, TempEntry{}, err
	}
	ts := FormatISO(now)
	entry := TempEntry{
		ID:           NewID(),
		MemberID:     memberID,
		EpisodeID:    episodeID,
		AtISO:        atOrNow(ref.At, now),
		TempC:        tempC,
		Notes:        ref.Notes,
		CreatedAtISO: ts,
		UpdatedAtISO: ts,
	}
	out := d.Clone()
	out.Temps = append(out.Temps, entry)
	return out, entry, nil
}

// AddMed appends a dose, registering the medication name in the catalog when new.
func AddMed(d LogDocument, ref EntryRef, medName, dose string, now time.Time) (LogDocument, MedEntry, error) {
	memberID, episodeID, err := d.resolveRef(ref)
	if err != nil {
		return d, MedEntry{}, err
	}
	out, item, err := UpsertCatalogItem(d, medName, now)
	if err != nil {
		return d, MedEntry{}, err
	}
	ts := FormatISO(now)
	entry := MedEntry{
		ID:           NewID(),
		MemberID:     memberID,
		EpisodeID:    episodeID,
		AtISO:        atOrNow(ref.At, now),
		MedID:        item.ID,
		MedName:      item.Name,
		Dose:         strings.TrimSpace(dose),
		Notes:        ref.Notes,
		CreatedAtISO: ts,
		UpdatedAtISO: ts,
	}
	out = out.Clone()
	out.Meds = append(out.Meds, entry)
	return out, entry, nil
}

// AddSymptom appends a symptom observation.
func AddSymptom(d LogDocument, ref EntryRef, symptoms []string, now time.Time) (LogDocument, SymptomEntry, error) {
	cleaned := make([]string, 0, len(symptoms))
	for _, s := range symptoms {
		if s = strings.TrimSpace(s); s != "" {
			cleaned = append(cleaned, s)
		}
	}
	if len(cleaned) == 0 {
		return d, SymptomEntry{}, ValidationError{Field: "symptoms", Message: "at least one symptom required"}
	}
	memberID, episodeID, err := d.resolveRef(ref)
	if err != nil {
		return d, SymptomEntry{}, err
	}
	ts := FormatISO(now)
	entry := SymptomEntry{
		ID:           NewID(),
		MemberID:     memberID,
		EpisodeID:    episodeID,
		AtISO:        atOrNow(ref.At, now),
		Symptoms:     cleaned,
		Notes:        ref.Notes,
		CreatedAtISO: ts,
		UpdatedAtISO: ts,
	}
	out := d.Clone()
	out.Symptoms = append(out.Symptoms, entry)
	return out, entry, nil
}

// CourseInput describes a repeating-dose regimen.
type CourseInput struct {
	EntryRef
	MedName       string
	Dose          string
	IntervalHours float64
	DurationDays  float64
}

// AddMedCourse appends a regimen; ref.At is the first dose.
func AddMedCourse(d LogDocument, in CourseInput, now time.Time) (LogDocument, MedCourse, error) {
	if in.IntervalHours <= 0 {
		return d, MedCourse{}, ValidationError{Field: "intervalHours", Message: "must be positive"}
	}
	if in.DurationDays <= 0 {
		return d, MedCourse{}, ValidationError{Field: "durationDays", Message: "must be positive"}
	}
	memberID, episodeID, err := d.resolveRef(in.EntryRef)
	if err != nil {
		return d, MedCourse{}, err
	}
	out, item, err := UpsertCatalogItem(d, in.MedName, now)
	if err != nil {
		return d, MedCourse{}, err
	}
	ts := FormatISO(now)
	course := MedCourse{
		ID:            NewID(),
		MemberID:      memberID,
		EpisodeID:     episodeID,
		MedID:         item.ID,
		MedName:       item.Name,
		Dose:          strings.TrimSpace(in.Dose),
		StartAtISO:    atOrNow(in.At, now),
		IntervalHours: in.IntervalHours,
		DurationDays:  in.DurationDays,
		Notes:         in.Notes,
		CreatedAtISO:  ts,
		UpdatedAtISO:  ts,
	}
	out = out.Clone()
	out.MedCourses = append(out.MedCourses, course)
	return out, course, nil
}

// DeleteTemp tombstones a temperature reading.
func DeleteTemp(d LogDocument, id string, now time.Time) (LogDocument, error) {
	out := d.Clone()
	if !tombstone(out.Temps, id, now, func(t *TempEntry) (string, **string, *string) {
		return t.ID, &t.DeletedAtISO, &t.UpdatedAtISO
	}) {
		return d, ErrNotFound{Entity: EntityTemp, ID: id}
	}
	return out, nil
}

// DeleteMed tombstones a dose.
func DeleteMed(d LogDocument, id string, now time.Time) (LogDocument, error) {
	out := d.Clone()
	if !tombstone(out.Meds, id, now, func(m *MedEntry) (string, **string, *string) {
		return m.ID, &m.DeletedAtISO, &m.UpdatedAtISO
	}) {
		return d, ErrNotFound{Entity: EntityMed, ID: id}
	}
	return out, nil
}

// DeleteSymptom tombstones a symptom observation.
func DeleteSymptom(d LogDocument, id string, now time.Time) (LogDocument, error) {
	out := d.Clone()
	if !tombstone(out.Symptoms, id, now, func(s *SymptomEntry) (string, **string, *string) {
		return s.ID, &s.DeletedAtISO, &s.UpdatedAtISO
	}) {
		return d, ErrNotFound{Entity: EntitySymptom, ID: id}
	}
	return out, nil
}

// DeleteMedCourse tombstones a regimen.
func DeleteMedCourse(d LogDocument, id string, now time.Time) (LogDocument, error) {
	out := d.Clone()
	if !tombstone(out.MedCourses, id, now, func(c *MedCourse) (string, **string, *string) {
		return c.ID, &c.DeletedAtISO, &c.UpdatedAtISO
	}) {
		return d, ErrNotFound{Entity: EntityMedCourse, ID: id}
	}
	return out, nil
}

// tombstone marks the live item with the given id deleted, in place.
func tombstone[T any](items []T, id string, now time.Time, fields func(*T) (string, **string, *string)) bool {
	for i := range items {
		itemID, deleted, updated := fields(&items[i])
		if itemID != id || *deleted != nil {
			continue
		}
		*deleted = isoPtr(now)
		*updated = FormatISO(now)
		return true
	}
	return false
}

func atOrNow(at, now time.Time) string {
	if at.IsZero() {
		return FormatISO(now)
	}
	return FormatISO(at)
}
