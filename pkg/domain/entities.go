// Package domain defines the household and health-log documents, their
// entity records, and the pure updater operations callers apply to them.
package domain

// SchemaVersion is stamped on every persisted document.
const SchemaVersion = 1

// MemberSlots is the fixed number of household members.
const MemberSlots = 4

// Record is implemented by every id-keyed entity that takes part in merges.
type Record interface {
	RecordID() string
	UpdatedISO() string
	// DeletedISO returns the tombstone timestamp, or nil when the record is live.
	DeletedISO() *string
}

// Member is one of the fixed household slots.
type Member struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	AccentColor  string `json:"accentColor"`
	CreatedAtISO string `json:"createdAtISO"`
	UpdatedAtISO string `json:"updatedAtISO"`
}

// Household is the roster document.
type Household struct {
	SchemaVersion    int      `json:"schemaVersion"`
	LastUpdatedAtISO string   `json:"lastUpdatedAtISO"`
	Members          []Member `json:"members"`
}

// Episode is an illness spell owned by one member. A nil EndedAtISO means ongoing.
type Episode struct {
	ID           string  `json:"id"`
	MemberID     string  `json:"memberId"`
	Category     string  `json:"category"`
	Severity     int     `json:"severity"`
	Notes        string  `json:"notes"`
	StartedAtISO string  `json:"startedAtISO"`
	EndedAtISO   *string `json:"endedAtISO"`
	CreatedAtISO string  `json:"createdAtISO"`
	UpdatedAtISO string  `json:"updatedAtISO"`
	DeletedAtISO *string `json:"deletedAtISO"`
}

// TempEntry is a temperature reading in degrees Celsius.
type TempEntry struct {
	ID           string  `json:"id"`
	MemberID     string  `json:"memberId"`
	EpisodeID    *string `json:"episodeId"`
	AtISO        string  `json:"atISO"`
	TempC        float64 `json:"tempC"`
	Notes        string  `json:"notes"`
	CreatedAtISO string  `json:"createdAtISO"`
	UpdatedAtISO string  `json:"updatedAtISO"`
	DeletedAtISO *string `json:"deletedAtISO"`
}

// MedEntry records a dose taken. MedName is a cached copy of the catalog name
// at the time of the dose and is never re-derived.
type MedEntry struct {
	ID           string  `json:"id"`
	MemberID     string  `json:"memberId"`
	EpisodeID    *string `json:"episodeId"`
	AtISO        string  `json:"atISO"`
	MedID        string  `json:"medId"`
	MedName      string  `json:"medName"`
	Dose         string  `json:"dose"`
	Notes        string  `json:"notes"`
	CreatedAtISO string  `json:"createdAtISO"`
	UpdatedAtISO string  `json:"updatedAtISO"`
	DeletedAtISO *string `json:"deletedAtISO"`
}

// SymptomEntry records a set of symptoms observed at one point in time.
type SymptomEntry struct {
	ID           string   `json:"id"`
	MemberID     string   `json:"memberId"`
	EpisodeID    *string  `json:"episodeId"`
	AtISO        string   `json:"atISO"`
	Symptoms     []string `json:"symptoms"`
	Notes        string   `json:"notes"`
	CreatedAtISO string   `json:"createdAtISO"`
	UpdatedAtISO string   `json:"updatedAtISO"`
	DeletedAtISO *string  `json:"deletedAtISO"`
}

// MedCatalogItem is a medication name registry entry. Names are unique
// case-insensitively and items are never deleted.
type MedCatalogItem struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	IsFavorite   bool   `json:"isFavorite"`
	CreatedAtISO string `json:"createdAtISO"`
	UpdatedAtISO string `json:"updatedAtISO"`
}

// MedCourse is a repeating-dose regimen used to build a reminder schedule.
type MedCourse struct {
	ID            string  `json:"id"`
	MemberID      string  `json:"memberId"`
	EpisodeID     *string `json:"episodeId"`
	MedID         string  `json:"medId"`
	MedName       string  `json:"medName"`
	Dose          string  `json:"dose"`
	StartAtISO    string  `json:"startAtISO"`
	IntervalHours float64 `json:"intervalHours"`
	DurationDays  float64 `json:"durationDays"`
	Notes         string  `json:"notes"`
	CreatedAtISO  string  `json:"createdAtISO"`
	UpdatedAtISO  string  `json:"updatedAtISO"`
	DeletedAtISO  *string `json:"deletedAtISO"`
}

// LogDocument is the health-log aggregate. Collections are id-keyed sets;
// their slice order carries no meaning.
type LogDocument struct {
	SchemaVersion    int              `json:"schemaVersion"`
	LastUpdatedAtISO string           `json:"lastUpdatedAtISO"`
	Episodes         []Episode        `json:"episodes"`
	Temps            []TempEntry      `json:"temps"`
	Meds             []MedEntry       `json:"meds"`
	Symptoms         []SymptomEntry   `json:"symptoms"`
	MedCatalog       []MedCatalogItem `json:"medCatalog"`
	MedCourses       []MedCourse      `json:"medCourses"`
}

func (m Member) RecordID() string     { return m.ID }
func (m Member) UpdatedISO() string   { return m.UpdatedAtISO }
func (m Member) DeletedISO() *string  { return nil }
func (e Episode) RecordID() string    { return e.ID }
func (e Episode) UpdatedISO() string  { return e.UpdatedAtISO }
func (e Episode) DeletedISO() *string { return e.DeletedAtISO }

func (t TempEntry) RecordID() string    { return t.ID }
func (t TempEntry) UpdatedISO() string  { return t.UpdatedAtISO }
func (t TempEntry) DeletedISO() *string { return t.DeletedAtISO }

func (m MedEntry) RecordID() string    { return m.ID }
func (m MedEntry) UpdatedISO() string  { return m.UpdatedAtISO }
func (m MedEntry) DeletedISO() *string { return m.DeletedAtISO }

func (s SymptomEntry) RecordID() string    { return s.ID }
func (s SymptomEntry) UpdatedISO() string  { return s.UpdatedAtISO }
func (s SymptomEntry) DeletedISO() *string { return s.DeletedAtISO }

func (c MedCatalogItem) RecordID() string    { return c.ID }
func (c MedCatalogItem) UpdatedISO() string  { return c.UpdatedAtISO }
func (c MedCatalogItem) DeletedISO() *string { return nil }

func (c MedCourse) RecordID() string    { return c.ID }
func (c MedCourse) UpdatedISO() string  { return c.UpdatedAtISO }
func (c MedCourse) DeletedISO() *string { return c.DeletedAtISO }

// Clone returns a copy whose member slice is not shared with h.
func (h Household) Clone() Household {
	cp := h
	cp.Members = append([]Member(nil), h.Members...)
	return cp
}

// Clone returns a copy whose collections are not shared with d.
func (d LogDocument) Clone() LogDocument {
	cp := d
	cp.Episodes = append([]Episode(nil), d.Episodes...)
	cp.Temps = append([]TempEntry(nil), d.Temps...)
	cp.Meds = append([]MedEntry(nil), d.Meds...)
	cp.Symptoms = make([]SymptomEntry, len(d.Symptoms))
	for i, s := range d.Symptoms {
		s.Symptoms = append([]string(nil), s.Symptoms...)
		cp.Symptoms[i] = s
	}
	cp.MedCatalog = append([]MedCatalogItem(nil), d.MedCatalog...)
	cp.MedCourses = append([]MedCourse(nil), d.MedCourses...)
	return cp
}
