package domain

import "sort"

// ActiveEpisodes returns live episodes, newest start first. An empty memberID matches everyone.
func (d LogDocument) ActiveEpisodes(memberID string) []Episode {
	out := liveFor(d.Episodes, memberID, func(e Episode) string { return e.MemberID })
	sortDesc(out, func(e Episode) string { return e.StartedAtISO })
	return out
}

// OngoingEpisodes returns live episodes without an end.
func (d LogDocument) OngoingEpisodes(memberID string) []Episode {
	var out []Episode
	for _, e := range d.ActiveEpisodes(memberID) {
		if e.EndedAtISO == nil {
			out = append(out, e)
		}
	}
	return out
}

// ActiveTemps returns live temperature readings, newest first.
func (d LogDocument) ActiveTemps(memberID string) []TempEntry {
	out := liveFor(d.Temps, memberID, func(t TempEntry) string { return t.MemberID })
	sortDesc(out, func(t TempEntry) string { return t.AtISO })
	return out
}

// ActiveMeds returns live doses, newest first.
func (d LogDocument) ActiveMeds(memberID string) []MedEntry {
	out := liveFor(d.Meds, memberID, func(m MedEntry) string { return m.MemberID })
	sortDesc(out, func(m MedEntry) string { return m.AtISO })
	return out
}

// ActiveSymptoms returns live symptom observations, newest first.
func (d LogDocument) ActiveSymptoms(memberID string) []SymptomEntry {
	out := liveFor(d.Symptoms, memberID, func(s SymptomEntry) string { return s.MemberID })
	sortDesc(out, func(s SymptomEntry) string { return s.AtISO })
	return out
}

// ActiveCourses returns live regimens, newest start first.
func (d LogDocument) ActiveCourses(memberID string) []MedCourse {
	out := liveFor(d.MedCourses, memberID, func(c MedCourse) string { return c.MemberID })
	sortDesc(out, func(c MedCourse) string { return c.StartAtISO })
	return out
}

// CatalogSorted returns catalog items with favourites first, then by name.
func (d LogDocument) CatalogSorted() []MedCatalogItem {
	out := append([]MedCatalogItem(nil), d.MedCatalog...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsFavorite != out[j].IsFavorite {
			return out[i].IsFavorite
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func liveFor[T Record](items []T, memberID string, owner func(T) string) []T {
	var out []T
	for _, it := range items {
		if it.DeletedISO() != nil {
			continue
		}
		if memberID != "" && owner(it) != memberID {
			continue
		}
		out = append(out, it)
	}
	return out
}

func sortDesc[T any](items []T, at func(T) string) {
	sort.SliceStable(items, func(i, j int) bool {
		return EpochMillis(at(items[i])) > EpochMillis(at(items[j]))
	})
}
