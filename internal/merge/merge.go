// Package merge reconciles two versions of the same document record by record.
//
// For each id present on either side the winner is chosen by Pick. The
// result contains every id from both inputs; losing records are dropped, never
// both versions.
package merge

import (
	"time"

	"healthlog/internal/normalize"
	"healthlog/pkg/domain"
)

// Pick chooses between two versions of one record. Ties go to local.
//
//   - both tombstoned: the later deletion wins
//   - one tombstoned: the deletion wins when it is at or after the other's update
//   - otherwise the later update wins
func Pick[T domain.Record](local, remote T) T {
	ld, rd := local.DeletedISO(), remote.DeletedISO()
	switch {
	case ld != nil && rd != nil:
		if domain.EpochMillis(*rd) > domain.EpochMillis(*ld) {
			return remote
		}
		return local
	case ld != nil:
		if domain.EpochMillis(*ld) >= domain.EpochMillis(remote.UpdatedISO()) {
			return local
		}
	case rd != nil:
		if domain.EpochMillis(*rd) >= domain.EpochMillis(local.UpdatedISO()) {
			return remote
		}
	}
	if domain.EpochMillis(remote.UpdatedISO()) > domain.EpochMillis(local.UpdatedISO()) {
		return remote
	}
	return local
}

// Collection merges two id-keyed collections. Output keeps local order with
// winners substituted in place, followed by remote-only records in remote
// order. Repeated ids within one side are folded with the same rule.
func Collection[T domain.Record](local, remote []T) []T {
	out := make([]T, 0, len(local)+len(remote))
	index := make(map[string]int, len(local)+len(remote))
	add := func(item T) {
		id := item.RecordID()
		if i, ok := index[id]; ok {
			out[i] = Pick(out[i], item)
			return
		}
		index[id] = len(out)
		out = append(out, item)
	}
	for _, item := range local {
		add(item)
	}
	for _, item := range remote {
		add(item)
	}
	return out
}

// Log merges two log documents and stamps the result with now.
func Log(local, remote domain.LogDocument, now time.Time) domain.LogDocument {
	return domain.LogDocument{
		SchemaVersion:    domain.SchemaVersion,
		LastUpdatedAtISO: domain.FormatISO(now),
		Episodes:         Collection(local.Episodes, remote.Episodes),
		Temps:            Collection(local.Temps, remote.Temps),
		Meds:             Collection(local.Meds, remote.Meds),
		Symptoms:         Collection(local.Symptoms, remote.Symptoms),
		MedCatalog:       Collection(local.MedCatalog, remote.MedCatalog),
		MedCourses:       Collection(local.MedCourses, remote.MedCourses),
	}
}

// Household merges two rosters member by member, then restores the fixed
// slot count.
func Household(local, remote domain.Household, now time.Time) domain.Household {
	merged := domain.Household{
		SchemaVersion:    domain.SchemaVersion,
		LastUpdatedAtISO: domain.FormatISO(now),
		Members:          Collection(local.Members, remote.Members),
	}
	return normalize.EnsureHousehold(merged, normalize.Options{Now: func() time.Time { return now }})
}
