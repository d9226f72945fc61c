package docsync

import (
	"encoding/json"
	"fmt"
	"time"

	"healthlog/internal/merge"
	"healthlog/internal/normalize"
	"healthlog/pkg/domain"
)

// Kind binds a document type to its codec, normalizer and merge rule.
type Kind[D any] struct {
	Name string
	// Decode parses and normalizes stored bytes. It never fails.
	Decode    func(data []byte, now time.Time) D
	Encode    func(doc D) ([]byte, error)
	Normalize func(doc D, now time.Time) D
	// Merge combines a local candidate with the latest remote copy.
	Merge func(local, remote D, now time.Time) D
	// Touch returns a copy of doc stamped as updated at now.
	Touch func(doc D, now time.Time) D
	// New returns an empty document.
	New func(now time.Time) D
}

func fixedNow(now time.Time) normalize.Options {
	return normalize.Options{Now: func() time.Time { return now }}
}

func encodeJSON[D any](doc D) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return data, nil
}

// HouseholdKind handles the member roster document.
func HouseholdKind() Kind[domain.Household] {
	return Kind[domain.Household]{
		Name: "household",
		Decode: func(data []byte, now time.Time) domain.Household {
			return normalize.DecodeHousehold(data, fixedNow(now))
		},
		Encode: encodeJSON[domain.Household],
		Normalize: func(h domain.Household, now time.Time) domain.Household {
			return normalize.EnsureHousehold(h, fixedNow(now))
		},
		Merge: merge.Household,
		Touch: func(h domain.Household, now time.Time) domain.Household {
			cp := h.Clone()
			cp.LastUpdatedAtISO = domain.FormatISO(now)
			return cp
		},
		New: domain.NewHousehold,
	}
}

// LogKind handles the health log document.
func LogKind() Kind[domain.LogDocument] {
	return Kind[domain.LogDocument]{
		Name: "log",
		Decode: func(data []byte, now time.Time) domain.LogDocument {
			return normalize.DecodeLog(data, fixedNow(now))
		},
		Encode: encodeJSON[domain.LogDocument],
		Normalize: func(d domain.LogDocument, now time.Time) domain.LogDocument {
			return normalize.EnsureLog(d, fixedNow(now))
		},
		Merge: merge.Log,
		Touch: func(d domain.LogDocument, now time.Time) domain.LogDocument {
			cp := d.Clone()
			cp.LastUpdatedAtISO = domain.FormatISO(now)
			return cp
		},
		New: domain.NewLogDocument,
	}
}
