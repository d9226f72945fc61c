package domain

import (
	"strings"
	"time"
)

// FindCatalogItemByName looks up a catalog item case-insensitively.
func (d LogDocument) FindCatalogItemByName(name string) (MedCatalogItem, bool) {
	name = strings.TrimSpace(name)
	for _, item := range d.MedCatalog {
		if strings.EqualFold(item.Name, name) {
			return item, true
		}
	}
	return MedCatalogItem{}, false
}

// UpsertCatalogItem returns the existing item matching name, or appends a new one.
// An existing item is returned unchanged.
func UpsertCatalogItem(d LogDocument, name string, now time.Time) (LogDocument, MedCatalogItem, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return d, MedCatalogItem{}, ValidationError{Field: "name", Message: "medication name required"}
	}
	if item, ok := d.FindCatalogItemByName(name); ok {
		return d, item, nil
	}
	ts := FormatISO(now)
	item := MedCatalogItem{ID: NewID(), Name: name, CreatedAtISO: ts, UpdatedAtISO: ts}
	out := d.Clone()
	out.MedCatalog = append(out.MedCatalog, item)
	return out, item, nil
}

// SetFavorite sets the favourite flag on catalog item id.
func SetFavorite(d LogDocument, id string, favorite bool, now time.Time) (LogDocument, error) {
	out := d.Clone()
	for i := range out.MedCatalog {
		if out.MedCatalog[i].ID != id {
			continue
		}
		out.MedCatalog[i].IsFavorite = favorite
		out.MedCatalog[i].UpdatedAtISO = FormatISO(now)
		return out, nil
	}
	return d, ErrNotFound{Entity: EntityCatalogItem, ID: id}
}

// ToggleFavorite flips the favourite flag on catalog item id.
func ToggleFavorite(d LogDocument, id string, now time.Time) (LogDocument, error) {
	for _, item := range d.MedCatalog {
		if item.ID == id {
			return SetFavorite(d, id, !item.IsFavorite, now)
		}
	}
	return d, ErrNotFound{Entity: EntityCatalogItem, ID: id}
}
