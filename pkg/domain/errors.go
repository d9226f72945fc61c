package domain

import "fmt"

// EntityType names an entity family in error messages.
type EntityType string

// Entity families held by the two documents.
const (
	EntityMember      EntityType = "member"
	EntityEpisode     EntityType = "episode"
	EntityTemp        EntityType = "temp"
	EntityMed         EntityType = "med"
	EntitySymptom     EntityType = "symptom"
	EntityCatalogItem EntityType = "catalog_item"
	EntityMedCourse   EntityType = "med_course"
)

// ErrNotFound is returned when an updater references an unknown or deleted record.
type ErrNotFound struct {
	Entity EntityType
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// ValidationError reports an input rejected by an updater.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}
