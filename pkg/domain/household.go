package domain

import (
	"fmt"
	"strings"
	"time"
)

// AccentPalette is cycled through when a member slot has no colour.
var AccentPalette = []string{"#E76F51", "#2A9D8F", "#E9C46A", "#457B9D", "#8E7DBE", "#F4A261"}

// DefaultMemberID is the stable id of a synthesized slot. Two devices that
// both start from an empty roster therefore converge on the same members.
func DefaultMemberID(slot int) string {
	return fmt.Sprintf("member-%d", slot+1)
}

// DefaultMemberName is the placeholder name of a synthesized slot.
func DefaultMemberName(slot int) string {
	return fmt.Sprintf("Member %d", slot+1)
}

// DefaultAccentColor returns the palette colour for slot.
func DefaultAccentColor(slot int) string {
	return AccentPalette[slot%len(AccentPalette)]
}

// NewHousehold returns a roster with every slot filled with placeholders.
func NewHousehold(now time.Time) Household {
	ts := FormatISO(now)
	members := make([]Member, MemberSlots)
	for i := range members {
		members[i] = Member{
			ID:           DefaultMemberID(i),
			Name:         DefaultMemberName(i),
			AccentColor:  DefaultAccentColor(i),
			CreatedAtISO: ts,
			UpdatedAtISO: ts,
		}
	}
	return Household{SchemaVersion: SchemaVersion, LastUpdatedAtISO: ts, Members: members}
}

// FindMember returns the member with the given id.
func (h Household) FindMember(id string) (Member, bool) {
	for _, m := range h.Members {
		if m.ID == id {
			return m, true
		}
	}
	return Member{}, false
}

// ResolveMember finds a member by id, case-insensitive name, or 1-based slot number.
func (h Household) ResolveMember(ref string) (Member, bool) {
	ref = strings.TrimSpace(ref)
	if m, ok := h.FindMember(ref); ok {
		return m, true
	}
	for _, m := range h.Members {
		if strings.EqualFold(m.Name, ref) {
			return m, true
		}
	}
	for i, m := range h.Members {
		if ref == fmt.Sprint(i+1) {
			return m, true
		}
	}
	return Member{}, false
}

// RenameMember sets the display name of member id.
func RenameMember(h Household, id, name string, now time.Time) (Household, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return h, ValidationError{Field: "name", Message: "cannot be empty"}
	}
	return updateMember(h, id, now, func(m *Member) { m.Name = name })
}

// SetMemberColor sets the accent colour of member id.
func SetMemberColor(h Household, id, color string, now time.Time) (Household, error) {
	color = strings.TrimSpace(color)
	if color == "" {
		return h, ValidationError{Field: "accentColor", Message: "cannot be empty"}
	}
	return updateMember(h, id, now, func(m *Member) { m.AccentColor = color })
}

func updateMember(h Household, id string, now time.Time, mutate func(*Member)) (Household, error) {
	out := h.Clone()
	for i := range out.Members {
		if out.Members[i].ID != id {
			continue
		}
		mutate(&out.Members[i])
		out.Members[i].UpdatedAtISO = FormatISO(now)
		return out, nil
	}
	return h, ErrNotFound{Entity: EntityMember, ID: id}
}
