package domain

import (
	"errors"
	"testing"
)

func TestNewHouseholdFillsSlots(t *testing.T) {
	h := NewHousehold(t0)
	if len(h.Members) != MemberSlots {
		t.Fatalf("expected %d members, got %d", MemberSlots, len(h.Members))
	}
	seen := map[string]bool{}
	for i, m := range h.Members {
		if m.ID != DefaultMemberID(i) || m.Name != DefaultMemberName(i) {
			t.Fatalf("unexpected slot %d: %+v", i, m)
		}
		if seen[m.ID] {
			t.Fatalf("duplicate id %s", m.ID)
		}
		seen[m.ID] = true
	}
}

func TestResolveMember(t *testing.T) {
	h := NewHousehold(t0)
	h, err := RenameMember(h, "member-2", "Ada", t1)
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	cases := map[string]string{"member-3": "member-3", "ada": "member-2", "4": "member-4"}
	for ref, want := range cases {
		m, ok := h.ResolveMember(ref)
		if !ok || m.ID != want {
			t.Fatalf("resolve %q: got %+v ok=%v", ref, m, ok)
		}
	}
	if _, ok := h.ResolveMember("nobody"); ok {
		t.Fatalf("unexpected match")
	}
}

func TestRenameMember(t *testing.T) {
	h := NewHousehold(t0)
	out, err := RenameMember(h, "member-1", "  Sam ", t1)
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if out.Members[0].Name != "Sam" || out.Members[0].UpdatedAtISO != FormatISO(t1) {
		t.Fatalf("unexpected member %+v", out.Members[0])
	}
	if h.Members[0].Name != "Member 1" {
		t.Fatalf("input household mutated")
	}
	if _, err := RenameMember(h, "member-1", " ", t1); err == nil {
		t.Fatalf("expected empty name error")
	}
	var nf ErrNotFound
	if _, err := SetMemberColor(h, "ghost", "#000", t1); !errors.As(err, &nf) || nf.Entity != EntityMember {
		t.Fatalf("expected member not found, got %v", err)
	}
}

func TestCatalogFavorites(t *testing.T) {
	d := NewLogDocument(t0)
	d, a, _ := UpsertCatalogItem(d, "Zinc", t0)
	d, b, _ := UpsertCatalogItem(d, "Aspirin", t0)
	d, err := ToggleFavorite(d, a.ID, t1)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	sorted := d.CatalogSorted()
	if sorted[0].ID != a.ID || sorted[1].ID != b.ID {
		t.Fatalf("expected favourite first, got %+v", sorted)
	}
	same, item, err := UpsertCatalogItem(d, "ZINC", t2)
	if err != nil || item.ID != a.ID || len(same.MedCatalog) != 2 {
		t.Fatalf("expected existing item, got %+v err=%v", item, err)
	}
	if _, _, err := UpsertCatalogItem(d, "", t2); err == nil {
		t.Fatalf("expected empty name error")
	}
	if _, err := ToggleFavorite(d, "missing", t2); err == nil {
		t.Fatalf("expected not found")
	}
}

func TestEpochMillis(t *testing.T) {
	if EpochMillis("garbage") != 0 || EpochMillis("") != 0 {
		t.Fatalf("unparsable timestamps must map to 0")
	}
	if EpochMillis("2024-03-01T08:00:00.000Z") != t0.UnixMilli() {
		t.Fatalf("unexpected epoch")
	}
	if EpochMillis("2024-03-01T09:00:00+01:00") != t0.UnixMilli() {
		t.Fatalf("offset timestamps must be normalised")
	}
}
