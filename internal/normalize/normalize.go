// Package normalize coerces arbitrary decoded JSON into well-formed household
// and log documents. It never fails: malformed input degrades to defaults.
package normalize

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"healthlog/pkg/domain"
)

// Options controls the clock and id source used for backfilled values.
// FallbackISO stamps entities without timestamps when the document carries
// no lastUpdatedAtISO of its own; now is used only when both are empty.
type Options struct {
	Now         func() time.Time
	NewID       func() string
	FallbackISO string
}

func (o Options) withDefaults() Options {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.NewID == nil {
		o.NewID = domain.NewID
	}
	return o
}

// pass holds the per-call state. now is read once so every backfilled
// timestamp in one document agrees.
type pass struct {
	opts     Options
	nowISO   string
	fallback string
}

func newPass(opts Options, doc map[string]any) *pass {
	opts = opts.withDefaults()
	p := &pass{opts: opts, nowISO: domain.FormatISO(opts.Now())}
	p.fallback = str(doc["lastUpdatedAtISO"], "")
	if p.fallback == "" {
		p.fallback = strings.TrimSpace(opts.FallbackISO)
	}
	if p.fallback == "" {
		p.fallback = p.nowISO
	}
	return p
}

// ids keeps ids unique within one collection. A repeated id gets a
// deterministic suffix so devices normalizing the same bytes agree.
type ids map[string]bool

func (u ids) claim(id string) string {
	out := id
	for n := 2; u[out]; n++ {
		out = fmt.Sprintf("%s~%d", id, n)
	}
	u[out] = true
	return out
}

func (p *pass) id(m map[string]any) string {
	if id := strings.TrimSpace(str(m["id"], "")); id != "" {
		return id
	}
	return p.opts.NewID()
}

// stamps backfills created and updated from each other, then from the
// document timestamp, then from now.
func (p *pass) stamps(m map[string]any) (created, updated string) {
	created = str(m["createdAtISO"], "")
	updated = str(m["updatedAtISO"], "")
	if created == "" {
		created = updated
	}
	if updated == "" {
		updated = created
	}
	if created == "" {
		created, updated = p.fallback, p.fallback
	}
	return created, updated
}

// DecodeHousehold parses data, treating invalid JSON as an empty document.
func DecodeHousehold(data []byte, opts Options) domain.Household {
	return EnsureHousehold(decode(data), opts)
}

// DecodeLog parses data, treating invalid JSON as an empty document.
func DecodeLog(data []byte, opts Options) domain.LogDocument {
	return EnsureLog(decode(data), opts)
}

func decode(data []byte) any {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	return raw
}

// EnsureHousehold returns a household with exactly domain.MemberSlots members.
// Missing slots are synthesized, extras are dropped.
func EnsureHousehold(raw any, opts Options) domain.Household {
	doc := asMap(generic(raw))
	p := newPass(opts, doc)

	members := make([]domain.Member, 0, domain.MemberSlots)
	used := make(map[string]bool, domain.MemberSlots)
	for _, m := range maps(doc["members"]) {
		if len(members) == domain.MemberSlots {
			break
		}
		slot := len(members)
		member := p.member(m, slot)
		if used[member.ID] {
			member.ID = p.opts.NewID()
		}
		used[member.ID] = true
		members = append(members, member)
	}
	for slot := len(members); slot < domain.MemberSlots; slot++ {
		id := domain.DefaultMemberID(slot)
		if used[id] {
			id = p.opts.NewID()
		}
		used[id] = true
		members = append(members, domain.Member{
			ID:           id,
			Name:         domain.DefaultMemberName(slot),
			AccentColor:  domain.DefaultAccentColor(slot),
			CreatedAtISO: p.fallback,
			UpdatedAtISO: p.fallback,
		})
	}

	return domain.Household{
		SchemaVersion:    domain.SchemaVersion,
		LastUpdatedAtISO: p.fallback,
		Members:          members,
	}
}

func (p *pass) member(m map[string]any, slot int) domain.Member {
	created, updated := p.stamps(m)
	name := strings.TrimSpace(str(m["name"], ""))
	if name == "" {
		name = domain.DefaultMemberName(slot)
	}
	color := strings.TrimSpace(str(m["accentColor"], ""))
	if color == "" {
		color = domain.DefaultAccentColor(slot)
	}
	return domain.Member{
		ID:           p.id(m),
		Name:         name,
		AccentColor:  color,
		CreatedAtISO: created,
		UpdatedAtISO: updated,
	}
}

// EnsureLog returns a log document with every collection present and every
// entity well formed. Entries without an owner inherit the owner of the
// episode they reference.
func EnsureLog(raw any, opts Options) domain.LogDocument {
	doc := asMap(generic(raw))
	p := newPass(opts, doc)

	out := domain.LogDocument{
		SchemaVersion:    domain.SchemaVersion,
		LastUpdatedAtISO: p.fallback,
	}

	out.MedCatalog = make([]domain.MedCatalogItem, 0)
	catalogNames := map[string]string{}
	used := ids{}
	for _, m := range maps(doc["medCatalog"]) {
		item := p.catalogItem(m)
		item.ID = used.claim(item.ID)
		catalogNames[item.ID] = item.Name
		out.MedCatalog = append(out.MedCatalog, item)
	}

	out.Episodes = make([]domain.Episode, 0)
	owners := map[string]string{}
	used = ids{}
	for _, m := range maps(doc["episodes"]) {
		ep := p.episode(m)
		ep.ID = used.claim(ep.ID)
		owners[ep.ID] = ep.MemberID
		out.Episodes = append(out.Episodes, ep)
	}
	owner := func(memberID string, episodeID *string) string {
		if memberID != "" || episodeID == nil {
			return memberID
		}
		return owners[*episodeID]
	}

	out.Temps = make([]domain.TempEntry, 0)
	used = ids{}
	for _, m := range maps(doc["temps"]) {
		e := p.temp(m)
		e.ID = used.claim(e.ID)
		e.MemberID = owner(e.MemberID, e.EpisodeID)
		out.Temps = append(out.Temps, e)
	}
	out.Meds = make([]domain.MedEntry, 0)
	used = ids{}
	for _, m := range maps(doc["meds"]) {
		e := p.med(m)
		e.ID = used.claim(e.ID)
		e.MemberID = owner(e.MemberID, e.EpisodeID)
		if e.MedName == "" {
			e.MedName = catalogNames[e.MedID]
		}
		out.Meds = append(out.Meds, e)
	}
	out.Symptoms = make([]domain.SymptomEntry, 0)
	used = ids{}
	for _, m := range maps(doc["symptoms"]) {
		e := p.symptom(m)
		e.ID = used.claim(e.ID)
		e.MemberID = owner(e.MemberID, e.EpisodeID)
		out.Symptoms = append(out.Symptoms, e)
	}
	out.MedCourses = make([]domain.MedCourse, 0)
	used = ids{}
	for _, m := range maps(doc["medCourses"]) {
		c := p.course(m)
		c.ID = used.claim(c.ID)
		c.MemberID = owner(c.MemberID, c.EpisodeID)
		if c.MedName == "" {
			c.MedName = catalogNames[c.MedID]
		}
		out.MedCourses = append(out.MedCourses, c)
	}
	return out
}

func (p *pass) catalogItem(m map[string]any) domain.MedCatalogItem {
	created, updated := p.stamps(m)
	return domain.MedCatalogItem{
		ID:           p.id(m),
		Name:         strings.TrimSpace(str(m["name"], "")),
		IsFavorite:   boolean(m["isFavorite"], false),
		CreatedAtISO: created,
		UpdatedAtISO: updated,
	}
}

func (p *pass) episode(m map[string]any) domain.Episode {
	created, updated := p.stamps(m)
	raw := math.Round(number(m["severity"], domain.DefaultSeverity))
	severity := int(math.Max(domain.MinSeverity, math.Min(domain.MaxSeverity, raw)))
	return domain.Episode{
		ID:           p.id(m),
		MemberID:     str(m["memberId"], ""),
		Category:     str(m["category"], ""),
		Severity:     severity,
		Notes:        str(m["notes"], ""),
		StartedAtISO: str(m["startedAtISO"], created),
		EndedAtISO:   nullableStr(m["endedAtISO"]),
		CreatedAtISO: created,
		UpdatedAtISO: updated,
		DeletedAtISO: nullableStr(m["deletedAtISO"]),
	}
}

func (p *pass) temp(m map[string]any) domain.TempEntry {
	created, updated := p.stamps(m)
	return domain.TempEntry{
		ID:           p.id(m),
		MemberID:     str(m["memberId"], ""),
		EpisodeID:    nullableStr(m["episodeId"]),
		AtISO:        str(m["atISO"], created),
		TempC:        number(m["tempC"], 0),
		Notes:        str(m["notes"], ""),
		CreatedAtISO: created,
		UpdatedAtISO: updated,
		DeletedAtISO: nullableStr(m["deletedAtISO"]),
	}
}

func (p *pass) med(m map[string]any) domain.MedEntry {
	created, updated := p.stamps(m)
	return domain.MedEntry{
		ID:           p.id(m),
		MemberID:     str(m["memberId"], ""),
		EpisodeID:    nullableStr(m["episodeId"]),
		AtISO:        str(m["atISO"], created),
		MedID:        str(m["medId"], ""),
		MedName:      str(m["medName"], ""),
		Dose:         str(m["dose"], ""),
		Notes:        str(m["notes"], ""),
		CreatedAtISO: created,
		UpdatedAtISO: updated,
		DeletedAtISO: nullableStr(m["deletedAtISO"]),
	}
}

func (p *pass) symptom(m map[string]any) domain.SymptomEntry {
	created, updated := p.stamps(m)
	return domain.SymptomEntry{
		ID:           p.id(m),
		MemberID:     str(m["memberId"], ""),
		EpisodeID:    nullableStr(m["episodeId"]),
		AtISO:        str(m["atISO"], created),
		Symptoms:     stringList(m["symptoms"]),
		Notes:        str(m["notes"], ""),
		CreatedAtISO: created,
		UpdatedAtISO: updated,
		DeletedAtISO: nullableStr(m["deletedAtISO"]),
	}
}

func (p *pass) course(m map[string]any) domain.MedCourse {
	created, updated := p.stamps(m)
	return domain.MedCourse{
		ID:            p.id(m),
		MemberID:      str(m["memberId"], ""),
		EpisodeID:     nullableStr(m["episodeId"]),
		MedID:         str(m["medId"], ""),
		MedName:       str(m["medName"], ""),
		Dose:          str(m["dose"], ""),
		StartAtISO:    str(m["startAtISO"], created),
		IntervalHours: number(m["intervalHours"], 0),
		DurationDays:  number(m["durationDays"], 0),
		Notes:         str(m["notes"], ""),
		CreatedAtISO:  created,
		UpdatedAtISO:  updated,
		DeletedAtISO:  nullableStr(m["deletedAtISO"]),
	}
}
