package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"healthlog/pkg/domain"
)

// styles renders terminal output. Colours only appear when the writer is a
// terminal that supports them.
type styles struct {
	r       *lipgloss.Renderer
	heading lipgloss.Style
	muted   lipgloss.Style
	warn    lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		r:       r,
		heading: r.NewStyle().Bold(true),
		muted:   r.NewStyle().Faint(true),
		warn:    r.NewStyle().Foreground(lipgloss.Color("#D1495B")).Bold(true),
	}
}

// member renders a member's name in their accent colour.
func (s styles) member(m domain.Member) string {
	st := s.r.NewStyle().Bold(true)
	if strings.HasPrefix(m.AccentColor, "#") {
		st = st.Foreground(lipgloss.Color(m.AccentColor))
	}
	return st.Render(m.Name)
}

// memberName resolves id against the household, falling back to the raw id.
func (s styles) memberName(h domain.Household, id string) string {
	if m, ok := h.FindMember(id); ok {
		return s.member(m)
	}
	return id
}

// when renders an ISO timestamp in local time.
func (s styles) when(iso string) string {
	t, ok := domain.ParseISO(iso)
	if !ok {
		return s.muted.Render("unknown time")
	}
	return t.Local().Format("Mon 02 Jan 15:04")
}

func formatTemp(c float64) string {
	return fmt.Sprintf("%.1f°C", c)
}

func ago(now, then time.Time) string {
	if then.IsZero() {
		return "never"
	}
	d := now.Sub(then).Round(time.Second)
	if d < time.Second {
		return "just now"
	}
	return d.String() + " ago"
}
