package main

import (
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"healthlog/pkg/domain"
)

var naturalTime = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

// parseWhen accepts an RFC 3339 timestamp or a phrase such as "yesterday 9pm"
// or "2 hours ago", resolved against now. An empty string yields the zero
// time, which the domain layer treats as now.
func parseWhen(raw string, now time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, ok := domain.ParseISO(raw); ok {
		return t, nil
	}
	r, err := naturalTime.Parse(raw, now)
	if err != nil {
		return time.Time{}, usagef("cannot read time %q: %v", raw, err)
	}
	if r == nil {
		return time.Time{}, usagef("cannot read time %q", raw)
	}
	return r.Time.UTC(), nil
}
