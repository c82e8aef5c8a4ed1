package calendar

import (
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"github.com/okian/remindr/internal/domain/model"
)

const (
	instanceLayout        = "20060102T150405Z"
	maxInstancesPerSeries = 1000
)

// vevent is the normalized form of a VEVENT before recurrence expansion.
type vevent struct {
	uid         string
	summary     string
	description string
	location    string
	url         string
	start       time.Time
	end         time.Time
	allDay      bool
	rrule       string
	exdates     []time.Time
	recurrence  *time.Time
	cancelled   bool
}

func parseVEvent(ve *ical.VEvent, loc *time.Location) (vevent, error) {
	var out vevent
	p := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if p == nil || p.Value == "" {
		return out, errors.New("missing UID")
	}
	out.uid = p.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.description = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		out.location = p.Value
	}
	if p := ve.GetProperty("URL"); p != nil {
		out.url = p.Value
	}
	if p := ve.GetProperty("STATUS"); p != nil {
		out.cancelled = strings.EqualFold(p.Value, "CANCELLED")
	}

	dt := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dt == nil {
		return out, errors.New("missing DTSTART")
	}
	if vs := dt.ICalParameters["VALUE"]; len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		out.allDay = true
	}
	if !strings.Contains(dt.Value, "T") {
		out.allDay = true
	}

	if out.allDay {
		d, err := time.ParseInLocation("20060102", strings.TrimSpace(dt.Value), loc)
		if err != nil {
			return out, err
		}
		out.start = d
		out.end = d.AddDate(0, 0, 1)
	} else {
		start, err := ve.GetStartAt()
		if err != nil {
			return out, err
		}
		out.start = start
		end, err := ve.GetEndAt()
		if err != nil || end.Before(start) {
			end = start
		}
		out.end = end
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.rrule = p.Value
	}
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			if t, err := parseICSTime(part, tzOf(p.ICalParameters, loc)); err == nil {
				out.exdates = append(out.exdates, t)
			}
		}
	}
	if p := ve.GetProperty("RECURRENCE-ID"); p != nil {
		if t, err := parseICSTime(p.Value, tzOf(p.ICalParameters, loc)); err == nil {
			out.recurrence = &t
		}
	}
	return out, nil
}

func tzOf(params map[string][]string, fallback *time.Location) *time.Location {
	if tz := params["TZID"]; len(tz) > 0 {
		if loc, err := time.LoadLocation(tz[0]); err == nil {
			return loc
		}
	}
	return fallback
}

func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return time.Time{}, errors.New("empty time value")
	case strings.HasSuffix(v, "Z"):
		return time.Parse(instanceLayout, v)
	case strings.Contains(v, "T"):
		return time.ParseInLocation("20060102T150405", v, loc)
	default:
		return time.ParseInLocation("20060102", v, loc)
	}
}

// expand turns parsed VEVENTs into concrete events overlapping [from, to].
// Overrides (RECURRENCE-ID) replace the instance they point at and keep its ID.
func expand(events []vevent, from, to time.Time) []model.Event {
	bases := make(map[string][]vevent)
	overrides := make(map[string][]vevent)
	var uids []string
	for _, ev := range events {
		if ev.recurrence != nil {
			overrides[ev.uid] = append(overrides[ev.uid], ev)
			continue
		}
		if _, seen := bases[ev.uid]; !seen {
			uids = append(uids, ev.uid)
		}
		bases[ev.uid] = append(bases[ev.uid], ev)
	}

	var out []model.Event
	for _, uid := range uids {
		for _, base := range bases[uid] {
			if base.rrule == "" {
				if base.cancelled || !overlaps(base.start, base.end, from, to) {
					continue
				}
				out = append(out, toModel(base, base.uid, base.start))
				continue
			}
			out = append(out, expandSeries(base, overrides[uid], from, to)...)
		}
	}
	return out
}

func expandSeries(base vevent, overrides []vevent, from, to time.Time) []model.Event {
	r, err := rrule.StrToRRule(base.rrule)
	if err != nil {
		return nil
	}
	r.DTStart(base.start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range base.exdates {
		set.ExDate(ex.In(base.start.Location()))
	}

	dur := base.end.Sub(base.start)
	// Widen the window by the duration so instances already in progress are kept.
	starts := set.Between(from.Add(-dur).In(base.start.Location()), to.In(base.start.Location()), true)
	if len(starts) > maxInstancesPerSeries {
		starts = starts[:maxInstancesPerSeries]
	}

	out := make([]model.Event, 0, len(starts))
	used := make(map[int]bool, len(overrides))
	for _, s := range starts {
		id := instanceID(base, s)
		inst := base
		inst.start = s
		inst.end = s.Add(dur)
		if i := findOverride(overrides, s); i >= 0 {
			inst = overrides[i]
			used[i] = true
		}
		if inst.cancelled || !overlaps(inst.start, inst.end, from, to) {
			continue
		}
		out = append(out, toModel(inst, id, inst.start))
	}

	// Instances whose original slot lies outside the window but were moved into it.
	for i, ov := range overrides {
		if used[i] || ov.recurrence == nil || ov.cancelled {
			continue
		}
		if !overlaps(ov.start, ov.end, from, to) {
			continue
		}
		orig := ov.recurrence.In(base.start.Location())
		if len(set.Between(orig, orig, true)) == 0 {
			continue
		}
		out = append(out, toModel(ov, instanceID(base, *ov.recurrence), ov.start))
	}
	return out
}

// findOverride returns the index of the override for original, or -1.
func findOverride(overrides []vevent, original time.Time) int {
	for i, ov := range overrides {
		if ov.recurrence != nil && ov.recurrence.Equal(original) {
			return i
		}
	}
	return -1
}

func instanceID(base vevent, original time.Time) string {
	if base.allDay {
		return base.uid + "_" + original.Format("20060102")
	}
	return base.uid + "_" + original.UTC().Format(instanceLayout)
}

func toModel(ev vevent, id string, start time.Time) model.Event {
	return model.Event{
		ID:          id,
		Title:       ev.summary,
		Start:       start,
		AllDay:      ev.allDay,
		Location:    ev.location,
		Description: ev.description,
		Link:        ev.url,
	}
}

func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	if aEnd.Equal(aStart) {
		return !aStart.Before(bStart) && !aStart.After(bEnd)
	}
	return aEnd.After(bStart) && !aStart.After(bEnd)
}
