package reminder

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/okian/remindr/internal/domain/model"
)

const maxDescriptionRunes = 300

// FormatReminder renders the HTML reminder for ev, which starts in minutes.
func FormatReminder(ev model.Event, minutes int, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	title := ev.Title
	if title == "" {
		title = "(no title)"
	}

	var b strings.Builder
	if minutes <= 0 {
		fmt.Fprintf(&b, "⏰ <b>%s</b> starts now", html.EscapeString(title))
	} else {
		fmt.Fprintf(&b, "⏰ <b>%s</b> starts in %d min", html.EscapeString(title), minutes)
	}
	fmt.Fprintf(&b, "\n🕒 %s", ev.Start.In(loc).Format("15:04"))
	if ev.Location != "" {
		fmt.Fprintf(&b, "\n📍 %s", html.EscapeString(ev.Location))
	}
	if d := strings.TrimSpace(ev.Description); d != "" {
		fmt.Fprintf(&b, "\n\n%s", html.EscapeString(truncateRunes(d, maxDescriptionRunes)))
	}
	if ev.Link != "" {
		fmt.Fprintf(&b, "\n<a href=\"%s\">Open in calendar</a>", html.EscapeString(ev.Link))
	}
	return b.String()
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
