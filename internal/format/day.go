package format

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"

	"dayplan-cli/internal/model"
	"dayplan-cli/internal/order"
)

// DayView is one resolved day, as printed by the day command.
type DayView struct {
	Day   model.DayKey `json:"day"`
	Mode  string       `json:"mode"`
	Items []model.Item `json:"items"`
}

// MaxTitleWidth bounds titles in the text view.
const MaxTitleWidth = 60

// ColorEnabled reports whether styled output should carry colors.
func ColorEnabled() bool {
	return strings.TrimSpace(os.Getenv("NO_COLOR")) == ""
}

type dayStyles struct {
	header lipgloss.Style
	mode   lipgloss.Style
	clock  lipgloss.Style
	title  lipgloss.Style
	muted  lipgloss.Style
	done   lipgloss.Style
}

func newDayStyles(r *lipgloss.Renderer) dayStyles {
	ac := func(light, dark string) lipgloss.AdaptiveColor {
		return lipgloss.AdaptiveColor{Light: light, Dark: dark}
	}
	return dayStyles{
		header: r.NewStyle().Bold(true),
		mode:   r.NewStyle().Foreground(ac("27", "62")),
		clock:  r.NewStyle().Foreground(ac("130", "214")).Width(5),
		title:  r.NewStyle(),
		muted:  r.NewStyle().Foreground(ac("240", "243")),
		done:   r.NewStyle().Foreground(ac("240", "243")).Strikethrough(true),
	}
}

// WriteDay renders a day as an agenda:
//
//	Wed 2026-03-04  manual
//	  09:00  Standup  [1/2]
//	         [x] notes
//	         [ ] agenda
//	  ·      Buy milk
func WriteDay(w io.Writer, v DayView, color bool) error {
	r := lipgloss.NewRenderer(w)
	if !color {
		r.SetColorProfile(termenv.Ascii)
	}
	st := newDayStyles(r)

	var b strings.Builder
	header := string(v.Day)
	if t, err := time.Parse(model.DayLayout, string(v.Day)); err == nil {
		header = t.Format("Mon ") + header
	}
	b.WriteString(st.header.Render(header))
	b.WriteString("  ")
	b.WriteString(st.mode.Render(v.Mode))
	b.WriteByte('\n')

	if len(v.Items) == 0 {
		b.WriteString("  " + st.muted.Render("(nothing planned)") + "\n")
	}
	for _, it := range v.Items {
		clock := "·"
		if it.Timed() {
			clock = strings.TrimSpace(*it.Time)
		}
		line := "  " + st.clock.Render(clock) + "  " + st.title.Render(ansi.Truncate(it.Title, MaxTitleWidth, "…"))
		if n := len(it.Checklist); n > 0 {
			done := 0
			for _, e := range it.Checklist {
				if e.Done {
					done++
				}
			}
			line += "  " + st.muted.Render(fmt.Sprintf("[%d/%d]", done, n))
		}
		b.WriteString(line + "\n")

		for _, e := range order.Checklist(it) {
			box, style := "[ ]", st.title
			if e.Done {
				box, style = "[x]", st.done
			}
			b.WriteString("         " + st.muted.Render(box) + " " + style.Render(ansi.Truncate(e.Title, MaxTitleWidth, "…")) + "\n")
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
