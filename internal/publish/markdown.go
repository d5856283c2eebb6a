// Package publish exports days and items as Markdown files. The files are
// derived artifacts; local state stays the source of truth.
package publish

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"dayplan-cli/internal/format"
	"dayplan-cli/internal/model"
	"dayplan-cli/internal/order"
)

// RenderItemMarkdown renders one item as a standalone page.
func RenderItemMarkdown(it model.Item) string {
	var buf bytes.Buffer
	writeLn := func(s string) {
		buf.WriteString(s)
		buf.WriteString("\n")
	}

	writeLn("# " + strings.TrimSpace(it.Title))
	writeLn("")
	writeLn("## Meta")
	writeLn("")
	writeLn("- ID: " + it.ID)
	writeLn("- When: " + formatWhen(it))
	writeLn("- Created: " + it.CreatedAt.UTC().Format(time.RFC3339))
	writeLn("- Updated: " + it.LastModified.UTC().Format(time.RFC3339))

	if desc := strings.TrimSpace(it.Description); desc != "" {
		writeLn("")
		writeLn("## Description")
		writeLn("")
		writeLn(desc)
	}

	if entries := order.Checklist(it); len(entries) > 0 {
		writeLn("")
		writeLn("## Checklist")
		writeLn("")
		for _, e := range entries {
			box := " "
			if e.Done {
				box = "x"
			}
			writeLn(fmt.Sprintf("- [%s] %s", box, strings.TrimSpace(e.Title)))
		}
	}

	return buf.String()
}

// RenderDayMarkdown renders a day as an index page. Items link to their
// pages under items/ when linkItems is set.
func RenderDayMarkdown(v format.DayView, linkItems bool) string {
	var buf bytes.Buffer
	writeLn := func(s string) {
		buf.WriteString(s)
		buf.WriteString("\n")
	}

	title := string(v.Day)
	if t, err := time.Parse(model.DayLayout, string(v.Day)); err == nil {
		title = t.Format("Monday, 2 January 2006")
	}
	writeLn("# " + title)
	writeLn("")
	writeLn("_Order: " + v.Mode + "_")
	writeLn("")

	if len(v.Items) == 0 {
		writeLn("Nothing planned.")
		return buf.String()
	}
	for _, it := range v.Items {
		label := strings.TrimSpace(it.Title)
		if linkItems {
			label = fmt.Sprintf("[%s](../items/%s.md)", label, it.ID)
		}
		prefix := ""
		if it.Timed() {
			prefix = "**" + strings.TrimSpace(*it.Time) + "** "
		}
		writeLn("- " + prefix + label)
	}
	return buf.String()
}

func formatWhen(it model.Item) string {
	date := string(it.Date)
	if !it.Timed() {
		return date
	}
	return date + " " + strings.TrimSpace(*it.Time)
}
