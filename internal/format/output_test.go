package format

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/x/ansi"

	"dayplan-cli/internal/model"
)

func TestWrite_JSONAndYAMLUseJSONNames(t *testing.T) {
	v := model.DayState{Day: "2026-03-04", Manual: true, LastModified: time.Date(2026, 3, 4, 8, 0, 0, 0, time.UTC)}

	var js bytes.Buffer
	if err := Write(&js, v, "json", false); err != nil {
		t.Fatalf("json: %v", err)
	}
	if !strings.Contains(js.String(), `"lastModified":"2026-03-04T08:00:00Z"`) {
		t.Fatalf("unexpected json: %s", js.String())
	}

	var ym bytes.Buffer
	if err := Write(&ym, v, "yaml", false); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if !strings.Contains(ym.String(), "lastModified: \"2026-03-04T08:00:00Z\"") && !strings.Contains(ym.String(), "lastModified: 2026-03-04T08:00:00Z") {
		t.Fatalf("unexpected yaml: %s", ym.String())
	}
}

func TestWrite_UnknownFormat(t *testing.T) {
	if err := Write(&bytes.Buffer{}, 1, "edn", false); err == nil {
		t.Fatalf("expected error")
	}
}

func TestWriteDay_PlainRendering(t *testing.T) {
	nine := "09:00"
	v := DayView{
		Day:  "2026-03-04",
		Mode: "manual",
		Items: []model.Item{
			{ID: "a", Title: "Standup", Time: &nine, Checklist: []model.ChecklistEntry{
				{ID: "c2", Title: "agenda", Rank: "q"},
				{ID: "c1", Title: "notes", Rank: "h", Done: true},
			}},
			{ID: "b", Title: "Buy milk"},
		},
	}
	var buf bytes.Buffer
	if err := WriteDay(&buf, v, false); err != nil {
		t.Fatalf("WriteDay: %v", err)
	}
	out := ansi.Strip(buf.String())
	for _, want := range []string{"Wed 2026-03-04", "manual", "09:00", "Standup", "[1/2]", "[x] notes", "[ ] agenda", "Buy milk"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Index(out, "notes") > strings.Index(out, "agenda") {
		t.Fatalf("checklist must follow rank order:\n%s", out)
	}
}

func TestWriteDay_EmptyAndLongTitles(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteDay(&buf, DayView{Day: "2026-03-04", Mode: "chronological"}, false); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(ansi.Strip(buf.String()), "(nothing planned)") {
		t.Fatalf("expected empty marker, got %q", buf.String())
	}

	buf.Reset()
	long := strings.Repeat("x", MaxTitleWidth*2)
	if err := WriteDay(&buf, DayView{Day: "2026-03-04", Items: []model.Item{{ID: "a", Title: long}}}, false); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), long) {
		t.Fatalf("expected long title to be truncated")
	}
}

func TestRenderMarkdown_PlainStyle(t *testing.T) {
	out := ansi.Strip(RenderMarkdown("# Standup\n\nSome **notes** here.", 40, false))
	if !strings.Contains(out, "Standup") || !strings.Contains(out, "notes") {
		t.Fatalf("unexpected render:\n%s", out)
	}
	if RenderMarkdown("   ", 40, false) != "" {
		t.Fatalf("blank input should render empty")
	}
}
