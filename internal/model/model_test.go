package model

import (
	"testing"
	"time"
)

func TestParseClock_NormalizesSingleDigitHour(t *testing.T) {
	got, err := ParseClock("9:05")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got != "09:05" {
		t.Fatalf("expected 09:05, got %q", got)
	}
	if _, err := ParseClock("25:00"); err == nil {
		t.Fatalf("expected error for out-of-range hour")
	}
}

func TestParseDay_RejectsGarbage(t *testing.T) {
	if _, err := ParseDay("2026-13-01"); err == nil {
		t.Fatalf("expected error for invalid month")
	}
	d, err := ParseDay(" 2026-03-04 ")
	if err != nil || d != "2026-03-04" {
		t.Fatalf("expected 2026-03-04, got %q (%v)", d, err)
	}
}

func TestDayOverride_FollowsBucketState(t *testing.T) {
	now := time.Date(2026, 3, 4, 8, 0, 0, 0, time.UTC)
	c := Collection{
		Items: []Item{
			{ID: "a", Date: "2026-03-04", Rank: "h"},
			{ID: "b", Date: "2026-03-05", Rank: "h"},
		},
		Days: []DayState{{Day: "2026-03-04", Manual: true, LastModified: now}},
	}
	if !c.DayOverride("a", "2026-03-04") {
		t.Fatalf("expected a to be under manual override")
	}
	if c.DayOverride("b", "2026-03-04") {
		t.Fatalf("b is not in the bucket; expected no override")
	}
	if c.DayOverride("b", "2026-03-05") {
		t.Fatalf("2026-03-05 has no manual state")
	}
}

func TestStamp_NeverMovesBackwards(t *testing.T) {
	prev := time.Date(2026, 3, 4, 8, 0, 0, 0, time.UTC)
	if got := Stamp(prev, prev.Add(-time.Minute)); !got.Equal(prev) {
		t.Fatalf("expected %v, got %v", prev, got)
	}
	later := prev.Add(time.Minute)
	if got := Stamp(prev, later); !got.Equal(later) {
		t.Fatalf("expected %v, got %v", later, got)
	}
}
