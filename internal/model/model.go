package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DayLayout is the wire and storage layout of a DayKey.
const DayLayout = "2006-01-02"

// ClockLayout is the layout of an item's optional time of day.
const ClockLayout = "15:04"

// DayKey identifies a calendar day bucket (YYYY-MM-DD).
type DayKey string

// DayOf truncates t to its calendar day in t's location.
func DayOf(t time.Time) DayKey {
	return DayKey(t.Format(DayLayout))
}

// ParseDay validates and normalizes a YYYY-MM-DD string.
func ParseDay(s string) (DayKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", errors.New("missing date")
	}
	t, err := time.Parse(DayLayout, s)
	if err != nil {
		return "", fmt.Errorf("invalid date %q (want YYYY-MM-DD)", s)
	}
	return DayOf(t), nil
}

func (d DayKey) String() string { return string(d) }

// ParseClock validates and normalizes an HH:MM string so that clocks compare
// correctly as strings.
func ParseClock(s string) (string, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(ClockLayout, s)
	if err != nil {
		// Accept single-digit hours ("9:30").
		if t2, err2 := time.Parse("3:04", s); err2 == nil {
			t = t2
		} else {
			return "", fmt.Errorf("invalid time %q (want HH:MM)", s)
		}
	}
	return t.Format(ClockLayout), nil
}

type ChecklistEntry struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Done  bool   `json:"done"`
	Rank  string `json:"rank"`
}

type Item struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Date        DayKey  `json:"date"`
	Time        *string `json:"time,omitempty"` // HH:MM; nil means untimed
	Rank        string  `json:"rank"`

	Checklist []ChecklistEntry `json:"checklist,omitempty"`

	CreatedAt    time.Time `json:"createdAt"`
	LastModified time.Time `json:"lastModified"`

	// DeletedAt marks a tombstone. Tombstones take part in merges like any other
	// version but are never displayed.
	DeletedAt *time.Time `json:"deletedAt,omitempty"`

	// RemoteRef is the backend-native identifier assigned by the remote store.
	RemoteRef string `json:"remoteRef,omitempty"`
}

func (it Item) Timed() bool   { return it.Time != nil && strings.TrimSpace(*it.Time) != "" }
func (it Item) Deleted() bool { return it.DeletedAt != nil }

// Clone returns a deep copy.
func (it Item) Clone() Item {
	out := it
	if it.Time != nil {
		v := *it.Time
		out.Time = &v
	}
	if it.DeletedAt != nil {
		v := *it.DeletedAt
		out.DeletedAt = &v
	}
	if it.Checklist != nil {
		out.Checklist = append([]ChecklistEntry(nil), it.Checklist...)
	}
	return out
}

// DayState records whether a day bucket is under manual-order control.
// There is at most one DayState per day; a day without one is chronological.
type DayState struct {
	Day          DayKey    `json:"day"`
	Manual       bool      `json:"manual"`
	LastModified time.Time `json:"lastModified"`
	RemoteRef    string    `json:"remoteRef,omitempty"`
}

// Collection is a full set of items and day states, as held locally or fetched remotely.
type Collection struct {
	Items []Item     `json:"items"`
	Days  []DayState `json:"days"`
}

func (c Collection) Clone() Collection {
	out := Collection{
		Items: make([]Item, 0, len(c.Items)),
		Days:  append([]DayState{}, c.Days...),
	}
	for _, it := range c.Items {
		out.Items = append(out.Items, it.Clone())
	}
	return out
}

func (c Collection) FindItem(id string) (Item, bool) {
	for _, it := range c.Items {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}

func (c Collection) Day(day DayKey) (DayState, bool) {
	for _, d := range c.Days {
		if d.Day == day {
			return d, true
		}
	}
	return DayState{}, false
}

// IsManual reports whether day's bucket follows rank order.
func (c Collection) IsManual(day DayKey) bool {
	d, ok := c.Day(day)
	return ok && d.Manual
}

// DayOverride is the per-item view of a bucket's manual flag: true iff the item
// is live, sits in day's bucket, and that bucket is manual.
func (c Collection) DayOverride(itemID string, day DayKey) bool {
	it, ok := c.FindItem(itemID)
	if !ok || it.Deleted() || it.Date != day {
		return false
	}
	return c.IsManual(day)
}

// Bucket returns the live items assigned to day, in collection order.
func (c Collection) Bucket(day DayKey) []Item {
	var out []Item
	for _, it := range c.Items {
		if it.Deleted() || it.Date != day {
			continue
		}
		out = append(out, it)
	}
	return out
}

// Live returns all non-tombstoned items, in collection order.
func (c Collection) Live() []Item {
	out := make([]Item, 0, len(c.Items))
	for _, it := range c.Items {
		if !it.Deleted() {
			out = append(out, it)
		}
	}
	return out
}

// Stamp returns the modification time for a local mutation: now, unless that
// would move the record's clock backwards.
func Stamp(prev, now time.Time) time.Time {
	if now.Before(prev) {
		return prev
	}
	return now
}
