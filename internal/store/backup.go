package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"dayplan-cli/internal/model"
)

// backupLine is one JSONL record. Exactly one of Item and Day is set.
type backupLine struct {
	Kind string          `json:"kind"`
	Item *model.Item     `json:"item,omitempty"`
	Day  *model.DayState `json:"day,omitempty"`
}

// WriteBackupJSONL writes coll as JSONL, tombstones included, so a restore
// can merge it like any remote collection.
func WriteBackupJSONL(path string, coll model.Collection) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	enc := json.NewEncoder(bw)
	for i := range coll.Items {
		if err := enc.Encode(backupLine{Kind: "item", Item: &coll.Items[i]}); err != nil {
			return err
		}
	}
	for i := range coll.Days {
		if err := enc.Encode(backupLine{Kind: "day", Day: &coll.Days[i]}); err != nil {
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return f.Close()
}

// ReadBackupJSONL reads a collection written by WriteBackupJSONL.
func ReadBackupJSONL(path string) (model.Collection, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.Collection{}, err
	}
	defer f.Close()

	out := model.Collection{Items: []model.Item{}, Days: []model.DayState{}}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var bl backupLine
		if err := json.Unmarshal([]byte(line), &bl); err != nil {
			return model.Collection{}, fmt.Errorf("parse backup line %d: %w", n, err)
		}
		switch {
		case bl.Kind == "item" && bl.Item != nil:
			out.Items = append(out.Items, *bl.Item)
		case bl.Kind == "day" && bl.Day != nil:
			out.Days = append(out.Days, *bl.Day)
		default:
			return model.Collection{}, fmt.Errorf("parse backup line %d: unknown record kind %q", n, bl.Kind)
		}
	}
	if err := sc.Err(); err != nil {
		return model.Collection{}, err
	}
	return out, nil
}
