package publish

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"dayplan-cli/internal/format"
	"dayplan-cli/internal/model"
	"dayplan-cli/internal/order"
)

type WriteOptions struct {
	Overwrite bool
}

type WriteResult struct {
	Written []string `json:"written"`
}

// WriteDays writes toDir/days/<day>.md for every day plus one page per
// displayed item under toDir/items. Stops on the first error.
func WriteDays(coll model.Collection, days []model.DayKey, toDir string, opt WriteOptions) (WriteResult, error) {
	toDir = strings.TrimSpace(toDir)
	if toDir == "" {
		return WriteResult{}, errors.New("missing --to")
	}
	if len(days) == 0 {
		return WriteResult{}, errors.New("missing day")
	}
	toDir = filepath.Clean(toDir)

	daysDir := filepath.Join(toDir, "days")
	itemsDir := filepath.Join(toDir, "items")
	for _, d := range []string{daysDir, itemsDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return WriteResult{}, err
		}
	}

	written := []string{}
	seen := map[string]bool{}
	for _, day := range days {
		v := format.DayView{
			Day:   day,
			Mode:  string(order.ModeFor(day, coll)),
			Items: order.Resolve(day, coll),
		}
		p := filepath.Join(daysDir, string(day)+".md")
		if err := writeFile(p, []byte(RenderDayMarkdown(v, true)), opt.Overwrite); err != nil {
			return WriteResult{}, err
		}
		written = append(written, p)

		for _, it := range v.Items {
			if seen[it.ID] {
				continue
			}
			seen[it.ID] = true
			p := filepath.Join(itemsDir, it.ID+".md")
			if err := writeFile(p, []byte(RenderItemMarkdown(it)), opt.Overwrite); err != nil {
				return WriteResult{}, err
			}
			written = append(written, p)
		}
	}
	return WriteResult{Written: written}, nil
}

func writeFile(path string, b []byte, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return errors.New("file exists (use --overwrite): " + path)
		}
	}
	return os.WriteFile(path, b, 0o644)
}
