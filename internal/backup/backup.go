package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/eaobservatory/omp/internal/sciprog"
)

// Backup MSBs are fetched ahead of time into a directory tree organised as
//
//	<root>/<utdate>/<HHMM>/band_<N>/<instrument>/*.xml
//
// so observing can continue while the database is unreachable. Each file is
// a small science program document holding the saved MSBs for that slot.
//
// Counters in backup documents are NOT updated by offline observing; during
// an extended outage the remaining counts must be tracked by hand.

// Criteria selects backup MSBs to search for.
type Criteria struct {
	Date       string // UT date directory (YYYYMMDD); empty means most recent
	Time       string // earliest time of day (HHMM); empty means any
	Band       int    // weather band number
	Instrument string // instrument directory name; empty means any
}

// Entry summarises one backup MSB available for observing.
type Entry struct {
	Path       string
	Slot       string // HHMM directory the MSB was found under
	Instrument string
	Project    string
	Title      string
	Checksum   string
	Remaining  int
	Elapsed    float64
}

// Dates lists the UT date directories available under root, oldest first.
func Dates(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read backup root: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

// Search finds the next time-of-day slot at or after the requested time
// holding MSBs matching the criteria, and returns their summaries along
// with the slot that satisfied the search.
func Search(root string, crit Criteria) ([]Entry, string, error) {
	date := crit.Date
	if date == "" {
		dates, err := Dates(root)
		if err != nil {
			return nil, "", err
		}
		if len(dates) == 0 {
			return nil, "", fmt.Errorf("no backup dates under %s", root)
		}
		date = dates[len(dates)-1]
	}

	dateDir := filepath.Join(root, date)
	slots, err := os.ReadDir(dateDir)
	if err != nil {
		return nil, "", fmt.Errorf("read backup date %s: %w", date, err)
	}
	var names []string
	for _, s := range slots {
		if s.IsDir() {
			names = append(names, s.Name())
		}
	}
	sort.Strings(names)

	for _, slot := range names {
		if crit.Time != "" && slot < crit.Time {
			continue
		}
		found, err := scanSlot(filepath.Join(dateDir, slot), slot, crit)
		if err != nil {
			return nil, "", err
		}
		if len(found) > 0 {
			return found, slot, nil
		}
	}
	return nil, "", nil
}

func scanSlot(dir, slot string, crit Criteria) ([]Entry, error) {
	bandDir := filepath.Join(dir, fmt.Sprintf("band_%d", crit.Band))
	instruments, err := os.ReadDir(bandDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read band directory: %w", err)
	}

	var out []Entry
	for _, inst := range instruments {
		if !inst.IsDir() {
			continue
		}
		if crit.Instrument != "" && !strings.EqualFold(inst.Name(), crit.Instrument) {
			continue
		}
		files, err := os.ReadDir(filepath.Join(bandDir, inst.Name()))
		if err != nil {
			return nil, fmt.Errorf("read instrument directory: %w", err)
		}
		for _, f := range files {
			if f.IsDir() || !strings.HasSuffix(f.Name(), ".xml") {
				continue
			}
			path := filepath.Join(bandDir, inst.Name(), f.Name())
			entries, err := summarise(path, slot, inst.Name())
			if err != nil {
				// A corrupt saved file should not abort an offline
				// search; skip it.
				continue
			}
			out = append(out, entries...)
		}
	}
	return out, nil
}

func summarise(path, slot, instrument string) ([]Entry, error) {
	p, err := sciprog.ParseFile(path)
	if err != nil {
		return nil, err
	}
	var out []Entry
	for _, m := range p.ActiveMSBs() {
		var elapsed float64
		for _, o := range m.Obs {
			elapsed += o.Elapsed
		}
		out = append(out, Entry{
			Path:       path,
			Slot:       slot,
			Instrument: instrument,
			Project:    p.Name,
			Title:      m.Title,
			Checksum:   m.Checksum,
			Remaining:  m.Remaining,
			Elapsed:    elapsed,
		})
	}
	return out, nil
}
