// Package journal reads and writes the markdown journal: one YYYY-MM-DD.md
// file per day with YAML front matter and one "## HH:MM" section per entry.
//
//	---
//	date: 2024-01-01
//	day: Monday
//	weather: sunny
//	mood: good
//	---
//
//	## 10:30
//	Coffee with Sam.
//
// The journal lives outside the database. ImportJournal copies it into the
// timeline in one transaction.
package journal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/jpl-au/pim/internal/store"
	"gopkg.in/yaml.v3"
)

const dateLayout = "2006-01-02"

var (
	// ErrNoFrontMatter is returned for a file that does not open with "---".
	ErrNoFrontMatter = errors.New("missing front matter")

	heading  = regexp.MustCompile(`^## (\d{2}:\d{2})\s*$`)
	fileName = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}\.md$`)
)

// Meta is the front matter of a day file.
type Meta struct {
	Date    string `yaml:"date"`
	Day     string `yaml:"day,omitempty"`
	Weather string `yaml:"weather,omitempty"`
	Mood    string `yaml:"mood,omitempty"`
}

// Entry is one timed section of a day.
type Entry struct {
	Time    string `json:"time"`
	Content string `json:"content"`
}

// Day is a parsed journal file.
type Day struct {
	Meta    Meta    `json:"meta"`
	Entries []Entry `json:"entries"`
}

// Parse reads a day file.
func Parse(data []byte) (*Day, error) {
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(data, []byte("---\n")) {
		return nil, ErrNoFrontMatter
	}
	rest := data[4:]
	end := bytes.Index(rest, []byte("\n---"))
	if end < 0 {
		return nil, ErrNoFrontMatter
	}

	var d Day
	if err := yaml.Unmarshal(rest[:end], &d.Meta); err != nil {
		return nil, fmt.Errorf("front matter: %w", err)
	}
	body := rest[end+4:]

	var cur *Entry
	var lines []string
	flush := func() {
		if cur != nil {
			cur.Content = strings.TrimSpace(strings.Join(lines, "\n"))
			if cur.Content != "" {
				d.Entries = append(d.Entries, *cur)
			}
		}
		lines = lines[:0]
	}
	for _, line := range strings.Split(string(body), "\n") {
		if m := heading.FindStringSubmatch(line); m != nil {
			flush()
			cur = &Entry{Time: m[1]}
			continue
		}
		if cur != nil {
			lines = append(lines, line)
		}
	}
	flush()
	return &d, nil
}

// Marshal renders the day back to its file form.
func (d *Day) Marshal() ([]byte, error) {
	meta, err := yaml.Marshal(d.Meta)
	if err != nil {
		return nil, err
	}
	var b bytes.Buffer
	b.WriteString("---\n")
	b.Write(meta)
	b.WriteString("---\n")
	for _, e := range d.Entries {
		fmt.Fprintf(&b, "\n## %s\n%s\n", e.Time, e.Content)
	}
	return b.Bytes(), nil
}

// Journal is a directory of day files.
type Journal struct {
	dir string
}

// New returns a journal rooted at dir.
func New(dir string) *Journal {
	return &Journal{dir: dir}
}

func (j *Journal) path(date string) string {
	return filepath.Join(j.dir, date+".md")
}

// Read loads one day. A missing file returns store.ErrNotFound.
func (j *Journal) Read(date string) (*Day, error) {
	data, err := os.ReadFile(j.path(date))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("journal %s: %w", date, store.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	d, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("journal %s: %w", date, err)
	}
	return d, nil
}

// Append adds an entry to the day file for at, creating the file with front
// matter when needed. Weather and mood only fill empty front matter fields.
func (j *Journal) Append(at time.Time, content, weather, mood string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return errors.New("journal entry content is empty")
	}
	date := at.Format(dateLayout)
	d, err := j.Read(date)
	if errors.Is(err, store.ErrNotFound) {
		d = &Day{Meta: Meta{Date: date, Day: at.Weekday().String()}}
	} else if err != nil {
		return err
	}
	if d.Meta.Weather == "" {
		d.Meta.Weather = weather
	}
	if d.Meta.Mood == "" {
		d.Meta.Mood = mood
	}
	d.Entries = append(d.Entries, Entry{Time: at.Format("15:04"), Content: content})

	data, err := d.Marshal()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(j.dir, 0700); err != nil {
		return err
	}
	return os.WriteFile(j.path(date), data, 0600)
}

// Dates lists the days present, oldest first.
func (j *Journal) Dates() ([]string, error) {
	entries, err := os.ReadDir(j.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var dates []string
	for _, e := range entries {
		if !e.IsDir() && fileName.MatchString(e.Name()) {
			dates = append(dates, strings.TrimSuffix(e.Name(), ".md"))
		}
	}
	sort.Strings(dates)
	return dates, nil
}

// Importer receives parsed entries.
type Importer interface {
	ImportTimeline(ctx context.Context, entries []store.TimelineEntry) (int, error)
}

// ImportJournal parses every day file in dir and hands the entries to the
// timeline in one call. Entries already present are skipped by the importer.
// step, when set, is called once per file read.
func ImportJournal(ctx context.Context, dir string, tl Importer, step func()) (int, error) {
	j := New(dir)
	dates, err := j.Dates()
	if err != nil {
		return 0, err
	}
	var all []store.TimelineEntry
	for _, date := range dates {
		d, err := j.Read(date)
		if err != nil {
			return 0, err
		}
		if d.Meta.Date == "" {
			d.Meta.Date = date
		}
		for _, e := range d.Entries {
			all = append(all, store.TimelineEntry{
				Date:    d.Meta.Date,
				Time:    e.Time,
				Content: e.Content,
				Weather: optional(d.Meta.Weather),
				Mood:    optional(d.Meta.Mood),
			})
		}
		if step != nil {
			step()
		}
	}
	if len(all) == 0 {
		return 0, nil
	}
	return tl.ImportTimeline(ctx, all)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
