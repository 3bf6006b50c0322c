// Package report assembles per-device compliance results into the review
// document: one section per device, checks in the variant's fixed order.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/edgecheck-network/edgecheck/pkg/compliance"
	"github.com/edgecheck-network/edgecheck/pkg/profile"
)

// Delimiter separates device sections.
var Delimiter = strings.Repeat("/", 80)

// TimeLayout is the timestamp format of identity lines.
const TimeLayout = "2006-01-02 15:04 MST"

// Section is the report of one device.
type Section struct {
	Address  string              `json:"address"`
	Hostname string              `json:"hostname,omitempty"`
	Site     string              `json:"site,omitempty"`
	Variant  profile.Variant     `json:"variant"`
	Time     time.Time           `json:"time"`
	Overall  compliance.Status   `json:"overall"`
	Results  []compliance.Result `json:"results"`
}

// Aggregate orders the profile's results by order and folds the overall status.
func Aggregate(p *profile.Profile, order []compliance.CheckID) Section {
	results := p.Ordered(order)
	return Section{
		Address: p.Address,
		Variant: p.Variant,
		Overall: compliance.Overall(results),
		Results: results,
	}
}

// Identity renders the first line of a section.
func (s Section) Identity() string {
	name := s.Hostname
	if name == "" {
		name = "unknown host"
	}
	line := fmt.Sprintf("%s (%s)", name, s.Address)
	if s.Site != "" {
		line += " - " + s.Site
	}
	if !s.Time.IsZero() {
		line += " as of " + s.Time.Format(TimeLayout)
	}
	return fmt.Sprintf("%s: %s", line, label(s.Overall))
}

// Counts returns how many results have each status.
func (s Section) Counts() map[compliance.Status]int {
	counts := make(map[compliance.Status]int, 3)
	for _, r := range s.Results {
		counts[r.Status]++
	}
	return counts
}

// Render writes sections to w, each followed by the delimiter line.
func Render(w io.Writer, sections []Section) error {
	for _, s := range sections {
		if _, err := fmt.Fprintln(w, s.Identity()); err != nil {
			return err
		}
		for _, r := range s.Results {
			if _, err := fmt.Fprintf(w, "[%s] %s\n", label(r.Status), r.Message); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w, Delimiter); err != nil {
			return err
		}
	}
	return nil
}

func label(s compliance.Status) string {
	if s == "" {
		return "UNKNOWN"
	}
	return strings.ToUpper(string(s))
}
