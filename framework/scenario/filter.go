package scenario

import (
	"fmt"
	"regexp"
	"strings"
)

// Filter decides whether a scenario runs.
type Filter func(ID) bool

// Pattern matches IDs component by component: "sandbox/dev" matches any ID whose first
// name matches "sandbox" and whose second matches "dev".
type Pattern []*regexp.Regexp

func ParsePattern(s string) (Pattern, error) {
	parts := strings.Split(s, "/")
	p := make(Pattern, 0, len(parts))
	for _, part := range parts {
		rx, err := regexp.Compile(part)
		if err != nil {
			return nil, fmt.Errorf("invalid regex: %w", err)
		}
		p = append(p, rx)
	}
	return p, nil
}

// Match compares id with the pattern. If id is shorter than the pattern, it matches only
// if includeParents is true and its components all match.
func (p Pattern) Match(id ID, includeParents bool) bool {
	n := len(p)
	if n > len(id) {
		if !includeParents {
			return false
		}
		n = len(id)
	}
	for i := 0; i < n; i++ {
		if !p[i].MatchString(id[i]) {
			return false
		}
	}
	return true
}

func (p Pattern) String() string {
	parts := make([]string, 0, len(p))
	for _, rx := range p {
		parts = append(parts, rx.String())
	}
	return strings.Join(parts, "/")
}

// PatternList is a flag.Value that accumulates patterns.
type PatternList []Pattern

func (l PatternList) String() string {
	parts := make([]string, 0, len(l))
	for _, p := range l {
		parts = append(parts, `"`+p.String()+`"`)
	}
	return strings.Join(parts, " or ")
}

func (l *PatternList) Set(value string) error {
	p, err := ParsePattern(value)
	if err != nil {
		return err
	}
	*l = append(*l, p)
	return nil
}

func (l PatternList) AnyMatch(id ID, includeParents bool) bool {
	for _, p := range l {
		if p.Match(id, includeParents) {
			return true
		}
	}
	return false
}

// Filters selects scenarios from -run and -skip patterns. A parent of a scenario that
// matches Run is also run, and Skip wins over Run.
type Filters struct {
	Run  PatternList
	Skip PatternList
}

func (f Filters) Match(id ID) bool {
	return (len(f.Run) == 0 || f.Run.AnyMatch(id, true)) && !f.Skip.AnyMatch(id, false)
}

// Describe returns a human-readable summary of the filters, or "" if there are none.
func (f Filters) Describe() string {
	var lines []string
	if len(f.Run) != 0 {
		lines = append(lines, fmt.Sprintf("  skip any not matching %s", f.Run))
	}
	if len(f.Skip) != 0 {
		lines = append(lines, fmt.Sprintf("  skip any matching %s", f.Skip))
	}
	return strings.Join(lines, "\n")
}
