// Package grid enumerates the candidate configurations of a sweep.
package grid

import (
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/microsoft/sweep/internal/models"
)

// MaxCandidates bounds the size of a single search.
const MaxCandidates = 1 << 20

// Entry is one enumerated candidate and the search it came from.
type Entry struct {
	Search    string
	Candidate models.CandidateConfig
}

// Enumerate expands every search in order and concatenates the results.
// The position of an entry in the returned slice is its enumeration index.
func Enumerate(searches []models.SearchSpec) ([]Entry, error) {
	var out []Entry
	for i := range searches {
		s := &searches[i]
		candidates, err := Expand(s)
		if err != nil {
			return nil, err
		}
		for _, c := range candidates {
			out = append(out, Entry{Search: s.Label(), Candidate: c})
		}
	}
	return out, nil
}

// Candidates strips the search labels.
func Candidates(entries []Entry) []models.CandidateConfig {
	out := make([]models.CandidateConfig, len(entries))
	for i, e := range entries {
		out[i] = e.Candidate
	}
	return out
}

// Expand returns the candidates of one search. Grid params form a Cartesian
// product whose first param is the outermost loop, so
//
//	n_estimators: [10, 20], max_depth: [1, 2]
//
// yields (10,1) (10,2) (20,1) (20,2). Fixed params are appended to every
// candidate. A search with neither params nor candidates yields a single
// candidate holding only its fixed params.
func Expand(s *models.SearchSpec) ([]models.CandidateConfig, error) {
	fixed, err := s.FixedParams()
	if err != nil {
		return nil, err
	}

	if len(s.Candidates) > 0 {
		return explicit(s, fixed)
	}
	if n := Size(s); n > MaxCandidates {
		return nil, fmt.Errorf("search %q: %d candidates exceeds the limit of %d", s.Label(), n, MaxCandidates)
	}

	axes := make([][]any, len(s.Params))
	seen := map[string]bool{}
	for i, p := range s.Params {
		if seen[p.Name] {
			return nil, fmt.Errorf("search %q: param %q listed twice", s.Label(), p.Name)
		}
		seen[p.Name] = true
		if axes[i], err = values(p); err != nil {
			return nil, fmt.Errorf("search %q: %w", s.Label(), err)
		}
	}
	for _, f := range fixed {
		if seen[f.Name] {
			return nil, fmt.Errorf("search %q: param %q is both swept and fixed", s.Label(), f.Name)
		}
	}

	var out []models.CandidateConfig
	current := make([]models.Param, len(s.Params))
	var walk func(depth int)
	walk = func(depth int) {
		if depth == len(axes) {
			params := append(slices.Clone(current), fixed...)
			out = append(out, models.NewCandidateConfig(s.Family, params...))
			return
		}
		for _, v := range axes[depth] {
			current[depth] = models.Param{Name: s.Params[depth].Name, Value: v}
			walk(depth + 1)
		}
	}
	walk(0)
	return out, nil
}

// Size is the number of candidates Expand would return, without building them.
// It saturates at math.MaxInt and is 0 when a param is invalid.
func Size(s *models.SearchSpec) int {
	if len(s.Candidates) > 0 {
		return len(s.Candidates)
	}
	n := uint64(1)
	for _, p := range s.Params {
		k, err := count(p)
		if err != nil {
			return 0
		}
		if k != 0 && n > math.MaxInt/k {
			return math.MaxInt
		}
		n *= k
	}
	return int(n)
}

// count is the number of values of p.
func count(p models.ParamSpec) (uint64, error) {
	if p.Range == nil {
		if len(p.Values) == 0 {
			return 0, fmt.Errorf("param %q has no values", p.Name)
		}
		return uint64(len(p.Values)), nil
	}

	r := p.Range
	step := r.Step
	if step == 0 {
		step = 1
	}
	if step < 0 || r.To < r.From {
		return 0, fmt.Errorf("param %q: invalid range [%d, %d] step %d", p.Name, r.From, r.To, r.Step)
	}
	// To-From wraps for wide ranges but is exact as unsigned.
	d := uint64(r.To-r.From) / uint64(step)
	if d >= math.MaxInt {
		return math.MaxInt, nil
	}
	return d + 1, nil
}

func values(p models.ParamSpec) ([]any, error) {
	n, err := count(p)
	if err != nil {
		return nil, err
	}
	if p.Range == nil {
		return p.Values, nil
	}
	if n > MaxCandidates {
		return nil, fmt.Errorf("param %q: range [%d, %d] has %d values, more than %d", p.Name, p.Range.From, p.Range.To, n, MaxCandidates)
	}

	step := p.Range.Step
	if step == 0 {
		step = 1
	}
	out := make([]any, 0, n)
	for i := uint64(0); i < n; i++ {
		out = append(out, p.Range.From+int(i*uint64(step)))
	}
	return out, nil
}

// explicit builds candidates from listed parameter sets. Maps carry no
// order, so names are sorted; fixed params come last.
func explicit(s *models.SearchSpec, fixed []models.Param) ([]models.CandidateConfig, error) {
	out := make([]models.CandidateConfig, 0, len(s.Candidates))
	for i, set := range s.Candidates {
		params := make([]models.Param, 0, len(set)+len(fixed))
		for _, name := range slices.Sorted(maps.Keys(set)) {
			params = append(params, models.Param{Name: name, Value: set[name]})
		}
		for _, f := range fixed {
			if _, ok := set[f.Name]; ok {
				return nil, fmt.Errorf("search %q: candidates[%d] overrides fixed param %q", s.Label(), i, f.Name)
			}
			params = append(params, f)
		}
		out = append(out, models.NewCandidateConfig(s.Family, params...))
	}
	return out, nil
}
