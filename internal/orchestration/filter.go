package orchestration

import (
	"fmt"
	"path/filepath"

	"github.com/microsoft/sweep/internal/models"
)

// FilterSearches returns the searches whose name or family matches at least
// one of the given glob patterns, in their original order. An empty
// patterns slice returns all searches unchanged.
func FilterSearches(searches []models.SearchSpec, patterns []string) ([]models.SearchSpec, error) {
	if len(patterns) == 0 {
		return searches, nil
	}

	var matched []models.SearchSpec
	for _, s := range searches {
		ok, err := matchesAny(&s, patterns)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, s)
		}
	}
	return matched, nil
}

// matchesAny reports whether a search's label or family matches any pattern.
func matchesAny(s *models.SearchSpec, patterns []string) (bool, error) {
	for _, p := range patterns {
		nameMatch, err := filepath.Match(p, s.Label())
		if err != nil {
			return false, fmt.Errorf("invalid search filter pattern %q: %w", p, err)
		}
		if nameMatch {
			return true, nil
		}
		familyMatch, err := filepath.Match(p, s.Family)
		if err != nil {
			return false, fmt.Errorf("invalid search filter pattern %q: %w", p, err)
		}
		if familyMatch {
			return true, nil
		}
	}
	return false, nil
}
