package config

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
)

// maxLevenshteinDistance is the maximum edit distance for "did you mean?"
// suggestions when unknown config keys are detected.
const maxLevenshteinDistance = 3

// knownKeys are the valid top-level keys in the config file.
var knownKeys = map[string]bool{
	// Provider
	"endpoint": true, "api_key": true, "secret_key": true,
	// Cache
	"cache_backend": true, "cache_path": true, "redis_addr": true,
	"redis_db": true, "redis_password": true, "redis_prefix": true,
	// Logging
	"log_level": true, "log_format": true,
	// Network
	"timeout": true,
}

// knownKeysList is knownKeys sorted, so ties in edit distance resolve the
// same way every run.
var knownKeysList = slices.Sorted(maps.Keys(knownKeys))

// checkUnknownKeys inspects TOML metadata for undecoded keys and returns
// an error with "did you mean?" suggestions for each unknown key.
func checkUnknownKeys(md *toml.MetaData) error {
	var errs []error

	for _, key := range md.Undecoded() {
		errs = append(errs, unknownKeyError(key.String()))
	}

	return errors.Join(errs...)
}

// unknownKeyError describes one unknown key. Keys inside a table are
// reported by their leaf name, since the config has no tables at all.
func unknownKeyError(keyStr string) error {
	parts := strings.Split(keyStr, ".")
	leaf := parts[len(parts)-1]

	where := ""
	if len(parts) > 1 {
		where = fmt.Sprintf(" in table [%s] (config keys are flat)", strings.Join(parts[:len(parts)-1], "."))
	}

	if suggestion := closestMatch(leaf, knownKeysList); suggestion != "" {
		return fmt.Errorf("unknown config key %q%s: did you mean %q?", leaf, where, suggestion)
	}

	return fmt.Errorf("unknown config key %q%s", leaf, where)
}

// closestMatch finds the closest known key by Levenshtein distance.
// Returns empty string if no match is within maxLevenshteinDistance.
func closestMatch(unknown string, known []string) string {
	best := ""
	bestDist := maxLevenshteinDistance + 1

	for _, k := range known {
		if d := levenshtein(unknown, k); d < bestDist {
			bestDist = d
			best = k
		}
	}

	return best
}

// levenshtein computes the edit distance between two strings using two
// rolling rows.
func levenshtein(a, b string) int {
	if a == "" {
		return len(b)
	}

	if b == "" {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for j := range prev {
		prev[j] = j
	}

	for i := range len(a) {
		curr[0] = i + 1

		for j := range len(b) {
			cost := 1
			if a[i] == b[j] {
				cost = 0
			}

			curr[j+1] = min(curr[j]+1, prev[j+1]+1, prev[j]+cost)
		}

		prev, curr = curr, prev
	}

	return prev[len(b)]
}
