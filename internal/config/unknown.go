package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// maxLevenshteinDistance is the maximum edit distance for "did you mean?"
// suggestions when unknown config keys are detected.
const maxLevenshteinDistance = 3

// knownKeys are the valid keys in the config file, nested sections in
// dotted form.
var knownKeys = map[string]bool{
	"base_dir": true, "start_dir": true, "allow_outside_root": true,
	"host": true, "port": true,
	"engine.workers": true, "engine.queue_capacity": true,
	"engine.bandwidth_limit": true, "engine.task_ttl": true,
	"logging.log_level": true, "logging.log_format": true,
}

// knownKeysList is the sorted slice form of knownKeys for Levenshtein
// matching. Sorted for deterministic suggestions when two candidates have
// the same edit distance.
var knownKeysList = func() []string {
	keys := make([]string, 0, len(knownKeys))
	for k := range knownKeys {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}()

// checkUnknownKeys inspects TOML metadata for undecoded keys and returns
// an error with "did you mean?" suggestions for each unknown key.
func checkUnknownKeys(md *toml.MetaData) error {
	undecoded := md.Undecoded()
	if len(undecoded) == 0 {
		return nil
	}

	var errs []error

	for _, key := range undecoded {
		keyStr := key.String()

		suggestion := closestMatch(keyStr, knownKeysList)
		if suggestion != "" {
			errs = append(errs, fmt.Errorf("unknown config key %q — did you mean %q?", keyStr, suggestion))
		} else {
			errs = append(errs, fmt.Errorf("unknown config key %q", keyStr))
		}
	}

	return errors.Join(errs...)
}

// closestMatch finds the closest known key by Levenshtein distance over the
// leaf segment. Returns empty string if no match is within
// maxLevenshteinDistance.
func closestMatch(unknown string, known []string) string {
	leaf := unknown
	if i := strings.LastIndex(unknown, "."); i >= 0 {
		leaf = unknown[i+1:]
	}

	best := ""
	bestDist := maxLevenshteinDistance + 1

	for _, k := range known {
		candidate := k
		if i := strings.LastIndex(k, "."); i >= 0 {
			candidate = k[i+1:]
		}

		d := levenshtein(leaf, candidate)
		if d < bestDist {
			bestDist = d
			best = k
		}
	}

	if bestDist <= maxLevenshteinDistance {
		return best
	}

	return ""
}

// levenshtein computes the edit distance between two strings using the
// single-row optimization.
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

			curr[j+1] = minOf(curr[j]+1, prev[j+1]+1, prev[j]+cost)
		}

		prev, curr = curr, prev
	}

	return prev[len(b)]
}

// minOf returns the minimum of three integers.
func minOf(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}

	if c < m {
		m = c
	}

	return m
}
