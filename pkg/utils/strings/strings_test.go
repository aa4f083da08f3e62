package strings_test

import (
	"testing"

	"github.com/omniphi/orchestrator/pkg/utils/cmp"
	kstrings "github.com/omniphi/orchestrator/pkg/utils/strings"
)

func TestEnsureSuffix(t *testing.T) {
	for name, testcase := range map[string]struct {
		s, suffix string
		expected  string
	}{
		"it appends missing suffix":       {"abc", "/", "abc/"},
		"it keeps existing suffix":        {"abc/", "/", "abc/"},
		"it appends to empty string":      {"", "/", "/"},
		"it handles multi-rune suffixes":  {"abc", "://", "abc://"},
		"it keeps multi-rune suffixes":    {"abc://", "://", "abc://"},
		"empty suffix changes nothing":    {"abc", "", "abc"},
		"suffix inside string is ignored": {"a/bc", "/", "a/bc/"},
	} {
		t.Run(name, func(t *testing.T) {
			if actual := kstrings.EnsureSuffix(testcase.s, testcase.suffix); actual != testcase.expected {
				t.Errorf(
					"EnsureSuffix(%q, %q) = %q (expected: %q)",
					testcase.s, testcase.suffix, actual, testcase.expected,
				)
			}
		})
	}
}

func TestSplitIfNotEmpty(t *testing.T) {
	for name, testcase := range map[string]struct {
		s, sep   string
		expected []string
	}{
		"it splits on separator":          {"a,b,c", ",", []string{"a", "b", "c"}},
		"it keeps string with no sep":     {"abc", ",", []string{"abc"}},
		"empty string yields empty slice": {"", ",", []string{}},
		"it keeps empty fields":           {"a,,c", ",", []string{"a", "", "c"}},
	} {
		t.Run(name, func(t *testing.T) {
			actual := kstrings.SplitIfNotEmpty(testcase.s, testcase.sep)
			if !cmp.SliceEq(actual, testcase.expected) {
				t.Errorf(
					"SplitIfNotEmpty(%q, %q) = %v (expected: %v)",
					testcase.s, testcase.sep, actual, testcase.expected,
				)
			}
		})
	}
}

func TestTrimPrefixAll(t *testing.T) {
	for name, testcase := range map[string]struct {
		s, prefix string
		expected  string
	}{
		"it trims a single prefix":        {"/abc", "/", "abc"},
		"it trims repeated prefixes":      {"///abc", "/", "abc"},
		"it keeps string with no prefix":  {"abc", "/", "abc"},
		"it keeps inner occurrences":      {"//a/bc", "/", "a/bc"},
		"empty prefix changes nothing":    {"abc", "", "abc"},
		"it can consume the whole string": {"///", "/", ""},
	} {
		t.Run(name, func(t *testing.T) {
			if actual := kstrings.TrimPrefixAll(testcase.s, testcase.prefix); actual != testcase.expected {
				t.Errorf(
					"TrimPrefixAll(%q, %q) = %q (expected: %q)",
					testcase.s, testcase.prefix, actual, testcase.expected,
				)
			}
		})
	}
}
