package util

import (
	"sort"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// OrDash returns the string if non-empty, otherwise returns "-".
func OrDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// JoinOrDash joins the provided strings with ", " as separator.
// If no items are provided, it returns "-".
func JoinOrDash(items ...string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

// ShellJoin quotes each argument for a POSIX shell where needed and joins
// them with spaces, so the result can be pasted into a terminal.
func ShellJoin(args []string) string {
	quoted := make([]string, len(args))
	for i, arg := range args {
		q, err := syntax.Quote(arg, syntax.LangPOSIX)
		if err != nil {
			q = arg
		}
		quoted[i] = q
	}
	return strings.Join(quoted, " ")
}

// FormatEnv renders an environment map as sorted KEY=VALUE pairs.
func FormatEnv(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + ShellJoin([]string{env[k]})
	}
	return pairs
}
