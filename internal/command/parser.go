// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import (
	"strings"

	"github.com/samber/oops"
)

// ParsedCommand represents a parsed command input.
type ParsedCommand struct {
	Name string // lowercased subcommand (first whitespace-delimited token)
	Args string // unparsed argument string (preserves internal whitespace)
	Raw  string // original input
}

// Parse splits raw input into subcommand name and arguments.
// A leading "/hitreg" or "hitreg" token is accepted and skipped.
func Parse(input string) (*ParsedCommand, error) {
	trimmed := strings.TrimSpace(input)
	for _, prefix := range []string{"/hitreg", "hitreg"} {
		if rest, ok := cutToken(trimmed, prefix); ok {
			trimmed = rest
			break
		}
	}
	if trimmed == "" {
		return nil, oops.Code(CodeEmptyInput).Errorf("no command provided")
	}

	idx := strings.IndexAny(trimmed, " \t")
	if idx == -1 {
		return &ParsedCommand{
			Name: strings.ToLower(trimmed),
			Raw:  input,
		}, nil
	}

	return &ParsedCommand{
		Name: strings.ToLower(trimmed[:idx]),
		Args: strings.TrimLeft(trimmed[idx+1:], " \t"),
		Raw:  input,
	}, nil
}

// cutToken removes token from the front of s when it is a whole word.
func cutToken(s, token string) (string, bool) {
	if !strings.HasPrefix(strings.ToLower(s), token) {
		return s, false
	}
	rest := s[len(token):]
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
		return s, false
	}
	return strings.TrimLeft(rest, " \t"), true
}
