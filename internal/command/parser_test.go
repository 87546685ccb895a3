// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/hitreg/pkg/errutil"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantCmd  string
		wantArgs string
	}{
		{name: "simple command", input: "toggle", wantCmd: "toggle"},
		{name: "command with args", input: "world add nether", wantCmd: "world", wantArgs: "add nether"},
		{name: "leading whitespace", input: "   status", wantCmd: "status"},
		{name: "trailing whitespace", input: "status   ", wantCmd: "status"},
		{name: "preserves internal arg whitespace", input: "world   add    nether", wantCmd: "world", wantArgs: "add    nether"},
		{name: "tab separator", input: "world\tlist", wantCmd: "world", wantArgs: "list"},
		{name: "lowercases name", input: "TOGGLE", wantCmd: "toggle"},
		{name: "slash prefix", input: "/hitreg debug", wantCmd: "debug"},
		{name: "bare prefix", input: "hitreg world list", wantCmd: "world", wantArgs: "list"},
		{name: "prefix must be a whole word", input: "hitregs", wantCmd: "hitregs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCmd, got.Name)
			assert.Equal(t, tt.wantArgs, got.Args)
			assert.Equal(t, tt.input, got.Raw)
		})
	}
}

func TestParse_Empty(t *testing.T) {
	for _, input := range []string{"", "   ", "/hitreg", "hitreg  "} {
		_, err := Parse(input)
		errutil.AssertErrorCode(t, err, CodeEmptyInput)
	}
}
