package siril

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestCommand_String verifies script-line rendering, including quoting of
// arguments that contain whitespace.
func TestCommand_String(t *testing.T) {
	tests := []struct {
		name     string
		cmd      Command
		expected string
	}{
		{"cd plain", Cd("/data/m42"), "cd /data/m42"},
		{"cd with space", Cd("/data/my images"), `cd "/data/my images"`},
		{"setext strips dot", SetExt(".fits"), "setext fits"},
		{"load", Load("m42"), "load m42"},
		{"set16bits", Set16Bits(), "set16bits"},
		{"set32bits", Set32Bits(), "set32bits"},
		{"savetif", SaveTIF("m42"), "savetif m42"},
		{"save", Save("m42_starless"), "save m42_starless"},
		{"fmul keeps decimal", Fmul(1), "fmul 1.0"},
		{"fmul fraction", Fmul(0.75), "fmul 0.75"},
		{"isub", Isub("m42_starless"), "isub m42_starless"},
		{"requires", Requires("1.2.0"), "requires 1.2.0"},
		{"empty arg", Load(""), `load ""`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.cmd.String())
		})
	}
}

func TestCommand_Sticky(t *testing.T) {
	assert.True(t, Cd("/tmp").sticky())
	assert.True(t, SetExt("fit").sticky())
	assert.False(t, Load("m42").sticky())
	assert.False(t, Save("m42").sticky())
}
