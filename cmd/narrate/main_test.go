package main

import (
	"flag"
	"os"
	"strings"
	"testing"
)

const testExpectedTextFlag = "Expected text flag %q, got %q"

// TestMainFlags verifies that command-line flags are parsed correctly.
func TestMainFlags(t *testing.T) {
	t.Parallel()
	// Save original command line args to restore them after the test.
	oldArgs := os.Args

	t.Cleanup(func() { os.Args = oldArgs })

	tests := []struct {
		name     string
		wantText string
		args     []string
	}{
		{
			name:     "text flag parsing",
			args:     []string{"cmd", "--text", "Hello, slide one."},
			wantText: "Hello, slide one.",
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			// Reset flag parsing state for each test run to ensure isolation.
			flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ExitOnError)

			os.Args = testCase.args

			textFlag := flag.String(flagText, "", flagTextDesc)
			flag.Parse()

			if *textFlag != testCase.wantText {
				t.Errorf(
					testExpectedTextFlag,
					testCase.wantText,
					*textFlag,
				)
			}
		})
	}
}

// TestValidateFlags verifies the required and conflicting flag combinations at
// the application's boundary.
func TestValidateFlags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		flags         appFlags
		expectedError string
		wantErr       bool
	}{
		{
			name:          "one-shot synthesis",
			flags:         appFlags{text: "some narration"},
			wantErr:       false,
			expectedError: "",
		},
		{
			name:          "script rendering",
			flags:         appFlags{scripts: "scripts.json"},
			wantErr:       false,
			expectedError: "",
		},
		{
			name: "clone workflow with voice id",
			flags: appFlags{
				cloneSample: "sample.wav",
				cloneVoice:  "my-voice",
			},
			wantErr:       false,
			expectedError: "",
		},
		{
			name:          "narration generation",
			flags:         appFlags{prompt: "Narrate this slide."},
			wantErr:       false,
			expectedError: "",
		},
		{
			name:          "configuration check",
			flags:         appFlags{check: true},
			wantErr:       false,
			expectedError: "",
		},
		{
			name:          "clone sample without voice id",
			flags:         appFlags{cloneSample: "sample.wav"},
			wantErr:       true,
			expectedError: errCloneVoiceNeeded,
		},
		{
			name:          "no mode selected",
			flags:         appFlags{},
			wantErr:       true,
			expectedError: errNoModeSelected,
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			err := validateFlags(testCase.flags)

			if !testCase.wantErr {
				if err != nil {
					t.Fatalf("Expected no error, got: %v", err)
				}

				return
			}

			if err == nil {
				t.Fatal("Expected a validation error, got nil")
			}

			if !strings.Contains(err.Error(), testCase.expectedError) {
				t.Errorf(
					"Expected error containing %q, got %q",
					testCase.expectedError,
					err.Error(),
				)
			}
		})
	}
}
