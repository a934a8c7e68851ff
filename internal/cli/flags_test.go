package cli

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
)

func TestRegisterBooleanFlagParsesValues(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name         string
		defaultValue bool
		arguments    []string
		expected     bool
		expectError  bool
	}{
		{name: "defaults_to_false", arguments: []string{}, expected: false},
		{name: "sets_true_without_value", arguments: []string{"--feature"}, expected: true},
		{name: "sets_true_with_shorthand", arguments: []string{"-f"}, expected: true},
		{name: "sets_false_with_equals", defaultValue: true, arguments: []string{"--feature=false"}, expected: false},
		{name: "sets_false_with_no_literal", defaultValue: true, arguments: []string{"--feature", "no"}, expected: false},
		{name: "sets_false_with_shorthand_literal", defaultValue: true, arguments: []string{"-f", "off"}, expected: false},
		{name: "sets_true_with_on_literal", arguments: []string{"--feature", "on"}, expected: true},
		{name: "ignores_non_boolean_trailing_value", arguments: []string{"--feature", "maybe"}, expected: true},
		{name: "rejects_invalid_literal", arguments: []string{"--feature=maybe"}, expectError: true},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			command := &cobra.Command{Use: "boolean-test"}
			flagValue := !testCase.defaultValue
			registerBooleanFlag(command.Flags(), &flagValue, "feature", "f", testCase.defaultValue, "toggle feature behavior")
			parseErr := command.ParseFlags(normalizeBooleanFlagArguments(command, testCase.arguments))
			if testCase.expectError {
				if parseErr == nil {
					t.Fatalf("expected parse error for arguments %v", testCase.arguments)
				}
				return
			}
			if parseErr != nil {
				t.Fatalf("unexpected parse error: %v", parseErr)
			}
			if flagValue != testCase.expected {
				t.Fatalf("expected %t, got %t", testCase.expected, flagValue)
			}
		})
	}
}

func TestNormalizeBooleanFlagArguments(t *testing.T) {
	rootCommand := createRootCommand(environment{})
	testCases := []struct {
		name      string
		arguments []string
		expected  []string
	}{
		{
			name:      "long_flag_with_literal",
			arguments: []string{"--stdout", "no", "./src"},
			expected:  []string{"--stdout=no", "./src"},
		},
		{
			name:      "shorthand_with_literal",
			arguments: []string{"-d", "yes"},
			expected:  []string{"--directory-only=yes"},
		},
		{
			name:      "positional_after_flag",
			arguments: []string{"-d", "./src"},
			expected:  []string{"-d", "./src"},
		},
		{
			name:      "subcommand_flag",
			arguments: []string{"config", "init", "--force", "true"},
			expected:  []string{"config", "init", "--force=true"},
		},
		{
			name:      "non_boolean_flag_untouched",
			arguments: []string{"-t", "1", "--", "--stdout", "no"},
			expected:  []string{"-t", "1", "--", "--stdout", "no"},
		},
	}
	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			if diff := cmp.Diff(testCase.expected, normalizeBooleanFlagArguments(rootCommand, testCase.arguments)); diff != "" {
				t.Fatalf("unexpected arguments (-want +got):\n%s", diff)
			}
		})
	}
}
