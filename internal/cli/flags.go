package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/TwoAbove/lc/internal/tokenizer"
)

const (
	booleanFlagTypeName     = "bool"
	booleanFlagTrueLiteral  = "true"
	booleanFlagAcceptedList = "true, false, yes, no, on, off, 1, 0"
	invalidBooleanFormat    = "invalid boolean value %q for %s; accepted values: %s"
	longFlagPrefix          = "--"
	shortFlagPrefix         = "-"
	flagValueSeparator      = "="
	argumentsTerminator     = "--"
)

var booleanLiterals = map[string]bool{
	"true":  true,
	"t":     true,
	"1":     true,
	"yes":   true,
	"y":     true,
	"on":    true,
	"false": false,
	"f":     false,
	"0":     false,
	"no":    false,
	"n":     false,
	"off":   false,
}

func parseBooleanLiteral(input string) (bool, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		normalized = booleanFlagTrueLiteral
	}
	parsed, known := booleanLiterals[normalized]
	return parsed, known
}

// tolerantBool is a pflag.Value accepting the literals in booleanLiterals, so
// that configuration-style values like "no" or "off" work on the command line.
type tolerantBool struct {
	target *bool
	label  string
}

func (value *tolerantBool) Set(input string) error {
	parsed, known := parseBooleanLiteral(input)
	if !known {
		return fmt.Errorf(invalidBooleanFormat, input, value.label, booleanFlagAcceptedList)
	}
	*value.target = parsed
	return nil
}

func (value *tolerantBool) String() string {
	if value.target == nil {
		return strconv.FormatBool(false)
	}
	return strconv.FormatBool(*value.target)
}

func (value *tolerantBool) Type() string {
	return booleanFlagTypeName
}

// registerBooleanFlag registers a tolerant boolean flag. A bare flag sets it to true.
func registerBooleanFlag(flagSet *pflag.FlagSet, target *bool, name string, shorthand string, defaultValue bool, usage string) {
	*target = defaultValue
	label := longFlagPrefix + name
	if shorthand != "" {
		label = shortFlagPrefix + shorthand + "/" + label
	}
	flagSet.VarP(&tolerantBool{target: target, label: label}, name, shorthand, usage)
	flag := flagSet.Lookup(name)
	flag.DefValue = strconv.FormatBool(defaultValue)
	flag.NoOptDefVal = booleanFlagTrueLiteral
}

// registerSnapshotFlags registers the snapshot flags as persistent flags so
// that the watch subcommand accepts them as well.
func registerSnapshotFlags(command *cobra.Command, flags *snapshotFlags) {
	flagSet := command.PersistentFlags()
	registerBooleanFlag(flagSet, &flags.directoryOnly, directoryOnlyFlagName, directoryOnlyShorthand, false, directoryOnlyFlagDescription)
	flagSet.IntVarP(&flags.tokenLimit, tokenLimitFlagName, tokenLimitShorthand, tokenizer.DefaultTokenLimit, tokenLimitFlagDescription)
	flagSet.StringVar(&flags.model, modelFlagName, tokenizer.DefaultEncodingName, modelFlagDescription)
	flagSet.StringVarP(&flags.output, outputFlagName, outputShorthand, "", outputFlagDescription)
	registerBooleanFlag(flagSet, &flags.stdout, stdoutFlagName, "", false, stdoutFlagDescription)
	registerBooleanFlag(flagSet, &flags.disableGitignore, noGitignoreFlagName, "", false, noGitignoreFlagDescription)
	registerBooleanFlag(flagSet, &flags.disableGlobal, noGlobalIgnoreFlagName, "", false, noGlobalIgnoreFlagDescription)
	flagSet.StringArrayVarP(&flags.exclusionPatterns, exclusionFlagName, exclusionShorthand, nil, exclusionFlagDescription)
	flagSet.IntVar(&flags.concurrency, concurrencyFlagName, 0, concurrencyFlagDescription)
	flagSet.StringVar(&flags.configPath, configFlagName, "", configFlagDescription)
	registerBooleanFlag(flagSet, &flags.debug, debugFlagName, "", false, debugFlagDescription)
}

// booleanFlagNames collects the long names and shorthands of every tolerant
// boolean flag in the command tree, each mapped to its canonical long form.
func booleanFlagNames(command *cobra.Command) map[string]string {
	names := map[string]string{}
	var visit func(*cobra.Command)
	collect := func(flag *pflag.Flag) {
		if flag.Value.Type() != booleanFlagTypeName {
			return
		}
		names[longFlagPrefix+flag.Name] = flag.Name
		if flag.Shorthand != "" {
			names[shortFlagPrefix+flag.Shorthand] = flag.Name
		}
	}
	visit = func(current *cobra.Command) {
		current.PersistentFlags().VisitAll(collect)
		current.Flags().VisitAll(collect)
		for _, child := range current.Commands() {
			visit(child)
		}
	}
	visit(command)
	return names
}

// normalizeBooleanFlagArguments joins a boolean flag with a following boolean
// literal, turning "--stdout no" or "-d off" into "--stdout=no" and
// "--directory-only=off". pflag would otherwise treat the literal as a positional
// argument because the flags take no required value.
func normalizeBooleanFlagArguments(command *cobra.Command, arguments []string) []string {
	names := booleanFlagNames(command)
	normalized := make([]string, 0, len(arguments))
	for index := 0; index < len(arguments); index++ {
		argument := arguments[index]
		if argument == argumentsTerminator {
			return append(normalized, arguments[index:]...)
		}
		flagName, isBoolean := names[argument]
		if isBoolean && !strings.Contains(argument, flagValueSeparator) && index+1 < len(arguments) {
			next := arguments[index+1]
			if _, known := parseBooleanLiteral(next); known && strings.TrimSpace(next) != "" && !strings.HasPrefix(next, shortFlagPrefix) {
				normalized = append(normalized, longFlagPrefix+flagName+flagValueSeparator+next)
				index++
				continue
			}
		}
		normalized = append(normalized, argument)
	}
	return normalized
}
