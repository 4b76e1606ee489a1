package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	toggleFlagTypeName       = "toggle"
	toggleFlagImpliedLiteral = "true"
	toggleFlagAcceptedValues = "true, false, yes, no, on, off, 1, 0"
)

var toggleLiterals = map[string]bool{
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

func parseToggleLiteral(input string) (bool, bool) {
	value, known := toggleLiterals[strings.ToLower(strings.TrimSpace(input))]
	return value, known
}

// toggleValue is a boolean flag that also accepts yes/no style literals, either
// attached with "=" or as the following argument.
type toggleValue struct {
	target *bool
	name   string
}

func (value *toggleValue) Set(input string) error {
	if strings.TrimSpace(input) == "" {
		input = toggleFlagImpliedLiteral
	}
	parsed, known := parseToggleLiteral(input)
	if !known {
		return fmt.Errorf("invalid value %q for --%s; accepted values: %s", input, value.name, toggleFlagAcceptedValues)
	}
	*value.target = parsed
	return nil
}

func (value *toggleValue) String() string {
	if value == nil || value.target == nil {
		return strconv.FormatBool(false)
	}
	return strconv.FormatBool(*value.target)
}

func (value *toggleValue) Type() string {
	return toggleFlagTypeName
}

func registerToggle(flagSet *pflag.FlagSet, target *bool, name string, defaultValue bool, usage string) {
	*target = defaultValue
	flagSet.Var(&toggleValue{target: target, name: name}, name, usage)
	flag := flagSet.Lookup(name)
	flag.DefValue = strconv.FormatBool(defaultValue)
	flag.NoOptDefVal = toggleFlagImpliedLiteral
}

// joinToggleArguments rewrites "--flag no" into "--flag=no" for every toggle flag of
// command and its subcommands, so the literal is not taken for a positional argument.
func joinToggleArguments(command *cobra.Command, arguments []string) []string {
	toggles := map[string]struct{}{}
	collectToggleNames(command, toggles)
	if len(toggles) == 0 {
		return arguments
	}
	joined := make([]string, 0, len(arguments))
	for index := 0; index < len(arguments); index++ {
		argument := arguments[index]
		if argument == "--" {
			joined = append(joined, arguments[index:]...)
			break
		}
		name, isLongFlag := strings.CutPrefix(argument, "--")
		_, isToggle := toggles[name]
		if isLongFlag && isToggle && index+1 < len(arguments) {
			if _, known := parseToggleLiteral(arguments[index+1]); known {
				joined = append(joined, argument+"="+arguments[index+1])
				index++
				continue
			}
		}
		joined = append(joined, argument)
	}
	return joined
}

func collectToggleNames(command *cobra.Command, names map[string]struct{}) {
	collect := func(flag *pflag.Flag) {
		if flag.Value.Type() == toggleFlagTypeName {
			names[flag.Name] = struct{}{}
		}
	}
	command.PersistentFlags().VisitAll(collect)
	command.Flags().VisitAll(collect)
	for _, child := range command.Commands() {
		collectToggleNames(child, names)
	}
}
