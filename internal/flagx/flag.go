// Package flagx lets several configuration layers share one command line:
// each layer filters out the flags it owns before handing them to a FlagSet.
package flagx

import (
	"flag"
	"io"
	"os"
	"strings"
)

// FilterArgs returns the subset of args naming one of allowedFlags, together
// with the value that follows a flag when it is passed as a separate argument.
//
// Both "-k value" and "-k=value" forms are understood. A following argument
// that starts with "-" is never consumed as a value.
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if name, _, ok := strings.Cut(arg, "="); ok && strings.HasPrefix(arg, "-") {
			if _, ok := allowed[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, ok := allowed[arg]; !ok {
			continue
		}
		filtered = append(filtered, arg)
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			filtered = append(filtered, args[i+1])
			i++
		}
	}

	return filtered
}

// ConfigPath returns the JSON config file named by -c/-config in args, or,
// when neither flag is present, the value of the envKey environment variable.
// An empty result means no file should be loaded.
func ConfigPath(args []string, envKey string) string {
	var path string

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&path, "config", "", "path to JSON config file")
	fs.StringVar(&path, "c", "", "path to JSON config file (short)")
	_ = fs.Parse(FilterArgs(args, []string{"-c", "-config"}))

	if path == "" && envKey != "" {
		path = os.Getenv(envKey)
	}
	return path
}

// Overlay copies *src into *dst when src is set. JSON config structs use
// pointer fields so an absent key leaves the earlier layer's value alone.
func Overlay[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
