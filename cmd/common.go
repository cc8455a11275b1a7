package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/helmcode/healctl/pkg/config"
	"github.com/helmcode/healctl/pkg/model"
)

// categoryAliases maps shorthand names accepted on the command line.
var categoryAliases = map[string]model.Category{
	"k8s":       model.CategoryKubernetes,
	"kube":      model.CategoryKubernetes,
	"iac":       model.CategoryInfraAsCode,
	"terraform": model.CategoryInfraAsCode,
	"tf":        model.CategoryInfraAsCode,
	"hcl":       model.CategoryInfraAsCode,
	"ci":        model.CategoryCIWorkflow,
	"github":    model.CategoryCIWorkflow,
	"workflow":  model.CategoryCIWorkflow,
	"logs":      model.CategoryLog,
}

// canonicalCategory resolves aliases. Unknown names pass through so the
// engine reports them as unsupported.
func canonicalCategory(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := categoryAliases[s]; ok {
		return string(c)
	}
	return s
}

func parseCategories(names []string) ([]model.Category, error) {
	var out []model.Category
	for _, n := range names {
		c, err := model.ParseCategory(canonicalCategory(n))
		if err != nil {
			return nil, err
		}
		if c != "" {
			out = append(out, c)
		}
	}
	return out, nil
}

// loadConfig reads the environment, applies the output and verbose flags and
// installs the logger on stderr.
func loadConfig(cmd *cobra.Command, outputFlag string, verbose bool) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("output") {
		cfg.Output = outputFlag
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.SetupLogging(cmd.ErrOrStderr())
	slog.Debug("configuration loaded", "output", cfg.Output, "log_level", cfg.LogLevel,
		"high_error_rate_threshold", cfg.HighErrorRateThreshold)
	return cfg, nil
}

func printSuccess(w io.Writer, msg string) {
	green := color.New(color.FgGreen)
	green.Fprintf(w, "✓ %s\n", msg)
}

func printWarning(w io.Writer, msg string) {
	yellow := color.New(color.FgYellow)
	yellow.Fprintf(w, "! %s\n", msg)
}

// isTerminal reports whether w is a character device.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
