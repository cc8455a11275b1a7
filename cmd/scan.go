package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/helmcode/healctl/pkg/catalog"
	"github.com/helmcode/healctl/pkg/classifier"
	"github.com/helmcode/healctl/pkg/formatter"
	"github.com/helmcode/healctl/pkg/metrics"
	"github.com/helmcode/healctl/pkg/model"
	"github.com/helmcode/healctl/pkg/scanner"
	"github.com/helmcode/healctl/pkg/severity"
)

type scanOptions struct {
	category     string
	severity     string
	only         []string
	fix          bool
	failOn       string
	outputFormat string
	verbose      bool
}

func NewScanCmd() *cobra.Command {
	o := &scanOptions{}
	cmd := &cobra.Command{
		Use:   "scan [PATH|-]...",
		Short: "Scan manifests, Terraform, CI workflows and logs for known issues",
		Long: `Detect known problems in infrastructure artifacts and optionally produce
ordered, risk-rated remediation plans. Nothing is changed on disk and no
cluster or network access is needed.

Examples:
  # Scan a Kubernetes manifest
  healctl scan deploy.yaml

  # Scan a repository and print fix plans
  healctl scan . --fix

  # Scan a log from stdin
  kubectl logs deploy/api | healctl scan - -c log

  # Only report critical Terraform issues as JSON
  healctl scan infra/ --only iac --severity critical -o json

  # Fail a CI job on any warning or worse
  healctl scan . --fail-on warning`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, args, o)
		},
	}

	cmd.Flags().StringVarP(&o.category, "category", "c", "", "Scan every input as this category (kubernetes|k8s, infra-as-code|iac|terraform, ci-workflow|ci|github, log)")
	cmd.Flags().StringVar(&o.severity, "severity", "", "Only report issues of this severity (critical, warning, info)")
	cmd.Flags().StringSliceVar(&o.only, "only", nil, "Only report issues of these categories")
	cmd.Flags().BoolVar(&o.fix, "fix", false, "Generate remediation plans for fixable issues")
	cmd.Flags().StringVar(&o.failOn, "fail-on", "", "Exit non-zero when a reported issue is at least this severe")
	cmd.Flags().StringVarP(&o.outputFormat, "output", "o", "human", "Output format (human, json, yaml)")
	cmd.Flags().BoolVarP(&o.verbose, "verbose", "v", false, "Verbose output")

	return cmd
}

func runScan(cmd *cobra.Command, args []string, o *scanOptions) error {
	cfg, err := loadConfig(cmd, o.outputFormat, o.verbose)
	if err != nil {
		return err
	}

	sev, err := model.ParseSeverity(strings.ToLower(o.severity))
	if err != nil {
		return err
	}
	failOn, err := model.ParseSeverity(strings.ToLower(o.failOn))
	if err != nil {
		return fmt.Errorf("--fail-on: %w", err)
	}
	only, err := parseCategories(o.only)
	if err != nil {
		return err
	}
	hint := canonicalCategory(o.category)

	human := cfg.Output == "human"
	status := cmd.ErrOrStderr()

	inputs, err := collectInputs(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}
	artifacts := make([]scanner.Artifact, 0, len(inputs))
	named := make(map[string]bool)
	for _, in := range inputs {
		if in.discovered && hint == "" {
			if _, err := classifier.Classify(in.content, ""); errors.Is(err, model.ErrUnclassifiableArtifact) {
				slog.Debug("skipping unclassifiable file", "path", in.name)
				if o.verbose {
					printWarning(status, fmt.Sprintf("Skipped %s: no recognizable structure", in.name))
				}
				continue
			}
		}
		if !in.discovered {
			named[in.name] = true
		}
		artifacts = append(artifacts, scanner.Artifact{Name: in.name, Content: in.content, Hint: hint})
	}
	if len(artifacts) == 0 {
		return fmt.Errorf("no scannable artifacts found in %s", strings.Join(args, ", "))
	}

	cat, err := catalog.Default()
	if err != nil {
		return fmt.Errorf("loading rule catalog: %w", err)
	}
	sc := scanner.New(cat,
		scanner.WithLogger(slog.Default()),
		scanner.WithLogConfig(cfg.LogDetector()),
		scanner.WithMetrics(metrics.New(nil)),
	)

	var s *spinner.Spinner
	if human && isTerminal(status) {
		s = spinner.New(spinner.CharSets[11], 100*time.Millisecond, spinner.WithWriter(status))
		s.Suffix = fmt.Sprintf(" Scanning %s...", plural(len(artifacts), "artifact"))
		s.Start()
	}
	opts := scanner.Options{Severity: sev, Categories: only, AutoFix: o.fix}
	var result *model.ScanResult
	for {
		result, err = sc.ScanAll(cmd.Context(), artifacts, opts)
		bad, ok := skippable(err, named)
		if !ok {
			break
		}
		slog.Debug("skipping malformed file", "path", bad.Artifact, "error", bad.Message)
		if o.verbose {
			printWarning(status, fmt.Sprintf("Skipped %s: %s", bad.Artifact, bad.Message))
		}
		n := len(artifacts)
		artifacts = slices.DeleteFunc(artifacts, func(a scanner.Artifact) bool { return a.Name == bad.Artifact })
		if len(artifacts) == n {
			break
		}
		if len(artifacts) == 0 {
			err = fmt.Errorf("no scannable artifacts found in %s", strings.Join(args, ", "))
			break
		}
	}
	if s != nil {
		s.Stop()
	}
	if err != nil {
		return err
	}
	if human {
		printSuccess(status, fmt.Sprintf("Scanned %s", plural(len(result.Artifacts), "artifact")))
	}

	if err := formatter.DisplayResults(cmd.OutOrStdout(), result, cfg.Output); err != nil {
		return err
	}

	if failOn != "" {
		n := 0
		for _, issue := range result.Issues {
			if severity.AtLeast(issue.Severity, failOn) {
				n++
			}
		}
		if n > 0 {
			return fmt.Errorf("found %s at or above %s", plural(n, "issue"), failOn)
		}
	}
	return nil
}

// skippable returns the malformed-artifact error when the artifact it names
// was discovered by walking a directory rather than named on the command line.
func skippable(err error, named map[string]bool) (*model.ScanError, bool) {
	var scanErr *model.ScanError
	if !errors.Is(err, model.ErrMalformedArtifact) || !errors.As(err, &scanErr) {
		return nil, false
	}
	return scanErr, scanErr.Artifact != "" && !named[scanErr.Artifact]
}

// scannableExts lists the extensions read when walking a directory.
var scannableExts = map[string]bool{
	".yaml": true,
	".yml":  true,
	".json": true,
	".tf":   true,
	".hcl":  true,
	".log":  true,
	".txt":  true,
}

// skippedDirs are dependency trees never walked into.
var skippedDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
}

type input struct {
	name    string
	content string
	// discovered is true for files found by walking a directory.
	discovered bool
}

// collectInputs reads each argument once. "-" reads stdin; directories are
// walked in lexical order, skipping hidden entries below the root, dependency
// trees and files without a scannable extension.
func collectInputs(stdin io.Reader, paths []string) ([]input, error) {
	var inputs []input
	for _, p := range paths {
		if p == "-" {
			data, err := io.ReadAll(stdin)
			if err != nil {
				return nil, fmt.Errorf("reading stdin: %w", err)
			}
			inputs = append(inputs, input{name: "<stdin>", content: string(data)})
			continue
		}

		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			data, err := os.ReadFile(p)
			if err != nil {
				return nil, err
			}
			inputs = append(inputs, input{name: p, content: string(data)})
			continue
		}

		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if path != p && strings.HasPrefix(d.Name(), ".") && d.Name() != ".github" {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() && path != p && skippedDirs[d.Name()] {
				return filepath.SkipDir
			}
			if !d.Type().IsRegular() || !scannableExts[strings.ToLower(filepath.Ext(path))] {
				return nil
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			inputs = append(inputs, input{name: path, content: string(data), discovered: true})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", p, err)
		}
	}
	return inputs, nil
}
