package formatter

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/helmcode/healctl/pkg/catalog"
	"github.com/helmcode/healctl/pkg/model"
)

// Formats lists the supported output formats.
var Formats = []string{"human", "json", "yaml"}

// DisplayResults formats and writes a scan result.
func DisplayResults(w io.Writer, result *model.ScanResult, format string) error {
	switch format {
	case "json":
		return displayJSON(w, result)
	case "yaml":
		return displayYAML(w, result)
	case "human", "":
		displayHuman(w, result)
		return nil
	}
	return fmt.Errorf("unsupported output format %q (supported: %s)", format, strings.Join(Formats, ", "))
}

// DisplayRules formats and writes catalog rules.
func DisplayRules(w io.Writer, rules []catalog.Rule, format string) error {
	switch format {
	case "json":
		return displayJSON(w, rules)
	case "yaml":
		return displayYAML(w, rules)
	case "human", "":
		displayRulesHuman(w, rules)
		return nil
	}
	return fmt.Errorf("unsupported output format %q (supported: %s)", format, strings.Join(Formats, ", "))
}

func displayJSON(w io.Writer, v any) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(output))
	return err
}

func displayYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func displayHuman(w io.Writer, result *model.ScanResult) {
	yellow := color.New(color.FgYellow, color.Bold)
	green := color.New(color.FgGreen, color.Bold)
	cyan := color.New(color.FgCyan, color.Bold)

	fmt.Fprintln(w)
	counts := result.Counts()
	if counts.Total == 0 {
		green.Fprintln(w, "✓ NO ISSUES FOUND")
	} else {
		yellow.Fprintln(w, "⚠️  ISSUES FOUND:")
		for i, issue := range result.Issues {
			fmt.Fprintf(w, "   %d. %s %s %s\n", i+1, getSeverityIcon(issue.Severity),
				getSeverityColor(issue.Severity).Sprint(strings.ToUpper(string(issue.Severity))), issue.Title)
			fmt.Fprintf(w, "      %s\n", issue.Description)
			fmt.Fprintf(w, "      Rule: %s", color.HiBlackString(issue.RuleID))
			if loc := location(issue); loc != "" {
				fmt.Fprintf(w, "   At: %s", color.YellowString(loc))
			}
			fmt.Fprintln(w)
			fmt.Fprintln(w)
		}
	}

	if len(result.Plans) > 0 {
		cyan.Fprintln(w, "🚀 REMEDIATION PLANS:")
		for i, plan := range result.Plans {
			fmt.Fprintf(w, "   %d. %s %s\n", i+1, getRiskIcon(plan.RiskTier), plan.Issue.Title)
			approval := ""
			if plan.RequiresApproval {
				approval = color.RedString("   requires approval")
			}
			fmt.Fprintf(w, "      Risk: %s   Time: %s%s\n", plan.RiskTier, plan.EstimatedTime, approval)
			fmt.Fprintln(w, wrapText("Why: "+plan.RootCause, 80, "      "))
			fmt.Fprintln(w, wrapText("Fix: "+plan.SuggestedFix, 80, "      "))
			for _, step := range plan.Steps {
				fmt.Fprintf(w, "      %d) %s\n", step.Order, step.Title)
				if step.Detail != "" {
					fmt.Fprintln(w, wrapText(step.Detail, 80, "         "))
				}
				if step.Command != "" {
					fmt.Fprintf(w, "         $ %s\n", color.CyanString(step.Command))
				}
			}
			if plan.ConfigSnippet != "" {
				fmt.Fprintln(w, "      Snippet:")
				for _, line := range strings.Split(plan.ConfigSnippet, "\n") {
					fmt.Fprintf(w, "         %s\n", color.GreenString(line))
				}
			}
			fmt.Fprintln(w)
		}
	}

	// Footer
	fmt.Fprintln(w, strings.Repeat("─", 80))
	fmt.Fprintf(w, "📊 %s\n", summary(result))
	fmt.Fprintf(w, "💡 %s\n", color.HiBlackString("Run with -o json or -o yaml for machine-readable output"))
}

func displayRulesHuman(w io.Writer, rules []catalog.Rule) {
	cyan := color.New(color.FgCyan, color.Bold)
	var current model.Category
	for _, r := range rules {
		if r.Category != current {
			current = r.Category
			fmt.Fprintln(w)
			cyan.Fprintf(w, "%s\n", strings.ToUpper(string(current)))
		}
		fix := color.HiBlackString("detection only")
		if r.Fixable() {
			fix = fmt.Sprintf("fix, %s risk", r.RiskTier)
		}
		fmt.Fprintf(w, "   %s %-36s %s (%s)\n", getSeverityIcon(r.DefaultSeverity), r.ID, r.Title, fix)
	}
	fmt.Fprintln(w)
}

func location(issue model.Issue) string {
	switch {
	case issue.Artifact != "" && issue.ResourceRef != "":
		return issue.Artifact + ": " + issue.ResourceRef
	case issue.Artifact != "":
		return issue.Artifact
	}
	return issue.ResourceRef
}

func summary(result *model.ScanResult) string {
	counts := result.Counts()
	parts := make([]string, 0, len(model.Severities))
	for _, s := range model.Severities {
		if n := counts.BySeverity[s]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, s))
		}
	}
	line := fmt.Sprintf("%d issue(s) in %d artifact(s)", counts.Total, len(result.Artifacts))
	if len(parts) > 0 {
		line += ": " + strings.Join(parts, ", ")
	}
	if hidden := result.Detected.Total - counts.Total; hidden > 0 {
		line += fmt.Sprintf(" (%d hidden by filters)", hidden)
	}
	return line
}

func getSeverityColor(severity model.Severity) *color.Color {
	switch severity {
	case model.SeverityCritical:
		return color.New(color.FgRed, color.Bold)
	case model.SeverityWarning:
		return color.New(color.FgYellow)
	case model.SeverityInfo:
		return color.New(color.FgCyan)
	default:
		return color.New(color.FgWhite)
	}
}

func getSeverityIcon(severity model.Severity) string {
	switch severity {
	case model.SeverityCritical:
		return "🔴"
	case model.SeverityWarning:
		return "🟡"
	case model.SeverityInfo:
		return "🔵"
	default:
		return "⚪"
	}
}

func getRiskIcon(tier model.RiskTier) string {
	switch tier {
	case model.RiskHigh:
		return "⚡"
	case model.RiskMedium:
		return "🔹"
	case model.RiskLow:
		return "▫️"
	default:
		return "•"
	}
}

func wrapText(text string, width int, indent string) string {
	var result strings.Builder
	lines := strings.Split(text, "\n")

	for _, line := range lines {
		words := strings.Fields(line)
		if len(words) == 0 {
			result.WriteString("\n")
			continue
		}

		currentLine := indent
		for _, word := range words {
			if currentLine != indent && len(currentLine)+len(word)+1 > width {
				result.WriteString(currentLine + "\n")
				currentLine = indent + word
			} else if currentLine == indent {
				currentLine += word
			} else {
				currentLine += " " + word
			}
		}

		if currentLine != indent {
			result.WriteString(currentLine + "\n")
		}
	}

	return strings.TrimSuffix(result.String(), "\n")
}
