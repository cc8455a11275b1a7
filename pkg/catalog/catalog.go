package catalog

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/helmcode/healctl/pkg/model"
)

// Rule is the static metadata of one detectable problem.
type Rule struct {
	ID               string         `json:"rule_id" yaml:"id"`
	Category         model.Category `json:"category" yaml:"category"`
	Title            string         `json:"title" yaml:"title"`
	DefaultSeverity  model.Severity `json:"default_severity" yaml:"severity"`
	RiskTier         model.RiskTier `json:"risk_tier" yaml:"risk"`
	RequiresApproval bool           `json:"requires_approval" yaml:"requires_approval"`
	FixTemplateID    string         `json:"fix_template_id,omitempty" yaml:"fix_template_id,omitempty"`
}

// Fixable reports whether the rule has a fix template.
func (r Rule) Fixable() bool {
	return r.FixTemplateID != ""
}

// StepTemplate is one step of a fix template, before placeholder resolution.
type StepTemplate struct {
	Title   string `yaml:"title"`
	Detail  string `yaml:"detail"`
	Command string `yaml:"command,omitempty"`
}

// FixTemplate is the canonical remediation content for one rule.
type FixTemplate struct {
	ID            string         `yaml:"id"`
	RootCause     string         `yaml:"root_cause"`
	SuggestedFix  string         `yaml:"suggested_fix"`
	ConfigSnippet string         `yaml:"snippet"`
	Steps         []StepTemplate `yaml:"steps"`
}

// Catalog is the read-only rule and fix template registry. It is safe for
// concurrent use once constructed.
type Catalog struct {
	rules     []Rule
	byID      map[string]Rule
	templates map[string]FixTemplate
}

// New validates and indexes rules and templates. Every rule id must be unique,
// every fix_template_id must resolve to exactly one template, every template
// must be referenced by exactly one rule, and every template text must parse.
func New(rules []Rule, templates []FixTemplate) (*Catalog, error) {
	c := &Catalog{
		rules:     make([]Rule, 0, len(rules)),
		byID:      make(map[string]Rule, len(rules)),
		templates: make(map[string]FixTemplate, len(templates)),
	}

	for _, t := range templates {
		if t.ID == "" {
			return nil, fmt.Errorf("fix template with empty id")
		}
		if _, dup := c.templates[t.ID]; dup {
			return nil, fmt.Errorf("duplicate fix template %q", t.ID)
		}
		if len(t.Steps) == 0 {
			return nil, fmt.Errorf("fix template %q has no steps", t.ID)
		}
		if err := t.validate(); err != nil {
			return nil, err
		}
		c.templates[t.ID] = t
	}

	referenced := make(map[string]string, len(templates))
	for _, r := range rules {
		if r.ID == "" {
			return nil, fmt.Errorf("rule with empty id")
		}
		if _, dup := c.byID[r.ID]; dup {
			return nil, fmt.Errorf("duplicate rule %q", r.ID)
		}
		if r.Category.Order() == len(model.Categories) {
			return nil, fmt.Errorf("rule %q: unknown category %q", r.ID, r.Category)
		}
		if r.DefaultSeverity.Rank() > model.SeverityInfo.Rank() {
			return nil, fmt.Errorf("rule %q: unknown severity %q", r.ID, r.DefaultSeverity)
		}
		switch r.RiskTier {
		case model.RiskLow, model.RiskMedium, model.RiskHigh:
		default:
			return nil, fmt.Errorf("rule %q: unknown risk tier %q", r.ID, r.RiskTier)
		}
		if r.Fixable() {
			if _, ok := c.templates[r.FixTemplateID]; !ok {
				return nil, fmt.Errorf("rule %q references unknown fix template %q", r.ID, r.FixTemplateID)
			}
			if other, taken := referenced[r.FixTemplateID]; taken {
				return nil, fmt.Errorf("fix template %q referenced by both %q and %q", r.FixTemplateID, other, r.ID)
			}
			referenced[r.FixTemplateID] = r.ID
		}
		c.byID[r.ID] = r
		c.rules = append(c.rules, r)
	}

	for id := range c.templates {
		if _, ok := referenced[id]; !ok {
			return nil, fmt.Errorf("fix template %q is not referenced by any rule", id)
		}
	}
	return c, nil
}

// Lookup returns the rule with the given id.
func (c *Catalog) Lookup(ruleID string) (Rule, bool) {
	r, ok := c.byID[ruleID]
	return r, ok
}

// FixTemplate returns the fix template for a rule. Absence is normal for
// detection-only rules.
func (c *Catalog) FixTemplate(ruleID string) (FixTemplate, bool) {
	r, ok := c.byID[ruleID]
	if !ok || !r.Fixable() {
		return FixTemplate{}, false
	}
	t, ok := c.templates[r.FixTemplateID]
	return t, ok
}

// Rules returns every rule in declared order.
func (c *Catalog) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	copy(out, c.rules)
	return out
}

// RulesFor returns the rules of one category in declared order.
func (c *Catalog) RulesFor(category model.Category) []Rule {
	var out []Rule
	for _, r := range c.rules {
		if r.Category == category {
			out = append(out, r)
		}
	}
	return out
}

func (t FixTemplate) validate() error {
	texts := []string{t.RootCause, t.SuggestedFix, t.ConfigSnippet}
	for _, s := range t.Steps {
		if s.Title == "" {
			return fmt.Errorf("fix template %q has a step without a title", t.ID)
		}
		texts = append(texts, s.Title, s.Detail, s.Command)
	}
	for _, text := range texts {
		if _, err := parse(t.ID, text); err != nil {
			return err
		}
	}
	return nil
}

var funcs = template.FuncMap{
	"lower": strings.ToLower,
}

func parse(name, text string) (*template.Template, error) {
	tmpl, err := template.New(name).Funcs(funcs).Option("missingkey=zero").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
	}
	return tmpl, nil
}

// Render resolves placeholders in a template text against issue facts.
// Missing facts render as empty strings.
func Render(name, text string, facts map[string]string) (string, error) {
	tmpl, err := parse(name, text)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, facts); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}
	return buf.String(), nil
}
