package catalog

import (
	"embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/helmcode/healctl/pkg/model"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

// builtinFiles lists the embedded catalog files in category order.
var builtinFiles = []string{
	"builtin/kubernetes.yaml",
	"builtin/iac.yaml",
	"builtin/workflow.yaml",
	"builtin/logs.yaml",
}

type ruleDoc struct {
	Rule `yaml:",inline"`
	Fix  *FixTemplate `yaml:"fix,omitempty"`
}

type catalogDoc struct {
	Category model.Category `yaml:"category"`
	Rules    []ruleDoc      `yaml:"rules"`
}

var loadDefault = sync.OnceValues(func() (*Catalog, error) {
	var (
		rules     []Rule
		templates []FixTemplate
	)
	for _, name := range builtinFiles {
		data, err := builtinFS.ReadFile(name)
		if err != nil {
			return nil, err
		}
		r, t, err := decode(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}
		rules = append(rules, r...)
		templates = append(templates, t...)
	}
	return New(rules, templates)
})

// Default returns the built-in catalog. It is built once per process.
func Default() (*Catalog, error) {
	return loadDefault()
}

// MustDefault is Default for callers that treat a broken built-in catalog as
// a programming error.
func MustDefault() *Catalog {
	c, err := Default()
	if err != nil {
		panic(err)
	}
	return c
}

func decode(data []byte) ([]Rule, []FixTemplate, error) {
	var doc catalogDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, err
	}
	rules := make([]Rule, 0, len(doc.Rules))
	var templates []FixTemplate
	for _, rd := range doc.Rules {
		r := rd.Rule
		if r.Category == "" {
			r.Category = doc.Category
		}
		if rd.Fix != nil {
			if rd.Fix.ID == "" {
				rd.Fix.ID = "fix." + r.ID
			}
			r.FixTemplateID = rd.Fix.ID
			templates = append(templates, *rd.Fix)
		}
		rules = append(rules, r)
	}
	return rules, templates, nil
}
