package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/helmcode/healctl/pkg/catalog"
	"github.com/helmcode/healctl/pkg/formatter"
	"github.com/helmcode/healctl/pkg/model"
)

func NewRulesCmd() *cobra.Command {
	var (
		category     string
		outputFormat string
	)
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List the detection rules and their fix templates",
		Long: `List every rule healctl checks, with its default severity, risk tier and
whether a remediation plan is available.

Examples:
  healctl rules
  healctl rules -c k8s -o yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, outputFormat, false)
			if err != nil {
				return err
			}
			cat, err := catalog.Default()
			if err != nil {
				return fmt.Errorf("loading rule catalog: %w", err)
			}
			c, err := model.ParseCategory(canonicalCategory(category))
			if err != nil {
				return err
			}
			rules := cat.Rules()
			if c != "" {
				rules = cat.RulesFor(c)
			}
			return formatter.DisplayRules(cmd.OutOrStdout(), rules, cfg.Output)
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "Only list rules of this category")
	cmd.Flags().StringVarP(&outputFormat, "output", "o", "human", "Output format (human, json, yaml)")

	return cmd
}
