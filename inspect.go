package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"EverglowMissions/internal/catalog"
	"EverglowMissions/internal/server"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print the mission catalog in unlock order",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			cat, err := server.LoadCatalog(cfg)
			if err != nil {
				return err
			}
			asYAML, _ := cmd.Flags().GetBool("yaml")
			if asYAML {
				return writeCatalogYAML(cmd.OutOrStdout(), cat)
			}
			source := cfg.CatalogPath
			if source == "" {
				source = "built-in"
			}
			printCatalog(cmd.OutOrStdout(), source, cat)
			return nil
		},
	}
	cmd.Flags().Bool("yaml", false, "print the normalized catalog as YAML")
	return cmd
}

func writeCatalogYAML(w io.Writer, cat *catalog.Catalog) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(map[string]any{"missions": cat.Templates()}); err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	return enc.Close()
}

func printCatalog(w io.Writer, source string, cat *catalog.Catalog) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()

	fmt.Fprintf(w, "%s %s (%d templates)\n", cyan("Catalog:"), source, cat.Len())
	for i, id := range cat.Graph().TopoOrder {
		t, err := cat.Get(string(id))
		if err != nil {
			continue
		}
		traits := []string{t.MissionKind()}
		if t.AutoComplete {
			traits = append(traits, "auto-complete")
		}
		if t.TimeLimit > 0 {
			traits = append(traits, fmt.Sprintf("%d ticks", t.TimeLimit))
		}
		if t.Reward != "" {
			traits = append(traits, "reward "+t.Reward)
		}
		fmt.Fprintf(w, "%3d. %s  %s  %s\n", i+1, yellow(t.ID), t.DisplayName, faint("["+strings.Join(traits, ", ")+"]"))
		if len(t.Requires) > 0 {
			fmt.Fprintf(w, "       requires: %s\n", strings.Join(t.Requires, ", "))
		}
		printObjective(w, t.Objective, 7)
	}
}

func printObjective(w io.Writer, o catalog.ObjectiveSpec, indent int) {
	pad := strings.Repeat(" ", indent)
	line := o.Kind
	if o.Description != "" {
		line += fmt.Sprintf(" %q", o.Description)
	}
	if o.Required > 0 {
		line += fmt.Sprintf(" x%d %v", o.Required, o.Targets)
	}
	if o.Shared {
		line += " (shared)"
	}
	fmt.Fprintf(w, "%s- %s\n", pad, line)
	for _, child := range o.Children {
		printObjective(w, child, indent+2)
	}
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [catalog.yaml...]",
		Short: "Check catalog files for schema, objective and prerequisite errors",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			green := color.New(color.FgGreen).SprintFunc()
			red := color.New(color.FgRed, color.Bold).SprintFunc()

			if len(args) == 0 {
				cfg, err := loadConfig(cmd)
				if err != nil {
					return err
				}
				cat, err := server.LoadCatalog(cfg)
				if err != nil {
					fmt.Fprintf(out, "%s %v\n", red("FAIL"), err)
					return err
				}
				fmt.Fprintf(out, "%s built-in or configured catalog (%d templates)\n", green("OK"), cat.Len())
				return nil
			}

			var errs []error
			for _, path := range args {
				cat, err := catalog.Load(path)
				if err != nil {
					fmt.Fprintf(out, "%s %v\n", red("FAIL"), err)
					errs = append(errs, err)
					continue
				}
				fmt.Fprintf(out, "%s %s (%d templates)\n", green("OK"), path, cat.Len())
			}
			return errors.Join(errs...)
		},
	}
}
