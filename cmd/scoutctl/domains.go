package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scoutsec/cmmc-scout/pkg/models"
)

func newDomainsCmd() *cobra.Command {
	var controlsFile string

	cmd := &cobra.Command{
		Use:   "domains",
		Short: "List assessable CMMC domains and their control counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := loadCatalog(controlsFile)
			if err != nil {
				return err
			}

			counts := cat.CountByDomain()
			for _, domain := range cat.Domains() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-45s %d controls\n", domain, counts[domain])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d controls across %d domains\n", cat.Len(), len(cat.Domains()))
			return nil
		},
	}

	cmd.Flags().StringVar(&controlsFile, "controls-file", "", "Path to a controls JSON file (default: embedded catalog)")

	return cmd
}

func newControlsCmd() *cobra.Command {
	var (
		controlsFile string
		domain       string
		search       string
	)

	cmd := &cobra.Command{
		Use:   "controls",
		Short: "List controls, optionally filtered by domain or search query",
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := loadCatalog(controlsFile)
			if err != nil {
				return err
			}

			if domain != "" && !cat.HasDomain(domain) {
				return fmt.Errorf("unknown domain %q", domain)
			}

			var controls []models.Control
			switch {
			case search != "":
				for _, c := range cat.Search(search) {
					if domain == "" || c.Domain == domain {
						controls = append(controls, c)
					}
				}
			case domain != "":
				controls, _ = cat.ByDomain(domain)
			default:
				for _, d := range cat.Domains() {
					cs, _ := cat.ByDomain(d)
					controls = append(controls, cs...)
				}
			}

			for _, c := range controls {
				fmt.Fprintf(cmd.OutOrStdout(), "%-14s %-35s %s\n", c.ControlID, c.Domain, c.Title)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d controls\n", len(controls))
			return nil
		},
	}

	cmd.Flags().StringVar(&controlsFile, "controls-file", "", "Path to a controls JSON file (default: embedded catalog)")
	cmd.Flags().StringVar(&domain, "domain", "", "Filter by domain name")
	cmd.Flags().StringVar(&search, "search", "", "Filter by keyword in ID, title, or requirement")

	return cmd
}
