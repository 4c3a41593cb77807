// Package main provides the scoutctl CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/scoutsec/cmmc-scout/pkg/catalog"
	"github.com/scoutsec/cmmc-scout/pkg/config"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "scoutctl",
		Short: "CMMC Level 2 gap assessment from the command line",
		Long: `Scoutctl runs CMMC Level 2 compliance assessments against the control
catalog, classifies responses, and produces gap reports without the API
server.`,
		Version: version,
	}

	rootCmd.AddCommand(
		newDomainsCmd(),
		newControlsCmd(),
		newAssessCmd(),
		newDemoCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadCatalog loads the embedded controls, or an override file when the
// flag or SCOUT_CATALOG_CONTROLS_FILE is set.
func loadCatalog(controlsFile string) (*catalog.Catalog, error) {
	if controlsFile == "" {
		if cfg, err := config.Load(); err == nil {
			controlsFile = cfg.Catalog.ControlsFile
		}
	}
	if controlsFile != "" {
		return catalog.LoadFile(controlsFile)
	}
	return catalog.Default()
}
