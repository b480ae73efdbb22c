package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"preflight/internal/manifest"
)

// manifestTemplate is the starter manifest written by `preflight init`.
const manifestTemplate = `version: 1

defaults:
  timeout: 2m      # per-unit transport timeout
  clone_depth: 1   # shallow acquisition depth (0 = full history)
  jobs: 1          # units verified concurrently

units:
  - name: example-assets
    path: vendor/example-assets
    source: https://example.com/org/example-assets.git
    ref: main      # optional: a ref that must resolve locally
`

// initCmd writes a starter manifest
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter preflight.yaml to the workspace",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := manifest.Resolve(manifestPath, workspace)
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
		if err := os.WriteFile(path, []byte(manifestTemplate), 0644); err != nil {
			return fmt.Errorf("failed to write manifest: %w", err)
		}
		fmt.Printf("wrote %s - edit the units section for your workspace\n", path)
		return nil
	},
}
