package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// listCmd prints the configured units
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the content units declared in the manifest",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	m, units, err := loadUnits(nil)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tPATH\tSOURCE\tREF")
	for _, u := range units {
		ref := u.ExpectedRef
		if ref == "" {
			ref = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", u.Name, u.LocalPath, u.CanonicalSource, ref)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("%d unit(s), clone depth %d, timeout %s\n",
		len(units), m.Defaults.CloneDepth, m.GetTimeout())
	return nil
}
