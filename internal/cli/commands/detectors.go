package commands

import (
	"github.com/spf13/cobra"

	prettytable "github.com/jedib0t/go-pretty/v6/table"

	"github.com/leakguard-dev/leakguard/pkg/audit"
)

// NewDetectorsCommand creates the detectors command, which lists the
// registered detectors in their contractual emission order.
func NewDetectorsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "detectors",
		Short: "List the registered leak detectors in emission order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			registry := audit.DefaultRegistry(nil)
			t := prettytable.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(prettytable.StyleLight)
			t.AppendHeader(prettytable.Row{"#", "ID", "Name"})
			for i, d := range registry.Detectors() {
				t.AppendRow(prettytable.Row{i + 1, d.ID(), d.Name()})
			}
			t.Render()
			return nil
		},
	}
}
