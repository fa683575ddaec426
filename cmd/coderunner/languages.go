package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/caffeineduck/coderunner/language"
	"github.com/caffeineduck/coderunner/language/python"
)

func newLanguagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List supported languages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "KEY\tNAME\tJUDGE0 ID\tEXT\tLOCAL")
			for _, d := range language.All() {
				local := ""
				if d.Key == python.Key {
					local = "yes"
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t.%s\t%s\n", d.Key, d.Name, d.ID, d.Ext, local)
			}
			return w.Flush()
		},
	}
}
