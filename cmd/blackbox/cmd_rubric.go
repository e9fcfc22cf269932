package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/linnemanlabs/blackbox/internal/hfacs"
)

var rubricCmd = &cobra.Command{
	Use:   "rubric",
	Short: "Print the HFACS evidence rubric",
	Long: `Print every evidence tag the adjudicator may assign, grouped by HFACS
level, with the weight each tag contributes to its level's score.`,
	Args: cobra.NoArgs,
	RunE: runRubric,
}

func runRubric(cmd *cobra.Command, _ []string) error {
	rubric := hfacs.Default()
	out := cmd.OutOrStdout()

	for _, lvl := range hfacs.Levels() {
		fmt.Fprintf(out, "%s\n", lvl)
		for _, tag := range rubric.Tags() {
			tagLevel, weight, ok := rubric.Lookup(tag)
			if !ok || tagLevel != lvl {
				continue
			}
			fmt.Fprintf(out, "  %-45s %3d\n", tag, weight)
		}
		fmt.Fprintln(out)
	}
	return nil
}
