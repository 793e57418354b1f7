package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/bizdoc/internal/classify"
	"github.com/dusk-indust/bizdoc/internal/knowledge"
)

func newClassifyCmd(*app) *cobra.Command {
	var module string
	cmd := &cobra.Command{
		Use:   "classify [file]",
		Short: "Rank the SAP modules that match a description",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var file string
			if len(args) == 1 {
				file = args[0]
			}
			text, err := readInput(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			if strings.TrimSpace(text) == "" {
				return errors.New("no input text")
			}

			primary, ranked := classify.Keyword{}.Classify(text, module)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Primary: %s%s\n", primary, moduleName(primary))
			for _, c := range ranked {
				fmt.Fprintf(out, "  %-4s %3d%s\n", c.Module, c.Score, moduleName(c.Module))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&module, "module", "", "module id that overrides the ranking when known")
	return cmd
}

func moduleName(id string) string {
	if m, ok := knowledge.Lookup(id); ok {
		return " (" + m.Name + ")"
	}
	return ""
}
