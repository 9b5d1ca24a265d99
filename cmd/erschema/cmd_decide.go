package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/erschema/internal/converter"
	"github.com/ajitpratap0/erschema/internal/models"
)

func decideCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decide",
		Short: "Record a decision in an ER diagram and resolve it again",
		Long: `Writes the answer to a pending decision into the diagram file (in place,
unless --document-out is given) and resolves the result.`,
	}
	cmd.AddCommand(decideKeyCmd(), decideMergeCmd())
	return cmd
}

func decideKeyCmd() *cobra.Command {
	var output, documentOut string

	cmd := &cobra.Command{
		Use:   "key [diagram.xml] [table] [index]",
		Short: "Choose the primary key of a table by option index",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("decide: index must be an integer: %w", err)
			}
			return runDecide(args[0], models.KeySelected(args[1], index), output, documentOut)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "-", "schema output path (- for stdout)")
	cmd.Flags().StringVar(&documentOut, "document-out", "", "write the annotated diagram here instead of in place")
	return cmd
}

func decideMergeCmd() *cobra.Command {
	var (
		output, documentOut string
		decline             bool
	)

	cmd := &cobra.Command{
		Use:   "merge [diagram.xml] [relationship] [target]",
		Short: "Accept or decline folding a relationship into its target",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecide(args[0], models.MergeChosen(args[1], args[2], !decline), output, documentOut)
		},
	}
	cmd.Flags().BoolVar(&decline, "decline", false, "keep the relationship as its own table")
	cmd.Flags().StringVarP(&output, "output", "o", "-", "schema output path (- for stdout)")
	cmd.Flags().StringVar(&documentOut, "document-out", "", "write the annotated diagram here instead of in place")
	return cmd
}

func runDecide(path string, dec models.Decision, output, documentOut string) error {
	logger := newLogger()

	raw, err := readInput(path)
	if err != nil {
		return fmt.Errorf("decide: reading diagram: %w", err)
	}
	res, err := converter.New(logger).Decide(raw, dec)
	if err != nil {
		return fmt.Errorf("decide: %w", err)
	}
	if documentOut == "" && path != "-" {
		documentOut = path
	}
	if err := writeResult(res, output, documentOut); err != nil {
		return fmt.Errorf("decide: %w", err)
	}
	return nil
}
