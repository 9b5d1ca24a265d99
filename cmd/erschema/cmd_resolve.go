package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/erschema/internal/converter"
	"github.com/ajitpratap0/erschema/internal/models"
)

func resolveCmd() *cobra.Command {
	var (
		auto        bool
		interactive bool
		output      string
		documentOut string
	)

	cmd := &cobra.Command{
		Use:   "resolve [diagram.xml]",
		Short: "Convert an ER diagram into a relational schema",
		Long: `Resolves an ER diagram (a file, or stdin when omitted) into relational tables.

Without flags a single pass is made: the output is either the schema or the
decision the diagram is waiting for. --auto answers every decision with the
configured advisor; --interactive asks on the terminal. Use --document-out to
keep the annotated diagram so the run can be continued later with "decide".`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			if interactive && path == "-" {
				return fmt.Errorf("resolve: --interactive needs the diagram as a file argument")
			}
			raw, err := readInput(path)
			if err != nil {
				return fmt.Errorf("resolve: reading diagram: %w", err)
			}

			conv := converter.New(logger)
			var res *converter.Result
			switch {
			case interactive:
				res, err = conv.Run(ctx, raw, &promptAdvisor{in: bufio.NewReader(os.Stdin), out: os.Stderr}, cfg.Resolve.MaxRounds)
			case auto:
				res, err = conv.Run(ctx, raw, newAdvisor(logger), cfg.Resolve.MaxRounds)
			default:
				res, err = conv.Resolve(raw)
			}
			if err != nil {
				return fmt.Errorf("resolve: %w", err)
			}

			return writeResult(res, output, documentOut)
		},
	}

	cmd.Flags().BoolVar(&auto, "auto", false, "answer every decision with the configured advisor")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "ask for every decision on the terminal")
	cmd.Flags().StringVarP(&output, "output", "o", "-", "schema output path (- for stdout)")
	cmd.Flags().StringVar(&documentOut, "document-out", "", "write the annotated diagram to this path")
	cmd.MarkFlagsMutuallyExclusive("auto", "interactive")
	return cmd
}

// writeResult prints the schema when resolution finished and the pending
// request otherwise. The annotated document goes to documentOut when set.
func writeResult(res *converter.Result, output, documentOut string) error {
	if documentOut != "" {
		if err := os.WriteFile(documentOut, []byte(res.Document), 0o644); err != nil {
			return fmt.Errorf("writing document: %w", err)
		}
	}

	var v any = res.Schema
	if res.Schema == nil {
		v = map[string]any{"status": res.Status, "request": res.Request}
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	if err := writeOutput(output, append(out, '\n')); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	if res.Request != nil {
		fmt.Fprintf(os.Stderr, "Paused: %s\n", res.Request.String())
	}
	return nil
}

// promptAdvisor asks the user on a terminal.
type promptAdvisor struct {
	in  *bufio.Reader
	out io.Writer
}

func (p *promptAdvisor) Decide(ctx context.Context, _ []byte, req models.DecisionRequest) (models.Decision, error) {
	for {
		if err := ctx.Err(); err != nil {
			return models.Decision{}, err
		}
		switch req.Kind {
		case models.RequestChooseKey:
			fmt.Fprintf(p.out, "Choose the primary key for %s:\n", req.TableName)
			for i, opt := range req.Options {
				fmt.Fprintf(p.out, "  [%d] %s\n", i, opt)
			}
			fmt.Fprint(p.out, "> ")
		case models.RequestChooseMerge:
			fmt.Fprintf(p.out, "Merge relationship %s into %s? [y/N] ", req.MergeFrom, req.MergeTo)
		default:
			return models.Decision{}, fmt.Errorf("unsupported request kind %q", req.Kind)
		}

		line, err := p.in.ReadString('\n')
		if err != nil && line == "" {
			return models.Decision{}, fmt.Errorf("reading answer: %w", err)
		}
		line = strings.TrimSpace(line)

		if req.Kind == models.RequestChooseMerge {
			answer := strings.ToLower(line)
			return models.MergeChosen(req.MergeFrom, req.MergeTo, answer == "y" || answer == "yes"), nil
		}
		n, convErr := strconv.Atoi(line)
		if convErr == nil && n >= 0 && n < len(req.Options) {
			return models.KeySelected(req.TableName, n), nil
		}
		fmt.Fprintf(p.out, "Please enter a number between 0 and %d.\n", len(req.Options)-1)
	}
}
