package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ajitpratap0/erschema/internal/converter"
	"github.com/ajitpratap0/erschema/internal/metrics"
	"github.com/ajitpratap0/erschema/internal/models"
	"github.com/ajitpratap0/erschema/internal/resolver"
)

func exportCmd() *cobra.Command {
	var (
		name string
		auto bool
	)

	cmd := &cobra.Command{
		Use:   "export [diagram.xml]",
		Short: "Resolve a diagram and persist the schema to the store",
		Long: `Resolves a fully decided diagram and saves the schema. With --auto any
pending decisions are answered by the configured advisor first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			raw, err := readInput(args[0])
			if err != nil {
				return fmt.Errorf("export: reading diagram: %w", err)
			}

			conv := converter.New(logger)
			var res *converter.Result
			if auto {
				res, err = conv.Run(ctx, raw, newAdvisor(logger), cfg.Resolve.MaxRounds)
			} else {
				res, err = conv.Resolve(raw)
			}
			if err != nil {
				return fmt.Errorf("export: %w", err)
			}
			if res.Status != resolver.StatusDone {
				return fmt.Errorf("export: diagram still needs a decision: %s", res.Request.String())
			}

			if name == "" {
				name = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			}

			st, err := newStore(logger)
			if err != nil {
				return fmt.Errorf("export: connecting to store: %w", err)
			}
			defer func() { _ = st.Close() }()
			if err := st.EnsureSchema(ctx); err != nil {
				return fmt.Errorf("export: preparing store: %w", err)
			}

			rec, err := models.NewSchemaRecord(uuid.NewString(), name, res.Schema, time.Now().UTC())
			if err != nil {
				return fmt.Errorf("export: encoding schema: %w", err)
			}
			if err := st.SaveSchema(ctx, rec, res.Schema); err != nil {
				return fmt.Errorf("export: saving schema: %w", err)
			}
			metrics.Inc(metrics.SchemasSaved)

			fmt.Fprintf(os.Stderr, "Saved schema %q (%d tables)\n", name, len(rec.Tables))
			fmt.Println(rec.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "schema name (defaults to the file name)")
	cmd.Flags().BoolVar(&auto, "auto", false, "answer pending decisions with the configured advisor")
	return cmd
}
