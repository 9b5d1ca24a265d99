package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func listCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored schemas, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, err := newStore(logger)
			if err != nil {
				return fmt.Errorf("list: connecting to store: %w", err)
			}
			defer func() { _ = st.Close() }()

			records, err := st.ListSchemas(ctx, limit)
			if err != nil {
				return fmt.Errorf("list: fetching schemas: %w", err)
			}

			for i, r := range records {
				fmt.Printf("[%d] %s (%d tables, %d references)\n", i+1, r.Name, len(r.Tables), r.References)
				fmt.Printf("    ID: %s | Created: %s\n", r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"))
			}
			if len(records) == 0 {
				fmt.Println("No schemas found.")
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "max results")
	return cmd
}

func getCmd() *cobra.Command {
	var outputJSON bool

	cmd := &cobra.Command{
		Use:   "get [schema-id]",
		Short: "Retrieve a stored schema by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, err := newStore(logger)
			if err != nil {
				return fmt.Errorf("get: connecting to store: %w", err)
			}
			defer func() { _ = st.Close() }()

			rec, err := st.GetSchema(ctx, args[0])
			if err != nil {
				return fmt.Errorf("get: %w", err)
			}

			if outputJSON {
				out, err := json.MarshalIndent(rec, "", "  ")
				if err != nil {
					return fmt.Errorf("get: marshaling JSON: %w", err)
				}
				fmt.Println(string(out))
				return nil
			}

			fmt.Printf("ID:         %s\n", rec.ID)
			fmt.Printf("Name:       %s\n", rec.Name)
			fmt.Printf("Tables:     %s\n", strings.Join(rec.Tables, ", "))
			fmt.Printf("References: %d\n", rec.References)
			fmt.Printf("Created:    %s\n", rec.CreatedAt.Format("2006-01-02 15:04:05"))
			return nil
		},
	}

	cmd.Flags().BoolVar(&outputJSON, "json", false, "output as JSON")
	return cmd
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [schema-id]",
		Short: "Delete a stored schema by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, err := newStore(logger)
			if err != nil {
				return fmt.Errorf("delete: connecting to store: %w", err)
			}
			defer func() { _ = st.Close() }()

			if err := st.DeleteSchema(ctx, args[0]); err != nil {
				return fmt.Errorf("delete: %w", err)
			}
			fmt.Printf("Deleted schema %s\n", args[0])
			return nil
		},
	}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show schema store statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, err := newStore(logger)
			if err != nil {
				return fmt.Errorf("stats: connecting to store: %w", err)
			}
			defer func() { _ = st.Close() }()

			stats, err := st.Stats(ctx)
			if err != nil {
				return fmt.Errorf("stats: fetching statistics: %w", err)
			}

			fmt.Printf("Total schemas: %d\n", stats.TotalSchemas)
			fmt.Printf("Total tables:  %d\n", stats.TotalTables)
			return nil
		},
	}
}
