package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check connectivity to configured services",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()
			allOK := true

			// Check Neo4j
			if cfg.Neo4j.URI == "" {
				fmt.Println("Neo4j: SKIP (neo4j.uri not set, using in-memory store)")
			} else {
				st, err := newStore(logger)
				if err != nil {
					fmt.Printf("Neo4j: FAIL (%v)\n", err)
					allOK = false
				} else {
					defer func() { _ = st.Close() }()
					if err := st.Ping(ctx); err != nil {
						fmt.Printf("Neo4j: FAIL (%v)\n", err)
						allOK = false
					} else {
						fmt.Println("Neo4j: OK")
					}
				}
			}

			// The advisor degrades to the default answers without a key.
			if cfg.Claude.APIKey == "" {
				fmt.Println("Claude API: SKIP (no API key configured, --auto uses default answers)")
			} else {
				fmt.Println("Claude API: OK")
			}

			if !allOK {
				return fmt.Errorf("one or more health checks failed")
			}
			return nil
		},
	}
}
