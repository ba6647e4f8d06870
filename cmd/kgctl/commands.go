package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Probe server liveness",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp struct {
				Status string `json:"status"`
			}
			if err := clientFromConfig().do(cmd.Context(), "GET", "/health", nil, &resp); err != nil {
				return err
			}
			fmt.Println("Server is healthy:", resp.Status)
			return nil
		},
	}
}

func newTenantCmd() *cobra.Command {
	tenantCmd := &cobra.Command{
		Use:   "tenant",
		Short: "Manage tenants",
	}

	var name, description, isolation string
	createCmd := &cobra.Command{
		Use:   "create <id>",
		Short: "Create a tenant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]string{"id": args[0]}
			if name != "" {
				body["name"] = name
			}
			if description != "" {
				body["description"] = description
			}
			if isolation != "" {
				body["isolation_model"] = isolation
			}
			var created map[string]any
			if err := clientFromConfig().do(cmd.Context(), "POST", "/v1/tenants", body, &created); err != nil {
				return err
			}
			fmt.Printf("Created tenant %s\n", args[0])
			return nil
		},
	}
	createCmd.Flags().StringVar(&name, "name", "", "human-readable tenant name")
	createCmd.Flags().StringVar(&description, "description", "", "tenant description")
	createCmd.Flags().StringVar(&isolation, "isolation", "", "isolation model (property, database, label)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List tenants",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp struct {
				Tenants []struct {
					ID     string `json:"id"`
					Name   string `json:"name"`
					Status string `json:"status"`
				} `json:"tenants"`
			}
			if err := clientFromConfig().do(cmd.Context(), "GET", "/v1/tenants", nil, &resp); err != nil {
				return err
			}
			if len(resp.Tenants) == 0 {
				fmt.Println("No tenants")
				return nil
			}
			for _, t := range resp.Tenants {
				line := t.ID
				if t.Name != "" {
					line += "\t" + t.Name
				}
				line += "\t" + t.Status
				fmt.Println(line)
			}
			return nil
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a tenant's metadata record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := clientFromConfig().do(cmd.Context(), "DELETE", "/v1/tenants/"+args[0], nil, nil); err != nil {
				return err
			}
			fmt.Printf("Deleted tenant %s\n", args[0])
			return nil
		},
	}

	tenantCmd.AddCommand(createCmd, listCmd, deleteCmd)
	return tenantCmd
}

func newQueryCmd() *cobra.Command {
	queryCmd := &cobra.Command{
		Use:   "query",
		Short: "Run structured queries",
	}

	var labels []string
	var propPairs []string
	var limit int
	nodesCmd := &cobra.Command{
		Use:   "nodes",
		Short: "Find nodes by label and property equality",
		RunE: func(cmd *cobra.Command, args []string) error {
			tenant, err := requireTenant()
			if err != nil {
				return err
			}
			props, err := parseProps(propPairs)
			if err != nil {
				return err
			}
			body := map[string]any{
				"type":       "find_nodes",
				"labels":     labels,
				"properties": props,
				"limit":      limit,
			}
			return runQuery(cmd, tenant, body)
		},
	}
	nodesCmd.Flags().StringSliceVar(&labels, "label", nil, "node label (repeatable)")
	nodesCmd.Flags().StringSliceVar(&propPairs, "prop", nil, "property filter key=value (repeatable)")
	nodesCmd.Flags().IntVar(&limit, "limit", 0, "maximum results (0 = unlimited)")

	var from, to string
	var types []string
	var validAt, asOf string
	var relLimit int
	relsCmd := &cobra.Command{
		Use:   "rels",
		Short: "Find relationships, optionally filtered to a valid-time instant",
		RunE: func(cmd *cobra.Command, args []string) error {
			tenant, err := requireTenant()
			if err != nil {
				return err
			}
			body := map[string]any{
				"type":               "find_relationships",
				"relationship_types": types,
				"limit":              relLimit,
			}
			if from != "" {
				body["from_node_id"] = from
			}
			if to != "" {
				body["to_node_id"] = to
			}
			if validAt != "" {
				t, err := time.Parse(time.RFC3339, validAt)
				if err != nil {
					return fmt.Errorf("invalid --valid-at: %w", err)
				}
				body["valid_at"] = t
			}
			if asOf != "" {
				t, err := time.Parse(time.RFC3339, asOf)
				if err != nil {
					return fmt.Errorf("invalid --as-of: %w", err)
				}
				body = map[string]any{
					"type":       "as_of",
					"base_query": body,
					"as_of_time": t,
				}
			}
			return runQuery(cmd, tenant, body)
		},
	}
	relsCmd.Flags().StringVar(&from, "from", "", "source node system id")
	relsCmd.Flags().StringVar(&to, "to", "", "target node system id")
	relsCmd.Flags().StringSliceVar(&types, "type", nil, "relationship type (repeatable)")
	relsCmd.Flags().StringVar(&validAt, "valid-at", "", "RFC 3339 valid-time instant")
	relsCmd.Flags().StringVar(&asOf, "as-of", "", "RFC 3339 as-of rewrite instant")
	relsCmd.Flags().IntVar(&relLimit, "limit", 0, "maximum results (0 = unlimited)")

	queryCmd.AddCommand(nodesCmd, relsCmd)
	return queryCmd
}

// parseProps turns repeated key=value flags into a property filter. Values
// are kept as strings; equality matching happens server-side.
func parseProps(pairs []string) (map[string]any, error) {
	props := map[string]any{}
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid --prop %q (want key=value)", pair)
		}
		props[key] = value
	}
	return props, nil
}

func runQuery(cmd *cobra.Command, tenant string, body map[string]any) error {
	var resp struct {
		Paths []json.RawMessage `json:"paths"`
		Count int               `json:"count"`
	}
	if err := clientFromConfig().do(cmd.Context(), "POST", "/v1/graph/"+tenant+"/query", body, &resp); err != nil {
		return err
	}
	out, err := json.MarshalIndent(resp.Paths, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	fmt.Fprintf(os.Stderr, "%d result(s)\n", resp.Count)
	return nil
}

func newIngestCmd() *cobra.Command {
	var dryRun bool
	ingestCmd := &cobra.Command{
		Use:   "ingest <text>...",
		Short: "Extract knowledge from text and write it into the graph",
		Long: `Runs the server's LLM extraction over the given text, then ingests the
resulting envelope: nodes are upserted with their extraction aliases as
idempotency keys, and relations become bitemporal edges. With --dry-run the
envelope is printed without being written.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenant, err := requireTenant()
			if err != nil {
				return err
			}
			text := strings.Join(args, " ")

			extractReq := map[string]any{
				"messages": []map[string]string{{"role": "user", "content": text}},
			}
			var envelope map[string]any
			if err := clientFromConfig().do(cmd.Context(), "POST", "/v1/llm/"+tenant+"/extract", extractReq, &envelope); err != nil {
				return err
			}

			if dryRun {
				out, err := json.MarshalIndent(envelope, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(out))
				return nil
			}

			var result struct {
				NodeIDs map[string]string `json:"node_ids"`
				EdgeIDs []string          `json:"edge_ids"`
			}
			if err := clientFromConfig().do(cmd.Context(), "POST", "/v1/llm/"+tenant+"/ingest", envelope, &result); err != nil {
				return err
			}
			fmt.Printf("Ingested %d node(s), %d edge(s)\n", len(result.NodeIDs), len(result.EdgeIDs))
			for alias, id := range result.NodeIDs {
				fmt.Printf("  %s -> %s\n", alias, id)
			}
			return nil
		},
	}
	ingestCmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the extraction envelope without ingesting")
	return ingestCmd
}
