package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/outreach-cli/internal/rowstore"
	"github.com/sells-group/outreach-cli/pkg/notion"
)

var (
	tablesSchema bool
	tablesFormat string
)

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List the Notion databases shared with the integration",
	Long:  "Lists database ids and names so source, destination and counterpart tables can be configured. With --schema, also shows each database's properties.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("tables"); err != nil {
			return err
		}

		client := newNotionClient()
		tables, err := rowstore.NewNotionStore(client).ListTables(ctx)
		if err != nil {
			return eris.Wrap(err, "tables: list")
		}

		infos := make([]tableInfo, len(tables))
		for i, t := range tables {
			infos[i] = tableInfo{ID: t.ID, Name: t.Name, Role: tableRole(t.ID)}
		}
		if tablesSchema {
			if err := loadSchemas(ctx, client, infos); err != nil {
				return err
			}
		}
		return writeAs(os.Stdout, tablesFormat, infos, func(w io.Writer) { formatTables(w, infos) })
	},
}

// tableInfo is one row of the tables listing.
type tableInfo struct {
	ID         string            `json:"id" yaml:"id"`
	Name       string            `json:"name" yaml:"name"`
	Role       string            `json:"role,omitempty" yaml:"role,omitempty"`
	Properties map[string]string `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// loadSchemas fetches every table's property schema, three at a time to
// stay under the Notion rate limit.
func loadSchemas(ctx context.Context, c notion.Client, infos []tableInfo) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(3)
	for i := range infos {
		g.Go(func() error {
			db, err := c.GetDatabase(gctx, infos[i].ID)
			if err != nil {
				return eris.Wrapf(err, "tables: schema of %s", infos[i].ID)
			}
			infos[i].Properties = notion.SchemaOf(db)
			return nil
		})
	}
	return g.Wait()
}

// tableRole names the configured role of a database, if any.
func tableRole(id string) string {
	key := strings.ReplaceAll(id, "-", "")
	roles := []struct{ id, role string }{
		{cfg.Notion.SourceDB, "source"},
		{cfg.Notion.DestinationDB, "destination"},
		{cfg.Notion.MandatesDB, "mandates"},
		{cfg.Notion.VenturesDB, "ventures"},
	}
	var out []string
	for _, r := range roles {
		if r.id != "" && strings.ReplaceAll(r.id, "-", "") == key {
			out = append(out, r.role)
		}
	}
	return strings.Join(out, ",")
}

func formatTables(out io.Writer, infos []tableInfo) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tROLE")
	_, _ = fmt.Fprintln(w, "--\t----\t----")
	for _, t := range infos {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", t.ID, t.Name, t.Role)
		names := make([]string, 0, len(t.Properties))
		for name := range t.Properties {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			_, _ = fmt.Fprintf(w, "\t  %s\t%s\n", name, t.Properties[name])
		}
	}
	_ = w.Flush()
}

func init() {
	tablesCmd.Flags().BoolVar(&tablesSchema, "schema", false, "also fetch each database's property schema")
	tablesCmd.Flags().StringVar(&tablesFormat, "format", "table", "output format: table, json or yaml")
	rootCmd.AddCommand(tablesCmd)
}
