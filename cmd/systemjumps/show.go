package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/caeruleus1F/systemjumps/internal/config"
	"github.com/caeruleus1F/systemjumps/internal/domain"
	"github.com/caeruleus1F/systemjumps/internal/store/sqlstore"
)

const defaultShowLimit = 20

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the first rows of the jumps table",
	Long: `Print up to --limit rows of the jumps table, ordered by solarSystemID.
Without --table the configured table is used; in period mode that is the
current month's table.`,
	Args: cobra.NoArgs,
	RunE: runShow,
}

func init() {
	showCmd.Flags().String("table", "", "table to print (default: configured table)")
	showCmd.Flags().Int("limit", defaultShowLimit, "maximum rows to print")
}

func runShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	table, _ := cmd.Flags().GetString("table")
	if table == "" {
		table = domain.TableName(cfg.TableName, domain.TableNamingMode(cfg.TableNamingMode), time.Now())
	}
	limit, _ := cmd.Flags().GetInt("limit")

	dialect, err := sqlstore.DialectFor(cfg.DBDriver)
	if err != nil {
		return err
	}
	db, err := sql.Open(cfg.DBDriver, cfg.DSN())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	columns, rows, err := sqlstore.New(db, dialect, cfg.DBOpTimeout).Rows(context.Background(), table, limit)
	if err != nil {
		return fmt.Errorf("read %s: %w", table, err)
	}
	return printRows(cmd.OutOrStdout(), columns, rows)
}

// printRows writes a tab-aligned table with a header line.
func printRows(w io.Writer, columns []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(columns, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	if len(rows) == 0 {
		fmt.Fprintln(tw, "(no rows)")
	}
	return tw.Flush()
}
