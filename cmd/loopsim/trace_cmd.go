package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/loopsim/loopsim/tracerecording"
)

var traceCmd = &cobra.Command{
	Use:   "trace",
	Short: "Dump a recorded dispatch trace",
	Long: `Dump the rows of a table in a dispatch trace database recorded by ` +
		`the tracerecording package.`,
	RunE: runTrace,
}

var (
	traceDB     string
	traceTable  string
	traceWhere  string
	traceOrder  string
	traceLimit  int
	traceOffset int
)

func init() {
	traceCmd.Flags().StringVar(&traceDB, "db", "",
		"path of the trace database, without the .sqlite3 suffix")
	traceCmd.Flags().StringVar(&traceTable, "table",
		tracerecording.DispatchTableName, "table to dump")
	traceCmd.Flags().StringVar(&traceWhere, "where", "",
		"filter rows, SQL WHERE clause without the keyword")
	traceCmd.Flags().StringVar(&traceOrder, "order-by", "SerialNumber",
		"sort rows, SQL ORDER BY clause without the keywords")
	traceCmd.Flags().IntVar(&traceLimit, "limit", 0,
		"maximum number of rows to print, 0 for all")
	traceCmd.Flags().IntVar(&traceOffset, "offset", 0,
		"number of rows to skip")

	_ = traceCmd.MarkFlagRequired("db")

	rootCmd.AddCommand(traceCmd)
}

func runTrace(_ *cobra.Command, _ []string) error {
	reader, err := tracerecording.OpenTrace(traceDB)
	if err != nil {
		return fmt.Errorf("opening trace: %w", err)
	}
	defer reader.Close()

	columns, rows, err := reader.QueryTable(traceTable,
		tracerecording.QueryParams{
			Where:   traceWhere,
			OrderBy: traceOrder,
			Limit:   traceLimit,
			Offset:  traceOffset,
		})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(columns, "\t"))

	for _, row := range rows {
		cells := make([]string, 0, len(row))
		for _, v := range row {
			cells = append(cells, fmt.Sprintf("%v", v))
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}

	return w.Flush()
}
