package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/mmdatafocus/bom_backend/config"
	"github.com/mmdatafocus/bom_backend/models"
	"github.com/mmdatafocus/bom_backend/models/reports"
	"github.com/mmdatafocus/bom_backend/utils"
)

func main() {
	businessID := flag.String("business-id", "", "Business id (uuid); required unless -all")
	all := flag.Bool("all", false, "Report every business that has composite items")
	modifier := flag.String("modifier", "", "Optional: active modifier to price with")
	output := flag.String("output", "", "Optional: write an xlsx workbook to this path instead of printing")
	asJSON := flag.Bool("json", false, "Print rows as JSON")
	concurrency := flag.Int("concurrency", 8, "Composite items resolved in parallel")
	flag.Parse()

	if strings.TrimSpace(*businessID) == "" && !*all {
		fmt.Fprintln(os.Stderr, "-business-id or -all is required")
		os.Exit(2)
	}

	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}
	if os.Getenv("REDIS_ADDRESS") != "" {
		config.ConnectRedisWithRetry()
	}

	ctx := utils.SetCorrelationIdInContext(context.Background(), uuid.NewString())
	businessIds := []string{strings.TrimSpace(*businessID)}
	if *all {
		ids, err := models.GetCatalogBusinessIds(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to list businesses: %v\n", err)
			os.Exit(1)
		}
		businessIds = ids
	}

	opts := reports.CostingReportOptions{ActiveModifier: *modifier, Concurrency: *concurrency}
	failed := false
	for _, bid := range businessIds {
		if err := report(utils.SetBusinessIdInContext(ctx, bid), bid, opts, *output, *asJSON, len(businessIds) > 1); err != nil {
			fmt.Fprintf(os.Stderr, "business %s: %v\n", bid, err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

func report(ctx context.Context, businessId string, opts reports.CostingReportOptions, output string, asJSON bool, multi bool) error {
	rows, err := reports.GetCostingReport(ctx, opts)
	if err != nil {
		return fmt.Errorf("costing report failed: %w", err)
	}

	switch {
	case output != "":
		filename := output
		if multi {
			ext := filepath.Ext(output)
			filename = strings.TrimSuffix(output, ext) + "_" + businessId + ext
		}
		if err := reports.ExportCostingReport(rows, filename); err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
		fmt.Printf("wrote %d composite items to %s\n", len(rows), filename)
	case asJSON:
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(map[string]any{"business_id": businessId, "rows": rows}); err != nil {
			return fmt.Errorf("encode failed: %w", err)
		}
	default:
		if multi {
			fmt.Printf("business %s\n", businessId)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SUBJECT\tNAME\tUNIT COST\tCAPACITY\tDIAGNOSTICS")
		for _, row := range rows {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", row.SubjectId, row.DisplayName, row.UnitCost.StringFixed(4), row.Capacity.String(), len(row.Diagnostics))
		}
		w.Flush()
	}
	return nil
}
