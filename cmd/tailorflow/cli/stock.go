package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/tailorflow/tailorflow/internal/inventory"
	"github.com/tailorflow/tailorflow/jobs"
)

// LowStockOptions configures the low stock report.
type LowStockOptions struct {
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// LowStockRow is one reorder candidate.
type LowStockRow struct {
	SKU          string  `json:"sku"`
	Name         string  `json:"name"`
	Remaining    float64 `json:"remaining"`
	ReorderLevel float64 `json:"reorder_level"`
	Unit         string  `json:"unit"`
}

// StockOpsCLI reports on inventory health.
type StockOpsCLI struct {
	inventory jobs.LowStockLister
}

// NewStockOpsCLI constructs the helper.
func NewStockOpsCLI(inventory jobs.LowStockLister) *StockOpsCLI {
	return &StockOpsCLI{inventory: inventory}
}

// LowStockCommand prints items at or below their reorder level. It exits 10
// when anything needs reordering so schedulers can alert on it.
func (c *StockOpsCLI) LowStockCommand(ctx context.Context, opts LowStockOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if c.inventory == nil {
		fmt.Fprintln(opts.Stderr, "low-stock: inventory not configured")
		return 1
	}
	items, err := c.inventory.LowStock(ctx)
	if err != nil {
		fmt.Fprintf(opts.Stderr, "low-stock: %v\n", err)
		return 1
	}
	rows := toLowStockRows(items)
	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(rows); err != nil {
			fmt.Fprintf(opts.Stderr, "low-stock: %v\n", err)
			return 1
		}
	} else {
		tw := tabwriter.NewWriter(opts.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SKU\tNAME\tREMAINING\tREORDER AT")
		for _, r := range rows {
			fmt.Fprintf(tw, "%s\t%s\t%g %s\t%g\n", r.SKU, r.Name, r.Remaining, r.Unit, r.ReorderLevel)
		}
		if err := tw.Flush(); err != nil {
			fmt.Fprintf(opts.Stderr, "low-stock: %v\n", err)
			return 1
		}
	}
	if len(rows) > 0 {
		return 10
	}
	return 0
}

func toLowStockRows(items []inventory.Item) []LowStockRow {
	rows := make([]LowStockRow, 0, len(items))
	for _, it := range items {
		rows = append(rows, LowStockRow{
			SKU:          it.SKU,
			Name:         it.Name,
			Remaining:    it.RemainingStock,
			ReorderLevel: it.ReorderLevel,
			Unit:         it.Unit,
		})
	}
	return rows
}
