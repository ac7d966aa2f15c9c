package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/iudanet/themeshop/pkg/api"
)

func (c *Cli) runOrders(ctx context.Context) error {
	resp, err := c.service.Orders(ctx)
	if err != nil {
		return fmt.Errorf("failed to get orders: %w", err)
	}

	c.io.Printf("=== Purchases (%d) ===\n", len(resp.Purchases))
	c.printOrders(resp.Purchases)
	c.io.Println()
	c.io.Printf("=== Canceled (%d) ===\n", len(resp.Cancellations))
	c.printOrders(resp.Cancellations)

	return nil
}

func (c *Cli) printOrders(orders []api.Order) {
	if len(orders) == 0 {
		c.io.Println("  (none)")
		return
	}

	w := tabwriter.NewWriter(c.io, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "  DATE\tREFERENCE\tITEMS\tTOTAL")
	for _, o := range orders {
		names := make([]string, 0, len(o.Items))
		for _, item := range o.Items {
			names = append(names, fmt.Sprintf("%s x%d", item.Name, item.Quantity))
		}
		_, _ = fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n",
			o.CreatedAt.Local().Format(time.DateTime),
			o.SessionReference,
			strings.Join(names, ", "),
			formatAmount(o.Total, o.Currency))
	}
	_ = w.Flush()
}

// formatAmount форматирует сумму в минимальных единицах валюты
func formatAmount(minor int64, currency string) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, minor/100, minor%100, strings.ToUpper(currency))
}
