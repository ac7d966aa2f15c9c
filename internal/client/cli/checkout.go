package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/iudanet/themeshop/pkg/api"
)

func (c *Cli) runCheckout(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: themeshop checkout <items.json>")
	}

	req, err := readCart(args[0])
	if err != nil {
		return err
	}

	c.io.Println("=== Checkout ===")
	for _, item := range req.LineItems {
		c.io.Printf("  %-30s x%d  %.2f\n", item.Name, item.Quantity, item.Price)
	}
	c.io.Println()

	resp, err := c.service.Checkout(ctx, req)
	if err != nil {
		return fmt.Errorf("checkout failed: %w", err)
	}

	c.io.Println("✓ Payment session created")
	c.io.Printf("Reference: %s\n", resp.SessionReference)
	c.io.Printf("Complete the payment at:\n  %s\n", resp.URL)

	return nil
}

// readCart читает корзину из JSON файла: либо объект запроса checkout,
// либо просто массив позиций
func readCart(path string) (*api.CheckoutRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cart file: %w", err)
	}

	var req api.CheckoutRequest
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		err = json.Unmarshal(trimmed, &req.LineItems)
	} else {
		err = json.Unmarshal(trimmed, &req)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse cart file: %w", err)
	}

	if len(req.LineItems) == 0 {
		return nil, fmt.Errorf("cart is empty")
	}

	return &req, nil
}
