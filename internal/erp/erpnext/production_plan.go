package erpnext

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

type salesOrderDoc struct {
	Name            string  `json:"name"`
	Company         string  `json:"company"`
	Customer        string  `json:"customer"`
	TransactionDate string  `json:"transaction_date"`
	GrandTotal      float64 `json:"grand_total"`
	Items           []struct {
		Name      string  `json:"name"`
		ItemCode  string  `json:"item_code"`
		ItemName  string  `json:"item_name"`
		Qty       float64 `json:"qty"`
		Warehouse string  `json:"warehouse"`
	} `json:"items"`
}

// CreateProductionPlan plans production of the order's stock items. No BOM
// is required; work orders are raised later by the factory.
func (c *Client) CreateProductionPlan(ctx context.Context, salesOrder string) (string, error) {
	existing, err := c.listNames(ctx, "Production Plan",
		[][]interface{}{{"Production Plan Sales Order", "sales_order", "=", salesOrder}}, 1)
	if err != nil {
		return "", err
	}
	if len(existing) > 0 {
		return existing[0], nil
	}

	var so struct {
		Data salesOrderDoc `json:"data"`
	}
	path := "/api/resource/" + resource("Sales Order") + "/" + url.PathEscape(salesOrder)
	if err := c.do(ctx, "sales order", http.MethodGet, path, nil, nil, &so); err != nil {
		return "", err
	}

	codes := make([]string, 0, len(so.Data.Items))
	for _, it := range so.Data.Items {
		codes = append(codes, it.ItemCode)
	}
	stockItems, err := c.stockItems(ctx, codes)
	if err != nil {
		return "", err
	}

	today := time.Now().Format("2006-01-02")
	var poItems []map[string]any
	for _, it := range so.Data.Items {
		if !stockItems[it.ItemCode] {
			continue
		}
		poItems = append(poItems, map[string]any{
			"item_code":          it.ItemCode,
			"item_name":          it.ItemName,
			"planned_qty":        it.Qty,
			"planned_start_date": today,
			"sales_order":        salesOrder,
			"sales_order_item":   it.Name,
			"warehouse":          it.Warehouse,
		})
	}
	if len(poItems) == 0 {
		return "", nil
	}

	doc := map[string]any{
		"company":        so.Data.Company,
		"posting_date":   today,
		"get_items_from": "Sales Order",
		"sales_orders": []map[string]any{{
			"sales_order":      salesOrder,
			"sales_order_date": so.Data.TransactionDate,
			"customer":         so.Data.Customer,
			"grand_total":      so.Data.GrandTotal,
		}},
		"po_items": poItems,
	}
	var out nameResponse
	if err := c.do(ctx, "production plan", http.MethodPost, "/api/resource/"+resource("Production Plan"), nil, doc, &out); err != nil {
		return "", err
	}
	return out.Data.Name, nil
}

func (c *Client) stockItems(ctx context.Context, codes []string) (map[string]bool, error) {
	out := make(map[string]bool, len(codes))
	if len(codes) == 0 {
		return out, nil
	}
	names, err := c.listNames(ctx, "Item", [][]interface{}{
		{"Item", "name", "in", codes},
		{"Item", "is_stock_item", "=", 1},
	}, len(codes))
	if err != nil {
		return nil, err
	}
	for _, n := range names {
		out[n] = true
	}
	return out, nil
}
