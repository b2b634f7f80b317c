package odoo

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/xelth-com/watibridge/internal/erp"
)

// Backend adapts the XML-RPC client to erp.Backend. Customers are referenced
// by res.partner id, warehouses by stock.warehouse name.
type Backend struct {
	client *Client
	mu     sync.Mutex
}

// NewBackend creates an Odoo order backend
func NewBackend(client *Client) *Backend {
	return &Backend{client: client}
}

var _ erp.Backend = (*Backend)(nil)

func (b *Backend) Name() string { return "odoo" }

// Ping authenticates and returns the configured login
func (b *Backend) Ping(ctx context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := b.client.Authenticate(); err != nil {
		return "", err
	}
	return b.client.Username, nil
}

func (b *Backend) ItemExists(ctx context.Context, itemCode string) (bool, error) {
	id, err := b.productID(itemCode)
	if err != nil {
		return false, err
	}
	return id != 0, nil
}

func (b *Backend) EnsureCustomer(ctx context.Context, name string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ids, err := b.client.Search("res.partner", []interface{}{
		[]interface{}{"name", "=", name},
	}, 1)
	if err != nil {
		return "", err
	}
	if len(ids) > 0 {
		return strconv.FormatInt(ids[0], 10), nil
	}

	id, err := b.client.Create("res.partner", map[string]interface{}{
		"name":          name,
		"is_company":    true,
		"customer_rank": 1,
	})
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(id, 10), nil
}

func (b *Backend) CompanyCurrency(ctx context.Context, company string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var rows []struct {
		CurrencyID []interface{} `json:"currency_id"`
	}
	err := b.client.SearchRead("res.company", []interface{}{
		[]interface{}{"name", "=", company},
	}, []string{"currency_id"}, 1, &rows)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("company %q: %w", company, erp.ErrNotFound)
	}
	// many2one fields come back as [id, display_name]
	if len(rows[0].CurrencyID) == 2 {
		if name, ok := rows[0].CurrencyID[1].(string); ok {
			return name, nil
		}
	}
	return "", nil
}

// CreateSalesOrder creates a quotation. Odoo keeps the warehouse on the order,
// so the first line's warehouse is used for the whole order.
func (b *Backend) CreateSalesOrder(ctx context.Context, req erp.SalesOrderRequest) (string, error) {
	partnerID, err := strconv.ParseInt(req.Customer, 10, 64)
	if err != nil {
		return "", fmt.Errorf("odoo customer reference %q: %w", req.Customer, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	lines := make([]interface{}, 0, len(req.Items))
	for _, it := range req.Items {
		pid, err := b.productIDLocked(it.ItemCode)
		if err != nil {
			return "", err
		}
		if pid == 0 {
			return "", fmt.Errorf("product %s: %w", it.ItemCode, erp.ErrNotFound)
		}
		lines = append(lines, []interface{}{0, 0, map[string]interface{}{
			"product_id":      pid,
			"product_uom_qty": it.Qty,
		}})
	}

	values := map[string]interface{}{
		"partner_id":       partnerID,
		"client_order_ref": req.PONumber,
		"commitment_date":  req.DeliveryDate,
		"order_line":       lines,
	}
	if len(req.Items) > 0 {
		whIDs, err := b.client.Search("stock.warehouse", []interface{}{
			[]interface{}{"name", "=", req.Items[0].Warehouse},
		}, 1)
		if err != nil {
			return "", err
		}
		if len(whIDs) == 0 {
			return "", fmt.Errorf("warehouse %s: %w", req.Items[0].Warehouse, erp.ErrNotFound)
		}
		values["warehouse_id"] = whIDs[0]
	}

	id, err := b.client.Create("sale.order", values)
	if err != nil {
		return "", err
	}

	var rows []struct {
		Name string `json:"name"`
	}
	if err := b.client.SearchRead("sale.order", []interface{}{
		[]interface{}{"id", "=", id},
	}, []string{"name"}, 1, &rows); err != nil || len(rows) == 0 {
		return strconv.FormatInt(id, 10), nil
	}
	return rows[0].Name, nil
}

// SubmitSalesOrder confirms the quotation
func (b *Backend) SubmitSalesOrder(ctx context.Context, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	ids, err := b.client.Search("sale.order", []interface{}{
		[]interface{}{"name", "=", name},
	}, 1)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return fmt.Errorf("sale order %s: %w", name, erp.ErrNotFound)
	}
	_, err = b.client.CallMethod("sale.order", "action_confirm", ids)
	return err
}

func (b *Backend) productID(code string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.productIDLocked(code)
}

func (b *Backend) productIDLocked(code string) (int64, error) {
	ids, err := b.client.Search("product.product", []interface{}{
		[]interface{}{"default_code", "=", code},
	}, 1)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	return ids[0], nil
}
