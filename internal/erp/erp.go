// Package erp defines what the order builder needs from an ERP system.
package erp

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrNotFound is returned when a referenced ERP record does not exist
var ErrNotFound = errors.New("erp record not found")

// Backend creates sales orders in an ERP
type Backend interface {
	// Name identifies the backend in logs and status output
	Name() string
	// Ping checks credentials and returns the logged in user
	Ping(ctx context.Context) (string, error)
	ItemExists(ctx context.Context, itemCode string) (bool, error)
	// EnsureCustomer finds a customer by name, creating it when missing,
	// and returns the reference to put on the order
	EnsureCustomer(ctx context.Context, name string) (string, error)
	CompanyCurrency(ctx context.Context, company string) (string, error)
	// CreateSalesOrder inserts a draft order and returns its name
	CreateSalesOrder(ctx context.Context, req SalesOrderRequest) (string, error)
	SubmitSalesOrder(ctx context.Context, name string) error
}

// ProductionPlanner is implemented by backends that can plan production for an order
type ProductionPlanner interface {
	// CreateProductionPlan returns the plan name; an existing plan for the
	// order is returned instead of creating a second one. An empty name
	// means the order had nothing to produce.
	CreateProductionPlan(ctx context.Context, salesOrder string) (string, error)
}

// SalesOrderItem is one order line
type SalesOrderItem struct {
	ItemCode     string  `json:"item_code"`
	Qty          float64 `json:"qty"`
	DeliveryDate string  `json:"delivery_date"`
	Warehouse    string  `json:"warehouse"`
}

// SalesOrderRequest is the create-record payload for a sales order
type SalesOrderRequest struct {
	Company      string           `json:"company"`
	Customer     string           `json:"customer"`
	PONumber     string           `json:"po_no"`
	PODate       string           `json:"po_date"`
	DeliveryDate string           `json:"delivery_date"`
	OrderType    string           `json:"order_type"`
	Currency     string           `json:"currency"`
	Items        []SalesOrderItem `json:"items"`
}

// Validate checks the request the way the ERP would before insert
func (r SalesOrderRequest) Validate() error {
	var problems []string
	if strings.TrimSpace(r.Customer) == "" {
		problems = append(problems, "customer is required")
	}
	if strings.TrimSpace(r.DeliveryDate) == "" {
		problems = append(problems, "delivery date is required")
	}
	if len(r.Items) == 0 {
		problems = append(problems, "at least one item is required")
	}
	for i, it := range r.Items {
		if strings.TrimSpace(it.ItemCode) == "" {
			problems = append(problems, fmt.Sprintf("row %d: item code is required", i+1))
		}
		if !(it.Qty > 0) || math.IsInf(it.Qty, 0) {
			problems = append(problems, fmt.Sprintf("row %d: qty must be positive", i+1))
		}
		if strings.TrimSpace(it.Warehouse) == "" {
			problems = append(problems, fmt.Sprintf("row %d: warehouse is required", i+1))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid sales order %s: %s", r.PONumber, strings.Join(problems, "; "))
	}
	return nil
}

// HTTPError is a non-2xx answer from the ERP
type HTTPError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("erp %s http %d: %s", e.Op, e.StatusCode, e.Message)
}
