package erp

import (
	"math"
	"strings"
	"testing"
)

func TestSalesOrderRequestValidate(t *testing.T) {
	ok := SalesOrderRequest{
		Customer:     "ABC",
		PONumber:     "SO-1001",
		DeliveryDate: "2025-05-10",
		Items:        []SalesOrderItem{{ItemCode: "X1", Qty: 10, Warehouse: "FTY-1"}},
	}
	if err := ok.Validate(); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	bad := ok
	bad.Items = []SalesOrderItem{{ItemCode: "X1", Qty: 0}}
	err := bad.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"row 1: qty must be positive", "row 1: warehouse is required"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}

	empty := SalesOrderRequest{}
	if err := empty.Validate(); err == nil || !strings.Contains(err.Error(), "customer is required") {
		t.Errorf("empty request: %v", err)
	}
}

func TestSalesOrderRequestValidateNonFiniteQty(t *testing.T) {
	for _, qty := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		req := SalesOrderRequest{
			Customer:     "ABC",
			PONumber:     "SO-1001",
			DeliveryDate: "2025-05-10",
			Items:        []SalesOrderItem{{ItemCode: "X1", Qty: qty, Warehouse: "FTY-1"}},
		}
		err := req.Validate()
		if err == nil || !strings.Contains(err.Error(), "row 1: qty must be positive") {
			t.Errorf("qty %v: %v", qty, err)
		}
	}
}
