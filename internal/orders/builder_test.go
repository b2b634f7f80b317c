package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/xelth-com/watibridge/internal/erp"
	"github.com/xelth-com/watibridge/internal/extractor"
	"github.com/xelth-com/watibridge/internal/locations"
	"github.com/xelth-com/watibridge/internal/models"
)

type fakeBackend struct {
	items     map[string]bool
	currency  string
	createErr map[string]error

	customers []string
	created   []erp.SalesOrderRequest
	submitted []string
	plans     []string
}

func newFakeBackend(items ...string) *fakeBackend {
	f := &fakeBackend{items: make(map[string]bool), currency: "MYR", createErr: make(map[string]error)}
	for _, it := range items {
		f.items[it] = true
	}
	return f
}

func (f *fakeBackend) Name() string                         { return "fake" }
func (f *fakeBackend) Ping(context.Context) (string, error) { return "tester", nil }
func (f *fakeBackend) ItemExists(_ context.Context, code string) (bool, error) {
	return f.items[code], nil
}

func (f *fakeBackend) EnsureCustomer(_ context.Context, name string) (string, error) {
	f.customers = append(f.customers, name)
	return name, nil
}

func (f *fakeBackend) CompanyCurrency(context.Context, string) (string, error) {
	return f.currency, nil
}

func (f *fakeBackend) CreateSalesOrder(_ context.Context, req erp.SalesOrderRequest) (string, error) {
	if err := f.createErr[req.PONumber]; err != nil {
		return "", err
	}
	f.created = append(f.created, req)
	return fmt.Sprintf("SAL-ORD-%05d", len(f.created)), nil
}

func (f *fakeBackend) SubmitSalesOrder(_ context.Context, name string) error {
	f.submitted = append(f.submitted, name)
	return nil
}

func (f *fakeBackend) writes() int {
	return len(f.customers) + len(f.created) + len(f.submitted) + len(f.plans)
}

type planningBackend struct {
	*fakeBackend
}

func (p planningBackend) CreateProductionPlan(_ context.Context, so string) (string, error) {
	p.plans = append(p.plans, so)
	return "MFG-PP-" + so, nil
}

func newBuilder(backend erp.Backend) *Builder {
	store := locations.NewMemoryStore(
		models.LocationMapping{LocationCode: "AVINA14", Warehouse: "FTY-1", Active: true},
		models.LocationMapping{LocationCode: "AVINA15", Warehouse: "FTY-2", Active: true},
	)
	b := NewBuilder(locations.NewMapper(store), backend)
	b.now = func() time.Time { return time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC) }
	return b
}

func TestGroupLines(t *testing.T) {
	lines := []extractor.OrderLine{
		{SONumber: "SO-1", Customer: "A", ItemCode: "X1"},
		{SONumber: "SO-2", Customer: "B", ItemCode: "X2"},
		{SONumber: "SO-1", Customer: "A", ItemCode: "X3"},
	}
	groups := GroupLines(lines)
	if len(groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(groups))
	}
	if groups[0].SONumber != "SO-1" || len(groups[0].Lines) != 2 {
		t.Errorf("first group = %+v", groups[0])
	}
	if groups[1].SONumber != "SO-2" || len(groups[1].Lines) != 1 {
		t.Errorf("second group = %+v", groups[1])
	}
}

func TestBuildSingleOrder(t *testing.T) {
	backend := newFakeBackend("X1")
	lines := []extractor.OrderLine{
		{SONumber: "SO-1001", Customer: "ABC", ItemCode: "X1", Qty: 10, LocationCode: "AVINA14"},
	}

	results := newBuilder(backend).Build(context.Background(), GroupLines(lines), Options{Company: "SEMSB"})
	if len(results) != 1 {
		t.Fatalf("results = %d", len(results))
	}
	r := results[0]
	if r.Status != StatusCreated || r.OrderName != "SAL-ORD-00001" {
		t.Fatalf("result = %+v", r)
	}
	if len(backend.created) != 1 {
		t.Fatalf("created = %d", len(backend.created))
	}
	req := backend.created[0]
	if req.PONumber != "SO-1001" || req.Customer != "ABC" || req.Currency != "MYR" || req.OrderType != "Sales" {
		t.Errorf("request = %+v", req)
	}
	if req.DeliveryDate != "2025-05-01" {
		t.Errorf("delivery date = %q, want today", req.DeliveryDate)
	}
	want := erp.SalesOrderItem{ItemCode: "X1", Qty: 10, DeliveryDate: "2025-05-01", Warehouse: "FTY-1"}
	if len(req.Items) != 1 || req.Items[0] != want {
		t.Errorf("items = %+v", req.Items)
	}
	if len(backend.submitted) != 0 {
		t.Errorf("submitted without auto submit: %v", backend.submitted)
	}
}

func TestBuildIsolatesUnmappedGroup(t *testing.T) {
	backend := newFakeBackend("X1", "X2")
	lines := []extractor.OrderLine{
		{SONumber: "SO-1", Customer: "A", ItemCode: "X1", Qty: 1, LocationCode: "AVINA14"},
		{SONumber: "SO-1", Customer: "A", ItemCode: "X2", Qty: 2, LocationCode: "AVINA99"},
		{SONumber: "SO-2", Customer: "B", ItemCode: "X2", Qty: 3, LocationCode: "AVINA15"},
	}

	results := newBuilder(backend).Build(context.Background(), GroupLines(lines), Options{})
	if len(results) != 2 {
		t.Fatalf("results = %d", len(results))
	}
	if results[0].Status != StatusRejected {
		t.Fatalf("first status = %s", results[0].Status)
	}
	var mErr *MappingError
	if !errors.As(results[0].Err, &mErr) || !errors.Is(results[0].Err, ErrPartialMapping) {
		t.Fatalf("first err = %v", results[0].Err)
	}
	if len(mErr.Codes) != 1 || mErr.Codes[0] != "AVINA99" {
		t.Errorf("codes = %v", mErr.Codes)
	}
	if results[1].Status != StatusCreated {
		t.Fatalf("second status = %s (%v)", results[1].Status, results[1].Err)
	}
	if len(backend.created) != 1 || backend.created[0].PONumber != "SO-2" {
		t.Fatalf("created = %+v", backend.created)
	}
}

func TestBuildTestModeWritesNothing(t *testing.T) {
	backend := planningBackend{newFakeBackend("X1")}
	lines := []extractor.OrderLine{
		{SONumber: "SO-1001", Customer: "ABC", ItemCode: "X1", Qty: 10, LocationCode: "AVINA14"},
	}
	opts := Options{TestMode: true, AutoSubmit: true, CreateProductionPlans: true}

	results := newBuilder(backend).Build(context.Background(), GroupLines(lines), opts)
	if results[0].Status != StatusValidated {
		t.Fatalf("status = %s (%v)", results[0].Status, results[0].Err)
	}
	if len(results[0].Lines) != 1 || results[0].Lines[0].Warehouse != "FTY-1" {
		t.Errorf("lines = %+v", results[0].Lines)
	}
	if n := backend.writes(); n != 0 {
		t.Fatalf("test mode performed %d ERP writes", n)
	}
	if got := Created(results); len(got) != 0 {
		t.Errorf("Created = %v", got)
	}
}

func TestBuildTestModeRejectsNonFiniteQty(t *testing.T) {
	backend := newFakeBackend("X1")
	lines := []extractor.OrderLine{
		{SONumber: "SO-1001", Customer: "ABC", ItemCode: "X1", Qty: math.NaN(), LocationCode: "AVINA14", DeliveryDate: "2025-01-15"},
	}

	results := newBuilder(backend).Build(context.Background(), GroupLines(lines), Options{TestMode: true})
	if results[0].Status != StatusFailed || !strings.Contains(results[0].Error, "qty must be positive") {
		t.Fatalf("result = %+v", results[0])
	}
	if _, err := json.Marshal(results); err != nil {
		t.Fatalf("results not encodable: %v", err)
	}
}

func TestBuildSkipsUnknownItems(t *testing.T) {
	backend := newFakeBackend("X1")
	lines := []extractor.OrderLine{
		{SONumber: "SO-1", Customer: "A", ItemCode: "X1", Qty: 1, LocationCode: "AVINA14", DeliveryDate: "2025-06-10"},
		{SONumber: "SO-1", Customer: "A", ItemCode: "GHOST", Qty: 1, LocationCode: "AVINA14", DeliveryDate: "2025-06-01"},
		{SONumber: "SO-2", Customer: "B", ItemCode: "GHOST", Qty: 1, LocationCode: "AVINA15"},
	}

	results := newBuilder(backend).Build(context.Background(), GroupLines(lines), Options{})
	if results[0].Status != StatusCreated {
		t.Fatalf("first = %+v", results[0])
	}
	if len(results[0].SkippedItems) != 1 || results[0].SkippedItems[0] != "GHOST" {
		t.Errorf("skipped = %v", results[0].SkippedItems)
	}
	// earliest date of the group, including skipped lines
	if backend.created[0].DeliveryDate != "2025-06-01" {
		t.Errorf("delivery date = %q", backend.created[0].DeliveryDate)
	}
	if backend.created[0].Items[0].DeliveryDate != "2025-06-10" {
		t.Errorf("line date = %q", backend.created[0].Items[0].DeliveryDate)
	}
	if results[1].Status != StatusRejected || !errors.Is(results[1].Err, ErrNoValidItems) {
		t.Fatalf("second = %+v", results[1])
	}
}

func TestBuildCreateFailureDoesNotStopBatch(t *testing.T) {
	backend := newFakeBackend("X1")
	backend.createErr["SO-1"] = &erp.HTTPError{Op: "create sales order", StatusCode: 417, Message: "Delivery Date cannot be before Sales Order Date"}
	lines := []extractor.OrderLine{
		{SONumber: "SO-1", Customer: "A", ItemCode: "X1", Qty: 1, LocationCode: "AVINA14"},
		{SONumber: "SO-2", Customer: "B", ItemCode: "X1", Qty: 1, LocationCode: "AVINA14"},
	}

	results := newBuilder(backend).Build(context.Background(), GroupLines(lines), Options{})
	if results[0].Status != StatusFailed || !strings.Contains(results[0].Error, "Delivery Date") {
		t.Fatalf("first = %+v", results[0])
	}
	if results[1].Status != StatusCreated {
		t.Fatalf("second = %+v", results[1])
	}
}

func TestBuildSubmitsAndPlans(t *testing.T) {
	backend := planningBackend{newFakeBackend("X1")}
	lines := []extractor.OrderLine{
		{SONumber: "SO-1", Customer: "A", ItemCode: "X1", Qty: 1, LocationCode: "AVINA14"},
	}
	opts := Options{AutoSubmit: true, CreateProductionPlans: true}

	results := newBuilder(backend).Build(context.Background(), GroupLines(lines), opts)
	r := results[0]
	if r.Status != StatusCreated {
		t.Fatalf("result = %+v", r)
	}
	if len(backend.submitted) != 1 || backend.submitted[0] != r.OrderName {
		t.Errorf("submitted = %v", backend.submitted)
	}
	if r.ProductionPlan != "MFG-PP-"+r.OrderName {
		t.Errorf("plan = %q", r.ProductionPlan)
	}
}

func TestBuildPlanUnsupportedIsWarning(t *testing.T) {
	backend := newFakeBackend("X1")
	lines := []extractor.OrderLine{
		{SONumber: "SO-1", Customer: "A", ItemCode: "X1", Qty: 1, LocationCode: "AVINA14"},
	}

	results := newBuilder(backend).Build(context.Background(), GroupLines(lines), Options{CreateProductionPlans: true})
	if results[0].Status != StatusCreated || len(results[0].Warnings) != 1 {
		t.Fatalf("result = %+v", results[0])
	}
}

func TestOptionsFromSettings(t *testing.T) {
	s := &models.WatiSettings{TestMode: true, AutoSubmitSalesOrders: true}
	opts := OptionsFromSettings(s, "SEMSB")
	if opts.Company != "SEMSB" || !opts.TestMode || !opts.AutoSubmit || opts.CreateProductionPlans {
		t.Fatalf("opts = %+v", opts)
	}
	s.DefaultCompany = "Other"
	if OptionsFromSettings(s, "SEMSB").Company != "Other" {
		t.Fatal("settings company should win")
	}
}

func TestSummarize(t *testing.T) {
	results := []GroupResult{
		{SONumber: "SO-1", Customer: "A", Status: StatusValidated, Lines: []erp.SalesOrderItem{{ItemCode: "X1", Qty: 10, Warehouse: "FTY-1", DeliveryDate: "2025-05-01"}}},
		{SONumber: "SO-2", Customer: "B", Status: StatusRejected, Error: "Location 'AVINA99' not found in Location Mapping"},
	}
	out := Summarize(results)
	for _, want := range []string{"SO-1 (A): validated", "X1 x 10 -> FTY-1", "SO-2 (B): rejected - Location 'AVINA99'"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}
