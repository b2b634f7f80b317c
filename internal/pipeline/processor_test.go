package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/xelth-com/watibridge/internal/erp"
	"github.com/xelth-com/watibridge/internal/locations"
	"github.com/xelth-com/watibridge/internal/models"
	"github.com/xelth-com/watibridge/internal/orders"
	"github.com/xelth-com/watibridge/internal/store"
)

func renderListing(t *testing.T, rows ...string) []byte {
	t.Helper()
	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetCompression(false)
	doc.AddPage()
	doc.SetFont("Helvetica", "", 9)
	for i, row := range rows {
		doc.Text(10, 20+float64(i)*8, row)
	}
	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		t.Fatalf("render pdf: %v", err)
	}
	return buf.Bytes()
}

type fakeMessenger struct {
	mu        sync.Mutex
	pdf       []byte
	sendErr   error
	downloads int
	sent      []string
}

func (f *fakeMessenger) DownloadMedia(context.Context, string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloads++
	return f.pdf, nil
}

func (f *fakeMessenger) SendSessionMessage(_ context.Context, waID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, text)
	return nil
}

type fakeERP struct {
	mu      sync.Mutex
	created []erp.SalesOrderRequest
	writes  int
}

func (f *fakeERP) Name() string                                            { return "fake" }
func (f *fakeERP) Ping(context.Context) (string, error)                    { return "tester", nil }
func (f *fakeERP) ItemExists(context.Context, string) (bool, error)        { return true, nil }
func (f *fakeERP) CompanyCurrency(context.Context, string) (string, error) { return "MYR", nil }

func (f *fakeERP) EnsureCustomer(_ context.Context, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	return name, nil
}

func (f *fakeERP) CreateSalesOrder(_ context.Context, req erp.SalesOrderRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	f.created = append(f.created, req)
	return fmt.Sprintf("SAL-ORD-%05d", len(f.created)), nil
}

func (f *fakeERP) SubmitSalesOrder(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingPublisher) Broadcast(m interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := m.(Event); ok {
		r.events = append(r.events, e)
	}
}

type harness struct {
	proc      *Processor
	logs      *store.MemoryLogStore
	settings  *store.MemorySettingsStore
	messenger *fakeMessenger
	erp       *fakeERP
	events    *recordingPublisher
}

func newHarness(t *testing.T, pdf []byte, testMode bool) *harness {
	t.Helper()
	h := &harness{
		logs: store.NewMemoryLogStore(),
		settings: store.NewMemorySettingsStore(models.WatiSettings{
			TestMode:              testMode,
			NotifySenderOnSuccess: true,
			NotifySenderOnError:   true,
		}),
		messenger: &fakeMessenger{pdf: pdf},
		erp:       &fakeERP{},
		events:    &recordingPublisher{},
	}
	mapper := locations.NewMapper(locations.NewMemoryStore(
		models.LocationMapping{LocationCode: "AVINA14", Warehouse: "FTY-1", Active: true},
	))
	h.proc = NewProcessor(h.logs, h.settings, orders.NewBuilder(mapper, h.erp), nil,
		func(*models.WatiSettings) Messenger { return h.messenger }, h.events,
		Options{MaxConcurrent: 2, Timeout: 10 * time.Second, FallbackCompany: "SEMSB"})
	return h
}

const pdfEvent = `{"eventType":"message","type":"document","waId":"60123456789","id":"wamid.1","text":"SEM105.pdf","data":"https://live.wati.io/api/file/showFile?fileName=SEM105.pdf"}`

var listing1001 = []string{
	"Outstanding Sales Order Listing",
	"No Item Code Description Location Del. Date Qty",
	"SO-1001 ABC",
	"1 X1 WIDGET AVINA14 10/05/25 10",
}

func TestHandleCreatesOrderAndConfirms(t *testing.T) {
	h := newHarness(t, renderListing(t, listing1001...), false)

	res, err := h.proc.Handle(context.Background(), []byte(pdfEvent))
	if err != nil {
		t.Fatalf("Handle error: %v", err)
	}
	if res.Status != OutcomeSuccess {
		t.Fatalf("status = %s (%s)", res.Status, res.Message)
	}
	if len(h.erp.created) != 1 {
		t.Fatalf("created = %d", len(h.erp.created))
	}
	req := h.erp.created[0]
	want := erp.SalesOrderItem{ItemCode: "X1", Qty: 10, DeliveryDate: "2025-05-10", Warehouse: "FTY-1"}
	if req.PONumber != "SO-1001" || req.Customer != "ABC" || req.Company != "SEMSB" || len(req.Items) != 1 || req.Items[0] != want {
		t.Fatalf("request = %+v", req)
	}
	if len(h.messenger.sent) != 1 || !strings.Contains(h.messenger.sent[0], "SO-1001") {
		t.Fatalf("sent = %q", h.messenger.sent)
	}

	entry, err := h.logs.Get(context.Background(), res.LogID)
	if err != nil {
		t.Fatal(err)
	}
	if entry.Status != models.WebhookSuccess || entry.SalesOrdersCreated != "SAL-ORD-00001" {
		t.Fatalf("log = %+v", entry)
	}
	if entry.WhatsAppNumber != "60123456789" || entry.WatiMessageID != "wamid.1" {
		t.Fatalf("log identity = %+v", entry)
	}

	var statuses []models.WebhookStatus
	for _, e := range h.events.events {
		statuses = append(statuses, e.Status)
	}
	if len(statuses) < 3 || statuses[0] != models.WebhookReceived || statuses[len(statuses)-1] != models.WebhookSuccess {
		t.Fatalf("events = %v", statuses)
	}
}

func TestHandleIgnoresNonPDF(t *testing.T) {
	h := newHarness(t, nil, false)
	body := `{"eventType":"message","type":"text","waId":"1","text":"hello"}`

	res, err := h.proc.Handle(context.Background(), []byte(body))
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != OutcomeIgnored || res.Reason != "not a document" {
		t.Fatalf("result = %+v", res)
	}
	if h.messenger.downloads != 0 {
		t.Fatal("ignored event must not download")
	}
	entry, _ := h.logs.Get(context.Background(), res.LogID)
	if entry.Status != models.WebhookIgnored || entry.Reason != "not a document" {
		t.Fatalf("log = %+v", entry)
	}
}

func TestHandleIsolatesUnmappedGroup(t *testing.T) {
	h := newHarness(t, renderListing(t,
		"Outstanding Sales Order Listing",
		"No Item Code Description Location Del. Date Qty",
		"SO-1001 ABC",
		"1 X1 WIDGET AVINA14 10/05/25 10",
		"SO-1002 XYZ",
		"2 X2 GADGET AVINA99 10/05/25 5",
	), false)

	res, err := h.proc.Handle(context.Background(), []byte(pdfEvent))
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != OutcomeSuccess || len(res.Created) != 1 {
		t.Fatalf("result = %+v", res)
	}
	if len(h.erp.created) != 1 || h.erp.created[0].PONumber != "SO-1001" {
		t.Fatalf("created = %+v", h.erp.created)
	}
	msg := h.messenger.sent[0]
	if !strings.Contains(msg, "SO-1002 rejected") || !strings.Contains(msg, "AVINA99") {
		t.Fatalf("message = %q", msg)
	}
}

func TestHandleTestModeWritesNothing(t *testing.T) {
	h := newHarness(t, renderListing(t, listing1001...), true)

	res, err := h.proc.Handle(context.Background(), []byte(pdfEvent))
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != OutcomeTestMode {
		t.Fatalf("status = %s (%s)", res.Status, res.Message)
	}
	if h.erp.writes != 0 {
		t.Fatalf("test mode wrote %d times to the ERP", h.erp.writes)
	}
	if len(h.messenger.sent) != 0 {
		t.Fatalf("test mode replied %q", h.messenger.sent)
	}
	entry, _ := h.logs.Get(context.Background(), res.LogID)
	if entry.Status != models.WebhookSuccess || !strings.HasPrefix(entry.ErrorLog, "TEST MODE - Would create SOs for: SO-1001") {
		t.Fatalf("log = %+v", entry)
	}
	if !entry.TestMode {
		t.Fatal("log should be flagged as test mode")
	}
}

func TestHandleLayoutMismatch(t *testing.T) {
	h := newHarness(t, renderListing(t, "SO-1001 ABC", "1 X1 WIDGET AVINA14 10/05/25 10"), false)

	res, err := h.proc.Handle(context.Background(), []byte(pdfEvent))
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != OutcomeError || len(res.Groups) != 0 {
		t.Fatalf("result = %+v", res)
	}
	if h.erp.writes != 0 {
		t.Fatal("no order may be created for a mismatched layout")
	}
	if len(h.messenger.sent) != 1 || !strings.HasPrefix(h.messenger.sent[0], "Could not process your PDF. Issues: column header row not found") {
		t.Fatalf("sent = %q", h.messenger.sent)
	}
	entry, _ := h.logs.Get(context.Background(), res.LogID)
	if entry.Status != models.WebhookError || !strings.HasPrefix(entry.ErrorLog, "Parse errors: ") {
		t.Fatalf("log = %+v", entry)
	}
}

func TestHandleReplyFailureKeepsOrders(t *testing.T) {
	h := newHarness(t, renderListing(t, listing1001...), false)
	h.messenger.sendErr = errors.New("session expired")

	res, err := h.proc.Handle(context.Background(), []byte(pdfEvent))
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != OutcomeSuccess || len(h.erp.created) != 1 {
		t.Fatalf("result = %+v", res)
	}
}

func TestHandleInvalidJSON(t *testing.T) {
	h := newHarness(t, nil, false)
	if _, err := h.proc.Handle(context.Background(), []byte("{not json")); !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
}

func TestHandleIgnoresRedelivery(t *testing.T) {
	h := newHarness(t, renderListing(t, listing1001...), false)

	if _, err := h.proc.Handle(context.Background(), []byte(pdfEvent)); err != nil {
		t.Fatal(err)
	}
	res, err := h.proc.Handle(context.Background(), []byte(pdfEvent))
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != OutcomeIgnored || !strings.HasPrefix(res.Reason, "duplicate delivery") {
		t.Fatalf("result = %+v", res)
	}
	if len(h.erp.created) != 1 {
		t.Fatalf("created = %d", len(h.erp.created))
	}
}
