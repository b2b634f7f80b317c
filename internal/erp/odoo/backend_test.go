package odoo

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/xelth-com/watibridge/internal/erp"
)

func xmlrpcResponse(value string) string {
	return `<?xml version="1.0"?><methodResponse><params><param><value>` + value + `</value></param></params></methodResponse>`
}

func newOdooServer(t *testing.T, handle func(body string) string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		body := string(b)
		w.Header().Set("Content-Type", "text/xml")
		if r.URL.Path == "/xmlrpc/2/common" {
			_, _ = w.Write([]byte(xmlrpcResponse("<int>7</int>")))
			return
		}
		_, _ = w.Write([]byte(xmlrpcResponse(handle(body))))
	}))
}

func TestItemExists(t *testing.T) {
	ts := newOdooServer(t, func(body string) string {
		if !strings.Contains(body, "product.product") {
			t.Fatalf("unexpected call: %s", body)
		}
		if strings.Contains(body, "<string>X1</string>") {
			return "<array><data><value><int>42</int></value></data></array>"
		}
		return "<array><data></data></array>"
	})
	defer ts.Close()

	b := NewBackend(NewClient(ts.URL, "db", "admin", "pw"))
	ok, err := b.ItemExists(context.Background(), "X1")
	if err != nil || !ok {
		t.Fatalf("ItemExists(X1) = %v, %v", ok, err)
	}
	ok, err = b.ItemExists(context.Background(), "NOPE")
	if err != nil || ok {
		t.Fatalf("ItemExists(NOPE) = %v, %v", ok, err)
	}
}

func TestSubmitSalesOrderNotFound(t *testing.T) {
	ts := newOdooServer(t, func(body string) string {
		return "<array><data></data></array>"
	})
	defer ts.Close()

	b := NewBackend(NewClient(ts.URL, "db", "admin", "pw"))
	if err := b.SubmitSalesOrder(context.Background(), "S00001"); !errors.Is(err, erp.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSubmitSalesOrderConfirms(t *testing.T) {
	var confirmed bool
	ts := newOdooServer(t, func(body string) string {
		if strings.Contains(body, "action_confirm") {
			confirmed = true
			return "<boolean>1</boolean>"
		}
		return "<array><data><value><int>5</int></value></data></array>"
	})
	defer ts.Close()

	b := NewBackend(NewClient(ts.URL, "db", "admin", "pw"))
	if err := b.SubmitSalesOrder(context.Background(), "S00005"); err != nil {
		t.Fatalf("SubmitSalesOrder error: %v", err)
	}
	if !confirmed {
		t.Fatal("action_confirm was not called")
	}
}

func TestCreateSalesOrderRejectsBadCustomerRef(t *testing.T) {
	b := NewBackend(NewClient("http://127.0.0.1:1", "db", "admin", "pw"))
	_, err := b.CreateSalesOrder(context.Background(), erp.SalesOrderRequest{Customer: "ABC"})
	if err == nil {
		t.Fatal("expected error for non numeric partner reference")
	}
}
