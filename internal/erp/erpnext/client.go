// Package erpnext talks to the Frappe REST API of an ERPNext site.
package erpnext

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/xelth-com/watibridge/internal/erp"
)

// Client is an ERPNext REST client authenticated with an API key pair
type Client struct {
	baseURL   string
	apiKey    string
	apiSecret string
	http      *http.Client
}

type getUserResponse struct {
	Message string `json:"message"`
}

type nameResponse struct {
	Data struct {
		Name string `json:"name"`
	} `json:"data"`
}

type listNamesResponse struct {
	Data []struct {
		Name string `json:"name"`
	} `json:"data"`
}

// New creates a client for the site at baseURL
func New(baseURL, apiKey, apiSecret string) *Client {
	return &Client{
		baseURL:   strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:    strings.TrimSpace(apiKey),
		apiSecret: strings.TrimSpace(apiSecret),
		http:      &http.Client{Timeout: 30 * time.Second},
	}
}

var _ erp.Backend = (*Client)(nil)
var _ erp.ProductionPlanner = (*Client)(nil)

func (c *Client) Name() string { return "erpnext" }

// Ping returns the user the API key belongs to
func (c *Client) Ping(ctx context.Context) (string, error) {
	var payload getUserResponse
	if err := c.do(ctx, "ping", http.MethodGet, "/api/method/frappe.auth.get_logged_user", nil, nil, &payload); err != nil {
		return "", err
	}
	if strings.TrimSpace(payload.Message) == "" {
		return "", fmt.Errorf("erp ping: empty user")
	}
	return payload.Message, nil
}

// ItemExists checks the Item master
func (c *Client) ItemExists(ctx context.Context, itemCode string) (bool, error) {
	names, err := c.listNames(ctx, "Item", [][]interface{}{{"Item", "name", "=", itemCode}}, 1)
	if err != nil {
		return false, err
	}
	return len(names) > 0, nil
}

// CompanyCurrency returns the default currency of company, or "" when unset
func (c *Client) CompanyCurrency(ctx context.Context, company string) (string, error) {
	q := url.Values{}
	q.Set("fields", `["name","default_currency"]`)
	q.Set("filters", mustJSON([][]interface{}{{"Company", "name", "=", company}}))
	q.Set("limit_page_length", "1")

	var payload struct {
		Data []struct {
			DefaultCurrency string `json:"default_currency"`
		} `json:"data"`
	}
	if err := c.do(ctx, "company", http.MethodGet, "/api/resource/Company", q, nil, &payload); err != nil {
		return "", err
	}
	if len(payload.Data) == 0 {
		return "", fmt.Errorf("company %q: %w", company, erp.ErrNotFound)
	}
	return strings.TrimSpace(payload.Data[0].DefaultCurrency), nil
}

// CreateSalesOrder inserts a draft Sales Order
func (c *Client) CreateSalesOrder(ctx context.Context, req erp.SalesOrderRequest) (string, error) {
	doc := map[string]any{
		"doctype":       "Sales Order",
		"company":       req.Company,
		"customer":      req.Customer,
		"po_no":         req.PONumber,
		"po_date":       req.PODate,
		"delivery_date": req.DeliveryDate,
		"order_type":    req.OrderType,
		"items":         req.Items,
	}
	if req.Currency != "" {
		doc["currency"] = req.Currency
	}

	var out nameResponse
	if err := c.do(ctx, "sales order", http.MethodPost, "/api/resource/"+resource("Sales Order"), nil, doc, &out); err != nil {
		return "", err
	}
	name := strings.TrimSpace(out.Data.Name)
	if name == "" {
		return "", fmt.Errorf("erp sales order: empty name in response")
	}
	return name, nil
}

// SubmitSalesOrder moves a draft order to docstatus 1
func (c *Client) SubmitSalesOrder(ctx context.Context, name string) error {
	path := "/api/resource/" + resource("Sales Order") + "/" + url.PathEscape(name)
	return c.do(ctx, "submit sales order", http.MethodPut, path, nil, map[string]any{"docstatus": 1}, nil)
}

func (c *Client) listNames(ctx context.Context, doctype string, filters [][]interface{}, limit int) ([]string, error) {
	q := url.Values{}
	q.Set("fields", `["name"]`)
	q.Set("filters", mustJSON(filters))
	q.Set("limit_page_length", strconv.Itoa(limit))

	var payload listNamesResponse
	op := strings.ToLower(doctype)
	if err := c.do(ctx, op, http.MethodGet, "/api/resource/"+resource(doctype), q, nil, &payload); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(payload.Data))
	for _, r := range payload.Data {
		if n := strings.TrimSpace(r.Name); n != "" {
			names = append(names, n)
		}
	}
	return names, nil
}

// do sends one request; body is JSON encoded, out is JSON decoded when non-nil
func (c *Client) do(ctx context.Context, op, method, path string, q url.Values, body, out any) error {
	endpoint := c.baseURL + path
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("erp %s encode: %w", op, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	c.setAuthHeader(req)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("erp %s: %w", op, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &erp.HTTPError{Op: op, StatusCode: resp.StatusCode, Message: serverMessage(respBody)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("erp %s json parse: %w", op, err)
	}
	return nil
}

func (c *Client) setAuthHeader(req *http.Request) {
	req.Header.Set("Authorization", fmt.Sprintf("token %s:%s", c.apiKey, c.apiSecret))
}

// serverMessage pulls the human readable part out of a Frappe error body
func serverMessage(body []byte) string {
	var payload struct {
		Exception      string `json:"exception"`
		ServerMessages string `json:"_server_messages"`
		Message        string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.ServerMessages != "" {
			var msgs []string
			if json.Unmarshal([]byte(payload.ServerMessages), &msgs) == nil && len(msgs) > 0 {
				var first struct {
					Message string `json:"message"`
				}
				if json.Unmarshal([]byte(msgs[0]), &first) == nil && first.Message != "" {
					return first.Message
				}
			}
		}
		if payload.Exception != "" {
			return payload.Exception
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 300 {
		msg = msg[:300]
	}
	return msg
}

func resource(doctype string) string {
	return url.PathEscape(doctype)
}

func mustJSON(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}
