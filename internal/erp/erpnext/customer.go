package erpnext

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

const (
	defaultCustomerGroup = "All Customer Groups"
	defaultTerritory     = "All Territories"
)

// EnsureCustomer matches the customer by document name, then by
// customer_name, and creates a Company customer when neither exists.
func (c *Client) EnsureCustomer(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("customer name is empty")
	}

	names, err := c.listNames(ctx, "Customer", [][]interface{}{{"Customer", "name", "=", name}}, 1)
	if err != nil {
		return "", err
	}
	if len(names) > 0 {
		return names[0], nil
	}

	names, err = c.listNames(ctx, "Customer", [][]interface{}{{"Customer", "customer_name", "=", name}}, 1)
	if err != nil {
		return "", err
	}
	if len(names) > 0 {
		return names[0], nil
	}

	group, territory := c.sellingDefaults(ctx)
	doc := map[string]any{
		"customer_name":  name,
		"customer_type":  "Company",
		"customer_group": group,
		"territory":      territory,
	}
	var out nameResponse
	if err := c.do(ctx, "customer", http.MethodPost, "/api/resource/Customer", nil, doc, &out); err != nil {
		return "", err
	}
	if out.Data.Name == "" {
		return "", fmt.Errorf("erp customer: empty name in response")
	}
	return out.Data.Name, nil
}

// sellingDefaults reads Selling Settings; the stock ERPNext roots are used when unset or unreadable
func (c *Client) sellingDefaults(ctx context.Context) (string, string) {
	var payload struct {
		Data struct {
			CustomerGroup string `json:"customer_group"`
			Territory     string `json:"territory"`
		} `json:"data"`
	}
	path := "/api/resource/" + resource("Selling Settings") + "/" + resource("Selling Settings")
	if err := c.do(ctx, "selling settings", http.MethodGet, path, nil, nil, &payload); err != nil {
		return defaultCustomerGroup, defaultTerritory
	}

	group, territory := payload.Data.CustomerGroup, payload.Data.Territory
	if group == "" {
		group = defaultCustomerGroup
	}
	if territory == "" {
		territory = defaultTerritory
	}
	return group, territory
}
