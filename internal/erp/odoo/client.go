// Package odoo is the Odoo XML-RPC alternative to the ERPNext backend.
package odoo

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kolo/xmlrpc"
)

// Client is an Odoo XML-RPC client
type Client struct {
	URL       string
	Database  string
	Username  string
	Password  string
	Uid       int
	CommonURL string
	ObjectURL string
}

// NewClient creates a new Odoo client
func NewClient(url, db, username, password string) *Client {
	url = strings.TrimRight(url, "/")
	return &Client{
		URL:       url,
		Database:  db,
		Username:  username,
		Password:  password,
		CommonURL: fmt.Sprintf("%s/xmlrpc/2/common", url),
		ObjectURL: fmt.Sprintf("%s/xmlrpc/2/object", url),
	}
}

// Authenticate logs in and stores the user id for later calls
func (c *Client) Authenticate() (int, error) {
	client, err := xmlrpc.NewClient(c.CommonURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create XML-RPC client: %w", err)
	}
	defer client.Close()

	args := []interface{}{c.Database, c.Username, c.Password, map[string]interface{}{}}
	var uid int
	if err := client.Call("authenticate", args, &uid); err != nil {
		return 0, fmt.Errorf("authentication failed: %w", err)
	}
	if uid == 0 {
		return 0, fmt.Errorf("authentication failed: invalid credentials for %s", c.Username)
	}

	c.Uid = uid
	return uid, nil
}

func (c *Client) ensureAuth() error {
	if c.Uid != 0 {
		return nil
	}
	_, err := c.Authenticate()
	return err
}

// execute runs execute_kw on model with positional args and keyword options
func (c *Client) execute(model, method string, args []interface{}, kwargs map[string]interface{}, result interface{}) error {
	if err := c.ensureAuth(); err != nil {
		return err
	}

	client, err := xmlrpc.NewClient(c.ObjectURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create XML-RPC client: %w", err)
	}
	defer client.Close()

	params := []interface{}{c.Database, c.Uid, c.Password, model, method, args}
	if kwargs != nil {
		params = append(params, kwargs)
	}
	if err := client.Call("execute_kw", params, result); err != nil {
		return fmt.Errorf("odoo %s.%s: %w", model, method, err)
	}
	return nil
}

// SearchRead runs search_read and decodes the rows into result (a pointer to a slice of structs with json tags)
func (c *Client) SearchRead(model string, domain []interface{}, fields []string, limit int, result interface{}) error {
	var raw []map[string]interface{}
	kwargs := map[string]interface{}{"fields": fields, "limit": limit}
	if err := c.execute(model, "search_read", []interface{}{domain}, kwargs, &raw); err != nil {
		return err
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to marshal raw result: %w", err)
	}
	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("failed to unmarshal into target: %w", err)
	}
	return nil
}

// Search returns the ids matching domain
func (c *Client) Search(model string, domain []interface{}, limit int) ([]int64, error) {
	var ids []int64
	if err := c.execute(model, "search", []interface{}{domain}, map[string]interface{}{"limit": limit}, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// Create creates a new record
func (c *Client) Create(model string, values map[string]interface{}) (int64, error) {
	var id int64
	if err := c.execute(model, "create", []interface{}{values}, nil, &id); err != nil {
		return 0, err
	}
	return id, nil
}

// CallMethod calls a model method on the given records
func (c *Client) CallMethod(model, method string, ids []int64) (interface{}, error) {
	var result interface{}
	if err := c.execute(model, method, []interface{}{ids}, nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}
