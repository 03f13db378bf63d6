package odoo

import (
	"encoding/json"
	"fmt"

	"github.com/kolo/xmlrpc"
)

// Client is a thin Odoo XML-RPC client. Connections are opened per call; the
// xmlrpc transport keeps no useful state and Odoo closes idle sockets anyway.
type Client struct {
	URL       string
	Database  string
	Username  string
	Password  string
	Uid       int
	CommonURL string
	ObjectURL string
}

// NewClient creates a new Odoo client.
func NewClient(url, db, username, password string) *Client {
	return &Client{
		URL:       url,
		Database:  db,
		Username:  username,
		Password:  password,
		CommonURL: fmt.Sprintf("%s/xmlrpc/2/common", url),
		ObjectURL: fmt.Sprintf("%s/xmlrpc/2/object", url),
	}
}

// Authenticate logs in and caches the user id for execute_kw calls.
func (c *Client) Authenticate() (int, error) {
	client, err := xmlrpc.NewClient(c.CommonURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create XML-RPC client: %w", err)
	}
	defer client.Close()

	args := []interface{}{c.Database, c.Username, c.Password, make([]interface{}, 0)}
	var uid int
	if err := client.Call("authenticate", args, &uid); err != nil {
		return 0, fmt.Errorf("authentication failed: %w", err)
	}

	c.Uid = uid
	return uid, nil
}

// executeKw runs one execute_kw call against /xmlrpc/2/object.
func (c *Client) executeKw(model, method string, args []interface{}, kwargs map[string]interface{}, result interface{}) error {
	client, err := xmlrpc.NewClient(c.ObjectURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create XML-RPC client: %w", err)
	}
	defer client.Close()

	call := []interface{}{c.Database, c.Uid, c.Password, model, method, args}
	if kwargs != nil {
		call = append(call, kwargs)
	}
	if err := client.Call("execute_kw", call, result); err != nil {
		return fmt.Errorf("%s.%s failed: %w", model, method, err)
	}
	return nil
}

// SearchRead fetches records and decodes them into a slice of tagged structs.
// Odoo's dynamically-typed payload comes back as raw maps; re-marshalling
// through JSON lets the Odoo* wrapper types absorb the false-for-empty
// quirks.
func (c *Client) SearchRead(model string, domain []interface{}, fields []string, limit, offset int, result interface{}) error {
	var raw []map[string]interface{}
	err := c.executeKw(model, "search_read", []interface{}{domain}, map[string]interface{}{
		"fields": fields,
		"limit":  limit,
		"offset": offset,
	}, &raw)
	if err != nil {
		return err
	}

	jsonData, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to marshal raw result: %w", err)
	}
	if err := json.Unmarshal(jsonData, result); err != nil {
		return fmt.Errorf("failed to unmarshal into target: %w", err)
	}
	return nil
}

// Create inserts a record and returns its id.
func (c *Client) Create(model string, values map[string]interface{}) (int64, error) {
	var id int64
	if err := c.executeKw(model, "create", []interface{}{values}, nil, &id); err != nil {
		return 0, err
	}
	return id, nil
}

// Write updates existing records.
func (c *Client) Write(model string, ids []int64, values map[string]interface{}) error {
	var success bool
	if err := c.executeKw(model, "write", []interface{}{ids, values}, nil, &success); err != nil {
		return err
	}
	if !success {
		return fmt.Errorf("%s.write returned false", model)
	}
	return nil
}

// CallMethod invokes an arbitrary model method on a set of record ids, e.g.
// action_post on a draft account.move.
func (c *Client) CallMethod(model, method string, ids []int64) error {
	var result interface{}
	return c.executeKw(model, method, []interface{}{ids}, nil, &result)
}
