// Package botsync mirrors participant records to the chatbot platform and
// pulls its study tables for local analysis.
package botsync

import (
	"fmt"
	"log/slog"
	"time"

	httpclient "github.com/joannku/unity-scheduler/pkg/http-client"
)

type Config struct {
	SQLURL         string   `json:"sql_url" yaml:"sql_url"`
	UploadURL      string   `json:"upload_url" yaml:"upload_url"`
	RemoveURL      string   `json:"remove_url" yaml:"remove_url"`
	RecalculateURL string   `json:"recalculate_url" yaml:"recalculate_url"`
	AuthKey        string   `json:"auth_key" yaml:"auth_key"`
	PageSize       int      `json:"page_size" yaml:"page_size"`
	Tables         []string `json:"tables" yaml:"tables"`
}

const defaultPageSize = 200

// Client talks to the chatbot platform's SQL and table-management endpoints.
type Client struct {
	sqlClient         httpclient.ClientConfig
	uploadClient      httpclient.ClientConfig
	removeClient      httpclient.ClientConfig
	recalculateClient httpclient.ClientConfig
	pageSize          int
	tables            []string
}

func NewClient(cfg Config, requestTimeout time.Duration) *Client {
	pageSize := cfg.PageSize
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	return &Client{
		sqlClient:         httpclient.ClientConfig{RootURL: cfg.SQLURL, AuthKey: cfg.AuthKey, Timeout: requestTimeout},
		uploadClient:      httpclient.ClientConfig{RootURL: cfg.UploadURL, AuthKey: cfg.AuthKey, Timeout: requestTimeout},
		removeClient:      httpclient.ClientConfig{RootURL: cfg.RemoveURL, AuthKey: cfg.AuthKey, Timeout: requestTimeout},
		recalculateClient: httpclient.ClientConfig{RootURL: cfg.RecalculateURL, AuthKey: cfg.AuthKey, Timeout: requestTimeout},
		pageSize:          pageSize,
		tables:            cfg.Tables,
	}
}

type sqlQueryReq struct {
	Query string `json:"query"`
}

func (c *Client) runQuery(query string) ([]map[string]interface{}, error) {
	var rows []map[string]interface{}
	err := c.sqlClient.RunHTTPcallInto("", sqlQueryReq{Query: query}, &rows)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// CountRows returns the row count of a remote table.
func (c *Client) CountRows(table string) (int, error) {
	rows, err := c.runQuery(fmt.Sprintf("SELECT COUNT(*) FROM %s", table))
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, fmt.Errorf("empty count response for table %s", table)
	}
	count, ok := rows[0]["COUNT(*)"].(float64)
	if !ok {
		return 0, fmt.Errorf("unexpected count response for table %s", table)
	}
	return int(count), nil
}

// FetchTable pulls all rows of a remote table, paging through SELECT
// queries when the table exceeds one page.
func (c *Client) FetchTable(table string) ([]map[string]interface{}, error) {
	total, err := c.CountRows(table)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		slog.Debug("No data in remote table, skipping", slog.String("table", table))
		return nil, nil
	}
	if total <= c.pageSize {
		return c.runQuery(fmt.Sprintf("SELECT * FROM %s", table))
	}

	totalPages := (total + c.pageSize - 1) / c.pageSize
	allRows := make([]map[string]interface{}, 0, total)
	for page := 0; page < totalPages; page++ {
		rows, err := c.runQuery(fmt.Sprintf("SELECT * FROM %s LIMIT %d OFFSET %d", table, c.pageSize, page*c.pageSize))
		if err != nil {
			slog.Error("Error fetching page", slog.String("table", table), slog.Int("page", page), slog.String("error", err.Error()))
			continue
		}
		allRows = append(allRows, rows...)
	}
	if len(allRows) != total {
		slog.Warn("Row count mismatch after paging",
			slog.String("table", table),
			slog.Int("expected", total),
			slog.Int("retrieved", len(allRows)))
	}
	return allRows, nil
}

type tableContentReq struct {
	TableName string      `json:"tablename"`
	Content   interface{} `json:"content"`
}

// UploadRows adds the given records to a remote table.
func (c *Client) UploadRows(table string, records []map[string]string) error {
	if len(records) == 0 {
		return nil
	}
	_, err := c.uploadClient.RunHTTPcall("", tableContentReq{TableName: table, Content: records})
	return err
}

// RemoveRow deletes one user's row from a remote table.
func (c *Client) RemoveRow(table string, userID string) error {
	return c.removeClient.RunHTTPcallInto("", tableContentReq{TableName: table, Content: userID}, nil)
}

// TriggerRecalculation asks the platform to recompute the day counter for
// the given users after visit-date changes.
func (c *Client) TriggerRecalculation(table string, userIDs []string) error {
	for _, userID := range userIDs {
		slog.Info("Triggering day counter recalculation", slog.String("userID", userID))
		if err := c.recalculateClient.RunHTTPcallInto("", tableContentReq{TableName: table, Content: userID}, nil); err != nil {
			return err
		}
	}
	return nil
}
