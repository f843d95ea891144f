// Package remote talks to the hosted PostgREST-style backend: the validated
// ingest RPC plus direct inserts against the two table shapes.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"carecount/internal"
	"carecount/internal/config"
)

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(cfg config.Config) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.RemoteBaseURL, "/"),
		apiKey:     cfg.RemoteAPIKey,
		httpClient: &http.Client{Timeout: time.Duration(cfg.RemoteTimeoutMs) * time.Millisecond},
	}
}

type rpcRow struct {
	OK  bool   `json:"ok"`
	Msg string `json:"msg"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Postgres/PostgREST codes that mean the payload shape does not fit the
// destination table.
func isSchemaCode(code string) bool {
	switch code {
	case "42703", "42P01", "PGRST204", "PGRST205":
		return true
	default:
		return false
	}
}

// isMissingFunction covers an RPC that is not deployed or not exposed.
func isMissingFunction(status int, code string) bool {
	return status == http.StatusNotFound || code == "42883" || code == "PGRST202"
}

// ValidatedIngest calls the safe_ingest_visit_item stored procedure. An
// unreachable or undeployed function surfaces as internal.ErrStoreUnavailable
// so the reconciler can branch on it explicitly.
func (c *Client) ValidatedIngest(ctx context.Context, item internal.LoggedItem) (bool, string, error) {
	payload := map[string]any{
		"p_email":     item.VolunteerEmail,
		"p_visit_id":  item.VisitID,
		"p_item_name": item.ItemName,
		"p_qty":       item.Qty,
		"p_category":  item.Category,
		"p_unit":      item.Unit,
		"p_barcode":   item.Barcode,
		"p_ts":        item.Timestamp,
		"p_ingest_id": item.IngestID,
	}

	status, body, err := c.post(ctx, "/rest/v1/rpc/safe_ingest_visit_item", payload, false)
	if err != nil {
		return false, "", fmt.Errorf("%w: %v", internal.ErrStoreUnavailable, err)
	}
	if status < 200 || status >= 300 {
		var apiErr apiError
		_ = json.Unmarshal(body, &apiErr)
		if isMissingFunction(status, apiErr.Code) {
			return false, "", fmt.Errorf("%w: rpc not deployed (status %d)", internal.ErrStoreUnavailable, status)
		}
		return false, "", fmt.Errorf("%w: status %d: %s", internal.ErrStoreUnavailable, status, firstLine(body))
	}

	// The RPC returns a setof (ok boolean, msg text); some PostgREST setups
	// return an empty body, which counts as success.
	var rows []rpcRow
	if err := json.Unmarshal(body, &rows); err != nil || len(rows) == 0 {
		return true, "ok", nil
	}
	msg := rows[0].Msg
	if msg == "" {
		if rows[0].OK {
			msg = "ok"
		} else {
			msg = "failed"
		}
	}
	return rows[0].OK, msg, nil
}

func (c *Client) InsertPreferred(ctx context.Context, item internal.LoggedItem) error {
	return c.insert(ctx, internal.TablePreferred, itemPayload(item, true))
}

func (c *Client) InsertLegacy(ctx context.Context, item internal.LoggedItem) error {
	return c.insert(ctx, internal.TableLegacy, itemPayload(item, false))
}

func (c *Client) insert(ctx context.Context, table internal.ItemTable, payload map[string]any) error {
	status, body, err := c.post(ctx, "/rest/v1/"+string(table), payload, true)
	if err != nil {
		return err
	}
	if status >= 200 && status < 300 {
		return nil
	}

	var apiErr apiError
	_ = json.Unmarshal(body, &apiErr)
	// A unique violation on ingest_id means this exact submission already
	// landed; at-most-once achieved, not an error.
	if status == http.StatusConflict && apiErr.Code == "23505" {
		return nil
	}
	if isSchemaCode(apiErr.Code) {
		return &internal.SchemaError{Table: table, Code: apiErr.Code, Detail: apiErr.Message}
	}
	return fmt.Errorf("insert into %s: status %d: %s", table, status, firstLine(body))
}

func itemPayload(item internal.LoggedItem, withIngestID bool) map[string]any {
	payload := map[string]any{
		"visit_id":  item.VisitID,
		"volunteer": item.VolunteerEmail,
		"item_name": item.ItemName,
		"qty":       item.Qty,
		"category":  item.Category,
		"unit":      item.Unit,
		"barcode":   item.Barcode,
		"timestamp": item.Timestamp,
	}
	if withIngestID {
		payload["ingest_id"] = item.IngestID
	}
	return payload
}

func (c *Client) post(ctx context.Context, path string, payload any, minimal bool) (int, []byte, error) {
	if strings.TrimSpace(c.baseURL) == "" || strings.TrimSpace(c.apiKey) == "" {
		return 0, nil, errors.New("missing SUPABASE_URL or SUPABASE_KEY")
	}

	blob, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(blob))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if minimal {
		req.Header.Set("Prefer", "return=minimal")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}

func firstLine(body []byte) string {
	s := strings.TrimSpace(string(body))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
