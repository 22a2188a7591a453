package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"RedisVSCode-Webview/internal/connection"
)

const (
	defaultTimeout   = 30 * time.Second
	maxErrorBodySize = 64 * 1024
	keysEndpoint     = "keys"
	metadataEndpoint = "keys/get-metadata"
)

// Options configures the API client
type Options struct {
	BaseURL    string
	DatabaseID string
	Encoding   connection.Encoding
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client talks to the keys REST API of one database
type Client struct {
	baseURL    string
	databaseID string
	encoding   connection.Encoding
	http       *http.Client
}

func NewClient(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	enc := opts.Encoding
	if enc == "" {
		enc = connection.EncodingBuffer
	}
	dbID := strings.TrimSpace(opts.DatabaseID)
	if dbID == "" {
		dbID = "0"
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		databaseID: dbID,
		encoding:   enc,
		http:       hc,
	}
}

// GetKeys requests one scan page
func (c *Client) GetKeys(ctx context.Context, req connection.GetKeysRequest) ([]connection.ShardResponse, error) {
	var out []connection.ShardResponse
	if err := c.do(ctx, http.MethodPost, keysEndpoint, req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetKeysMetadata returns type, TTL, size and length of the named keys in
// request order
func (c *Client) GetKeysMetadata(ctx context.Context, req connection.KeysMetadataRequest) ([]connection.KeyInfo, error) {
	var out []connection.KeyInfo
	if err := c.do(ctx, http.MethodPost, metadataEndpoint, req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteKeys deletes the named keys
func (c *Client) DeleteKeys(ctx context.Context, names []connection.RedisString) (*connection.DeleteKeysResponse, error) {
	var out connection.DeleteKeysResponse
	body := connection.DeleteKeysRequest{KeyNames: names}
	if err := c.do(ctx, http.MethodDelete, keysEndpoint, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) url(path string) string {
	u := c.baseURL + "/databases/" + url.PathEscape(c.databaseID) + "/" + path
	q := url.Values{}
	q.Set("encoding", string(c.encoding))
	return u + "?" + q.Encode()
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("序列化请求失败：%w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return decodeError(resp.StatusCode, b)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("解析响应失败：%w", err)
	}
	return nil
}
