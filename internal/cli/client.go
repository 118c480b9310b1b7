package cli

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

	"github.com/google/uuid"
	"github.com/hyperjump/kensaku/internal/indexer"
	"github.com/hyperjump/kensaku/internal/models"
)

// Client talks to a running Kensaku server.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for the server at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultClientTimeout},
	}
}

func (c *Client) CreateCollection(ctx context.Context, name string) (bool, error) {
	resp, err := c.do(ctx, http.MethodPost, "/collections/"+url.PathEscape(name), nil)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusCreated:
		return true, nil
	case http.StatusOK:
		return false, nil
	default:
		return false, responseError(resp)
	}
}

func (c *Client) DeleteCollection(ctx context.Context, name string) (bool, error) {
	resp, err := c.do(ctx, http.MethodDelete, "/collections/"+url.PathEscape(name), nil)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusNoContent, http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, responseError(resp)
	}
}

func (c *Client) ListCollections(ctx context.Context) ([]string, error) {
	var out struct {
		Collections []string `json:"collections"`
	}
	if err := c.getJSON(ctx, "/collections", &out); err != nil {
		return nil, err
	}
	return out.Collections, nil
}

func (c *Client) DescribeCollection(ctx context.Context, name string) (*models.CollectionInfo, error) {
	var info models.CollectionInfo
	if err := c.getJSON(ctx, "/collections/"+url.PathEscape(name), &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) Index(ctx context.Context, collection string, item models.Item) (bool, error) {
	resp, err := c.do(ctx, http.MethodPost, "/index/"+url.PathEscape(collection), item)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return false, responseError(resp)
	}
	var out struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, fmt.Errorf("decode response: %w", err)
	}
	return out.Status == "indexed", nil
}

func (c *Client) IndexItems(ctx context.Context, collection string, items []models.Item, progress func(done, total int)) (indexer.Stats, error) {
	return indexItemsOneByOne(ctx, items, progress, func(ctx context.Context, item models.Item) (bool, error) {
		return c.Index(ctx, collection, item)
	})
}

func (c *Client) Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error) {
	start := time.Now()
	params := url.Values{"q": {query.Query}}
	if query.Limit > 0 {
		params.Set("limit", strconv.Itoa(query.Limit))
	}
	var results []*models.SearchResult
	if err := c.getJSON(ctx, "/search/"+url.PathEscape(query.Collection)+"?"+params.Encode(), &results); err != nil {
		return nil, err
	}
	if results == nil {
		results = []*models.SearchResult{}
	}
	return &models.SearchResponse{
		Collection: query.Collection,
		Query:      query.Query,
		Results:    results,
		Total:      len(results),
		QueryTime:  time.Since(start).Milliseconds(),
	}, nil
}

func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	var s StatusResponse
	if err := c.getJSON(ctx, "/status", &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return responseError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-Id", uuid.NewString())
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

// responseError turns a non-success response into an error carrying the matching sentinel.
func responseError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	raw, _ := io.ReadAll(resp.Body)
	msg := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		msg = body.Error
	}
	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w (server: %s)", models.ErrCollectionNotFound, msg)
	case http.StatusBadRequest:
		return fmt.Errorf("%w (server: %s)", models.ErrInvalidArgument, msg)
	default:
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, msg)
	}
}
