package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Fetcher loads the authoritative set of orders a view tracks.
type Fetcher interface {
	Fetch(ctx context.Context) ([]Order, error)
}

// HTTPFetcher reads orders from the API. With OrderIDs set it fetches each
// order individually, as a guest tracking page does; otherwise it lists
// GET /orders with Query.
type HTTPFetcher struct {
	BaseURL  string
	Token    string
	OrderIDs []string
	Query    url.Values
	Client   *http.Client
}

type envelope struct {
	Success bool            `json:"success"`
	Error   string          `json:"error"`
	Order   json.RawMessage `json:"order"`
	Orders  json.RawMessage `json:"orders"`
}

var ErrFetch = errors.New("fetch failed")

func (f *HTTPFetcher) Fetch(ctx context.Context) ([]Order, error) {
	if len(f.OrderIDs) == 0 {
		target := strings.TrimRight(f.BaseURL, "/") + "/orders"
		if len(f.Query) > 0 {
			target += "?" + f.Query.Encode()
		}
		env, err := f.get(ctx, target)
		if err != nil {
			return nil, err
		}
		var orders []Order
		if len(env.Orders) > 0 {
			if err := json.Unmarshal(env.Orders, &orders); err != nil {
				return nil, fmt.Errorf("decode orders: %w", err)
			}
		}
		return orders, nil
	}

	orders := make([]Order, 0, len(f.OrderIDs))
	for _, id := range f.OrderIDs {
		env, err := f.get(ctx, strings.TrimRight(f.BaseURL, "/")+"/orders/"+url.PathEscape(id))
		if err != nil {
			return nil, err
		}
		var o Order
		if err := json.Unmarshal(env.Order, &o); err != nil {
			return nil, fmt.Errorf("decode order %s: %w", id, err)
		}
		orders = append(orders, o)
	}
	return orders, nil
}

func (f *HTTPFetcher) get(ctx context.Context, target string) (*envelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if f.Token != "" {
		req.Header.Set("Authorization", "Bearer "+f.Token)
	}

	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: %s: decode body: %v", ErrFetch, target, err)
	}
	if resp.StatusCode != http.StatusOK || !env.Success {
		return nil, fmt.Errorf("%w: %s: %d %s", ErrFetch, target, resp.StatusCode, env.Error)
	}
	return &env, nil
}
