package ecomanager

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/karimzem/fulfillment-backend/pkg/config"
	pkgerrors "github.com/karimzem/fulfillment-backend/pkg/errors"
)

var errBaseURLRequired = errors.New("ecomanager base url is required")

// FeedCustomer is the buyer payload attached to a feed order.
type FeedCustomer struct {
	Name   string `json:"full_name"`
	Phone  string `json:"phone"`
	Wilaya string `json:"wilaya"`
}

// FeedItem is one line of a feed order.
type FeedItem struct {
	ProductID string `json:"product_id"`
	Title     string `json:"title"`
	Quantity  int    `json:"quantity"`
}

// FeedOrder is one order as served by the EcoManager API.
type FeedOrder struct {
	ID        int64           `json:"id"`
	Reference string          `json:"reference"`
	Status    string          `json:"status"`
	Total     decimal.Decimal `json:"total"`
	Store     string          `json:"store"`
	Customer  FeedCustomer    `json:"customer"`
	Items     []FeedItem      `json:"items"`
}

// FeedPage wraps one page of feed orders with its pagination metadata.
type FeedPage struct {
	Orders      []FeedOrder `json:"data"`
	CurrentPage int         `json:"current_page"`
	LastPage    int         `json:"last_page"`
}

// Client consumes the EcoManager order feed.
type Client struct {
	http *resty.Client
}

// NewClient builds an EcoManager feed client from configuration.
func NewClient(cfg config.EcoManagerConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errBaseURLRequired
	}
	http := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.Retries).
		SetHeader("Accept", "application/json")
	if cfg.Token != "" {
		http.SetAuthToken(cfg.Token)
	}
	return &Client{http: http}, nil
}

// FetchPage returns the requested page of orders for a store.
func (c *Client) FetchPage(ctx context.Context, store string, page int) (*FeedPage, error) {
	if page < 1 {
		page = 1
	}
	var out FeedPage
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("store", store).
		SetQueryParam("page", strconv.Itoa(page)).
		SetResult(&out).
		Get("/api/orders")
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeFeed, err, "fetch orders page")
	}
	if resp.IsError() {
		return nil, pkgerrors.New(pkgerrors.CodeFeed, fmt.Sprintf("feed returned status %d", resp.StatusCode()))
	}
	return &out, nil
}

// FetchNewerThan returns orders with an id strictly greater than lastID.
func (c *Client) FetchNewerThan(ctx context.Context, store string, lastID int64, limit int) ([]FeedOrder, error) {
	var out FeedPage
	req := c.http.R().
		SetContext(ctx).
		SetQueryParam("store", store).
		SetQueryParam("from_id", strconv.FormatInt(lastID, 10)).
		SetResult(&out)
	if limit > 0 {
		req.SetQueryParam("per_page", strconv.Itoa(limit))
	}
	resp, err := req.Get("/api/orders/new")
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeFeed, err, "fetch new orders")
	}
	if resp.IsError() {
		return nil, pkgerrors.New(pkgerrors.CodeFeed, fmt.Sprintf("feed returned status %d", resp.StatusCode()))
	}
	return out.Orders, nil
}
