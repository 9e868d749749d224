package maystro

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/karimzem/fulfillment-backend/pkg/config"
	pkgerrors "github.com/karimzem/fulfillment-backend/pkg/errors"
)

var errBaseURLRequired = errors.New("maystro base url is required")

// Shipment is the courier-side view of an order.
type Shipment struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
}

// Client consumes the Maystro courier API.
type Client struct {
	http *resty.Client
}

// NewClient builds a Maystro client from configuration.
func NewClient(cfg config.MaystroConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errBaseURLRequired
	}
	http := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")
	if cfg.Token != "" {
		http.SetHeader("Authorization", "Token "+cfg.Token)
	}
	return &Client{http: http}, nil
}

// ShipmentStatus returns the courier status for the given order reference.
func (c *Client) ShipmentStatus(ctx context.Context, reference string) (string, error) {
	var out Shipment
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("reference", reference).
		SetResult(&out).
		Get("/api/shipments/{reference}")
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch shipment status")
	}
	if resp.StatusCode() == 404 {
		return "", pkgerrors.New(pkgerrors.CodeNotFound, "shipment not found")
	}
	if resp.IsError() {
		return "", pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("courier returned status %d", resp.StatusCode()))
	}
	return out.Status, nil
}

// IsDelivered reports whether a courier status string means final delivery.
func IsDelivered(status string) bool {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "LIVRE", "DELIVERED":
		return true
	}
	return false
}
