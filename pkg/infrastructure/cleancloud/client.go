// Package cleancloud creates orders in the CleanCloud POS after a
// successful payment, and serves the retail product list from it.
package cleancloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"kiosk/pkg/domain/model"
	"kiosk/pkg/domain/service"
)

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

type productsResponse struct {
	Products []struct {
		ID         int    `json:"id"`
		Name       string `json:"name"`
		PriceCents int64  `json:"price"`
	} `json:"products"`
}

// Products lists the retail shelf. Failures degrade to an empty list so the
// retail screen still renders, just without items.
func (c *Client) Products(ctx context.Context) ([]model.Product, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/products", nil)
	if err != nil {
		return nil, errors.Wrap(err, "build products request")
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		log.WithError(err).Warn("product fetch failed, degrading to empty list")
		return []model.Product{}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.WithField("status", resp.StatusCode).Warn("product fetch failed, degrading to empty list")
		return []model.Product{}, nil
	}

	var body productsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		log.WithError(err).Warn("product payload malformed, degrading to empty list")
		return []model.Product{}, nil
	}

	out := make([]model.Product, 0, len(body.Products))
	for _, p := range body.Products {
		out = append(out, model.Product{ID: p.ID, Name: p.Name, PriceCents: p.PriceCents})
	}
	return out, nil
}

type orderRequest struct {
	MachineIDs []int          `json:"machineIds"`
	Products   []orderProduct `json:"products"`
	TotalCents int64          `json:"totalCents"`
}

type orderProduct struct {
	ProductID int   `json:"productId"`
	Quantity  int   `json:"quantity"`
	Cents     int64 `json:"priceCents"`
}

type orderResponse struct {
	Success bool   `json:"success"`
	OrderID string `json:"orderId"`
}

func (c *Client) Create(ctx context.Context, summary *service.CartSummary) (service.OrderResult, error) {
	payload := orderRequest{
		MachineIDs: append(append([]int{}, summary.WasherIDs...), summary.DryerIDs...),
		TotalCents: summary.TotalCents,
	}
	for _, p := range summary.Products {
		payload.Products = append(payload.Products, orderProduct{
			ProductID: p.ProductID,
			Quantity:  p.Quantity,
			Cents:     p.PriceCents,
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return service.OrderResult{}, errors.Wrap(err, "encode order request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/addOrder", bytes.NewReader(body))
	if err != nil {
		return service.OrderResult{}, errors.Wrap(err, "build order request")
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return service.OrderResult{}, errors.Wrap(err, "create order")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return service.OrderResult{}, fmt.Errorf("create order: unexpected status %d", resp.StatusCode)
	}

	var decoded orderResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return service.OrderResult{}, errors.Wrap(err, "decode order response")
	}
	return service.OrderResult{Success: decoded.Success, OrderID: decoded.OrderID}, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

var (
	_ service.ProductSource = (*Client)(nil)
	_ service.OrderCreator  = (*Client)(nil)
)
