// Package payments submits card charges to the payment gateway.
package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"kiosk/pkg/domain/service"
)

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type chargeRequest struct {
	ReferenceID string `json:"referenceId"`
	AmountCents int64  `json:"amountCents"`
	MachineIDs  []int  `json:"machineIds"`
}

type chargeResponse struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transactionId"`
	OrderID       string `json:"orderId"`
	Error         string `json:"error"`
}

// Process charges the cart total. A decline comes back as a non-success
// result, not an error; errors mean the gateway could not be reached at all.
func (c *Client) Process(ctx context.Context, referenceID string, summary *service.CartSummary) (service.PaymentResult, error) {
	payload := chargeRequest{
		ReferenceID: referenceID,
		AmountCents: summary.TotalCents,
		MachineIDs:  append(append([]int{}, summary.WasherIDs...), summary.DryerIDs...),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return service.PaymentResult{}, errors.Wrap(err, "encode charge request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/charge", bytes.NewReader(body))
	if err != nil {
		return service.PaymentResult{}, errors.Wrap(err, "build charge request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return service.PaymentResult{}, errors.Wrap(err, "process payment")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return service.PaymentResult{}, fmt.Errorf("process payment: unexpected status %d", resp.StatusCode)
	}

	var decoded chargeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return service.PaymentResult{}, errors.Wrap(err, "decode charge response")
	}
	return service.PaymentResult{
		Success:       decoded.Success,
		TransactionID: decoded.TransactionID,
		OrderID:       decoded.OrderID,
		Error:         decoded.Error,
	}, nil
}

var _ service.PaymentProcessor = (*Client)(nil)
