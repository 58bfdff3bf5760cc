// Package huebsch talks to the vending controller's HTTP API: machine
// status, availability, and start commands.
package huebsch

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
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type statusResponse struct {
	Data []struct {
		MachineID        int    `json:"machineId"`
		StatusID         string `json:"statusId"`
		RemainingSeconds int    `json:"remainingSeconds"`
		RemainingVend    int64  `json:"remainingVend"`
	} `json:"data"`
}

// MachineStatuses fetches the live status feed. A failing or malformed feed
// degrades to an empty list: the screens stay renderable, though every
// machine will show as unknown. The warn log keeps the degradation visible.
func (c *Client) MachineStatuses(ctx context.Context) ([]model.MachineStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/machines/status", nil)
	if err != nil {
		return nil, errors.Wrap(err, "build status request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		log.WithError(err).Warn("machine status fetch failed, degrading to empty list")
		return []model.MachineStatus{}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.WithField("status", resp.StatusCode).Warn("machine status fetch failed, degrading to empty list")
		return []model.MachineStatus{}, nil
	}

	var body statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		log.WithError(err).Warn("machine status payload malformed, degrading to empty list")
		return []model.MachineStatus{}, nil
	}

	out := make([]model.MachineStatus, 0, len(body.Data))
	for _, d := range body.Data {
		out = append(out, model.MachineStatus{
			MachineID:          d.MachineID,
			State:              model.ParseMachineState(d.StatusID),
			RemainingSeconds:   d.RemainingSeconds,
			RemainingVendCents: d.RemainingVend,
		})
	}
	return out, nil
}

// Check reports whether every given machine is still free. It reads the
// same degraded status feed as the listing, so an unreachable controller
// reports every machine as unavailable rather than failing the call. Either
// way checkout stops before payment; a machine only passes on a positive
// AVAILABLE report.
func (c *Client) Check(ctx context.Context, machineIDs []int) (service.Availability, error) {
	statuses, err := c.MachineStatuses(ctx)
	if err != nil {
		return service.Availability{}, err
	}

	byID := make(map[int]model.MachineStatus, len(statuses))
	for _, st := range statuses {
		byID[st.MachineID] = st
	}

	var unavailable []int
	for _, id := range machineIDs {
		st, ok := byID[id]
		if !ok || st.State != model.StateAvailable {
			unavailable = append(unavailable, id)
		}
	}
	return service.Availability{
		Available:             len(unavailable) == 0,
		UnavailableMachineIDs: unavailable,
	}, nil
}

type startRequest struct {
	Machines []startMachine `json:"machines"`
}

type startMachine struct {
	MachineID int    `json:"machineId"`
	CycleID   string `json:"cycleId"`
	Minutes   int    `json:"minutes,omitempty"`
	VendCents int64  `json:"vendCents"`
}

type startResponse struct {
	Success  bool `json:"success"`
	Machines []struct {
		MachineID int  `json:"machineId"`
		Started   bool `json:"started"`
	} `json:"machines"`
}

// Start sets the vend amount and cycle on each machine and starts it.
func (c *Client) Start(ctx context.Context, commands []service.StartCommand) ([]service.StartResult, error) {
	payload := startRequest{Machines: make([]startMachine, 0, len(commands))}
	for _, cmd := range commands {
		payload.Machines = append(payload.Machines, startMachine{
			MachineID: cmd.MachineID,
			CycleID:   cmd.Selection.CycleID,
			Minutes:   cmd.Selection.DurationMinutes,
			VendCents: cmd.Selection.PriceCents,
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "encode start request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/machines/start", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build start request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "start machines")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("start machines: unexpected status %d", resp.StatusCode)
	}

	var decoded startResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, errors.Wrap(err, "decode start response")
	}

	out := make([]service.StartResult, 0, len(decoded.Machines))
	for _, m := range decoded.Machines {
		out = append(out, service.StartResult{MachineID: m.MachineID, Started: m.Started})
	}
	return out, nil
}

var (
	_ service.StatusSource        = (*Client)(nil)
	_ service.AvailabilityChecker = (*Client)(nil)
	_ service.MachineStarter      = (*Client)(nil)
)
