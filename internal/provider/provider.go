// Package provider talks to the remote top-up service that fulfills API
// purchase orders.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

var ErrRemoteFailure = errors.New("provider request failed")

// OrderStatus is the provider's view of one order. Status is the raw
// provider token; the reconciler owns the mapping onto local statuses.
type OrderStatus struct {
	Success    bool
	Status     string
	Message    string
	PlayerName string
}

// CreatedOrder is the provider's reply to placing an order.
type CreatedOrder struct {
	ExternalOrderID int64
	Status          string
	Message         string
}

type Client interface {
	GetOrderStatus(ctx context.Context, externalOrderID int64, gameCode string) (OrderStatus, error)
	CreateOrder(ctx context.Context, req CreateOrderRequest) (CreatedOrder, error)
}

type CreateOrderRequest struct {
	GameCode      string
	CatalogueName string
	PlayerID      string
	ServerID      string
	Remark        string
}

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type client struct {
	http *resty.Client
}

func NewClient(cfg Config) Client {
	c := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("X-API-Key", cfg.APIKey).
		SetHeader("Content-Type", "application/json")
	if cfg.Timeout > 0 {
		c.SetTimeout(cfg.Timeout)
	}

	return &client{http: c}
}

// statusEnvelope matches the provider's response. Status and message show
// up either inside the order object or at the root depending on endpoint
// version; order wins.
type statusEnvelope struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
	Message string `json:"message"`
	Order   struct {
		Status     string `json:"status"`
		Message    string `json:"message"`
		PlayerName string `json:"player_name"`
	} `json:"order"`
}

func (c *client) GetOrderStatus(ctx context.Context, externalOrderID int64, gameCode string) (OrderStatus, error) {
	var env statusEnvelope

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]any{"order_id": externalOrderID, "game": gameCode}).
		SetResult(&env).
		Post("/games/order/status")
	if err != nil {
		return OrderStatus{}, fmt.Errorf("%w: %v", ErrRemoteFailure, err)
	}

	if resp.StatusCode() != http.StatusOK {
		return OrderStatus{}, fmt.Errorf("%w: status %d", ErrRemoteFailure, resp.StatusCode())
	}

	status := env.Order.Status
	if status == "" {
		status = env.Status
	}

	message := env.Order.Message
	if message == "" {
		message = env.Message
	}

	return OrderStatus{
		Success:    env.Success,
		Status:     status,
		Message:    message,
		PlayerName: env.Order.PlayerName,
	}, nil
}

type createEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Order   struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
	} `json:"order"`
}

func (c *client) CreateOrder(ctx context.Context, req CreateOrderRequest) (CreatedOrder, error) {
	body := map[string]any{
		"catalogue_name": req.CatalogueName,
		"player_id":      req.PlayerID,
	}
	if req.ServerID != "" {
		body["server_id"] = req.ServerID
	}
	if req.Remark != "" {
		body["remark"] = req.Remark
	}

	var env createEnvelope

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&env).
		Post(fmt.Sprintf("/games/%s/order", req.GameCode))
	if err != nil {
		return CreatedOrder{}, fmt.Errorf("%w: %v", ErrRemoteFailure, err)
	}

	if resp.StatusCode() != http.StatusOK || !env.Success {
		return CreatedOrder{}, fmt.Errorf("%w: status %d: %s", ErrRemoteFailure, resp.StatusCode(), env.Message)
	}

	return CreatedOrder{
		ExternalOrderID: env.Order.ID,
		Status:          env.Order.Status,
		Message:         env.Message,
	}, nil
}
