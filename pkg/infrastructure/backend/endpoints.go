package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/vsinha/requisition/pkg/domain/entities"
	"github.com/vsinha/requisition/pkg/domain/repositories"
)

// Login exchanges credentials for a token. Credential failures are reported
// as rejections since there is no session to invalidate yet.
func (c *Client) Login(ctx context.Context, email, password string) (*repositories.LoginResult, error) {
	body, err := c.do(ctx, call{
		endpoint: "auth.login",
		method:   http.MethodPost,
		path:     "auth/login/",
		body:     map[string]string{"email": email, "password": password},
	})
	if err != nil {
		var be *repositories.BackendError
		if errors.As(err, &be) && be.Kind == repositories.KindAuth {
			be.Kind = repositories.KindRejection
		}
		return nil, err
	}

	var payload wireLogin
	if err := decodeJSON(body, &payload, "login"); err != nil {
		return nil, err
	}
	if payload.Token == "" || payload.User == nil {
		return nil, &repositories.BackendError{Kind: repositories.KindValidation, Message: "login response is missing token or user"}
	}
	if err := payload.User.validate("login"); err != nil {
		return nil, err
	}
	return &repositories.LoginResult{Token: payload.Token, User: payload.User.toEntity()}, nil
}

// Profile fetches the user the token belongs to
func (c *Client) Profile(ctx context.Context, token string) (*entities.UserProfile, error) {
	body, err := c.do(ctx, call{endpoint: "auth.profile", method: http.MethodGet, path: "auth/profile/", token: token})
	if err != nil {
		return nil, err
	}
	var payload *wireProfile
	if err := decodeJSON(body, &payload, "profile"); err != nil {
		return nil, err
	}
	if err := payload.validate("profile"); err != nil {
		return nil, err
	}
	profile := payload.toEntity()
	return &profile, nil
}

// Logout revokes the token at the backend
func (c *Client) Logout(ctx context.Context, token string) error {
	_, err := c.do(ctx, call{endpoint: "auth.logout", method: http.MethodPost, path: "auth/logout/", token: token})
	return err
}

// StockLevels lists aggregate stock per variant. Entries without a variant
// are dropped.
func (c *Client) StockLevels(ctx context.Context, token string) ([]entities.StockLevel, error) {
	body, err := c.do(ctx, call{endpoint: "stock.list", method: http.MethodGet, path: "stock-levels/", token: token})
	if err != nil {
		return nil, err
	}

	raw, err := results(body, "stock level")
	if err != nil {
		return nil, err
	}
	var wire []wireStockLevel
	if err := decodeJSON(raw, &wire, "stock level"); err != nil {
		return nil, err
	}

	levels := make([]entities.StockLevel, 0, len(wire))
	for _, w := range wire {
		if w.Variant == nil {
			continue
		}
		level := entities.StockLevel{
			Variant:       w.Variant.toEntity(),
			TotalQuantity: entities.Quantity(w.TotalQuantity),
			IsLowStock:    w.IsLowStock,
			IsOutOfStock:  w.IsOutOfStock,
		}
		if w.LowStockThreshold != nil {
			threshold := entities.Quantity(*w.LowStockThreshold)
			level.LowStockThreshold = &threshold
		}
		levels = append(levels, level)
	}
	return levels, nil
}

// ListRequests lists the caller's requests
func (c *Client) ListRequests(ctx context.Context, token string) ([]entities.RequestRecord, error) {
	body, err := c.do(ctx, call{endpoint: "requests.list", method: http.MethodGet, path: "requests/", token: token})
	if err != nil {
		return nil, err
	}

	raw, err := results(body, "request list")
	if err != nil {
		return nil, err
	}
	var wire []wireRequest
	if err := decodeJSON(raw, &wire, "request list"); err != nil {
		return nil, err
	}

	records := make([]entities.RequestRecord, 0, len(wire))
	for i := range wire {
		records = append(records, wire[i].toEntity())
	}
	return records, nil
}

// CreateRequest creates a draft request from cart lines
func (c *Client) CreateRequest(ctx context.Context, token string, items []entities.DraftItem) (*entities.RequestRecord, error) {
	body, err := c.do(ctx, call{
		endpoint: "requests.create",
		method:   http.MethodPost,
		path:     "requests/",
		token:    token,
		body:     map[string]interface{}{"items": items},
	})
	if err != nil {
		return nil, err
	}
	return decodeRecord(body, "created request")
}

// GetRequest fetches one request with its items and approvals
func (c *Client) GetRequest(ctx context.Context, token string, id entities.RequestID) (*entities.RequestRecord, error) {
	body, err := c.do(ctx, call{
		endpoint: "requests.get",
		method:   http.MethodGet,
		path:     fmt.Sprintf("requests/%d/", id),
		token:    token,
	})
	if err != nil {
		return nil, err
	}
	return decodeRecord(body, "request detail")
}

// SubmitRequest moves a draft into review
func (c *Client) SubmitRequest(ctx context.Context, token string, id entities.RequestID) (*entities.ActionResult, error) {
	return c.action(ctx, token, id, "requests.submit", "submit")
}

// ReceiveRequest confirms receipt of a completed request
func (c *Client) ReceiveRequest(ctx context.Context, token string, id entities.RequestID) (*entities.ActionResult, error) {
	return c.action(ctx, token, id, "requests.receive", "receive")
}

func (c *Client) action(ctx context.Context, token string, id entities.RequestID, endpoint, verb string) (*entities.ActionResult, error) {
	body, err := c.do(ctx, call{
		endpoint: endpoint,
		method:   http.MethodPost,
		path:     fmt.Sprintf("requests/%d/%s/", id, verb),
		token:    token,
	})
	if err != nil {
		return nil, err
	}

	if len(body) == 0 {
		return &entities.ActionResult{}, nil
	}
	if !gjson.ValidBytes(body) {
		return nil, &repositories.BackendError{Kind: repositories.KindValidation, Message: "unexpected " + verb + " response"}
	}
	parsed := gjson.ParseBytes(body)
	if parsed.Get("id").Exists() {
		record, err := decodeRecord(body, verb+" response")
		if err != nil {
			return nil, err
		}
		return &entities.ActionResult{Record: record}, nil
	}
	message := parsed.Get("message").String()
	if message == "" {
		message = parsed.Get("status").String()
	}
	return &entities.ActionResult{Message: message}, nil
}

func decodeRecord(body []byte, what string) (*entities.RequestRecord, error) {
	var wire wireRequest
	if err := decodeJSON(body, &wire, what); err != nil {
		return nil, err
	}
	if wire.ID <= 0 {
		return nil, &repositories.BackendError{Kind: repositories.KindValidation, Message: "unexpected " + what + " response: missing id"}
	}
	record := wire.toEntity()
	return &record, nil
}

// results extracts the array of a {results: [...]} envelope. A bare array
// is accepted for unpaginated deployments.
func results(body []byte, what string) ([]byte, error) {
	if !gjson.ValidBytes(body) {
		return nil, &repositories.BackendError{Kind: repositories.KindValidation, Message: "unexpected " + what + " response: invalid JSON"}
	}
	parsed := gjson.ParseBytes(body)
	if parsed.IsArray() {
		return body, nil
	}
	list := parsed.Get("results")
	if !parsed.IsObject() || !list.IsArray() {
		return nil, &repositories.BackendError{Kind: repositories.KindValidation, Message: "unexpected " + what + " response: missing results"}
	}
	return []byte(list.Raw), nil
}
