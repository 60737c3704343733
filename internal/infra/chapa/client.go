package chapa

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

var ErrGatewayRejected = errors.New("chapa rejected the request")

type Client struct {
	baseURL   string
	secretKey string
	http      *http.Client
}

type Config struct {
	BaseURL   string
	SecretKey string
}

type InitializeRequest struct {
	Amount      int64
	Currency    string
	Email       string
	FirstName   string
	LastName    string
	TxRef       string
	CallbackURL string
	Title       string
	Description string
}

type InitializeResult struct {
	CheckoutURL string
	TxRef       string
}

type VerifyResult struct {
	Status   string
	TxRef    string
	Amount   int64
	Currency string
}

type initializeBody struct {
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Email       string            `json:"email"`
	FirstName   string            `json:"first_name"`
	LastName    string            `json:"last_name"`
	TxRef       string            `json:"tx_ref"`
	CallbackURL string            `json:"callback_url,omitempty"`
	Custom      map[string]string `json:"customization,omitempty"`
}

type apiEnvelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func NewClient(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		secretKey: cfg.SecretKey,
		http:      httpClient,
	}
}

func (c *Client) Initialize(ctx context.Context, in InitializeRequest) (InitializeResult, error) {
	if in.Amount <= 0 || in.Currency == "" || in.Email == "" || in.TxRef == "" {
		return InitializeResult{}, fmt.Errorf("invalid initialize payload")
	}

	body := initializeBody{
		Amount:      in.Amount,
		Currency:    strings.ToUpper(in.Currency),
		Email:       in.Email,
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		TxRef:       in.TxRef,
		CallbackURL: in.CallbackURL,
	}
	if in.Title != "" || in.Description != "" {
		body.Custom = map[string]string{
			"title":       in.Title,
			"description": in.Description,
		}
	}

	var data struct {
		CheckoutURL string `json:"checkout_url"`
	}
	if err := c.post(ctx, "/transaction/initialize", body, &data); err != nil {
		return InitializeResult{}, err
	}
	if data.CheckoutURL == "" {
		return InitializeResult{}, fmt.Errorf("chapa returned empty checkout url: %w", ErrGatewayRejected)
	}

	return InitializeResult{
		CheckoutURL: data.CheckoutURL,
		TxRef:       in.TxRef,
	}, nil
}

func (c *Client) Verify(ctx context.Context, txRef string) (VerifyResult, error) {
	if strings.TrimSpace(txRef) == "" {
		return VerifyResult{}, fmt.Errorf("tx_ref is required")
	}

	var data struct {
		Status   string `json:"status"`
		TxRef    string `json:"tx_ref"`
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
	}
	if err := c.get(ctx, "/transaction/verify/"+txRef, &data); err != nil {
		return VerifyResult{}, err
	}

	return VerifyResult{
		Status:   data.Status,
		TxRef:    data.TxRef,
		Amount:   data.Amount,
		Currency: data.Currency,
	}, nil
}

func (c *Client) post(ctx context.Context, path string, body any, target any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal chapa request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("build chapa request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, target)
}

func (c *Client) get(ctx context.Context, path string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build chapa request: %w", err)
	}

	return c.do(req, target)
}

func (c *Client) do(req *http.Request, target any) error {
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call chapa: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	var envelope apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode chapa response: %w", err)
	}

	if resp.StatusCode >= 400 || !strings.EqualFold(envelope.Status, "success") {
		return fmt.Errorf("chapa status %d %q: %w", resp.StatusCode, envelope.Message, ErrGatewayRejected)
	}

	if target != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, target); err != nil {
			return fmt.Errorf("decode chapa data: %w", err)
		}
	}

	return nil
}
