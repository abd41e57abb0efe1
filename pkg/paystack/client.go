package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vendora-labs/vendora-backend/pkg/config"
	pkgerrors "github.com/vendora-labs/vendora-backend/pkg/errors"
	"github.com/vendora-labs/vendora-backend/pkg/logger"
)

const defaultTimeout = 15 * time.Second

var (
	errSecretKeyRequired = errors.New("paystack secret key is required")
	errLoggerRequired    = errors.New("paystack logger is required")
)

// Client exposes the gateway primitives with centralized auth, logging, and
// error mapping.
type Client struct {
	httpClient *http.Client
	secretKey  string
	baseURL    string
	logger     *logger.Logger
}

// NewClient initializes the gateway wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.PaystackConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	secretKey := strings.TrimSpace(cfg.SecretKey)
	if secretKey == "" {
		return nil, errSecretKeyRequired
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.paystack.co"
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		secretKey:  secretKey,
		baseURL:    baseURL,
		logger:     logg,
	}

	logg.Info(ctx, "paystack client initialized")
	return c, nil
}

// SigningSecret returns the key used to verify webhook signatures.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.secretKey
}

// InitializeTransaction starts a hosted checkout session for a charge.
func (c *Client) InitializeTransaction(ctx context.Context, params InitializeTransactionParams) (*InitializedTransaction, error) {
	if params.Email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer email is required")
	}
	if params.Reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction reference is required")
	}
	if !params.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	params.AmountMinor = MinorUnits(params.Amount)

	c.log(ctx, "request", "initialize_transaction", map[string]any{
		"reference":    params.Reference,
		"amount_minor": params.AmountMinor,
	})

	var data InitializedTransaction
	if err := c.do(ctx, http.MethodPost, "/transaction/initialize", params, &data); err != nil {
		c.log(ctx, "error", "initialize_transaction", map[string]any{"error": err.Error()})
		return nil, err
	}

	c.log(ctx, "response", "initialize_transaction", map[string]any{
		"reference":   data.Reference,
		"access_code": data.AccessCode,
	})
	return &data, nil
}

// VerifyTransaction fetches the authoritative status for a charge reference.
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*TransactionData, error) {
	if strings.TrimSpace(reference) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction reference is required")
	}

	c.log(ctx, "request", "verify_transaction", map[string]any{"reference": reference})

	var data TransactionData
	raw, err := c.doRaw(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil, &data)
	if err != nil {
		c.log(ctx, "error", "verify_transaction", map[string]any{"error": err.Error()})
		return nil, err
	}
	data.Raw = raw

	c.log(ctx, "response", "verify_transaction", map[string]any{
		"reference": data.Reference,
		"status":    data.Status,
	})
	return &data, nil
}

// CreateTransferRecipient registers a bank account for payouts.
func (c *Client) CreateTransferRecipient(ctx context.Context, params CreateTransferRecipientParams) (*TransferRecipient, error) {
	if params.Name == "" || params.AccountNumber == "" || params.BankCode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recipient name, account number, and bank code are required")
	}
	if params.Type == "" {
		params.Type = "nuban"
	}

	c.log(ctx, "request", "create_transfer_recipient", map[string]any{
		"bank_code": params.BankCode,
	})

	var data transferRecipientData
	if err := c.do(ctx, http.MethodPost, "/transferrecipient", params, &data); err != nil {
		c.log(ctx, "error", "create_transfer_recipient", map[string]any{"error": err.Error()})
		return nil, err
	}

	c.log(ctx, "response", "create_transfer_recipient", map[string]any{
		"recipient_code": data.RecipientCode,
	})
	return &TransferRecipient{RecipientCode: data.RecipientCode, Active: data.Active}, nil
}

// InitiateTransfer moves money from the platform balance to a recipient.
func (c *Client) InitiateTransfer(ctx context.Context, params InitiateTransferParams) (*TransferData, error) {
	if params.Recipient == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transfer recipient is required")
	}
	if params.Reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transfer reference is required")
	}
	if !params.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	params.Source = "balance"
	params.AmountMinor = MinorUnits(params.Amount)

	c.log(ctx, "request", "initiate_transfer", map[string]any{
		"reference":    params.Reference,
		"amount_minor": params.AmountMinor,
	})

	var data TransferData
	if err := c.do(ctx, http.MethodPost, "/transfer", params, &data); err != nil {
		c.log(ctx, "error", "initiate_transfer", map[string]any{"error": err.Error()})
		return nil, err
	}

	c.log(ctx, "response", "initiate_transfer", map[string]any{
		"reference":     data.Reference,
		"transfer_code": data.TransferCode,
		"status":        data.Status,
	})
	return &data, nil
}

// FetchTransfer returns the current state of a transfer by its code.
func (c *Client) FetchTransfer(ctx context.Context, transferCode string) (*TransferData, error) {
	if strings.TrimSpace(transferCode) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transfer code is required")
	}

	c.log(ctx, "request", "fetch_transfer", map[string]any{"transfer_code": transferCode})

	var data TransferData
	if err := c.do(ctx, http.MethodGet, "/transfer/"+url.PathEscape(transferCode), nil, &data); err != nil {
		c.log(ctx, "error", "fetch_transfer", map[string]any{"error": err.Error()})
		return nil, err
	}

	c.log(ctx, "response", "fetch_transfer", map[string]any{
		"transfer_code": data.TransferCode,
		"status":        data.Status,
	})
	return &data, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	_, err := c.doRaw(ctx, method, path, body, out)
	return err
}

func (c *Client) doRaw(ctx context.Context, method, path string, body, out any) (json.RawMessage, error) {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding gateway request")
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building gateway request")
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "calling payment gateway")
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading gateway response")
	}

	var envelope apiResponse
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err,
			fmt.Sprintf("decoding gateway response (http %d)", resp.StatusCode))
	}

	if resp.StatusCode >= http.StatusBadRequest || !envelope.Status {
		return nil, c.mapGatewayError(resp.StatusCode, envelope.Message)
	}

	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decoding gateway payload")
		}
	}
	return envelope.Data, nil
}

func (c *Client) mapGatewayError(statusCode int, message string) error {
	if message == "" {
		message = "payment gateway request failed"
	}
	switch {
	case statusCode == http.StatusNotFound:
		return pkgerrors.New(pkgerrors.CodeNotFound, message)
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return pkgerrors.New(pkgerrors.CodeUnauthorized, message)
	case statusCode == http.StatusTooManyRequests:
		return pkgerrors.New(pkgerrors.CodeDependency, message)
	case statusCode >= http.StatusInternalServerError:
		return pkgerrors.New(pkgerrors.CodeDependency, message)
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, message)
	}
}

func (c *Client) log(ctx context.Context, stage, operation string, fields map[string]any) {
	if c.logger == nil {
		return
	}
	merged := map[string]any{
		"gateway":   "paystack",
		"stage":     stage,
		"operation": operation,
	}
	for k, v := range fields {
		merged[k] = v
	}
	logCtx := c.logger.WithFields(ctx, merged)
	c.logger.Debug(logCtx, "gateway call")
}
