package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/skyserve/skyserve-backend/pkg/config"
	"github.com/skyserve/skyserve-backend/pkg/enums"
	"github.com/skyserve/skyserve-backend/pkg/logger"
)

// Result codes echoed by the wallet provider. Zero is success; the pending
// set covers "user has not finished paying yet" states.
const ResultCodeSuccess = 0

var pendingResultCodes = map[int]struct{}{
	1000: {},
	7000: {},
	7002: {},
	9000: {},
}

// ClassifyResultCode maps a gateway result code onto a payment status.
func ClassifyResultCode(code int) enums.PaymentStatus {
	if code == ResultCodeSuccess {
		return enums.PaymentStatusSuccess
	}
	if _, ok := pendingResultCodes[code]; ok {
		return enums.PaymentStatusPending
	}
	return enums.PaymentStatusFailed
}

// CheckoutRequest carries the fields needed to open a hosted checkout.
type CheckoutRequest struct {
	ExternalOrderID string
	Amount          int64
	OrderInfo       string
}

// CheckoutResponse is the gateway's answer to a checkout creation.
type CheckoutResponse struct {
	ExternalOrderID string `json:"orderId"`
	RequestID       string `json:"requestId"`
	PayURL          string `json:"payUrl"`
	ResultCode      int    `json:"resultCode"`
	Message         string `json:"message"`
}

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the wallet provider over HTTPS with a bounded timeout.
type Client struct {
	cfg  config.GatewayConfig
	http httpDoer
	logg *logger.Logger
}

// NewClient validates the gateway credentials and builds a client.
func NewClient(cfg config.GatewayConfig, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("gateway base url is required")
	}
	if strings.TrimSpace(cfg.PartnerCode) == "" {
		return nil, fmt.Errorf("gateway partner code is required")
	}
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, fmt.Errorf("gateway secret key is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
		logg: logg,
	}, nil
}

// CreateCheckout opens a hosted checkout session for a wallet payment. The
// gateway later calls back asynchronously with the final result.
func (c *Client) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutResponse, error) {
	if strings.TrimSpace(req.ExternalOrderID) == "" {
		return nil, fmt.Errorf("external order id is required")
	}
	if req.Amount <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}

	requestID := req.ExternalOrderID
	params := map[string]string{
		"partnerCode": c.cfg.PartnerCode,
		"accessKey":   c.cfg.AccessKey,
		"requestId":   requestID,
		"orderId":     req.ExternalOrderID,
		"amount":      strconv.FormatInt(req.Amount, 10),
		"orderInfo":   req.OrderInfo,
		"ipnUrl":      c.cfg.CallbackURL,
		"redirectUrl": c.cfg.ReturnURL,
	}

	body := map[string]any{
		"partnerCode": c.cfg.PartnerCode,
		"accessKey":   c.cfg.AccessKey,
		"requestId":   requestID,
		"orderId":     req.ExternalOrderID,
		"amount":      req.Amount,
		"orderInfo":   req.OrderInfo,
		"ipnUrl":      c.cfg.CallbackURL,
		"redirectUrl": c.cfg.ReturnURL,
		"requestType": "captureWallet",
		"signature":   SignParams(c.cfg.SecretKey, params),
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal checkout request: %w", err)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/v2/gateway/api/create"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build checkout request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gateway checkout call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("gateway checkout returned status %d", resp.StatusCode)
	}

	var decoded CheckoutResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode checkout response: %w", err)
	}

	if c.logg != nil {
		fields := map[string]any{
			"external_order_id": req.ExternalOrderID,
			"result_code":       decoded.ResultCode,
		}
		c.logg.Info(c.logg.WithFields(ctx, fields), "gateway checkout created")
	}
	return &decoded, nil
}

// VerifyCallback checks the webhook signature over the echoed fields.
// Mismatches are reported to the caller, which logs and proceeds.
func (c *Client) VerifyCallback(externalOrderID string, resultCode int, transactionID, signature string) bool {
	params := map[string]string{
		"partnerCode": c.cfg.PartnerCode,
		"accessKey":   c.cfg.AccessKey,
		"orderId":     externalOrderID,
		"resultCode":  strconv.Itoa(resultCode),
		"transId":     transactionID,
	}
	return VerifySignature(c.cfg.SecretKey, params, signature)
}
