package webhooks

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/skyserve/skyserve-backend/api/responses"
	"github.com/skyserve/skyserve-backend/internal/payments"
	pkgerrors "github.com/skyserve/skyserve-backend/pkg/errors"
	"github.com/skyserve/skyserve-backend/pkg/logger"
)

// gatewayCallbackRequest mirrors the wallet gateway's IPN body. The gateway
// echoes the order correlator plus a result code and signs the fields. Extra
// fields the gateway may add are ignored, so the body is decoded leniently.
type gatewayCallbackRequest struct {
	PartnerCode string `json:"partnerCode"`
	OrderID     string `json:"orderId"`
	RequestID   string `json:"requestId"`
	Amount      int64  `json:"amount"`
	ResultCode  int    `json:"resultCode"`
	TransID     string `json:"transId"`
	Message     string `json:"message"`
	Signature   string `json:"signature"`
}

func (req gatewayCallbackRequest) toInput() payments.CallbackInput {
	params := map[string]string{
		"partnerCode": req.PartnerCode,
		"orderId":     req.OrderID,
		"requestId":   req.RequestID,
		"amount":      strconv.FormatInt(req.Amount, 10),
		"resultCode":  strconv.Itoa(req.ResultCode),
		"transId":     req.TransID,
		"message":     req.Message,
	}

	return payments.CallbackInput{
		ExternalOrderID: strings.TrimSpace(req.OrderID),
		RequestID:       strings.TrimSpace(req.RequestID),
		Amount:          req.Amount,
		ResultCode:      req.ResultCode,
		TransactionID:   strings.TrimSpace(req.TransID),
		Message:         req.Message,
		Signature:       req.Signature,
		Params:          params,
	}
}

// GatewayCallback receives the asynchronous settlement notification. The
// gateway retries until it sees a 2xx, so the handler answers 204 for every
// outcome it has durably reconciled.
func GatewayCallback(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		var req gatewayCallbackRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid callback body"))
			return
		}
		if strings.TrimSpace(req.OrderID) == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "orderId is required"))
			return
		}

		if err := svc.HandleGatewayCallback(r.Context(), req.toInput()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
