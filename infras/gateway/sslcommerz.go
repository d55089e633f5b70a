package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"thakajabe/config"
	"thakajabe/infras/otel"
	"thakajabe/shared/constant"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	sslcommerzName           = "sslcommerz"
	sslcommerzSessionPath    = "/gwprocess/v4/api.php"
	sslcommerzValidationPath = "/validator/api/validationserverAPI.php"
	sslcommerzStatusSuccess  = "SUCCESS"
	sslcommerzValid          = "VALID"
	sslcommerzValidated      = "VALIDATED"
	maxResponseBytes         = 1 << 20

	otelAttrTransactionID = "gateway.transaction_id"
	otelAttrValidationID  = "gateway.validation_id"
)

type sessionResponse struct {
	Status         string `json:"status"`
	FailedReason   string `json:"failedreason"`
	SessionKey     string `json:"sessionkey"`
	GatewayPageURL string `json:"GatewayPageURL"`
}

type validationResponse struct {
	Status        string `json:"status"`
	TransactionID string `json:"tran_id"`
	ValidationID  string `json:"val_id"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	BankTranID    string `json:"bank_tran_id"`
}

type sslcommerz struct {
	config *config.Config
	client *http.Client
	otel   otel.Otel
}

func NewSSLCommerz(cfg *config.Config, otl otel.Otel) Gateway {
	return &sslcommerz{
		config: cfg,
		client: &http.Client{Timeout: time.Duration(cfg.Payment.TimeoutSeconds) * time.Second},
		otel:   otl,
	}
}

func (g *sslcommerz) Name() string {
	return sslcommerzName
}

func (g *sslcommerz) CreateSession(ctx context.Context, request SessionRequest) (Session, error) {
	ctx, scope := g.otel.NewScope(ctx, constant.OtelGatewayScopeName, constant.OtelGatewayScopeName+".CreateSession")
	defer scope.End()

	scope.SetAttribute(otelAttrTransactionID, request.TransactionID)

	callback := g.config.Payment.Callback
	sslcfg := g.config.Payment.SSLCommerz

	form := url.Values{}
	form.Set("store_id", sslcfg.StoreID)
	form.Set("store_passwd", sslcfg.StorePassword)
	form.Set("total_amount", strconv.FormatInt(request.Amount, 10))
	form.Set("currency", request.Currency)
	form.Set("tran_id", request.TransactionID)
	form.Set("success_url", callback.SuccessURL)
	form.Set("fail_url", callback.FailURL)
	form.Set("cancel_url", callback.CancelURL)
	form.Set("ipn_url", callback.IPNURL)
	form.Set("cus_name", request.Customer.Name)
	form.Set("cus_email", request.Customer.Email)
	form.Set("cus_phone", request.Customer.Phone)
	form.Set("cus_add1", request.Customer.Address)
	form.Set("cus_city", request.Customer.City)
	form.Set("cus_country", request.Customer.Country)
	form.Set("shipping_method", "NO")
	form.Set("product_name", request.ProductName)
	form.Set("product_category", "accommodation")
	form.Set("product_profile", "general")
	form.Set("num_of_item", "1")
	form.Set("value_a", request.BookingID)

	endpoint := strings.TrimSuffix(sslcfg.BaseURL, "/") + sslcommerzSessionPath

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		scope.TraceError(err)

		return Session{}, fmt.Errorf("failed to build session request: %w", err)
	}

	req.Header.Set(constant.RequestHeaderContentType, constant.ContentTypeFormURLEncoded)

	var response sessionResponse
	if err := g.do(req, &response); err != nil {
		scope.TraceError(err)

		return Session{}, err
	}

	if !strings.EqualFold(response.Status, sslcommerzStatusSuccess) || response.GatewayPageURL == "" {
		err := fmt.Errorf("%w: %s", ErrSessionRejected, response.FailedReason)
		scope.TraceError(err)

		return Session{}, err
	}

	return Session{
		SessionKey:  response.SessionKey,
		RedirectURL: response.GatewayPageURL,
	}, nil
}

func (g *sslcommerz) Validate(ctx context.Context, validationID string) (Validation, error) {
	ctx, scope := g.otel.NewScope(ctx, constant.OtelGatewayScopeName, constant.OtelGatewayScopeName+".Validate")
	defer scope.End()

	scope.SetAttribute(otelAttrValidationID, validationID)

	sslcfg := g.config.Payment.SSLCommerz

	query := url.Values{}
	query.Set("val_id", validationID)
	query.Set("store_id", sslcfg.StoreID)
	query.Set("store_passwd", sslcfg.StorePassword)
	query.Set("format", "json")

	endpoint := strings.TrimSuffix(sslcfg.BaseURL, "/") + sslcommerzValidationPath + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		scope.TraceError(err)

		return Validation{}, fmt.Errorf("failed to build validation request: %w", err)
	}

	var response validationResponse
	if err := g.do(req, &response); err != nil {
		scope.TraceError(err)

		return Validation{}, err
	}

	validation := Validation{
		Status:            ValidationInvalid,
		ValidationID:      response.ValidationID,
		TransactionID:     response.TransactionID,
		BankTransactionID: response.BankTranID,
		Currency:          response.Currency,
	}

	if response.Status != sslcommerzValid && response.Status != sslcommerzValidated {
		log.Warn().Str("validation_id", validationID).Str("status", response.Status).Msg("Gateway reported an invalid transaction")

		return validation, nil
	}

	amount, err := parseWholeAmount(response.Amount)
	if err != nil {
		scope.TraceError(err)

		return Validation{}, err
	}

	validation.Status = ValidationValid
	validation.Amount = amount

	return validation, nil
}

func (g *sslcommerz) do(req *http.Request, out any) error {
	resp, err := g.client.Do(req)
	if err != nil {
		log.Error().Err(err).Str("url", req.URL.Path).Msg("Payment gateway request failed")

		return fmt.Errorf("payment gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("failed to read payment gateway response: %w", err)
	}

	if resp.StatusCode >= http.StatusMultipleChoices {
		log.Error().Int("status", resp.StatusCode).Str("url", req.URL.Path).Msg("Payment gateway returned an error status")

		return fmt.Errorf("%w: status %d", ErrMalformedResponse, resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	return nil
}

// parseWholeAmount reads a decimal string like "5000.00" into whole currency units.
func parseWholeAmount(value string) (int64, error) {
	whole, fraction, _ := strings.Cut(strings.TrimSpace(value), ".")

	if strings.Trim(fraction, "0") != "" {
		return 0, fmt.Errorf("%w: fractional amount %q", ErrMalformedResponse, value)
	}

	amount, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: amount %q", ErrMalformedResponse, value)
	}

	return amount, nil
}
