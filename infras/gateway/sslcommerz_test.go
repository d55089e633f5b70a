package gateway_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"thakajabe/config"
	"thakajabe/infras/gateway"
	"thakajabe/infras/otel/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGateway(t *testing.T, handler http.HandlerFunc) gateway.Gateway {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &config.Config{}
	cfg.Payment.TimeoutSeconds = 5
	cfg.Payment.SSLCommerz.BaseURL = server.URL
	cfg.Payment.SSLCommerz.StoreID = "store"
	cfg.Payment.SSLCommerz.StorePassword = "secret"
	cfg.Payment.Callback.IPNURL = "https://api.example.com/v1/payments/callback/ipn"

	return gateway.NewSSLCommerz(cfg, mocks.NewOtel())
}

func TestSSLCommerz_CreateSession(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		gw := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/gwprocess/v4/api.php", r.URL.Path)
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "store", r.PostForm.Get("store_id"))
			assert.Equal(t, "5000", r.PostForm.Get("total_amount"))
			assert.Equal(t, "txn-1", r.PostForm.Get("tran_id"))
			assert.Equal(t, "booking-1", r.PostForm.Get("value_a"))
			assert.Equal(t, "https://api.example.com/v1/payments/callback/ipn", r.PostForm.Get("ipn_url"))

			_, _ = w.Write([]byte(`{"status":"SUCCESS","sessionkey":"sk-1","GatewayPageURL":"https://pay.example.com/sk-1"}`))
		})

		session, err := gw.CreateSession(context.Background(), gateway.SessionRequest{
			TransactionID: "txn-1",
			Amount:        5000,
			Currency:      "BDT",
			BookingID:     "booking-1",
		})
		require.NoError(t, err)
		assert.Equal(t, "sk-1", session.SessionKey)
		assert.Equal(t, "https://pay.example.com/sk-1", session.RedirectURL)
	})

	t.Run("rejected", func(t *testing.T) {
		gw := newGateway(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"status":"FAILED","failedreason":"Store Credential Error"}`))
		})

		_, err := gw.CreateSession(context.Background(), gateway.SessionRequest{TransactionID: "txn-1", Amount: 1})
		assert.ErrorIs(t, err, gateway.ErrSessionRejected)
		assert.Contains(t, err.Error(), "Store Credential Error")
	})

	t.Run("server error", func(t *testing.T) {
		gw := newGateway(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})

		_, err := gw.CreateSession(context.Background(), gateway.SessionRequest{TransactionID: "txn-1", Amount: 1})
		assert.ErrorIs(t, err, gateway.ErrMalformedResponse)
	})

	t.Run("cancelled context", func(t *testing.T) {
		gw := newGateway(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := gw.CreateSession(ctx, gateway.SessionRequest{TransactionID: "txn-1", Amount: 1})
		assert.Error(t, err)
	})
}

func TestSSLCommerz_Validate(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		expectedStatus gateway.ValidationStatus
		expectedAmount int64
		expectError    bool
	}{
		{
			name:           "valid",
			body:           `{"status":"VALID","tran_id":"txn-1","val_id":"val-1","amount":"5000.00","currency":"BDT"}`,
			expectedStatus: gateway.ValidationValid,
			expectedAmount: 5000,
		},
		{
			name:           "already validated",
			body:           `{"status":"VALIDATED","tran_id":"txn-1","val_id":"val-1","amount":"5000"}`,
			expectedStatus: gateway.ValidationValid,
			expectedAmount: 5000,
		},
		{
			name:           "invalid transaction",
			body:           `{"status":"INVALID_TRANSACTION","tran_id":"txn-1"}`,
			expectedStatus: gateway.ValidationInvalid,
		},
		{
			name:        "fractional amount",
			body:        `{"status":"VALID","tran_id":"txn-1","amount":"5000.50"}`,
			expectError: true,
		},
		{
			name:        "not json",
			body:        `<html>`,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/validator/api/validationserverAPI.php", r.URL.Path)
				assert.Equal(t, "val-1", r.URL.Query().Get("val_id"))
				assert.Equal(t, "json", r.URL.Query().Get("format"))

				_, _ = w.Write([]byte(tt.body))
			})

			validation, err := gw.Validate(context.Background(), "val-1")
			if tt.expectError {
				assert.ErrorIs(t, err, gateway.ErrMalformedResponse)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, validation.Status)
			assert.Equal(t, tt.expectedAmount, validation.Amount)
			assert.Equal(t, "txn-1", validation.TransactionID)
		})
	}
}

func TestSSLCommerz_Name(t *testing.T) {
	gw := newGateway(t, func(_ http.ResponseWriter, _ *http.Request) {})

	assert.Equal(t, "sslcommerz", gw.Name())
}
