package paystack

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vendora-labs/vendora-backend/pkg/config"
	pkgerrors "github.com/vendora-labs/vendora-backend/pkg/errors"
	"github.com/vendora-labs/vendora-backend/pkg/logger"
)

func TestMinorUnits(t *testing.T) {
	tests := []struct {
		amount string
		want   int64
	}{
		{"100", 10000},
		{"0.01", 1},
		{"77.50", 7750},
		{"10000", 1000000},
	}
	for _, tt := range tests {
		if got := MinorUnits(decimal.RequireFromString(tt.amount)); got != tt.want {
			t.Fatalf("MinorUnits(%s) = %d, want %d", tt.amount, got, tt.want)
		}
	}
}

func TestVerifyTransactionSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transaction/verify/ref-123" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk_test_secret" {
			t.Errorf("unexpected authorization header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":true,"message":"Verification successful","data":{"id":1,"status":"success","reference":"ref-123","amount":1000000,"currency":"NGN"}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	data, err := client.VerifyTransaction(context.Background(), "ref-123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if data.Status != TransactionSuccess {
		t.Fatalf("unexpected status %q", data.Status)
	}
	if !data.Amount().Equal(decimal.NewFromInt(10000)) {
		t.Fatalf("unexpected amount %s", data.Amount())
	}
}

func TestVerifyTransactionNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"status":false,"message":"Transaction reference not found"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.VerifyTransaction(context.Background(), "missing")
	if err == nil {
		t.Fatalf("expected error")
	}
	var domainErr *pkgerrors.Error
	if !errors.As(err, &domainErr) || domainErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestInitializeTransactionValidation(t *testing.T) {
	client := newTestClient(t, "http://unused")
	_, err := client.InitializeTransaction(context.Background(), InitializeTransactionParams{
		Email:     "buyer@example.com",
		Reference: "ref-1",
		Amount:    decimal.Zero,
	})
	if err == nil {
		t.Fatalf("expected validation error for zero amount")
	}
}

func TestInitiateTransferSendsMinorUnits(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transfer" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":true,"message":"Transfer queued","data":{"id":9,"status":"pending","reference":"wd-1","transfer_code":"TRF_x","amount":500000}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	data, err := client.InitiateTransfer(context.Background(), InitiateTransferParams{
		Amount:    decimal.NewFromInt(5000),
		Recipient: "RCP_abc",
		Reference: "wd-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if data.TransferCode != "TRF_x" {
		t.Fatalf("unexpected transfer code %q", data.TransferCode)
	}
	if data.Status != TransferPending {
		t.Fatalf("unexpected status %q", data.Status)
	}
}

func TestValidSignature(t *testing.T) {
	secret := "sk_test_secret"
	body := []byte(`{"event":"charge.success"}`)

	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	signature := hex.EncodeToString(mac.Sum(nil))

	if !ValidSignature(secret, body, signature) {
		t.Fatalf("expected valid signature")
	}
	if ValidSignature(secret, body, "bogus") {
		t.Fatalf("expected invalid signature for wrong digest")
	}
	if ValidSignature(secret, []byte(`tampered`), signature) {
		t.Fatalf("expected invalid signature for tampered body")
	}
	if ValidSignature("", body, signature) {
		t.Fatalf("expected invalid signature when secret missing")
	}
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "paystack-test"})
	client, err := NewClient(context.Background(), config.PaystackConfig{
		SecretKey: "sk_test_secret",
		BaseURL:   baseURL,
	}, logg)
	if err != nil {
		t.Fatalf("build client: %v", err)
	}
	return client
}
