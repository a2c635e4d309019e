package asaas

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCreateStaticQRCodeSendsExpectedRequest(t *testing.T) {
	var gotPath, gotToken string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotToken = r.Header.Get("access_token")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":             "qr-123",
			"encodedImage":   "aGVsbG8=",
			"payload":        "00020126pix",
			"expirationDate": "2026-01-02 15:04:05",
		})
	}))
	defer srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL, APIKey: "key-1"})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}

	expiration := time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)
	qr, err := client.CreateStaticQRCode(context.Background(), CreateStaticQRCodeInput{
		Value:          39.90,
		Description:    "Pacote 5 Tips",
		AddressKey:     "merchant-key",
		ExpirationDate: expiration,
	})
	if err != nil {
		t.Fatalf("create static qr code: %v", err)
	}

	if gotPath != "/pix/qrCodes/static" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if gotToken != "key-1" {
		t.Fatalf("unexpected access token: %s", gotToken)
	}
	if gotBody["format"] != "ALL" {
		t.Fatalf("unexpected format: %v", gotBody["format"])
	}
	if gotBody["expirationDate"] != "2026-01-02 15:04:05" {
		t.Fatalf("unexpected expiration: %v", gotBody["expirationDate"])
	}
	if gotBody["addressKey"] != "merchant-key" {
		t.Fatalf("unexpected address key: %v", gotBody["addressKey"])
	}
	if qr.ID != "qr-123" || qr.Payload != "00020126pix" {
		t.Fatalf("unexpected qr response: %+v", qr)
	}
}

func TestCreateStaticQRCodeSurfacesGatewayStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":[{"code":"invalid_access_token"}]}`))
	}))
	defer srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL, APIKey: "bad-key"})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}

	_, err = client.CreateStaticQRCode(context.Background(), CreateStaticQRCodeInput{
		Value:          10,
		AddressKey:     "merchant-key",
		ExpirationDate: time.Now().Add(time.Hour),
	})
	if err == nil {
		t.Fatalf("expected gateway error")
	}

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %T: %v", err, err)
	}
	if statusErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", statusErr.StatusCode)
	}
}
