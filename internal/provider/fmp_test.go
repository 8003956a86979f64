package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apperrors "finpro/internal/errors"
)

func newTestClient(handler http.Handler) (*FMPClient, *httptest.Server) {
	server := httptest.NewServer(handler)
	client := NewFMPClient(server.URL, "test-key", 2*time.Second)
	return client, server
}

func TestCryptoUniverse(t *testing.T) {
	t.Run("parses_rows", func(t *testing.T) {
		client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("apikey") != "test-key" {
				t.Errorf("expected apikey query param, got %q", r.URL.RawQuery)
			}
			w.Write([]byte(`[{"symbol":"BTCUSD","name":"Bitcoin","currency":"USD","circulatingSupply":19500000}]`))
		}))
		defer server.Close()

		rows, err := client.CryptoUniverse(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(rows) != 1 {
			t.Fatalf("expected 1 row, got %d", len(rows))
		}
		if rows[0].PairSymbol != "BTCUSD" {
			t.Errorf("expected pair BTCUSD, got %s", rows[0].PairSymbol)
		}
		if rows[0].BaseSymbol != "BTC" {
			t.Errorf("expected base BTC, got %s", rows[0].BaseSymbol)
		}
		if rows[0].CurrencyCode != "USD" {
			t.Errorf("expected currency USD, got %s", rows[0].CurrencyCode)
		}
	})

	t.Run("empty_result", func(t *testing.T) {
		client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`[]`))
		}))
		defer server.Close()

		_, err := client.CryptoUniverse(context.Background())
		if !errors.Is(err, apperrors.ErrEmptyResult) {
			t.Fatalf("expected EMPTY_RESULT, got %v", err)
		}
	})
}

func TestGetJSONErrorMapping(t *testing.T) {
	cases := []struct {
		name     string
		status   int
		body     string
		sentinel *apperrors.AppError
	}{
		{"rate_limited", http.StatusTooManyRequests, `{}`, apperrors.ErrRateLimited},
		{"server_error", http.StatusInternalServerError, `{}`, apperrors.ErrProviderUnavailable},
		{"client_error", http.StatusForbidden, `{}`, apperrors.ErrInvalidResponse},
		{"invalid_json", http.StatusOK, `{not json`, apperrors.ErrInvalidResponse},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer server.Close()

			_, err := client.EquityUniverse(context.Background())
			if !errors.Is(err, tc.sentinel) {
				t.Fatalf("expected %s, got %v", tc.sentinel.Code, err)
			}
		})
	}

	t.Run("network_error", func(t *testing.T) {
		client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close() // connection refused from here on

		_, err := client.EquityUniverse(context.Background())
		if !errors.Is(err, apperrors.ErrProviderUnavailable) {
			t.Fatalf("expected PROVIDER_UNAVAILABLE, got %v", err)
		}
	})
}

func TestGuard(t *testing.T) {
	t.Run("opens_after_max_failures", func(t *testing.T) {
		guard := NewGuard("test")
		fail := func() error { return apperrors.ErrProviderUnavailable }

		for i := 0; i < guardMaxFailures; i++ {
			if err := guard.Do(fail); !errors.Is(err, apperrors.ErrProviderUnavailable) {
				t.Fatalf("call %d: expected PROVIDER_UNAVAILABLE, got %v", i, err)
			}
		}

		// Circuit is now open: fn must not run.
		called := false
		err := guard.Do(func() error { called = true; return nil })
		if !errors.Is(err, apperrors.ErrProviderUnavailable) {
			t.Fatalf("expected circuit-open error, got %v", err)
		}
		if called {
			t.Error("expected guarded fn not to be called while circuit is open")
		}
	})

	t.Run("semantic_errors_do_not_trip_circuit", func(t *testing.T) {
		guard := NewGuard("test")
		for i := 0; i < guardMaxFailures*2; i++ {
			_ = guard.Do(func() error { return apperrors.ErrInvalidResponse })
		}

		called := false
		_ = guard.Do(func() error { called = true; return nil })
		if !called {
			t.Error("expected circuit to remain closed after semantic errors")
		}
	})

	t.Run("success_resets_failures", func(t *testing.T) {
		guard := NewGuard("test")
		for i := 0; i < guardMaxFailures-1; i++ {
			_ = guard.Do(func() error { return apperrors.ErrProviderUnavailable })
		}
		if err := guard.Do(func() error { return nil }); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		called := false
		_ = guard.Do(func() error { called = true; return nil })
		if !called {
			t.Error("expected circuit closed after success reset")
		}
	})
}

func TestQuote(t *testing.T) {
	t.Run("missing_price", func(t *testing.T) {
		client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`[{"symbol":"AAPL"}]`))
		}))
		defer server.Close()

		_, err := client.Quote(context.Background(), "AAPL")
		if !errors.Is(err, apperrors.ErrInvalidResponse) {
			t.Fatalf("expected INVALID_RESPONSE, got %v", err)
		}
	})

	t.Run("ok", func(t *testing.T) {
		client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`[{"symbol":"AAPL","price":189.25,"volume":1000}]`))
		}))
		defer server.Close()

		q, err := client.Quote(context.Background(), "aapl")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if q.Symbol != "AAPL" {
			t.Errorf("expected symbol AAPL, got %s", q.Symbol)
		}
		if q.Price.String() != "189.25" {
			t.Errorf("expected price 189.25, got %s", q.Price)
		}
	})
}
