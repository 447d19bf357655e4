package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/calebmsmith/vrpdesk/internal/config"
	"github.com/calebmsmith/vrpdesk/models"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.GatewayConfig{
		BaseURL:        srv.URL,
		RequestTimeout: 5 * time.Second,
		RequestsPerSec: 100,
	})
}

func TestAccountSummary(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/account/summary" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(models.AccountSummary{
			NetLiquidation: 40000, RealizedPnL: 120, UnrealizedPnL: -45,
		})
	}))

	got, err := client.AccountSummary(context.Background())
	if err != nil {
		t.Fatalf("AccountSummary() error = %v", err)
	}
	if got.NetLiquidation != 40000 || got.RealizedPnL != 120 || got.UnrealizedPnL != -45 {
		t.Errorf("AccountSummary() = %+v", got)
	}
}

func TestSpotPriceRejectsNonPositive(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"symbol": "SPX", "price": 0})
	}))

	if _, err := client.SpotPrice(context.Background(), "SPX"); err == nil {
		t.Error("SpotPrice() expected error for zero price")
	}
}

func TestPlaceBracketLegCount(t *testing.T) {
	var gotLegs int
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Legs []models.OrderLeg `json:"legs"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		gotLegs = len(body.Legs)
		json.NewEncoder(w).Encode(map[string][]int64{"order_ids": {101, 102, 103}})
	}))

	plan := models.OrderPlan{
		Symbol: "SPX", Expiry: time.Date(2025, 7, 2, 0, 0, 0, 0, time.UTC),
		CallStrike: 5500, PutStrike: 4500, Contracts: 1,
		Credit: 290, TakeProfit: 145, StopLoss: 580,
	}
	ids, err := client.PlaceBracket(context.Background(), plan)
	if err != nil {
		t.Fatalf("PlaceBracket() error = %v", err)
	}
	if gotLegs != 3 {
		t.Errorf("gateway received %d legs, want 3", gotLegs)
	}
	if len(ids) != 3 || ids[0] != 101 {
		t.Errorf("PlaceBracket() ids = %v", ids)
	}
}

func TestPlaceBracketPartialAckFails(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string][]int64{"order_ids": {101}})
	}))

	if _, err := client.PlaceBracket(context.Background(), models.OrderPlan{Contracts: 1}); err == nil {
		t.Error("PlaceBracket() expected error when the venue acknowledges fewer legs")
	}
}

func TestPlaceMarketOrderAction(t *testing.T) {
	var gotAction models.OrderAction
	var gotQty int
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Action   models.OrderAction `json:"action"`
			Quantity int                `json:"quantity"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		gotAction, gotQty = body.Action, body.Quantity
		json.NewEncoder(w).Encode(map[string]int64{"order_id": 7})
	}))

	if _, err := client.PlaceMarketOrder(context.Background(), "MES", -5); err != nil {
		t.Fatalf("PlaceMarketOrder() error = %v", err)
	}
	if gotAction != models.ActionSell || gotQty != 5 {
		t.Errorf("market order sent %s %d, want SELL 5", gotAction, gotQty)
	}
}

func TestClientErrorIsNotRetried(t *testing.T) {
	var calls int
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "no such contract", http.StatusNotFound)
	}))

	_, err := client.OptionQuote(context.Background(), "SPX",
		time.Date(2025, 7, 2, 0, 0, 0, 0, time.UTC), 5500, models.RightCall)
	if err == nil {
		t.Fatal("OptionQuote() expected error")
	}
	if calls != 1 {
		t.Errorf("gateway called %d times for a 404, want 1", calls)
	}
}
