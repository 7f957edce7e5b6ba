package apiserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cortexlabs/cortexd/internal/apperr"
	"github.com/cortexlabs/cortexd/internal/domain"
	"github.com/cortexlabs/cortexd/internal/subscription"
	"github.com/shopspring/decimal"
)

const testWallet = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"

type fakeStore struct {
	summary domain.WalletSummary
	txs     []*domain.ParsedTransaction
	err     error
}

func (f *fakeStore) GetSummary(context.Context, string) (domain.WalletSummary, error) {
	return f.summary, f.err
}

func (f *fakeStore) ListTransactions(context.Context, string) ([]*domain.ParsedTransaction, error) {
	return f.txs, f.err
}

func newTestServer(store Store) *Server {
	return New(store, subscription.NewManager(nil, nil, nil, nil, nil))
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(&fakeStore{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v, want ok", body["status"])
	}
}

func TestHandleSummaryUnknownWalletIsNot404(t *testing.T) {
	srv := newTestServer(&fakeStore{summary: domain.WalletSummary{Wallet: testWallet}})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/user/"+testWallet+"/summary", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (unknown wallet is a zero-valued 200, not 404)", rec.Code, http.StatusOK)
	}
}

func TestHandleSummaryStoreErrorMapsToStatus(t *testing.T) {
	srv := newTestServer(&fakeStore{err: apperr.Store(nil, "boom")})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/user/"+testWallet+"/summary", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}

func TestHandlePnLInvalidWindow(t *testing.T) {
	srv := newTestServer(&fakeStore{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/user/"+testWallet+"/pnl?window=bogus", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandlePnLDefaultWindow(t *testing.T) {
	txs := []*domain.ParsedTransaction{
		{
			Signature: "s1", Protocol: domain.ProtocolJupiter, TxType: domain.TxSwap,
			UsdValue: decimal.NewFromInt(50), BlockTimeMs: 1700000000000,
		},
	}
	srv := newTestServer(&fakeStore{txs: txs})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/user/"+testWallet+"/pnl", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestHandlePositions(t *testing.T) {
	txs := []*domain.ParsedTransaction{
		{
			Signature: "s1", Protocol: domain.ProtocolJupiter, TxType: domain.TxSwap,
			TokenIn: "USDC", TokenOut: "SOL", AmountIn: decimal.NewFromInt(100), AmountOut: decimal.NewFromInt(1),
			UsdValue: decimal.NewFromInt(100),
		},
	}
	srv := newTestServer(&fakeStore{txs: txs})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/user/"+testWallet+"/positions", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var body struct {
		Positions []domain.Position `json:"positions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(body.Positions) != 1 {
		t.Fatalf("len(Positions) = %d, want 1", len(body.Positions))
	}
}

func TestHandleIndexLifecycle(t *testing.T) {
	srv := newTestServer(&fakeStore{})

	body, _ := json.Marshal(map[string]string{"wallet": testWallet})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/index", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /index status = %d, want %d, body=%s", rec.Code, http.StatusOK, rec.Body.String())
	}

	listReq := httptest.NewRequest(http.MethodGet, "/api/v1/index", nil)
	listRec := httptest.NewRecorder()
	srv.Router().ServeHTTP(listRec, listReq)
	var listBody struct {
		Subscriptions []domain.SubscriptionStatus `json:"subscriptions"`
	}
	if err := json.Unmarshal(listRec.Body.Bytes(), &listBody); err != nil {
		t.Fatalf("unmarshal list response: %v", err)
	}
	if len(listBody.Subscriptions) != 1 {
		t.Fatalf("len(Subscriptions) = %d, want 1", len(listBody.Subscriptions))
	}

	delReq := httptest.NewRequest(http.MethodDelete, "/api/v1/index/"+testWallet, nil)
	delRec := httptest.NewRecorder()
	srv.Router().ServeHTTP(delRec, delReq)
	if delRec.Code != http.StatusOK {
		t.Fatalf("DELETE /index status = %d, want %d", delRec.Code, http.StatusOK)
	}
}

func TestHandleStartIndexMissingWallet(t *testing.T) {
	srv := newTestServer(&fakeStore{})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/index", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}
