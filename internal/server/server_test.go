package server

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"steam-microtxn/internal/appticket"
	"steam-microtxn/internal/catalog"
	"steam-microtxn/internal/common/config"
	apierrors "steam-microtxn/internal/common/errors"
	"steam-microtxn/internal/common/logger"
	"steam-microtxn/internal/purchase"
	"steam-microtxn/internal/steam"
)

var ticketKey = bytes.Repeat([]byte{0x42}, 32)

const ticketAppID uint32 = 480

type stubSettlement struct {
	calls       int
	initParams  *steam.TxnParams
	finalizeRes *steam.FinalizeResult
	queryParams *steam.TxnParams
	userInfo    *steam.UserInfoParams
	ownership   *steam.AppOwnership
	err         error

	lastInitReq steam.InitTxnRequest
}

func (s *stubSettlement) GetUserInfo(ctx context.Context, steamID string) (*steam.UserInfoParams, error) {
	s.calls++
	return s.userInfo, s.err
}

func (s *stubSettlement) CheckAppOwnership(ctx context.Context, steamID, appID string) (*steam.AppOwnership, error) {
	s.calls++
	return s.ownership, s.err
}

func (s *stubSettlement) InitTxn(ctx context.Context, req steam.InitTxnRequest) (*steam.TxnParams, error) {
	s.calls++
	s.lastInitReq = req
	return s.initParams, s.err
}

func (s *stubSettlement) QueryTxn(ctx context.Context, appID, orderID, transID string) (*steam.TxnParams, error) {
	s.calls++
	return s.queryParams, s.err
}

func (s *stubSettlement) FinalizeTxn(ctx context.Context, appID, orderID string) (*steam.FinalizeResult, error) {
	s.calls++
	return s.finalizeRes, s.err
}

func createTestServer(t *testing.T, stub steam.Client) *Server {
	t.Helper()

	cat, err := catalog.New([]catalog.Product{
		{ItemDefID: 1001, Type: "item", Name: "1000 gold coins", Category: "gold", PriceUSD: 499},
	})
	require.NoError(t, err)

	verifier, err := appticket.NewVerifier(hex.EncodeToString(ticketKey), ticketAppID, time.Hour, nil, logger.NewNoOpLogger())
	require.NoError(t, err)

	cfg := &config.Config{
		App:    config.AppConfig{Name: "steam-microtxn", Environment: "development"},
		Server: config.ServerConfig{Host: "127.0.0.1", Port: 0},
	}
	h := purchase.NewHandler(cat, stub, nil, logger.NewNoOpLogger())
	return New(cfg, h, verifier, logger.NewNoOpLogger())
}

func doJSON(t *testing.T, srv *Server, method, path string, body string, headers map[string]string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	var decoded map[string]interface{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func encryptTicket(t *testing.T, appID uint32, issuedAt time.Time) string {
	t.Helper()

	const headerLen = 40
	body := make([]byte, headerLen)
	binary.LittleEndian.PutUint32(body[0:4], headerLen)
	binary.LittleEndian.PutUint32(body[4:8], 4)
	binary.LittleEndian.PutUint64(body[8:16], 76561198000000001)
	binary.LittleEndian.PutUint32(body[16:20], appID)
	binary.LittleEndian.PutUint32(body[32:36], uint32(issuedAt.Unix()))
	binary.LittleEndian.PutUint32(body[36:40], uint32(issuedAt.Add(time.Hour).Unix()))

	pad := aes.BlockSize - len(body)%aes.BlockSize
	body = append(body, bytes.Repeat([]byte{byte(pad)}, pad)...)

	block, err := aes.NewCipher(ticketKey)
	require.NoError(t, err)

	iv := bytes.Repeat([]byte{0x07}, aes.BlockSize)
	out := make([]byte, aes.BlockSize+len(body))
	block.Encrypt(out[:aes.BlockSize], iv)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out[aes.BlockSize:], body)

	return base64.StdEncoding.EncodeToString(out)
}

func TestHealthRoute(t *testing.T) {
	srv := createTestServer(t, &stubSettlement{})
	rec, body := doJSON(t, srv, http.MethodGet, "/", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["status"])
	assert.Contains(t, body["message"], "development mode")
}

func TestUnknownRoute(t *testing.T) {
	srv := createTestServer(t, &stubSettlement{})
	rec, body := doJSON(t, srv, http.MethodPost, "/NoSuchRoute", "{}", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not found txn route", body["error"])
}

func TestInitPurchase_EndToEnd(t *testing.T) {
	stub := &stubSettlement{initParams: &steam.TxnParams{TransID: "steam-trans-1"}}
	srv := createTestServer(t, stub)

	rec, body := doJSON(t, srv, http.MethodPost, "/InitPurchase",
		`{"appId":"480","itemId":1001,"steamId":"76561198000000001"}`, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "steam-trans-1", body["transid"])
	assert.NotEmpty(t, body["orderid"])
	assert.Equal(t, int64(499), stub.lastInitReq.Amount)
	assert.Equal(t, "gold", stub.lastInitReq.Category)
}

func TestInitPurchase_UnknownItem(t *testing.T) {
	stub := &stubSettlement{}
	srv := createTestServer(t, stub)

	rec, body := doJSON(t, srv, http.MethodPost, "/InitPurchase",
		`{"appId":"480","itemId":9999,"steamId":"76561198000000001"}`, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "ItemId not found in the game database", body["error"])
	assert.Zero(t, stub.calls)
}

func TestInitPurchase_ValidationFailure(t *testing.T) {
	stub := &stubSettlement{}
	srv := createTestServer(t, stub)

	rec, body := doJSON(t, srv, http.MethodPost, "/InitPurchase", `{"itemId":-1}`, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Validation failed", body["error"])
	assert.Zero(t, stub.calls, "validation failures must not reach settlement")

	details, ok := body["details"].([]interface{})
	require.True(t, ok)

	var messages []string
	for _, d := range details {
		m := d.(map[string]interface{})
		messages = append(messages, m["message"].(string))
	}
	assert.Contains(t, messages, "AppID is required")
	assert.Contains(t, messages, "Item ID must be positive")
	assert.Contains(t, messages, "SteamID is required")
}

func TestInitPurchase_MalformedJSONBody(t *testing.T) {
	srv := createTestServer(t, &stubSettlement{})
	rec, body := doJSON(t, srv, http.MethodPost, "/InitPurchase", `{"appId":`, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Validation failed", body["error"])
}

func TestInitPurchase_WrongContentType(t *testing.T) {
	srv := createTestServer(t, &stubSettlement{})

	req := httptest.NewRequest(http.MethodPost, "/InitPurchase",
		strings.NewReader(`{"appId":"480","itemId":1001,"steamId":"765"}`))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Validation failed")
}

func TestInitPurchaseAppTicket(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name       string
		ticket     string
		wantStatus int
		wantError  string
	}{
		{
			name:       "valid ticket passes through to settlement",
			ticket:     encryptTicket(t, ticketAppID, now),
			wantStatus: http.StatusOK,
		},
		{
			name:       "ticket for wrong application",
			ticket:     encryptTicket(t, ticketAppID+1, now),
			wantStatus: http.StatusUnauthorized,
			wantError:  "App ticket is for wrong application",
		},
		{
			name:       "expired ticket",
			ticket:     encryptTicket(t, ticketAppID, now.Add(-2*time.Hour)),
			wantStatus: http.StatusUnauthorized,
			wantError:  "App ticket has expired",
		},
		{
			name:       "undecodable ticket",
			ticket:     base64.StdEncoding.EncodeToString([]byte("garbage")),
			wantStatus: http.StatusUnauthorized,
			wantError:  "Invalid app ticket",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubSettlement{initParams: &steam.TxnParams{TransID: "steam-trans-1"}}
			srv := createTestServer(t, stub)

			rec, body := doJSON(t, srv, http.MethodPost, "/InitPurchaseAppTicket",
				`{"appId":"480","itemId":1001,"steamId":"76561198000000001"}`,
				map[string]string{"x-steam-app-ticket": tt.ticket})

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, body["error"])
				assert.Zero(t, stub.calls, "rejected tickets must not reach settlement")
				return
			}
			assert.Equal(t, "steam-trans-1", body["transid"])
		})
	}
}

func TestInitPurchaseAppTicket_MissingHeader(t *testing.T) {
	stub := &stubSettlement{}
	srv := createTestServer(t, stub)

	rec, body := doJSON(t, srv, http.MethodPost, "/InitPurchaseAppTicket",
		`{"appId":"480","itemId":1001,"steamId":"76561198000000001"}`, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Validation failed", body["error"])
	assert.Contains(t, rec.Body.String(), "App ticket is required")
	assert.Zero(t, stub.calls)
}

func TestFinalizePurchase(t *testing.T) {
	stub := &stubSettlement{finalizeRes: &steam.FinalizeResult{Success: true}}
	srv := createTestServer(t, stub)

	for i := 0; i < 2; i++ {
		rec, body := doJSON(t, srv, http.MethodPost, "/FinalizePurchase",
			`{"appId":"480","orderId":"176306419000000001"}`, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, true, body["success"])
	}
	assert.Equal(t, 2, stub.calls)
}

func TestFinalizePurchase_SettlementRejection(t *testing.T) {
	stub := &stubSettlement{finalizeRes: &steam.FinalizeResult{Success: false, ErrorDesc: "Order not approved"}}
	srv := createTestServer(t, stub)

	rec, body := doJSON(t, srv, http.MethodPost, "/FinalizePurchase",
		`{"appId":"480","orderId":"176306419000000001"}`, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Order not approved", body["error"])
}

func TestCheckPurchaseStatus(t *testing.T) {
	stub := &stubSettlement{queryParams: &steam.TxnParams{
		OrderID: "42", TransID: "steam-trans-1", Status: "Approved",
	}}
	srv := createTestServer(t, stub)

	rec, body := doJSON(t, srv, http.MethodPost, "/checkPurchaseStatus",
		`{"appId":"480","orderId":"42","transId":"steam-trans-1"}`, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Approved", body["status"])
}

func TestCheckPurchaseStatus_MissingTransID(t *testing.T) {
	stub := &stubSettlement{}
	srv := createTestServer(t, stub)

	rec, body := doJSON(t, srv, http.MethodPost, "/checkPurchaseStatus",
		`{"appId":"480","orderId":"42"}`, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Validation failed", body["error"])
	assert.Contains(t, rec.Body.String(), "Transaction ID is required")
	assert.Zero(t, stub.calls)
}

func TestCredentialRejectionSurfacesAs403(t *testing.T) {
	stub := &stubSettlement{err: apierrors.NewCredentialRejectedError()}
	srv := createTestServer(t, stub)

	rec, body := doJSON(t, srv, http.MethodPost, "/GetReliableUserInfo",
		`{"steamId":"76561198000000001"}`, nil)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Invalid Steam WebKey", body["error"])
}

func TestCheckAppOwnership_NotOwned(t *testing.T) {
	stub := &stubSettlement{ownership: &steam.AppOwnership{Result: steam.ResultOK, OwnsApp: false}}
	srv := createTestServer(t, stub)

	rec, body := doJSON(t, srv, http.MethodPost, "/CheckAppOwnership",
		`{"steamId":"76561198000000001","appId":"480"}`, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "The specified steamId has not purchased the provided appId", body["error"])
}
