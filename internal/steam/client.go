package steam

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"steam-microtxn/internal/common/config"
	apierrors "steam-microtxn/internal/common/errors"
	"steam-microtxn/internal/common/logger"
	"steam-microtxn/internal/common/metrics"
)

const (
	microTxnInterface        = "ISteamMicroTxn"
	microTxnSandboxInterface = "ISteamMicroTxnSandbox"
	userInterface            = "ISteamUser"
)

// InitTxnRequest carries everything InitTxn needs for a single-item
// transaction. Amount is in minor currency units.
type InitTxnRequest struct {
	OrderID     string
	SteamID     string
	AppID       string
	ItemID      int64
	Qty         int
	Amount      int64
	Description string
	Category    string
}

// FinalizeResult reports the settlement outcome of a finalize call. A
// business rejection is a result, not an error: callers surface it as
// success=false with the diagnostic attached.
type FinalizeResult struct {
	Success   bool
	ErrorDesc string
}

// Client is the settlement surface consumed by the purchase handlers.
type Client interface {
	GetUserInfo(ctx context.Context, steamID string) (*UserInfoParams, error)
	CheckAppOwnership(ctx context.Context, steamID, appID string) (*AppOwnership, error)
	InitTxn(ctx context.Context, req InitTxnRequest) (*TxnParams, error)
	QueryTxn(ctx context.Context, appID, orderID, transID string) (*TxnParams, error)
	FinalizeTxn(ctx context.Context, appID, orderID string) (*FinalizeResult, error)
}

type client struct {
	http     *resty.Client
	webKey   string
	iface    string
	currency string
	locale   string
	logger   logger.Logger
}

// NewClient builds a settlement client. Development mode routes the
// microtxn calls through the sandbox interface so no real money moves.
func NewClient(cfg config.SteamConfig, development bool, log logger.Logger) Client {
	iface := microTxnInterface
	if development {
		iface = microTxnSandboxInterface
	}

	r := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(config.GetDuration(cfg.Timeout)).
		SetHeader("Accept", "application/json")

	return &client{
		http:     r,
		webKey:   cfg.WebKey,
		iface:    iface,
		currency: cfg.Currency,
		locale:   cfg.Locale,
		logger:   log,
	}
}

func (c *client) GetUserInfo(ctx context.Context, steamID string) (*UserInfoParams, error) {
	var out userInfoResponse
	query := url.Values{
		"key":     {c.webKey},
		"steamid": {steamID},
	}
	if err := c.do(ctx, "get_user_info", http.MethodGet, c.txnPath("GetUserInfo", "v2"), query, nil, &out); err != nil {
		return nil, err
	}
	if out.Response.Result != ResultOK {
		return nil, settlementFailure(out.Response.Error)
	}
	return &out.Response.Params, nil
}

func (c *client) CheckAppOwnership(ctx context.Context, steamID, appID string) (*AppOwnership, error) {
	var out appOwnershipResponse
	query := url.Values{
		"key":     {c.webKey},
		"steamid": {steamID},
		"appid":   {appID},
	}
	// Ownership lives on ISteamUser and has no sandbox variant.
	path := fmt.Sprintf("/%s/CheckAppOwnership/v2/", userInterface)
	if err := c.do(ctx, "check_app_ownership", http.MethodGet, path, query, nil, &out); err != nil {
		return nil, err
	}
	return &out.AppOwnership, nil
}

func (c *client) InitTxn(ctx context.Context, req InitTxnRequest) (*TxnParams, error) {
	var out txnResponse
	form := url.Values{
		"key":            {c.webKey},
		"orderid":        {req.OrderID},
		"steamid":        {req.SteamID},
		"appid":          {req.AppID},
		"itemcount":      {"1"},
		"language":       {c.locale},
		"currency":       {c.currency},
		"itemid[0]":      {strconv.FormatInt(req.ItemID, 10)},
		"qty[0]":         {strconv.Itoa(req.Qty)},
		"amount[0]":      {strconv.FormatInt(req.Amount, 10)},
		"description[0]": {req.Description},
		"category[0]":    {req.Category},
	}
	if err := c.do(ctx, "init_txn", http.MethodPost, c.txnPath("InitTxn", "v3"), nil, form, &out); err != nil {
		return nil, err
	}
	if out.Response.Result != ResultOK || out.Response.Params.TransID == "" {
		return nil, settlementFailure(out.Response.Error)
	}
	return &out.Response.Params, nil
}

func (c *client) QueryTxn(ctx context.Context, appID, orderID, transID string) (*TxnParams, error) {
	var out txnResponse
	query := url.Values{
		"key":     {c.webKey},
		"appid":   {appID},
		"orderid": {orderID},
	}
	if transID != "" {
		query.Set("transid", transID)
	}
	if err := c.do(ctx, "query_txn", http.MethodGet, c.txnPath("QueryTxn", "v3"), query, nil, &out); err != nil {
		return nil, err
	}
	if out.Response.Result != ResultOK {
		return nil, settlementFailure(out.Response.Error)
	}
	return &out.Response.Params, nil
}

func (c *client) FinalizeTxn(ctx context.Context, appID, orderID string) (*FinalizeResult, error) {
	var out txnResponse
	form := url.Values{
		"key":     {c.webKey},
		"appid":   {appID},
		"orderid": {orderID},
	}
	if err := c.do(ctx, "finalize_txn", http.MethodPost, c.txnPath("FinalizeTxn", "v2"), nil, form, &out); err != nil {
		return nil, err
	}
	res := &FinalizeResult{Success: out.Response.Result == ResultOK}
	if out.Response.Error != nil {
		res.ErrorDesc = out.Response.Error.ErrorDesc
	}
	return res, nil
}

func (c *client) txnPath(method, version string) string {
	return fmt.Sprintf("/%s/%s/%s/", c.iface, method, version)
}

// do executes one settlement call and translates the transport-level
// outcomes. Business failures inside a 200 envelope are left to the
// per-method result checks.
func (c *client) do(ctx context.Context, operation, method, path string, query, form url.Values, out interface{}) error {
	start := time.Now()

	req := c.http.R().SetContext(ctx).SetResult(out)
	if query != nil {
		req.SetQueryParamsFromValues(query)
	}
	if form != nil {
		req.SetFormDataFromValues(form)
	}

	var resp *resty.Response
	var err error
	switch method {
	case http.MethodPost:
		resp, err = req.Post(path)
	default:
		resp, err = req.Get(path)
	}
	metrics.SettlementCallDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.SettlementCallsTotal.WithLabelValues(operation, "transport_error").Inc()
		c.logger.WithError(err).Error("settlement call failed", map[string]interface{}{
			"operation": operation,
		})
		return apierrors.NewTransportError(err)
	}

	if resp.StatusCode() == http.StatusForbidden {
		metrics.SettlementCallsTotal.WithLabelValues(operation, "credential_rejected").Inc()
		return apierrors.NewCredentialRejectedError()
	}
	if resp.IsError() {
		metrics.SettlementCallsTotal.WithLabelValues(operation, "http_error").Inc()
		c.logger.Error("settlement call returned error status", map[string]interface{}{
			"operation": operation,
			"status":    resp.StatusCode(),
		})
		return apierrors.NewSettlementError("")
	}

	metrics.SettlementCallsTotal.WithLabelValues(operation, "ok").Inc()
	return nil
}

func settlementFailure(e *TxnError) error {
	if e == nil {
		return apierrors.NewSettlementError("")
	}
	return apierrors.NewSettlementError(e.ErrorDesc)
}
