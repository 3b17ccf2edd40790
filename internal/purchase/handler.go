package purchase

import (
	"context"
	"time"

	"steam-microtxn/internal/catalog"
	apierrors "steam-microtxn/internal/common/errors"
	"steam-microtxn/internal/common/logger"
	"steam-microtxn/internal/common/observability"
	"steam-microtxn/internal/orderid"
	"steam-microtxn/internal/steam"
)

// Operation labels used in metrics and logs.
const (
	opGetUserInfo    = "get_reliable_user_info"
	opCheckOwnership = "check_app_ownership"
	opInit           = "init_purchase"
	opCheckStatus    = "check_purchase_status"
	opFinalize       = "finalize_purchase"
)

// Handler runs the purchase lifecycle operations. It holds no per-request
// state; the settlement API is the system of record and every status call
// re-derives state from it.
type Handler struct {
	catalog *catalog.Catalog
	steam   steam.Client
	obs     *observability.Observability
	logger  logger.Logger
}

func NewHandler(cat *catalog.Catalog, sc steam.Client, obs *observability.Observability, log logger.Logger) *Handler {
	return &Handler{
		catalog: cat,
		steam:   sc,
		obs:     obs,
		logger:  log,
	}
}

// GetReliableUserInfo checks the account standing. A settlement-reported
// OK with a status outside the allow-list still fails: only Active and
// Trusted accounts may purchase.
func (h *Handler) GetReliableUserInfo(ctx context.Context, req UserInfoRequest) (resp *UserInfoResponse, err error) {
	defer h.record(ctx, opGetUserInfo, time.Now())(&err)

	info, err := h.steam.GetUserInfo(ctx, req.SteamID)
	if err != nil {
		return nil, err
	}
	if !info.Trusted() {
		h.logger.Warn("account standing not trusted for purchase", map[string]interface{}{
			"steamId": req.SteamID,
			"status":  info.Status,
		})
		return nil, apierrors.NewSettlementError("")
	}

	return &UserInfoResponse{
		Success:  true,
		State:    info.State,
		Country:  info.Country,
		Currency: info.Currency,
		Status:   info.Status,
	}, nil
}

// CheckAppOwnership verifies the account owns the application.
func (h *Handler) CheckAppOwnership(ctx context.Context, req OwnershipRequest) (resp *OwnershipResponse, err error) {
	defer h.record(ctx, opCheckOwnership, time.Now())(&err)

	own, err := h.steam.CheckAppOwnership(ctx, req.SteamID, req.AppID)
	if err != nil {
		return nil, err
	}
	if own.Result != steam.ResultOK || !own.OwnsApp {
		return nil, apierrors.NewSettlementError("The specified steamId has not purchased the provided appId")
	}
	return &OwnershipResponse{Success: true}, nil
}

// InitPurchase opens a transaction for a single catalog item. The order
// id is always minted here and the price and category always come from
// the catalog entry, whatever the client sent.
func (h *Handler) InitPurchase(ctx context.Context, req InitRequest) (resp *InitResponse, err error) {
	defer h.record(ctx, opInit, time.Now())(&err)

	if req.OrderID != "" {
		h.logger.Debug("discarding client-supplied order id", map[string]interface{}{
			"orderId": req.OrderID,
		})
	}

	product, ok := h.catalog.Lookup(req.ItemID)
	if !ok {
		return nil, apierrors.NewItemNotFoundError(req.ItemID)
	}

	orderID := orderid.Next()
	params, err := h.steam.InitTxn(ctx, steam.InitTxnRequest{
		OrderID:     orderID,
		SteamID:     req.SteamID,
		AppID:       req.AppID,
		ItemID:      product.ItemDefID,
		Qty:         1,
		Amount:      product.PriceUSD,
		Description: product.Name,
		Category:    product.Category,
	})
	if err != nil {
		return nil, err
	}

	h.logger.Info("purchase transaction opened", map[string]interface{}{
		"orderId": orderID,
		"transId": params.TransID,
		"itemId":  product.ItemDefID,
		"amount":  product.PriceUSD,
	})
	return &InitResponse{TransID: params.TransID, OrderID: orderID}, nil
}

// CheckPurchaseStatus is a pure read-through: nothing is cached locally,
// the snapshot comes straight from the settlement API.
func (h *Handler) CheckPurchaseStatus(ctx context.Context, req StatusRequest) (resp *StatusResponse, err error) {
	defer h.record(ctx, opCheckStatus, time.Now())(&err)

	params, err := h.steam.QueryTxn(ctx, req.AppID, req.OrderID, req.TransID)
	if err != nil {
		return nil, err
	}

	h.logger.Debug("purchase status re-derived", map[string]interface{}{
		"orderId": req.OrderID,
		"status":  params.Status,
		"state":   string(StateOf(params.Status)),
	})
	return &StatusResponse{
		Success:  true,
		OrderID:  params.OrderID,
		TransID:  params.TransID,
		SteamID:  params.SteamID,
		Status:   params.Status,
		Currency: params.Currency,
		Time:     params.Time,
		Country:  params.Country,
		USState:  params.USState,
		Items:    params.Items,
	}, nil
}

// FinalizePurchase commits a pending transaction. A settlement rejection
// is reported as success=false rather than an error so retries after an
// already-finalized order stay idempotent from the caller's view.
func (h *Handler) FinalizePurchase(ctx context.Context, req FinalizeRequest) (resp *FinalizeResponse, err error) {
	defer h.record(ctx, opFinalize, time.Now())(&err)

	res, err := h.steam.FinalizeTxn(ctx, req.AppID, req.OrderID)
	if err != nil {
		return nil, err
	}
	if !res.Success {
		h.logger.Warn("finalize rejected by settlement", map[string]interface{}{
			"orderId": req.OrderID,
			"reason":  res.ErrorDesc,
		})
	}
	return &FinalizeResponse{Success: res.Success, Error: res.ErrorDesc}, nil
}

// record returns the deferred half of the per-operation metrics pair so
// callers can hand it the final error by address.
func (h *Handler) record(ctx context.Context, operation string, start time.Time) func(*error) {
	return func(errp *error) {
		if h.obs == nil {
			return
		}
		status := "success"
		if errp != nil && *errp != nil {
			status = "failed"
		}
		h.obs.RecordPurchaseProcessed(ctx, operation, status)
		h.obs.RecordPurchaseDuration(ctx, operation, time.Since(start))
	}
}
