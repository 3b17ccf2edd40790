// Package purchase orchestrates the purchase lifecycle against the Steam
// settlement API: opening a transaction, re-querying its status and
// finalizing it, plus the pre-purchase account and ownership gates.
package purchase

import "steam-microtxn/internal/steam"

// State is the lifecycle position of a purchase intent. The settlement
// API is the system of record; these values only describe what a single
// call observed.
type State string

const (
	StateCreated   State = "CREATED"
	StatePending   State = "PENDING"
	StateFinalized State = "FINALIZED"
	StateFailed    State = "FAILED"
	StateRejected  State = "REJECTED"
)

// StateOf maps a settlement-reported transaction status onto the
// lifecycle states.
func StateOf(status string) State {
	switch status {
	case "":
		return StateCreated
	case "Succeeded":
		return StateFinalized
	case "Failed", "Refunded", "PartialRefund", "Chargedback",
		"RefundedSuspectedFraud", "RefundedFriendlyFraud":
		return StateFailed
	default:
		// Init, Approved and anything the settlement API adds later.
		return StatePending
	}
}

// UserInfoRequest asks whether an account is in good enough standing to
// start a purchase.
type UserInfoRequest struct {
	SteamID string
}

// OwnershipRequest asks whether the account owns the application.
type OwnershipRequest struct {
	SteamID string
	AppID   string
}

// InitRequest opens a purchase intent. OrderID, ItemDescription and
// Category are accepted for wire compatibility but never trusted: the
// order id is minted server-side and price data comes from the catalog.
type InitRequest struct {
	AppID           string
	ItemID          int64
	SteamID         string
	OrderID         string
	ItemDescription string
	Category        string
}

// StatusRequest re-queries a previously opened transaction.
type StatusRequest struct {
	AppID   string
	OrderID string
	TransID string
}

// FinalizeRequest commits a pending transaction.
type FinalizeRequest struct {
	AppID   string
	OrderID string
}

// UserInfoResponse mirrors the settlement user standing fields.
type UserInfoResponse struct {
	Success  bool   `json:"success"`
	State    string `json:"state,omitempty"`
	Country  string `json:"country,omitempty"`
	Currency string `json:"currency,omitempty"`
	Status   string `json:"status,omitempty"`
}

type OwnershipResponse struct {
	Success bool `json:"success"`
}

// InitResponse returns the correlation pair the client must persist to
// query or finalize the purchase later.
type InitResponse struct {
	TransID string `json:"transid"`
	OrderID string `json:"orderid"`
}

// StatusResponse spreads the transaction snapshot reported by QueryTxn.
type StatusResponse struct {
	Success  bool            `json:"success"`
	OrderID  string          `json:"orderid,omitempty"`
	TransID  string          `json:"transid,omitempty"`
	SteamID  string          `json:"steamid,omitempty"`
	Status   string          `json:"status,omitempty"`
	Currency string          `json:"currency,omitempty"`
	Time     string          `json:"time,omitempty"`
	Country  string          `json:"country,omitempty"`
	USState  string          `json:"usstate,omitempty"`
	Items    []steam.TxnItem `json:"items,omitempty"`
}

type FinalizeResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Body extraction helpers for the validated JSON maps. Validation has
// already enforced types, so failed assertions just become zero values.

func bodyString(body map[string]interface{}, key string) string {
	s, _ := body[key].(string)
	return s
}

func bodyInt64(body map[string]interface{}, key string) int64 {
	f, _ := body[key].(float64)
	return int64(f)
}

func UserInfoRequestFromBody(body map[string]interface{}) UserInfoRequest {
	return UserInfoRequest{SteamID: bodyString(body, "steamId")}
}

func OwnershipRequestFromBody(body map[string]interface{}) OwnershipRequest {
	return OwnershipRequest{
		SteamID: bodyString(body, "steamId"),
		AppID:   bodyString(body, "appId"),
	}
}

func InitRequestFromBody(body map[string]interface{}) InitRequest {
	return InitRequest{
		AppID:           bodyString(body, "appId"),
		ItemID:          bodyInt64(body, "itemId"),
		SteamID:         bodyString(body, "steamId"),
		OrderID:         bodyString(body, "orderId"),
		ItemDescription: bodyString(body, "itemDescription"),
		Category:        bodyString(body, "category"),
	}
}

func StatusRequestFromBody(body map[string]interface{}) StatusRequest {
	return StatusRequest{
		AppID:   bodyString(body, "appId"),
		OrderID: bodyString(body, "orderId"),
		TransID: bodyString(body, "transId"),
	}
}

func FinalizeRequestFromBody(body map[string]interface{}) FinalizeRequest {
	return FinalizeRequest{
		AppID:   bodyString(body, "appId"),
		OrderID: bodyString(body, "orderId"),
	}
}
