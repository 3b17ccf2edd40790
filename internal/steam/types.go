// Package steam talks to the Steam Web API partner endpoints used for
// microtransaction settlement and ownership checks.
package steam

// ResultOK is the success marker in every settlement response envelope.
const ResultOK = "OK"

// User account states that are trusted enough to sell to.
const (
	UserStatusActive  = "Active"
	UserStatusTrusted = "Trusted"
)

// TxnError is the diagnostic block Steam attaches to failed calls.
type TxnError struct {
	ErrorCode int    `json:"errorcode"`
	ErrorDesc string `json:"errordesc"`
}

// TxnItem is a line item as reported by QueryTxn.
type TxnItem struct {
	ItemID     int64  `json:"itemid"`
	Qty        int    `json:"qty"`
	Amount     int64  `json:"amount"`
	Vat        int64  `json:"vat"`
	ItemStatus string `json:"itemstatus"`
}

// TxnParams carries the transaction fields returned by the microtxn
// endpoints. Individual calls populate different subsets.
type TxnParams struct {
	OrderID  string    `json:"orderid"`
	TransID  string    `json:"transid"`
	SteamID  string    `json:"steamid"`
	Status   string    `json:"status"`
	Currency string    `json:"currency"`
	Time     string    `json:"time"`
	Country  string    `json:"country"`
	USState  string    `json:"usstate"`
	Items    []TxnItem `json:"items"`
}

type txnResponse struct {
	Response struct {
		Result string    `json:"result"`
		Params TxnParams `json:"params"`
		Error  *TxnError `json:"error"`
	} `json:"response"`
}

// UserInfoParams is the GetUserInfo payload.
type UserInfoParams struct {
	State    string `json:"state"`
	Country  string `json:"country"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

type userInfoResponse struct {
	Response struct {
		Result string         `json:"result"`
		Params UserInfoParams `json:"params"`
		Error  *TxnError      `json:"error"`
	} `json:"response"`
}

// AppOwnership is the CheckAppOwnership payload.
type AppOwnership struct {
	Result       string `json:"result"`
	OwnsApp      bool   `json:"ownsapp"`
	Permanent    bool   `json:"permanent"`
	Timestamp    string `json:"timestamp"`
	OwnerSteamID string `json:"ownersteamid"`
	SiteLicense  bool   `json:"sitelicense"`
}

type appOwnershipResponse struct {
	AppOwnership AppOwnership `json:"appownership"`
}

// Trusted reports whether the account status allows purchases.
func (u *UserInfoParams) Trusted() bool {
	return u.Status == UserStatusActive || u.Status == UserStatusTrusted
}
