// Package appticket verifies the encrypted ownership tickets presented on
// the ticket-authenticated routes. Decoding the Valve ticket format sits
// behind the Decoder interface; the verifier only owns the check sequence.
package appticket

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	apierrors "steam-microtxn/internal/common/errors"
	"steam-microtxn/internal/common/logger"
)

// Ticket is a decoded ownership ticket. Only the fields the verifier
// checks are interpreted; license data stays opaque.
type Ticket struct {
	Version    uint32
	SteamID    uint64
	AppID      uint32
	ExternalIP uint32
	InternalIP uint32
	Flags      uint32
	IssuedAt   time.Time
	Expires    time.Time
	Licenses   []byte // raw remainder, not interpreted here
}

// Decoder turns an encrypted ticket blob into a Ticket using the shared
// decryption key.
type Decoder interface {
	Decode(ticket, key []byte) (*Ticket, error)
}

// Verifier applies the ordered ticket checks: decodable, right
// application, fresh enough.
type Verifier struct {
	decoder       Decoder
	key           []byte
	expectedAppID uint32
	maxAge        time.Duration
	logger        logger.Logger
	now           func() time.Time
}

// NewVerifier builds a verifier from the hex-encoded key. A missing key is
// allowed at construction; Verify reports it as a misconfiguration.
func NewVerifier(hexKey string, expectedAppID uint32, maxAge time.Duration, dec Decoder, log logger.Logger) (*Verifier, error) {
	var key []byte
	if hexKey != "" {
		var err error
		key, err = hex.DecodeString(hexKey)
		if err != nil {
			return nil, fmt.Errorf("app ticket key is not valid hex: %w", err)
		}
	}
	if dec == nil {
		dec = NewAESDecoder()
	}
	return &Verifier{
		decoder:       dec,
		key:           key,
		expectedAppID: expectedAppID,
		maxAge:        maxAge,
		logger:        log,
		now:           time.Now,
	}, nil
}

// Verify checks a base64-encoded ticket. The rejection reasons are
// distinct so callers can tell a forged ticket from a stale one.
func (v *Verifier) Verify(ticketB64 string) (*Ticket, *apierrors.APIError) {
	if len(v.key) == 0 {
		return nil, apierrors.NewTicketKeyUnsetError()
	}

	raw, err := base64.StdEncoding.DecodeString(ticketB64)
	if err != nil {
		return nil, apierrors.NewTicketInvalidError("ticket is not valid base64")
	}

	ticket, panicked, err := v.decode(raw)
	if err != nil {
		v.logger.Warn("app ticket rejected", map[string]interface{}{
			"reason": err.Error(),
		})
		if panicked {
			return nil, apierrors.NewTicketVerifyFailedError(err.Error())
		}
		return nil, apierrors.NewTicketInvalidError(err.Error())
	}

	if ticket.AppID != v.expectedAppID {
		return nil, apierrors.NewTicketWrongAppError(ticket.AppID, v.expectedAppID)
	}

	age := v.now().Sub(ticket.IssuedAt)
	if age > v.maxAge {
		return nil, apierrors.NewTicketExpiredError(age, v.maxAge)
	}

	return ticket, nil
}

// decode isolates the decoder call so an unexpected panic inside the
// ticket parser degrades to a normal rejection.
func (v *Verifier) decode(raw []byte) (ticket *Ticket, panicked bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ticket = nil
			panicked = true
			err = fmt.Errorf("ticket decode panicked: %v", r)
		}
	}()
	ticket, err = v.decoder.Decode(raw, v.key)
	return ticket, false, err
}
