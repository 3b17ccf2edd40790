package appticket

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

const (
	// ticketHeaderLen covers the fixed fields up to the opaque license
	// section: length, version, steamID, appID, two IPs, flags and the
	// two timestamps.
	ticketHeaderLen = 4 + 4 + 8 + 4 + 4 + 4 + 4 + 4 + 4
)

var (
	errTicketTooShort = errors.New("decrypted ticket shorter than header")
	errBadPadding     = errors.New("decrypted ticket has invalid padding")
)

// AESDecoder decrypts Valve encrypted application tickets. The blob
// carries a 16-byte IV encrypted with AES-ECB followed by the ticket
// body encrypted with AES-CBC under the same key.
type AESDecoder struct{}

func NewAESDecoder() *AESDecoder {
	return &AESDecoder{}
}

func (d *AESDecoder) Decode(ticket, key []byte) (*Ticket, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("bad decryption key: %w", err)
	}
	if len(ticket) < 2*aes.BlockSize || len(ticket)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("ticket length %d is not a valid ciphertext", len(ticket))
	}

	iv := make([]byte, aes.BlockSize)
	block.Decrypt(iv, ticket[:aes.BlockSize])

	body := make([]byte, len(ticket)-aes.BlockSize)
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(body, ticket[aes.BlockSize:])

	body, err = stripPadding(body)
	if err != nil {
		return nil, err
	}
	return parseTicket(body)
}

func parseTicket(body []byte) (*Ticket, error) {
	if len(body) < ticketHeaderLen {
		return nil, errTicketTooShort
	}

	length := binary.LittleEndian.Uint32(body[0:4])
	if int(length) > len(body) || length < ticketHeaderLen {
		return nil, fmt.Errorf("ticket declares length %d, have %d bytes", length, len(body))
	}

	t := &Ticket{
		Version:    binary.LittleEndian.Uint32(body[4:8]),
		SteamID:    binary.LittleEndian.Uint64(body[8:16]),
		AppID:      binary.LittleEndian.Uint32(body[16:20]),
		ExternalIP: binary.LittleEndian.Uint32(body[20:24]),
		InternalIP: binary.LittleEndian.Uint32(body[24:28]),
		Flags:      binary.LittleEndian.Uint32(body[28:32]),
		IssuedAt:   time.Unix(int64(binary.LittleEndian.Uint32(body[32:36])), 0),
		Expires:    time.Unix(int64(binary.LittleEndian.Uint32(body[36:40])), 0),
	}
	if length > ticketHeaderLen {
		t.Licenses = append([]byte(nil), body[ticketHeaderLen:length]...)
	}
	return t, nil
}

// stripPadding removes PKCS#7 padding from the decrypted body.
func stripPadding(body []byte) ([]byte, error) {
	if len(body) == 0 {
		return nil, errBadPadding
	}
	pad := int(body[len(body)-1])
	if pad == 0 || pad > aes.BlockSize || pad > len(body) {
		return nil, errBadPadding
	}
	if !bytes.Equal(body[len(body)-pad:], bytes.Repeat([]byte{byte(pad)}, pad)) {
		return nil, errBadPadding
	}
	return body[:len(body)-pad], nil
}
