package ledger

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Marker is the fixed first field of every credential payload.
const Marker = "TICKET"

// Credential is the parsed form of the pipe-delimited QR payload:
//
//	TICKET|<eventId>|<customerId>|<8-char-nonce>|<epoch-millis>
//
// Only the marker, event id and customer id are semantically checked when a
// scan comes in; the nonce and timestamp exist to make payloads distinct and
// are never re-verified.
type Credential struct {
	Marker     string
	EventID    uint
	CustomerID uint
	Nonce      string
	IssuedAtMs int64
}

// MintCredential builds a fresh credential for a (event, customer) pair.
func MintCredential(eventID, customerID uint, issuedAt time.Time) (Credential, error) {
	nonce := make([]byte, 4)
	if _, err := rand.Read(nonce); err != nil {
		return Credential{}, fmt.Errorf("ledger: mint credential: %w", err)
	}
	return Credential{
		Marker:     Marker,
		EventID:    eventID,
		CustomerID: customerID,
		Nonce:      hex.EncodeToString(nonce),
		IssuedAtMs: issuedAt.UnixMilli(),
	}, nil
}

func (c Credential) String() string {
	return fmt.Sprintf("%s|%d|%d|%s|%d", c.Marker, c.EventID, c.CustomerID, c.Nonce, c.IssuedAtMs)
}

// ParseCredential splits a raw payload and validates the fields a scan
// depends on. Extra trailing fields are tolerated, a wrong marker or a
// missing/non-numeric id is not.
func ParseCredential(raw string) (Credential, error) {
	parts := strings.Split(raw, "|")
	if len(parts) < 3 || parts[0] != Marker {
		return Credential{}, ErrMalformedCredential
	}

	eventID, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil || eventID == 0 {
		return Credential{}, ErrMalformedCredential
	}
	customerID, err := strconv.ParseUint(parts[2], 10, 32)
	if err != nil || customerID == 0 {
		return Credential{}, ErrMalformedCredential
	}

	cred := Credential{
		Marker:     parts[0],
		EventID:    uint(eventID),
		CustomerID: uint(customerID),
	}
	if len(parts) > 3 {
		cred.Nonce = parts[3]
	}
	if len(parts) > 4 {
		// Best effort; an unparsable timestamp does not invalidate the scan.
		cred.IssuedAtMs, _ = strconv.ParseInt(parts[4], 10, 64)
	}
	return cred, nil
}
