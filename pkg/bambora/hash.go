// Package bambora implements the Bambora (ePay) hosted checkout integration:
// callback digest verification, callback decoding and checkout session creation.
package bambora

import (
	"crypto/md5" //nolint:gosec // the provider's callback scheme is MD5
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownAccountingGroup is returned when no key is configured for a group.
var ErrUnknownAccountingGroup = errors.New("no callback key configured for accounting group")

// Digest computes the callback digest: MD5 over every value in received
// order followed by the key, rendered as lowercase hex.
func Digest(key string, values []string) string {
	h := md5.New() //nolint:gosec
	for _, v := range values {
		h.Write([]byte(v))
	}
	h.Write([]byte(key))
	return hex.EncodeToString(h.Sum(nil))
}

// Verify recomputes the digest and compares it to received without regard
// to case. An empty received digest never verifies.
func Verify(key string, values []string, received string) bool {
	received = strings.TrimSpace(received)
	if received == "" {
		return false
	}
	want := Digest(key, values)
	return subtle.ConstantTimeCompare([]byte(want), []byte(strings.ToLower(received))) == 1
}

// GroupKey is the per accounting group callback secret and the prefix used
// for order references shown to the payer.
type GroupKey struct {
	MD5Key          string
	ReferencePrefix string
}

// KeyRing resolves callback keys by accounting group.
type KeyRing map[string]GroupKey

// ParseKeyRing reads "GROUP:md5key[:prefix],GROUP2:..." as used in configuration.
func ParseKeyRing(raw string) (KeyRing, error) {
	ring := KeyRing{}
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) < 2 || len(parts) > 3 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("invalid callback key entry %q", entry)
		}
		gk := GroupKey{MD5Key: parts[1]}
		if len(parts) == 3 {
			gk.ReferencePrefix = parts[2]
		}
		ring[strings.ToUpper(parts[0])] = gk
	}
	return ring, nil
}

// For returns the key configured for an accounting group.
func (r KeyRing) For(accountingGroup string) (GroupKey, error) {
	gk, ok := r[strings.ToUpper(strings.TrimSpace(accountingGroup))]
	if !ok {
		return GroupKey{}, fmt.Errorf("%w: %q", ErrUnknownAccountingGroup, accountingGroup)
	}
	return gk, nil
}
