// Package telegram verifies Telegram WebApp launch data (initData).
//
// When Telegram opens a Mini App it passes the client a signed query string:
//
//	query_id=...&user=%7B%22id%22%3A42%2C...%7D&auth_date=1700000000&hash=<hex>
//
// The hash is an HMAC-SHA256 over the remaining pairs, keyed with the SHA-256
// digest of the bot token. Verifying it is the only thing standing between us
// and a client that can claim to be any user, so the canonicalization must be
// byte-exact:
//
//  1. Split on '&', then each pair on its FIRST '='. Values may themselves
//     contain percent-encoded '=' and '&'; splitting on every '=' (as naive
//     implementations do) silently truncates them.
//  2. Drop the hash pair, sort the rest by key, join "k=v" with '\n'.
//  3. Values stay percent-encoded. Decoding before signing would let an
//     attacker pick a different encoding of the same decoded bytes and
//     break the signature binding.
//  4. Compare digests in constant time.
//
// Only after the signature checks out do we decode the user field.
package telegram

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/url"
	"sort"
	"strings"
)

var (
	ErrMalformed        = errors.New("telegram: malformed init data")
	ErrInvalidSignature = errors.New("telegram: invalid init data signature")
	ErrMissingIdentity  = errors.New("telegram: init data carries no user identity")
)

// Identity is the authenticated user extracted from verified launch data.
type Identity struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// pair is one key/value entry of the launch-data query string.
// Value keeps its original percent-encoding.
type pair struct {
	key   string
	value string
}

// Verify checks that initData was signed by Telegram for the bot identified
// by botToken and returns the embedded user identity.
//
// It is a pure function: no clock, no I/O. Freshness of the payload
// (auth_date) is a session-policy concern and is enforced by the token layer,
// not here.
func Verify(initData, botToken string) (Identity, error) {
	pairs, receivedHash, err := parseInitData(initData)
	if err != nil {
		return Identity{}, err
	}

	computed := computeHash(pairs, botToken)

	// The received hash is hex; decode and compare raw bytes with hmac.Equal,
	// which is constant-time. Undecodable hex can never match anything.
	received, err := hex.DecodeString(receivedHash)
	if err != nil || !hmac.Equal(computed, received) {
		return Identity{}, ErrInvalidSignature
	}

	return extractIdentity(pairs)
}

// parseInitData splits the raw query string into pairs, pulling out the hash
// entry. The remaining pairs keep their wire encoding untouched.
func parseInitData(initData string) ([]pair, string, error) {
	if initData == "" {
		return nil, "", ErrMalformed
	}

	var (
		pairs        []pair
		receivedHash string
	)
	for _, raw := range strings.Split(initData, "&") {
		if raw == "" {
			return nil, "", ErrMalformed
		}
		// First '=' only — the value may contain encoded separators.
		key, value, found := strings.Cut(raw, "=")
		if !found || key == "" {
			return nil, "", ErrMalformed
		}
		if key == "hash" {
			receivedHash = value
			continue
		}
		pairs = append(pairs, pair{key: key, value: value})
	}

	if receivedHash == "" {
		return nil, "", ErrMalformed
	}
	return pairs, receivedHash, nil
}

// computeHash builds the data-check-string and returns its HMAC-SHA256 digest.
//
// The signing key is sha256(botToken) — Telegram's WebApp scheme, not a plain
// HMAC over the token itself.
func computeHash(pairs []pair, botToken string) []byte {
	sorted := make([]pair, len(pairs))
	copy(sorted, pairs)
	// Stable: a duplicated key keeps its wire order, matching what Telegram
	// would have signed.
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].key < sorted[j].key
	})

	var b strings.Builder
	for i, p := range sorted {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(p.key)
		b.WriteByte('=')
		b.WriteString(p.value)
	}

	secretKey := sha256.Sum256([]byte(botToken))
	mac := hmac.New(sha256.New, secretKey[:])
	mac.Write([]byte(b.String()))
	return mac.Sum(nil)
}

// extractIdentity decodes the user field of an already-verified payload.
func extractIdentity(pairs []pair) (Identity, error) {
	for _, p := range pairs {
		if p.key != "user" {
			continue
		}
		decoded, err := url.QueryUnescape(p.value)
		if err != nil {
			return Identity{}, ErrMissingIdentity
		}
		var id Identity
		if err := json.Unmarshal([]byte(decoded), &id); err != nil || id.ID == 0 {
			return Identity{}, ErrMissingIdentity
		}
		return id, nil
	}
	return Identity{}, ErrMissingIdentity
}
