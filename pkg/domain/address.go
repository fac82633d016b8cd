package domain

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/sha3"

	dErrors "pharmachain/pkg/domain-errors"
)

// Address identifies a custody party: a 20-byte account address written as
// 0x-prefixed hex. The canonical form is lowercase so equality is a plain
// string comparison.
type Address string

const addressHexLen = 40

// ZeroAddress is the all-zero account. It is well-formed but never a valid
// custody holder.
const ZeroAddress Address = "0x0000000000000000000000000000000000000000"

// ParseAddress validates and canonicalizes an address.
//
// Accepted forms: 40 hex digits with an optional 0x prefix, either in a
// single case or in EIP-55 mixed case. Mixed-case input whose checksum does
// not match is rejected, since it most likely carries a typo.
func ParseAddress(s string) (Address, error) {
	raw := strings.TrimPrefix(s, "0x")
	if len(raw) != addressHexLen {
		return "", dErrors.New(dErrors.CodeInvalidIdentity, "address must be 40 hex digits")
	}
	if _, err := hex.DecodeString(raw); err != nil {
		return "", dErrors.New(dErrors.CodeInvalidIdentity, "address contains non-hex characters")
	}
	lower := strings.ToLower(raw)
	if raw != lower && raw != strings.ToUpper(raw) {
		if checksum(lower) != raw {
			return "", dErrors.New(dErrors.CodeInvalidIdentity, "address checksum mismatch")
		}
	}
	return Address("0x" + lower), nil
}

// MustParseAddress is ParseAddress for constants and tests.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Address) String() string { return string(a) }

// IsZero reports whether a is empty or the zero account.
func (a Address) IsZero() bool {
	return a == "" || a == ZeroAddress
}

// Checksum renders a in EIP-55 mixed case.
func (a Address) Checksum() string {
	if a == "" {
		return ""
	}
	return "0x" + checksum(strings.TrimPrefix(string(a), "0x"))
}

// checksum applies EIP-55 casing to 40 lowercase hex digits: a letter is
// upper-cased when the matching nibble of keccak256(lowerHex) is >= 8.
func checksum(lowerHex string) string {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(lowerHex))
	digest := h.Sum(nil)

	out := []byte(lowerHex)
	for i, c := range out {
		if c < 'a' || c > 'f' {
			continue
		}
		nibble := digest[i/2]
		if i%2 == 0 {
			nibble >>= 4
		}
		if nibble&0x0f >= 8 {
			out[i] = c - ('a' - 'A')
		}
	}
	return string(out)
}
