package route

import (
	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// ValidMintAddress reports whether s is a well-formed Solana mint address:
// base58 (Bitcoin alphabet) decoding to exactly 32 bytes. Mint accounts may
// be PDAs, so no on-curve requirement applies.
func ValidMintAddress(s string) bool {
	if len(s) < 32 || len(s) > 44 {
		return false
	}
	raw, err := base58.Decode(s)
	return err == nil && len(raw) == 32
}

// ValidWalletAddress reports whether s is a well-formed wallet owner
// address. Wallets are ed25519 keypairs, so beyond the mint grammar the
// bytes must decode to a point on the curve; PDAs are constructed to be
// off-curve and can never be a signing wallet.
func ValidWalletAddress(s string) bool {
	if len(s) < 32 || len(s) > 44 {
		return false
	}
	raw, err := base58.Decode(s)
	if err != nil || len(raw) != 32 {
		return false
	}
	_, err = new(edwards25519.Point).SetBytes(raw)
	return err == nil
}
