package crypto

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"hash/fnv"
	"time"

	"sentinel/internal/domain"
)

// ApprovalHash binds a full action payload plus timestamp into a single
// digest. The approving party must echo this value back; it is never
// regenerated server-side for comparison.
func ApprovalHash(userID string, actionType domain.AuditActionType, actionData map[string]any, ts time.Time) (string, error) {
	if actionData == nil {
		actionData = map[string]any{}
	}
	payload := map[string]any{
		"user_id":     userID,
		"action_type": string(actionType),
		"action_data": actionData,
		"timestamp":   ts.UTC().Format(time.RFC3339Nano),
	}
	canonical, err := Canonicalize(payload)
	if err != nil {
		return "", err
	}
	return SHA256Hex(canonical), nil
}

func SHA256Hex(input []byte) string {
	sum := sha256.Sum256(input)
	return hex.EncodeToString(sum[:])
}

// HashesEqual compares two hex digests in constant time.
func HashesEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Fingerprint is a non-cryptographic content fingerprint used to correlate
// audit entries without storing the raw text.
func Fingerprint(text string) string {
	h := fnv.New64a()
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}
