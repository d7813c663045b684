package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/sklim84/agentic-commerce-protocol/lib/myerrors"
)

// Fingerprint hashes the normalized request body: the JSON is decoded and
// re-encoded so that two semantically identical requests differing only in
// field order hash identically.
func Fingerprint(rawBody []byte) (string, error) {
	canonical := []byte("null")

	if len(rawBody) > 0 {
		var normalized any
		err := json.Unmarshal(rawBody, &normalized)
		if err != nil {
			return "", myerrors.NewInvalidInputError(fmt.Errorf("error parsing request body: %s", err))
		}

		// map keys are marshalled in sorted order
		canonical, err = json.Marshal(normalized)
		if err != nil {
			return "", myerrors.NewInternalError(fmt.Errorf("error normalizing request body: %s", err))
		}
	}

	hash := sha256.Sum256(canonical)
	return hex.EncodeToString(hash[:]), nil
}
