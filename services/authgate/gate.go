package authgate

import (
	"fmt"
	"time"

	"github.com/sklim84/agentic-commerce-protocol/lib/myerrors"
	"github.com/sklim84/agentic-commerce-protocol/lib/mytime"
	"github.com/sklim84/agentic-commerce-protocol/lib/myuuid"
)

type Outcome string

const (
	OutcomeAuthorized Outcome = "authorized"
	OutcomeFailed     Outcome = "failed"
)

// Metadata is generated by the merchant when a completion attempt requires a
// challenge. It lives on the session only while status is
// authentication_required.
type Metadata struct {
	ChallengeUID string    `json:"challenge_id"`
	Method       string    `json:"method"`
	CreatedAt    time.Time `json:"created_at"`
}

// Result is supplied by the client on the completion attempt that follows a
// challenge. It is validated and then discarded, never persisted on the
// session.
type Result struct {
	Outcome        Outcome `json:"outcome"`
	ChallengeUID   string  `json:"challenge_id"`
	Cryptogram     string  `json:"cryptogram,omitempty"`
	ECI            string  `json:"eci,omitempty"`
	TransactionUID string  `json:"transaction_id,omitempty"`
}

// Gate decides whether payment completion needs a 3DS-style challenge and
// validates the client-supplied challenge result.
type Gate struct {
	challengeThreshold int64
	nower              mytime.Nower
	uuider             myuuid.UUIDer
}

// Use dependency injection to isolate the infrastructure and easy testing
func New(challengeThreshold int64, nower mytime.Nower, uuider myuuid.UUIDer) *Gate {
	return &Gate{
		challengeThreshold: challengeThreshold,
		nower:              nower,
		uuider:             uuider,
	}
}

// ChallengeRequired applies merchant policy: amounts at or above the
// configured threshold must be challenged. A threshold of 0 disables
// challenges entirely.
func (g *Gate) ChallengeRequired(totalAmount int64) bool {
	if g.challengeThreshold <= 0 {
		return false
	}
	return totalAmount >= g.challengeThreshold
}

func (g *Gate) NewChallenge() Metadata {
	return Metadata{
		ChallengeUID: g.uuider.Create(),
		Method:       "3ds2",
		CreatedAt:    g.nower.Now(),
	}
}

// ValidateResult checks the structural shape of a challenge result: a known
// outcome and the sub-fields that outcome requires. The outcome itself is not
// judged here; a structurally valid "failed" result passes.
func (g *Gate) ValidateResult(metadata Metadata, result Result) error {
	switch result.Outcome {
	case OutcomeAuthorized:
		if result.Cryptogram == "" {
			return myerrors.NewInvalidFieldError("$.authentication_result.cryptogram", fmt.Errorf("authorized outcome requires a cryptogram"))
		}
		if result.ECI == "" {
			return myerrors.NewInvalidFieldError("$.authentication_result.eci", fmt.Errorf("authorized outcome requires an eci"))
		}
	case OutcomeFailed:
		// no extra fields required
	default:
		return myerrors.NewInvalidFieldError("$.authentication_result.outcome", fmt.Errorf("unknown outcome %q", result.Outcome))
	}

	if result.ChallengeUID == "" {
		return myerrors.NewInvalidFieldError("$.authentication_result.challenge_id", fmt.Errorf("missing challenge_id"))
	}
	if result.ChallengeUID != metadata.ChallengeUID {
		return myerrors.NewInvalidFieldError("$.authentication_result.challenge_id", fmt.Errorf("challenge_id %s does not match the issued challenge", result.ChallengeUID))
	}

	return nil
}
