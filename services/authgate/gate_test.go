package authgate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/sklim84/agentic-commerce-protocol/lib/mytime"
	"github.com/sklim84/agentic-commerce-protocol/lib/myuuid"
)

func TestChallengeRequired(t *testing.T) {
	gate := New(10000, nil, nil)

	assert.False(t, gate.ChallengeRequired(9999))
	assert.True(t, gate.ChallengeRequired(10000))
	assert.True(t, gate.ChallengeRequired(10001))

	disabled := New(0, nil, nil)
	assert.False(t, disabled.ChallengeRequired(1000000))
}

func TestNewChallenge(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	nower := mytime.NewMockNower(ctrl)
	uuider := myuuid.NewMockUUIDer(ctrl)
	nower.EXPECT().Now().Return(mytime.ExampleTime)
	uuider.EXPECT().Create().Return("challenge-123")

	gate := New(10000, nower, uuider)

	got := gate.NewChallenge()
	assert.Equal(t, "challenge-123", got.ChallengeUID)
	assert.Equal(t, "3ds2", got.Method)
	assert.Equal(t, mytime.ExampleTime, got.CreatedAt)
}

func TestValidateResult(t *testing.T) {
	gate := New(10000, nil, nil)
	metadata := Metadata{ChallengeUID: "challenge-123", Method: "3ds2"}

	testCases := []struct {
		name        string
		result      Result
		expectError bool
	}{
		{
			name: "Authorized outcome with required sub-fields",
			result: Result{
				Outcome:      OutcomeAuthorized,
				ChallengeUID: "challenge-123",
				Cryptogram:   "AAABBBCCC",
				ECI:          "05",
			},
		},
		{
			name: "Failed outcome is structurally valid",
			result: Result{
				Outcome:      OutcomeFailed,
				ChallengeUID: "challenge-123",
			},
		},
		{
			name: "Authorized outcome without cryptogram",
			result: Result{
				Outcome:      OutcomeAuthorized,
				ChallengeUID: "challenge-123",
				ECI:          "05",
			},
			expectError: true,
		},
		{
			name: "Authorized outcome without eci",
			result: Result{
				Outcome:      OutcomeAuthorized,
				ChallengeUID: "challenge-123",
				Cryptogram:   "AAABBBCCC",
			},
			expectError: true,
		},
		{
			name: "Unknown outcome",
			result: Result{
				Outcome:      Outcome("bogus"),
				ChallengeUID: "challenge-123",
			},
			expectError: true,
		},
		{
			name: "Missing challenge_id",
			result: Result{
				Outcome: OutcomeFailed,
			},
			expectError: true,
		},
		{
			name: "Mismatching challenge_id",
			result: Result{
				Outcome:      OutcomeFailed,
				ChallengeUID: "challenge-456",
			},
			expectError: true,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := gate.ValidateResult(metadata, tc.result)
			if tc.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
