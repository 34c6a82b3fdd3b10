// Package claimstate derives a claim's display state from its validation
// history. Derivation is pure: it reads the most recent closed request's
// responses and never writes anything.
package claimstate

import (
	"stilltrue/internal/claim"
	"stilltrue/internal/validation"
	id "stilltrue/pkg/domain"
)

// Derive maps a claim and its most recent closed request's responses to a
// state. Precedence, highest first:
//
//	Retired      claim.retired_at set, overrides everything
//	Unconfirmed  no closed request yet
//	Challenged   any "no" (all mode) / closing answer "no" (any mode)
//	Affirmed     all "yes" (all mode) / closing answer "yes" (any mode)
//	Unconfirmed  otherwise (an "unsure" broke the affirmation)
//
// latestClosed may be nil when the claim has never completed a round.
func Derive(c *claim.Claim, latestClosed *validation.Request, responses []*validation.Response) id.ClaimState {
	if c.IsRetired() {
		return id.StateRetired
	}
	if latestClosed == nil || len(responses) == 0 {
		return id.StateUnconfirmed
	}

	if c.ValidationMode == id.ModeAll {
		allYes := true
		for _, r := range responses {
			switch r.Answer {
			case id.AnswerNo:
				return id.StateChallenged
			case id.AnswerUnsure:
				allYes = false
			}
		}
		if allYes {
			return id.StateAffirmed
		}
		return id.StateUnconfirmed
	}

	// `any` mode: the answer that closed the request decides. Responses
	// are ordered by creation time, so the closing answer is the last one.
	switch responses[len(responses)-1].Answer {
	case id.AnswerNo:
		return id.StateChallenged
	case id.AnswerYes:
		return id.StateAffirmed
	default:
		return id.StateUnconfirmed
	}
}
