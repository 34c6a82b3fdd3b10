package domain

import dErrors "stilltrue/pkg/domain-errors"

// Visibility controls who can read a claim within its workspace.
type Visibility string

const (
	VisibilityPrivate   Visibility = "private"
	VisibilityWorkspace Visibility = "workspace"
)

var validVisibilities = map[Visibility]bool{
	VisibilityPrivate:   true,
	VisibilityWorkspace: true,
}

func ParseVisibility(s string) (Visibility, error) {
	v := Visibility(s)
	if !validVisibilities[v] {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid visibility")
	}
	return v, nil
}

func (v Visibility) String() string { return string(v) }

// ReviewCadence is the intended frequency of scheduled validation requests.
// The trigger mechanism is external; the core only records the setting.
type ReviewCadence string

const (
	CadenceWeekly    ReviewCadence = "weekly"
	CadenceMonthly   ReviewCadence = "monthly"
	CadenceQuarterly ReviewCadence = "quarterly"
	CadenceCustom    ReviewCadence = "custom"
)

var validCadences = map[ReviewCadence]bool{
	CadenceWeekly:    true,
	CadenceMonthly:   true,
	CadenceQuarterly: true,
	CadenceCustom:    true,
}

func ParseReviewCadence(s string) (ReviewCadence, error) {
	c := ReviewCadence(s)
	if !validCadences[c] {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid review cadence")
	}
	return c, nil
}

func (c ReviewCadence) String() string { return string(c) }

// ValidationMode decides when an open request closes: on the first response
// (any) or once every registered validator has responded (all).
type ValidationMode string

const (
	ModeAny ValidationMode = "any"
	ModeAll ValidationMode = "all"
)

func ParseValidationMode(s string) (ValidationMode, error) {
	m := ValidationMode(s)
	if m != ModeAny && m != ModeAll {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid validation mode")
	}
	return m, nil
}

func (m ValidationMode) String() string { return string(m) }

// ValidatorKind distinguishes people from automations in the registry.
type ValidatorKind string

const (
	ValidatorHuman     ValidatorKind = "human"
	ValidatorAutomated ValidatorKind = "automated"
)

func ParseValidatorKind(s string) (ValidatorKind, error) {
	k := ValidatorKind(s)
	if k != ValidatorHuman && k != ValidatorAutomated {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid validator kind")
	}
	return k, nil
}

func (k ValidatorKind) String() string { return string(k) }

// RequestKind records how a validation request was triggered.
type RequestKind string

const (
	RequestScheduled RequestKind = "scheduled"
	RequestManual    RequestKind = "manual"
)

func ParseRequestKind(s string) (RequestKind, error) {
	k := RequestKind(s)
	if k != RequestScheduled && k != RequestManual {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid request kind")
	}
	return k, nil
}

func (k RequestKind) String() string { return string(k) }

// RequestStatus is the two-state lifecycle of a validation request.
// open -> closed, exactly once, never back.
type RequestStatus string

const (
	StatusOpen   RequestStatus = "open"
	StatusClosed RequestStatus = "closed"
)

func (s RequestStatus) String() string { return string(s) }

// Answer is a validator's verdict on one request.
type Answer string

const (
	AnswerYes    Answer = "yes"
	AnswerUnsure Answer = "unsure"
	AnswerNo     Answer = "no"
)

var validAnswers = map[Answer]bool{
	AnswerYes:    true,
	AnswerUnsure: true,
	AnswerNo:     true,
}

func ParseAnswer(s string) (Answer, error) {
	a := Answer(s)
	if !validAnswers[a] {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid answer")
	}
	return a, nil
}

func (a Answer) String() string { return string(a) }

// ClaimState is the owner-visible derived label summarizing the latest
// validation outcome.
type ClaimState string

const (
	StateAffirmed    ClaimState = "affirmed"
	StateUnconfirmed ClaimState = "unconfirmed"
	StateChallenged  ClaimState = "challenged"
	StateRetired     ClaimState = "retired"
)

func (s ClaimState) String() string { return string(s) }
