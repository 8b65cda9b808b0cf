// Package domain contains the data contracts and pure algorithms of the
// consultation platform. It defines the specialist opinion model, the
// consensus computation that blends weighted opinions into a single result,
// and the decision engine that turns that result into an actionable report.
//
// Design principles:
//   - Opinions are immutable value objects validated at construction.
//   - Consensus and decision derivations are pure functions of their inputs.
//   - The decision history is the only mutable state and it is append-only.
//   - All numeric edge cases resolve to defined defaults, never to errors.
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SpecialistRole identifies the clinical discipline behind an opinion.
// The role set is closed; weight and risk-keyword lookups match on it
// exhaustively, with unknown roles handled only at the designated
// default-weight fallback.
type SpecialistRole string

const (
	// RoleOncologist is the treating oncologist, the highest-weighted voice.
	RoleOncologist SpecialistRole = "oncologist"

	// RoleRadiologist is the imaging specialist.
	RoleRadiologist SpecialistRole = "radiologist"

	// RoleNurse is the clinical nurse assessing care practicalities.
	RoleNurse SpecialistRole = "nurse"

	// RolePsychologist assesses the patient's mental state and coping.
	RolePsychologist SpecialistRole = "psychologist"

	// RolePatientAdvocate represents the patient's own interests,
	// including financial burden and quality of life.
	RolePatientAdvocate SpecialistRole = "patient_advocate"
)

// String returns the string representation of the specialist role.
func (r SpecialistRole) String() string { return string(r) }

// AllSpecialistRoles returns the closed set of defined roles in weight order.
// Returns a fresh slice to prevent mutation of the canonical set.
func AllSpecialistRoles() []SpecialistRole {
	return []SpecialistRole{
		RoleOncologist,
		RoleRadiologist,
		RoleNurse,
		RolePsychologist,
		RolePatientAdvocate,
	}
}

// IsValidSpecialistRole reports whether the role is one of the defined
// specialist categories.
func IsValidSpecialistRole(role SpecialistRole) bool {
	switch role {
	case RoleOncologist, RoleRadiologist, RoleNurse, RolePsychologist, RolePatientAdvocate:
		return true
	default:
		return false
	}
}

// Opinion is one specialist's structured assessment of a case. It is an
// immutable value object: constructed once, validated, and passed by value
// into the consensus engine. The narrative text is opaque to the core and is
// used only for display and dissent evidence.
type Opinion struct {
	// SpecialistID identifies the specialist instance that produced this
	// opinion. Opaque to the core; used for dissent set-difference grouping.
	SpecialistID string `json:"specialist_id" validate:"required"`

	// Role is the specialist category. Drawn from the closed role set;
	// roles outside it participate with the default weight.
	Role SpecialistRole `json:"role" validate:"required"`

	// Narrative is the specialist's free-form reasoning. Never parsed by
	// the core; truncated excerpts appear as dissent evidence.
	Narrative string `json:"narrative"`

	// Confidence is the specialist's self-reported certainty in [0,1].
	Confidence float64 `json:"confidence" validate:"min=0,max=1"`

	// PriorityScore is the urgency as assessed by this specialist in [0,10].
	PriorityScore float64 `json:"priority_score" validate:"min=0,max=10"`

	// Recommendations is the ordered list of proposed actions. Repetition
	// across opinions is meaningful: it signals agreement and drives the
	// recommendation-overlap component of the consensus score.
	Recommendations []string `json:"recommendations"`

	// Concerns is the ordered list of risk observations. Matched against
	// the risk keyword sets and used for unique-concern dissent detection.
	Concerns []string `json:"concerns"`

	// CreatedAt records when the opinion was produced.
	CreatedAt time.Time `json:"created_at" validate:"required"`
}

// NewOpinion creates a validated Opinion using the current wall clock and a
// generated specialist ID suffix when none is supplied.
//
// WARNING: uses time.Now and uuid.New; not safe inside workflow code.
// Use MakeOpinion with explicit inputs for deterministic construction.
func NewOpinion(role SpecialistRole, narrative string, confidence, priority float64, recommendations, concerns []string) (*Opinion, error) {
	return MakeOpinion(
		fmt.Sprintf("%s-%s", role, uuid.New().String()[:8]),
		role, narrative, confidence, priority, recommendations, concerns,
		time.Now(),
	)
}

// MakeOpinion creates a validated Opinion from explicit inputs. Safe for use
// inside workflow code because the caller supplies the ID and timestamp.
// Recommendation and concern slices are copied to preserve immutability.
func MakeOpinion(
	specialistID string,
	role SpecialistRole,
	narrative string,
	confidence, priority float64,
	recommendations, concerns []string,
	createdAt time.Time,
) (*Opinion, error) {
	op := &Opinion{
		SpecialistID:    specialistID,
		Role:            role,
		Narrative:       narrative,
		Confidence:      confidence,
		PriorityScore:   priority,
		Recommendations: cloneStrings(recommendations),
		Concerns:        cloneStrings(concerns),
		CreatedAt:       createdAt,
	}

	if err := op.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOpinion, err)
	}

	return op, nil
}

// Validate checks the opinion against its value constraints.
// Returns nil if valid, or a validation error describing the first violation.
func (o *Opinion) Validate() error { return validate.Struct(o) }

// cloneStrings creates a copy of a string slice to prevent aliasing.
// Returns nil for nil input to maintain consistency.
func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
