package domain

// DefaultRoleWeight is the influence weight applied to opinions whose role is
// not present in the weight table. Unknown roles still participate; they are
// never an error.
const DefaultRoleWeight = 0.2

// RiskCategory identifies one dimension of the per-case risk profile.
// The category set is fixed: every risk assessment contains exactly these
// four keys, defaulting to 0 when no opinion produced evidence for one.
type RiskCategory string

const (
	// RiskMedical covers disease progression and treatment hazards.
	RiskMedical RiskCategory = "medical"

	// RiskPsychological covers mental-health hazards.
	RiskPsychological RiskCategory = "psychological"

	// RiskEconomic covers treatment cost and financial burden.
	RiskEconomic RiskCategory = "economic"

	// RiskQualityOfLife covers functional and daily-living impact.
	RiskQualityOfLife RiskCategory = "quality_of_life"
)

// String returns the string representation of the risk category.
func (c RiskCategory) String() string { return string(c) }

// AllRiskCategories returns the fixed category set in reporting order.
// Returns a fresh slice to prevent mutation.
func AllRiskCategories() []RiskCategory {
	return []RiskCategory{RiskMedical, RiskPsychological, RiskEconomic, RiskQualityOfLife}
}

// RiskKeywords maps a risk category to, per authoritative role, the keyword
// set scanned against that role's concerns. Matching is case-sensitive
// substring matching; the heuristic is intentionally approximate and must
// not be "improved" with fuzzy or case-folded matching.
type RiskKeywords map[RiskCategory]map[SpecialistRole][]string

// RolePolicy bundles the static influence and risk configuration consumed by
// the consensus engine: the role weight table and the per-category risk
// keyword sets. The keyword lists are configuration data, not algorithmic
// constants; deployments may override them (see internal/config).
type RolePolicy struct {
	// Weights maps each defined role to its influence weight.
	// The defaults sum to 1.0 across the five defined roles.
	Weights map[SpecialistRole]float64

	// Keywords holds the risk keyword sets per category and role.
	Keywords RiskKeywords
}

// DefaultRolePolicy returns the standard role weights and risk keyword sets.
// Returns fresh maps to prevent mutation of the defaults.
func DefaultRolePolicy() RolePolicy {
	return RolePolicy{
		Weights: map[SpecialistRole]float64{
			RoleOncologist:      0.35,
			RoleRadiologist:     0.25,
			RoleNurse:           0.15,
			RolePsychologist:    0.15,
			RolePatientAdvocate: 0.10,
		},
		Keywords: RiskKeywords{
			RiskMedical: {
				RoleOncologist: {"metastasis", "recurrence", "side effect", "complication"},
			},
			RiskPsychological: {
				RolePsychologist: {"depression", "anxiety", "suicide", "trauma"},
			},
			RiskEconomic: {
				RolePatientAdvocate: {"cost", "financial", "burden"},
			},
			RiskQualityOfLife: {
				RolePatientAdvocate: {"quality of life", "function", "self-care"},
			},
		},
	}
}

// RoleWeight returns the influence weight for a role, falling back to
// DefaultRoleWeight for roles outside the weight table.
func (p RolePolicy) RoleWeight(role SpecialistRole) float64 {
	if w, ok := p.Weights[role]; ok {
		return w
	}
	return DefaultRoleWeight
}
