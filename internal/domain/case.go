package domain

import (
	"time"

	"github.com/google/uuid"
)

// MedicalCase is the structured intake record a consultation runs against.
// The core treats it as pass-through context: only CaseID participates in
// decision derivation, the clinical detail is rendered into specialist
// prompts by the opinion producers.
type MedicalCase struct {
	// CaseID uniquely identifies the case across the platform.
	CaseID string `json:"case_id" validate:"required"`

	// PatientInfo holds demographic context (age, sex, weight, height).
	PatientInfo map[string]string `json:"patient_info,omitempty"`

	// Symptoms lists the presenting complaints.
	Symptoms []string `json:"symptoms,omitempty"`

	// MedicalHistory lists relevant history items.
	MedicalHistory []string `json:"medical_history,omitempty"`

	// TestResults maps lab test names to findings.
	TestResults map[string]string `json:"test_results,omitempty"`

	// ImagingData maps imaging modality names to findings.
	ImagingData map[string]string `json:"imaging_data,omitempty"`

	// CurrentTreatment describes any treatment already underway.
	CurrentTreatment string `json:"current_treatment,omitempty"`
}

// Validate checks the case record against its constraints.
func (c *MedicalCase) Validate() error { return validate.Struct(c) }

// ConsultConfig controls how specialist opinions are produced: which
// provider and model back the specialists, and the generation limits.
// The configuration is vendor-agnostic.
type ConsultConfig struct {
	// Roles selects which specialists participate. Empty means the full
	// defined panel.
	Roles []SpecialistRole `json:"roles,omitempty"`

	// MaxOpinionTokens limits the token count per specialist opinion.
	MaxOpinionTokens int64 `json:"max_opinion_tokens" validate:"required,min=50,max=4000"`

	// Temperature controls randomness in opinion generation (0-2).
	Temperature float64 `json:"temperature" validate:"min=0,max=2"`

	// Provider specifies which LLM provider backs the specialists.
	// Validation of specific provider names happens at the client layer.
	Provider string `json:"provider" validate:"required,min=1"`

	// Model optionally selects a particular model from the provider.
	Model string `json:"model,omitempty"`

	// Timeout is the maximum time in seconds for each specialist call.
	Timeout int64 `json:"timeout" validate:"required,min=10,max=300"`
}

// Default consultation configuration values.
const (
	defaultMaxOpinionTokens = 1000
	defaultTemperature      = 0.7
	defaultTimeout          = 60
)

// DefaultConsultConfig returns a consultation configuration with sensible
// defaults: the full specialist panel, 1000 tokens per opinion, balanced
// temperature, and a 60 second call timeout.
func DefaultConsultConfig() ConsultConfig {
	return ConsultConfig{
		Roles:            AllSpecialistRoles(),
		MaxOpinionTokens: defaultMaxOpinionTokens,
		Temperature:      defaultTemperature,
		Provider:         "openai",
		Timeout:          defaultTimeout,
	}
}

// Validate checks the consultation configuration.
func (c *ConsultConfig) Validate() error { return validate.Struct(c) }

// PanelRoles returns the roles participating in this consultation,
// defaulting to the full defined panel when none were selected.
func (c *ConsultConfig) PanelRoles() []SpecialistRole {
	if len(c.Roles) == 0 {
		return AllSpecialistRoles()
	}
	return c.Roles
}

// ConsultationRequest initiates a multidisciplinary consultation over one
// case. It is the primary workflow input and carries the case, the
// consultation configuration, and audit metadata.
type ConsultationRequest struct {
	// ID uniquely identifies this consultation request.
	ID string `json:"id" validate:"required,uuid"`

	// Case is the structured case record the panel consults on.
	Case MedicalCase `json:"case" validate:"required"`

	// Config controls opinion production for this consultation.
	Config ConsultConfig `json:"config" validate:"required"`

	// RequestedBy identifies the user or service that initiated the
	// consultation.
	RequestedBy string `json:"requested_by" validate:"required"`

	// RequestedAt records when the consultation was requested.
	RequestedAt time.Time `json:"requested_at" validate:"required"`
}

// NewConsultationRequest creates a validated request with a generated ID and
// the current wall clock.
//
// WARNING: uses uuid.New and time.Now; not safe inside workflow code.
// Use MakeConsultationRequest for deterministic construction.
func NewConsultationRequest(medCase MedicalCase, requestedBy string, config ConsultConfig) (*ConsultationRequest, error) {
	return MakeConsultationRequest(uuid.New().String(), time.Now(), medCase, requestedBy, config)
}

// MakeConsultationRequest creates a validated request from explicit ID and
// timestamp, safe for deterministic contexts.
func MakeConsultationRequest(id string, requestedAt time.Time, medCase MedicalCase, requestedBy string, config ConsultConfig) (*ConsultationRequest, error) {
	req := &ConsultationRequest{
		ID:          id,
		Case:        medCase,
		Config:      config,
		RequestedBy: requestedBy,
		RequestedAt: requestedAt,
	}

	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	return req, nil
}

// Validate checks the consultation request.
func (r *ConsultationRequest) Validate() error { return validate.Struct(r) }
