package llm

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ahrav/go-consilium/internal/domain"
)

// replySchema instructs the model to answer with the structured fields the
// opinion parser expects. Kept provider-agnostic; strict JSON-mode features
// vary across deployments.
const replySchema = `Respond with a single JSON object and nothing else, using exactly these fields:
- "narrative": string, your full clinical reasoning.
- "confidence": number in [0,1], your certainty in this assessment.
- "priority_score": number in [0,10], how urgently the case needs action.
- "recommendations": array of short action strings, one action each.
- "concerns": array of short risk statements.`

// rolePrompts hold the specialist system prompts per role. An unknown role
// gets a generic consultant prompt so opinions can still be produced.
var rolePrompts = map[domain.SpecialistRole]string{
	domain.RoleOncologist: `You are a senior oncologist with 20 years of clinical experience.
You specialize in cancer diagnosis and staging, individualized treatment planning,
chemotherapy, radiotherapy, targeted and immune therapy selection, and prognosis
assessment. Analyze strictly on evidence, balance efficacy against side effects,
and follow current oncology guidelines.`,

	domain.RoleRadiologist: `You are a senior diagnostic radiologist. You interpret mammography,
ultrasound, CT, MRI and PET findings, assess lesion characteristics and staging
implications, and recommend further imaging where findings are equivocal.`,

	domain.RoleNurse: `You are an experienced oncology nurse. You assess care practicalities:
symptom burden, treatment tolerance, side-effect management, patient education
needs, and the feasibility of the care plan at home and on the ward.`,

	domain.RolePsychologist: `You are a clinical psychologist working in psycho-oncology. You assess
the patient's mental state, coping resources, and psychological risks such as
depression, anxiety and trauma reactions, and recommend supportive interventions.`,

	domain.RolePatientAdvocate: `You are a patient advocate. You represent the patient's own interests:
treatment cost and financial burden, quality of life, functional independence,
and whether the proposed plan matches the patient's values and circumstances.`,
}

const genericPrompt = `You are an experienced clinical consultant joining a multidisciplinary
case review. Provide your independent professional assessment of the case.`

// rolePrompt returns the system prompt for a role, combined with the reply
// schema instructions.
func rolePrompt(role domain.SpecialistRole) string {
	prompt, ok := rolePrompts[role]
	if !ok {
		prompt = genericPrompt
	}
	return prompt + "\n\n" + replySchema
}

// casePrompt renders the structured case record into the user message.
// Map sections render in sorted key order so prompts are reproducible.
func casePrompt(medCase domain.MedicalCase) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Case %s\n", medCase.CaseID)

	writeMapSection(&b, "Patient", medCase.PatientInfo)
	writeListSection(&b, "Symptoms", medCase.Symptoms)
	writeListSection(&b, "Medical history", medCase.MedicalHistory)
	writeMapSection(&b, "Test results", medCase.TestResults)
	writeMapSection(&b, "Imaging", medCase.ImagingData)

	if medCase.CurrentTreatment != "" {
		fmt.Fprintf(&b, "\nCurrent treatment: %s\n", medCase.CurrentTreatment)
	}

	return b.String()
}

func writeMapSection(b *strings.Builder, title string, section map[string]string) {
	if len(section) == 0 {
		return
	}
	keys := make([]string, 0, len(section))
	for k := range section {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintf(b, "\n%s:\n", title)
	for _, k := range keys {
		fmt.Fprintf(b, "- %s: %s\n", k, section[k])
	}
}

func writeListSection(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s:\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
}
