// Package card builds the emergency-card view: the redacted, anonymously
// accessible projection of a directive.
package card

import "github.com/willtrail/willtrail/internal/server/models"

// View is the redacted emergency card. Every field except Name is optional
// and serializes to an absent key, never null: omission itself is the signal
// that a field is either hidden or empty.
type View struct {
	Name              string                    `json:"name"`
	BloodType         string                    `json:"bloodType,omitempty"`
	Allergies         []string                  `json:"allergies,omitempty"`
	Conditions        []string                  `json:"conditions,omitempty"`
	Medications       []string                  `json:"medications,omitempty"`
	EmergencyContacts []models.EmergencyContact `json:"emergencyContacts,omitempty"`
	CPRPreference     string                    `json:"cprPreference,omitempty"`
	HealthcareAgent   *models.HealthcareAgent   `json:"healthcareAgent,omitempty"`
	Physician         *models.Physician         `json:"physician,omitempty"`
}

// Project filters d down to its owner-approved public fields. The subject's
// full name is always included: the card is useless for identification
// without it. Every other field appears only when its visibility switch is
// on AND the underlying value is non-empty.
//
// Pure function: no persistence access, no mutation of d.
func Project(d *models.Directive) View {
	pf := d.PublicFields
	v := View{Name: d.PersonalInfo.FullName}

	if pf.ShowBloodType && d.PersonalInfo.BloodType != "" {
		v.BloodType = d.PersonalInfo.BloodType
	}
	if pf.ShowAllergies && len(d.MedicalInfo.Allergies) > 0 {
		v.Allergies = d.MedicalInfo.Allergies
	}
	if pf.ShowConditions && len(d.MedicalInfo.Conditions) > 0 {
		v.Conditions = d.MedicalInfo.Conditions
	}
	if pf.ShowMedications && len(d.MedicalInfo.Medications) > 0 {
		v.Medications = d.MedicalInfo.Medications
	}
	if pf.ShowEmergencyContacts && len(d.EmergencyContacts) > 0 {
		v.EmergencyContacts = d.EmergencyContacts
	}
	if pf.ShowCPRPreference && d.CarePreferences.CPRPreference != "" {
		v.CPRPreference = d.CarePreferences.CPRPreference
	}
	if pf.ShowHealthcareAgent && d.HealthcareAgent != (models.HealthcareAgent{}) {
		agent := d.HealthcareAgent
		v.HealthcareAgent = &agent
	}
	if pf.ShowPhysician && d.MedicalInfo.Physician != (models.Physician{}) {
		physician := d.MedicalInfo.Physician
		v.Physician = &physician
	}
	return v
}
