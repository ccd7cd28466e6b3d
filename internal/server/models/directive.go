package models

import "time"

// Enumerations mirrored by the frontend form. An empty string means "not
// answered yet" and is valid everywhere.
var (
	BloodTypes     = []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-", "Unknown", ""}
	CPRPreferences = []string{"Full resuscitation", "DNR", "Comfort care only", ""}
	TrialChoices   = []string{"Yes", "No", "Limited trial", ""}
)

// MaxAdditionalWishesLen bounds carePreferences.additionalWishes.
const MaxAdditionalWishesLen = 2000

type PersonalInfo struct {
	FullName        string `json:"fullName,omitempty"`
	DateOfBirth     string `json:"dateOfBirth,omitempty"`
	BloodType       string `json:"bloodType,omitempty"`
	PrimaryLanguage string `json:"primaryLanguage,omitempty"`
	PhotoURL        string `json:"photoUrl,omitempty"`
}

type EmergencyContact struct {
	Name         string `json:"name"`
	Relationship string `json:"relationship,omitempty"`
	Phone        string `json:"phone"`
	Email        string `json:"email,omitempty"`
	IsPrimary    bool   `json:"isPrimary"`
}

type Physician struct {
	Name   string `json:"name,omitempty"`
	Phone  string `json:"phone,omitempty"`
	Clinic string `json:"clinic,omitempty"`
}

type MedicalInfo struct {
	Conditions  []string  `json:"conditions,omitempty"`
	Medications []string  `json:"medications,omitempty"`
	Allergies   []string  `json:"allergies,omitempty"`
	Physician   Physician `json:"physician"`
}

type CarePreferences struct {
	CPRPreference         string `json:"cprPreference,omitempty"`
	MechanicalVentilation string `json:"mechanicalVentilation,omitempty"`
	ArtificialNutrition   string `json:"artificialNutrition,omitempty"`
	OrganDonation         bool   `json:"organDonation"`
	AdditionalWishes      string `json:"additionalWishes,omitempty"`
}

type HealthcareAgent struct {
	Name         string `json:"name,omitempty"`
	Relationship string `json:"relationship,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Email        string `json:"email,omitempty"`
}

// PublicFields are the 8 independent visibility switches that gate what the
// emergency card discloses. Full name is always shown and has no switch.
type PublicFields struct {
	ShowBloodType         bool `json:"showBloodType"`
	ShowAllergies         bool `json:"showAllergies"`
	ShowConditions        bool `json:"showConditions"`
	ShowMedications       bool `json:"showMedications"`
	ShowEmergencyContacts bool `json:"showEmergencyContacts"`
	ShowCPRPreference     bool `json:"showCPRPreference"`
	ShowHealthcareAgent   bool `json:"showHealthcareAgent"`
	ShowPhysician         bool `json:"showPhysician"`
}

// DefaultPublicFields reflects the privacy defaults: identification and
// acute-care facts visible, clinical history hidden.
func DefaultPublicFields() PublicFields {
	return PublicFields{
		ShowBloodType:         true,
		ShowAllergies:         true,
		ShowConditions:        false,
		ShowMedications:       false,
		ShowEmergencyContacts: true,
		ShowCPRPreference:     true,
		ShowHealthcareAgent:   true,
		ShowPhysician:         false,
	}
}

// CompletionSteps tracks, per major section, whether the directive holds
// enough data for the section to count as filled in. Always recomputed
// server-side; never trusted from the client.
type CompletionSteps struct {
	PersonalInfo      bool `json:"personalInfo"`
	EmergencyContacts bool `json:"emergencyContacts"`
	MedicalInfo       bool `json:"medicalInfo"`
	CarePreferences   bool `json:"carePreferences"`
	HealthcareAgent   bool `json:"healthcareAgent"`
}

// Count returns how many steps are done and the total number of steps.
func (s CompletionSteps) Count() (done, total int) {
	for _, b := range []bool{s.PersonalInfo, s.EmergencyContacts, s.MedicalInfo, s.CarePreferences, s.HealthcareAgent} {
		total++
		if b {
			done++
		}
	}
	return done, total
}

// Directive is the structured advance-care-preferences record, one per user.
type Directive struct {
	ID     string `json:"id"`
	UserID string `json:"-"`

	PersonalInfo      PersonalInfo       `json:"personalInfo"`
	EmergencyContacts []EmergencyContact `json:"emergencyContacts"`
	MedicalInfo       MedicalInfo        `json:"medicalInfo"`
	CarePreferences   CarePreferences    `json:"carePreferences"`
	HealthcareAgent   HealthcareAgent    `json:"healthcareAgent"`
	PublicFields      PublicFields       `json:"publicFields"`

	CompletionSteps CompletionSteps `json:"completionSteps"`
	IsComplete      bool            `json:"isComplete"`
	LastEditedAt    time.Time       `json:"lastEditedAt"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// NewDirective returns the default-valued record lazily created on first read.
func NewDirective(userID string) *Directive {
	return &Directive{
		UserID:       userID,
		PublicFields: DefaultPublicFields(),
	}
}

// DirectiveUpdate is a partial write: only the sections present (non-nil)
// replace their counterparts on the stored record.
type DirectiveUpdate struct {
	PersonalInfo      *PersonalInfo       `json:"personalInfo"`
	EmergencyContacts *[]EmergencyContact `json:"emergencyContacts"`
	MedicalInfo       *MedicalInfo        `json:"medicalInfo"`
	CarePreferences   *CarePreferences    `json:"carePreferences"`
	HealthcareAgent   *HealthcareAgent    `json:"healthcareAgent"`
	PublicFields      *PublicFields       `json:"publicFields"`
}
