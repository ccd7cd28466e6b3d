package card

import (
	"encoding/json"
	"testing"

	"github.com/willtrail/willtrail/internal/server/models"
)

func sampleDirective() *models.Directive {
	d := models.NewDirective("u-1")
	d.PersonalInfo = models.PersonalInfo{
		FullName:  "Jane Doe",
		BloodType: "O+",
	}
	d.EmergencyContacts = []models.EmergencyContact{
		{Name: "John", Phone: "555-1111", Relationship: "spouse", IsPrimary: true},
	}
	d.MedicalInfo = models.MedicalInfo{
		Conditions:  []string{"asthma"},
		Medications: []string{"albuterol"},
		Allergies:   []string{"penicillin"},
		Physician:   models.Physician{Name: "Dr. Lee", Phone: "555-2222", Clinic: "Mercy"},
	}
	d.CarePreferences = models.CarePreferences{CPRPreference: "DNR"}
	d.HealthcareAgent = models.HealthcareAgent{Name: "John", Phone: "555-1111"}
	return d
}

// jsonKeys marshals the view and reports exactly which keys are present, so
// the absent-not-null contract is checked on the wire shape, not the struct.
func jsonKeys(t *testing.T, v View) map[string]any {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	return m
}

func TestProject_RedactsDisabledFields(t *testing.T) {
	d := sampleDirective()
	d.PublicFields = models.PublicFields{
		ShowBloodType: true,
		ShowAllergies: false,
	}

	m := jsonKeys(t, Project(d))

	if m["bloodType"] != "O+" {
		t.Fatalf("expected bloodType O+, got %v", m["bloodType"])
	}
	if _, present := m["allergies"]; present {
		t.Fatal("allergies key must be absent entirely, not null or empty")
	}
}

func TestProject_NameAlwaysPresent(t *testing.T) {
	d := sampleDirective()
	d.PublicFields = models.PublicFields{} // everything switched off

	m := jsonKeys(t, Project(d))

	if m["name"] != "Jane Doe" {
		t.Fatalf("expected name, got %v", m["name"])
	}
	if len(m) != 1 {
		t.Fatalf("expected only the name key, got %v", m)
	}
}

func TestProject_EnabledButEmptyIsOmitted(t *testing.T) {
	d := models.NewDirective("u-1")
	d.PersonalInfo.FullName = "Jane Doe"
	// All defaults switched on stay on, but the record holds no data.

	m := jsonKeys(t, Project(d))

	for _, key := range []string{"bloodType", "allergies", "emergencyContacts", "cprPreference", "healthcareAgent"} {
		if _, present := m[key]; present {
			t.Fatalf("key %q enabled but empty; must be omitted", key)
		}
	}
}

func TestProject_DefaultVisibility(t *testing.T) {
	d := sampleDirective() // NewDirective starts with DefaultPublicFields

	m := jsonKeys(t, Project(d))

	for _, key := range []string{"name", "bloodType", "allergies", "emergencyContacts", "cprPreference", "healthcareAgent"} {
		if _, present := m[key]; !present {
			t.Fatalf("expected key %q under default visibility", key)
		}
	}
	for _, key := range []string{"conditions", "medications", "physician"} {
		if _, present := m[key]; present {
			t.Fatalf("key %q must be hidden under default visibility", key)
		}
	}
}

func TestProject_FullDisclosure(t *testing.T) {
	d := sampleDirective()
	d.PublicFields = models.PublicFields{
		ShowBloodType: true, ShowAllergies: true, ShowConditions: true,
		ShowMedications: true, ShowEmergencyContacts: true,
		ShowCPRPreference: true, ShowHealthcareAgent: true, ShowPhysician: true,
	}

	v := Project(d)

	if v.Physician == nil || v.Physician.Name != "Dr. Lee" {
		t.Fatalf("expected physician, got %+v", v.Physician)
	}
	if v.HealthcareAgent == nil || v.HealthcareAgent.Name != "John" {
		t.Fatalf("expected healthcare agent, got %+v", v.HealthcareAgent)
	}
	if len(v.Conditions) != 1 || len(v.Medications) != 1 {
		t.Fatalf("expected conditions and medications, got %+v", v)
	}
}

func TestProject_DoesNotMutateDirective(t *testing.T) {
	d := sampleDirective()
	before, _ := json.Marshal(d)

	_ = Project(d)

	after, _ := json.Marshal(d)
	if string(before) != string(after) {
		t.Fatal("Project mutated its input")
	}
}
