package extract_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rxscan/internal/extract"
)

const plainPrescription = `Patient's full name: John Doe
Patient's age: 45
Patient's gender: M
Doctor's full name: Dr. Jane Smith
Doctor's license number: Not available
Prescription date: 2023-04-01
Medications:
- Medication name: Amoxicillin
  Dosage: 500 mg
  Frequency: Twice a day
  Duration: 7 days
- Medication name: Ibuprofen
  Dosage: 200 mg
  Frequency: N/A
Additional notes:
- Take medications with food.
- Drink plenty of water.
`

const boldPrescription = `**Patient's full name:** Jane Roe
**Patient's age:** 60
**Doctor's full name:** Dr. Alan Grant

**Medications:**
* **Metformin**
  + **Dosage:** 500 mg
  + Frequency: Once daily
**Additional Notes:**
* Check sugar weekly.

Thank you.`

func TestParsePrescription_PlainFormat(t *testing.T) {
	s := extract.ParsePrescription(plainPrescription)

	assert.Equal(t, "John Doe", value(t, s.Fields, extract.FieldPatientName))
	assert.Equal(t, "45", value(t, s.Fields, extract.FieldPatientAge))
	assert.Equal(t, "M", value(t, s.Fields, extract.FieldPatientGender))
	assert.Equal(t, "Dr. Jane Smith", value(t, s.Fields, extract.FieldDoctorName))
	assert.Equal(t, "2023-04-01", value(t, s.Fields, extract.FieldPrescriptionDate))
	assert.Nil(t, s.Fields[extract.FieldDoctorLicense], "placeholder maps to nil")

	require.Len(t, s.Medications, 2)
	amox := s.Medications[0]
	assert.Equal(t, "Amoxicillin", amox.Name)
	require.NotNil(t, amox.Dosage)
	assert.Equal(t, "500 mg", *amox.Dosage)
	require.NotNil(t, amox.Frequency)
	assert.Equal(t, "Twice a day", *amox.Frequency)
	require.NotNil(t, amox.Duration)
	assert.Equal(t, "7 days", *amox.Duration)

	ibu := s.Medications[1]
	assert.Equal(t, "Ibuprofen", ibu.Name)
	assert.Nil(t, ibu.Frequency)
	assert.Nil(t, ibu.Duration)

	assert.Equal(t, []string{"Take medications with food.", "Drink plenty of water."}, s.Notes)
}

func TestParsePrescription_BoldFormat(t *testing.T) {
	s := extract.ParsePrescription(boldPrescription)

	assert.Equal(t, "Jane Roe", value(t, s.Fields, extract.FieldPatientName))
	assert.Equal(t, "60", value(t, s.Fields, extract.FieldPatientAge))
	assert.Equal(t, "Dr. Alan Grant", value(t, s.Fields, extract.FieldDoctorName))
	assert.Nil(t, s.Fields[extract.FieldPatientGender])

	require.Len(t, s.Medications, 1)
	assert.Equal(t, "Metformin", s.Medications[0].Name)
	require.NotNil(t, s.Medications[0].Dosage)
	assert.Equal(t, "500 mg", *s.Medications[0].Dosage)
	require.NotNil(t, s.Medications[0].Frequency)
	assert.Equal(t, "Once daily", *s.Medications[0].Frequency)

	assert.Equal(t, []string{"Check sugar weekly."}, s.Notes)
}

func TestParsePrescription_NoStructure(t *testing.T) {
	s := extract.ParsePrescription("I could not read this prescription.")

	require.Len(t, s.Fields, len(extract.PrescriptionTable))
	for _, name := range extract.PrescriptionTable.Names() {
		assert.Nil(t, s.Fields[name], name)
	}
	assert.Empty(t, s.Medications)
	assert.Empty(t, s.Notes)
}
