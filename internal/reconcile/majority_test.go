package reconcile_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rxscan/internal/extract"
	"rxscan/internal/reconcile"
)

func TestThreshold(t *testing.T) {
	tests := []struct {
		n, want int
	}{
		{1, 1},
		{2, 2},
		{3, 2},
		{4, 3},
		{5, 3},
		{6, 4},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, reconcile.Threshold(tt.n), "n=%d", tt.n)
	}
}

func TestMostCommon(t *testing.T) {
	got := reconcile.MostCommon([]*string{str("a"), nil, str("b"), str("b"), str("")})
	require.NotNil(t, got)
	assert.Equal(t, "b", *got)

	got = reconcile.MostCommon([]*string{str("x"), str("y")})
	require.NotNil(t, got)
	assert.Equal(t, "x", *got, "ties go to the first value seen")

	assert.Nil(t, reconcile.MostCommon([]*string{nil, nil}))
	assert.Nil(t, reconcile.MostCommon(nil))
}

func TestMajorityStrings(t *testing.T) {
	lists := [][]string{
		{"Take with food.", "Take with food.", "Avoid alcohol."},
		{"Take with food."},
		{"Drink water.", "Avoid alcohol."},
	}

	assert.Equal(t, []string{"Take with food.", "Avoid alcohol."}, reconcile.MajorityStrings(lists, 2))
	assert.Equal(t, []string{}, reconcile.MajorityStrings(lists, 3))
}

func med(name string, dosage, frequency *string) extract.MedicationSample {
	return extract.MedicationSample{Name: name, Dosage: dosage, Frequency: frequency}
}

func TestMajorityPrescription(t *testing.T) {
	samples := []extract.PrescriptionSample{
		{
			Fields: extract.Record{extract.FieldPatientName: str("John Doe"), extract.FieldPatientAge: str("45")},
			Medications: []extract.MedicationSample{
				med("Amoxicillin", str("500 mg"), str("Twice a day")),
				med("Ibuprofen", str("200 mg"), nil),
			},
			Notes: []string{"Take with food."},
		},
		{
			Fields: extract.Record{extract.FieldPatientName: str("John Doe"), extract.FieldPatientAge: nil},
			Medications: []extract.MedicationSample{
				med("Amoxicillin", str("250 mg"), str("Twice a day")),
				med("Paracetamol", str("650 mg"), nil),
			},
			Notes: []string{"Take with food.", "Rest."},
		},
		{
			Fields: extract.Record{extract.FieldPatientName: str("Jon Doe"), extract.FieldPatientAge: str("54")},
			Medications: []extract.MedicationSample{
				med("Amoxicillin", str("500 mg"), nil),
				med("Ibuprofen", str("200 mg"), str("As needed")),
			},
		},
	}

	p := reconcile.MajorityPrescription(samples)

	require.NotNil(t, p.PatientName)
	assert.Equal(t, "John Doe", *p.PatientName)
	require.NotNil(t, p.PatientAge)
	assert.Equal(t, "45", *p.PatientAge, "tie between 45 and 54 goes to the first seen")
	assert.Nil(t, p.DoctorName)

	require.Len(t, p.Medications, 2, "Paracetamol appears in one of three samples")
	assert.Equal(t, "Amoxicillin", p.Medications[0].Name)
	require.NotNil(t, p.Medications[0].Dosage)
	assert.Equal(t, "500 mg", *p.Medications[0].Dosage)
	require.NotNil(t, p.Medications[0].Frequency)
	assert.Equal(t, "Twice a day", *p.Medications[0].Frequency)
	assert.Nil(t, p.Medications[0].Duration)

	assert.Equal(t, "Ibuprofen", p.Medications[1].Name)
	require.NotNil(t, p.Medications[1].Frequency)
	assert.Equal(t, "As needed", *p.Medications[1].Frequency)

	assert.Equal(t, []string{"Take with food."}, p.AdditionalNotes)
}

func TestMajorityPrescription_SingleSampleKeepsEverything(t *testing.T) {
	samples := []extract.PrescriptionSample{{
		Fields:      extract.Record{extract.FieldDoctorName: str("Dr. Jane Smith")},
		Medications: []extract.MedicationSample{med("Metformin", str("500 mg"), nil)},
		Notes:       []string{"Check sugar weekly."},
	}}

	p := reconcile.MajorityPrescription(samples)

	require.NotNil(t, p.DoctorName)
	assert.Equal(t, "Dr. Jane Smith", *p.DoctorName)
	require.Len(t, p.Medications, 1)
	assert.Equal(t, []string{"Check sugar weekly."}, p.AdditionalNotes)
}

func TestMajorityPrescription_RepeatedMedicationCountsOncePerSample(t *testing.T) {
	samples := []extract.PrescriptionSample{
		{Medications: []extract.MedicationSample{med("Dolo", nil, nil), med("Dolo", nil, nil)}},
		{},
		{},
	}

	p := reconcile.MajorityPrescription(samples)

	assert.NotNil(t, p.Medications)
	assert.Empty(t, p.Medications)
	assert.NotNil(t, p.AdditionalNotes)
	assert.Empty(t, p.AdditionalNotes)
}
