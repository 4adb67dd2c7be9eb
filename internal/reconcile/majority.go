package reconcile

import (
	"rxscan/internal/domain"
	"rxscan/internal/extract"
)

// Threshold is the smallest count that is a strict majority of n samples.
func Threshold(n int) int {
	return (n + 2) / 2
}

// MostCommon returns the most frequent non-nil value; ties go to the value
// seen first. It returns nil when every value is nil.
func MostCommon(values []*string) *string {
	counts := make(map[string]int)
	var order []string
	for _, v := range values {
		if v == nil || *v == "" {
			continue
		}
		if counts[*v] == 0 {
			order = append(order, *v)
		}
		counts[*v]++
	}
	if len(order) == 0 {
		return nil
	}
	best := order[0]
	for _, v := range order[1:] {
		if counts[v] > counts[best] {
			best = v
		}
	}
	return &best
}

// MajorityPrescription reconciles prescription samples. Scalar fields take
// the most common value. A medication or note is kept only when it appears
// in a strict majority of samples; a kept medication's dosage, frequency and
// duration take the most common value observed for it.
func MajorityPrescription(samples []extract.PrescriptionSample) domain.Prescription {
	n := len(samples)
	threshold := Threshold(n)

	field := func(name string) *string {
		values := make([]*string, 0, n)
		for _, s := range samples {
			values = append(values, s.Fields[name])
		}
		return MostCommon(values)
	}

	result := domain.Prescription{
		PatientName:      field(extract.FieldPatientName),
		PatientAge:       field(extract.FieldPatientAge),
		PatientGender:    field(extract.FieldPatientGender),
		DoctorName:       field(extract.FieldDoctorName),
		DoctorLicense:    field(extract.FieldDoctorLicense),
		PrescriptionDate: field(extract.FieldPrescriptionDate),
		Medications:      []domain.Medication{},
		AdditionalNotes:  []string{},
	}

	type medVotes struct {
		samples                     int
		dosage, frequency, duration []*string
	}
	meds := make(map[string]*medVotes)
	var medOrder []string
	for _, s := range samples {
		seen := make(map[string]bool)
		for _, m := range s.Medications {
			mv, ok := meds[m.Name]
			if !ok {
				mv = &medVotes{}
				meds[m.Name] = mv
				medOrder = append(medOrder, m.Name)
			}
			if !seen[m.Name] {
				seen[m.Name] = true
				mv.samples++
			}
			mv.dosage = append(mv.dosage, m.Dosage)
			mv.frequency = append(mv.frequency, m.Frequency)
			mv.duration = append(mv.duration, m.Duration)
		}
	}
	for _, name := range medOrder {
		mv := meds[name]
		if mv.samples < threshold {
			continue
		}
		result.Medications = append(result.Medications, domain.Medication{
			Name:      name,
			Dosage:    MostCommon(mv.dosage),
			Frequency: MostCommon(mv.frequency),
			Duration:  MostCommon(mv.duration),
		})
	}

	result.AdditionalNotes = MajorityStrings(notesOf(samples), threshold)
	return result
}

func notesOf(samples []extract.PrescriptionSample) [][]string {
	out := make([][]string, len(samples))
	for i, s := range samples {
		out[i] = s.Notes
	}
	return out
}

// MajorityStrings keeps the values that occur in at least threshold of the
// lists, counting each list once per value, in first-seen order.
func MajorityStrings(lists [][]string, threshold int) []string {
	counts := make(map[string]int)
	var order []string
	for _, list := range lists {
		seen := make(map[string]bool)
		for _, v := range list {
			if v == "" || seen[v] {
				continue
			}
			seen[v] = true
			if counts[v] == 0 {
				order = append(order, v)
			}
			counts[v]++
		}
	}
	kept := []string{}
	for _, v := range order {
		if counts[v] >= threshold {
			kept = append(kept, v)
		}
	}
	return kept
}
