package extract

import (
	"bufio"
	"regexp"
	"strings"
)

// Prescription scalar field names.
const (
	FieldPatientName      = "patient_name"
	FieldPatientAge       = "patient_age"
	FieldPatientGender    = "patient_gender"
	FieldDoctorName       = "doctor_name"
	FieldDoctorLicense    = "doctor_license"
	FieldPrescriptionDate = "prescription_date"
)

// PrescriptionTable holds the scalar prescription fields. The bulleted form
// the prompt asks for is tried before a looser "Label: value" form.
var PrescriptionTable = Table{
	MustCompile(FieldPatientName, "text",
		`\* Patient's full name:\s*([^\n]+)`,
		`Patient'?s?\s+(?:full\s+)?name\**\s*:\**\s*([^\n]+)`,
	),
	MustCompile(FieldPatientAge, "age",
		`\* Patient's age:\s*([^\n]+)`,
		`Patient'?s?\s+age\**\s*:\**\s*([^\n]+)`,
	),
	MustCompile(FieldPatientGender, "M/F",
		`\* Patient's gender:\s*([^\n]+)`,
		`Patient'?s?\s+(?:gender|sex)\**\s*:\**\s*([^\n]+)`,
	),
	MustCompile(FieldDoctorName, "text",
		`\* Doctor's full name:\s*([^\n]+)`,
		`Doctor'?s?\s+(?:full\s+)?name\**\s*:\**\s*([^\n]+)`,
	),
	MustCompile(FieldDoctorLicense, "text",
		`\* Doctor's license number:\s*([^\n]+)`,
		`(?:Doctor'?s?\s+)?(?:license|registration)(?:\s+number|\s+no\.?)?\**\s*:\**\s*([^\n]+)`,
	),
	MustCompile(FieldPrescriptionDate, "YYYY-MM-DD",
		`\* Prescription date:\s*([^\n]+)`,
		`Prescription\s+date\**\s*:\**\s*([^\n]+)`,
	),
}

// MedicationSample is one medication as read from a single response.
type MedicationSample struct {
	Name      string
	Dosage    *string
	Frequency *string
	Duration  *string
}

// PrescriptionSample is everything read from a single prescription response.
type PrescriptionSample struct {
	Fields      Record
	Medications []MedicationSample
	Notes       []string
}

var (
	medicationsSection = []*regexp.Regexp{
		regexp.MustCompile(`(?is)\*\*Medications:?\*\*:?(.*?)\*\*Additional Notes:?\*\*`),
		regexp.MustCompile(`(?ims)^\s*Medications:?\s*$(.*?)^\s*Additional notes:?`),
	}
	notesSection = []*regexp.Regexp{
		regexp.MustCompile(`(?is)\*\*Additional Notes:?\*\*:?[ \t]*\n(.*?)(?:\n[ \t]*\n|\z)`),
		regexp.MustCompile(`(?ims)^\s*Additional notes:?[ \t]*\n(.*?)(?:\n[ \t]*\n|\z)`),
	}
	medicationProperty = regexp.MustCompile(`(?i)^\s*[+*-]?\s*(?:\*\*)?(dosage|frequency|duration)(?:\*\*)?\s*:\s*(?:\*\*)?\s*(.+)$`)
	medicationEntry    = regexp.MustCompile(`(?i)^\s*(?:[*-]|\d+\.)\s+(?:\*\*)?(?:medication\s+name\s*:?\s*(?:\*\*)?\s*)?([^*\n]+?)(?:\*\*)?\s*$`)
	bullet             = regexp.MustCompile(`^\s*[*+-]\s+(.+)$`)
)

var placeholders = map[string]bool{
	"not available": true,
	"not specified": true,
	"n/a":           true,
	"na":            true,
	"none":          true,
	"null":          true,
}

// clean strips markdown emphasis and whitespace and maps placeholder text
// ("Not available", "N/A") to nil.
func clean(v string) *string {
	v = strings.TrimSpace(v)
	if i := strings.Index(v, "**"); i > 0 {
		v = v[:i]
	}
	v = strings.Trim(v, "* \t")
	if v == "" || placeholders[strings.ToLower(v)] {
		return nil
	}
	return &v
}

func firstSubmatch(res []*regexp.Regexp, text string) (string, bool) {
	for _, re := range res {
		if m := re.FindStringSubmatch(text); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// ParsePrescription reads scalar fields, the medication list and the
// additional-notes bullets from one prescription response.
func ParsePrescription(text string) PrescriptionSample {
	sample := PrescriptionSample{Fields: make(Record, len(PrescriptionTable))}
	for _, f := range PrescriptionTable {
		if v := f.Match(text); v != nil {
			sample.Fields[f.Name] = clean(*v)
		} else {
			sample.Fields[f.Name] = nil
		}
	}

	if section, ok := firstSubmatch(medicationsSection, text); ok {
		sample.Medications = parseMedications(section)
	}
	if section, ok := firstSubmatch(notesSection, text); ok {
		sample.Notes = parseNotes(section)
	}
	return sample
}

func parseMedications(section string) []MedicationSample {
	var meds []MedicationSample
	var current *MedicationSample
	sc := bufio.NewScanner(strings.NewReader(section))
	for sc.Scan() {
		line := sc.Text()
		if m := medicationProperty.FindStringSubmatch(line); m != nil {
			if current == nil {
				continue
			}
			v := clean(m[2])
			switch strings.ToLower(m[1]) {
			case "dosage":
				current.Dosage = v
			case "frequency":
				current.Frequency = v
			case "duration":
				current.Duration = v
			}
			continue
		}
		if m := medicationEntry.FindStringSubmatch(line); m != nil {
			name := clean(m[1])
			if name == nil {
				current = nil
				continue
			}
			meds = append(meds, MedicationSample{Name: *name})
			current = &meds[len(meds)-1]
		}
	}
	return meds
}

func parseNotes(section string) []string {
	var notes []string
	sc := bufio.NewScanner(strings.NewReader(section))
	for sc.Scan() {
		m := bullet.FindStringSubmatch(sc.Text())
		if m == nil {
			continue
		}
		if v := clean(m[1]); v != nil {
			notes = append(notes, *v)
		}
	}
	return notes
}
