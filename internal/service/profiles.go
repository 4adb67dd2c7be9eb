package service

import (
	"rxscan/internal/config"
	"rxscan/internal/extract"
)

// Round labels used in logs and metrics.
const (
	RoundProduct        = "product"
	RoundBillExtraction = "bill_extraction"
	RoundBillProcessing = "bill_processing"
	RoundPrescription   = "prescription"
)

// DocumentProfile is everything one sampling round needs: the prompt, the
// model, how many samples to take and, for regex-read rounds, the field table.
type DocumentProfile struct {
	Type     string
	Prompt   string
	System   string
	Model    string
	Attempts int
	Table    extract.Table
}

// Profiles holds the profile of every sampling round.
type Profiles struct {
	Product        DocumentProfile
	BillExtraction DocumentProfile
	BillProcessing DocumentProfile
	Prescription   DocumentProfile
}

// NewProfiles builds the round profiles from the scan configuration.
func NewProfiles(cfg *config.ScanConfig) Profiles {
	return Profiles{
		Product: DocumentProfile{
			Type:     RoundProduct,
			Prompt:   productPrompt,
			Model:    cfg.VisionModel,
			Attempts: cfg.ProductAttempts,
			Table:    extract.ProductLabelTable,
		},
		BillExtraction: DocumentProfile{
			Type:     RoundBillExtraction,
			Prompt:   billExtractionPrompt,
			Model:    cfg.VisionModel,
			Attempts: cfg.BillAttempts,
		},
		BillProcessing: DocumentProfile{
			Type:     RoundBillProcessing,
			Prompt:   billProcessingPrompt,
			System:   billProcessingSystem,
			Model:    cfg.TextModel,
			Attempts: cfg.BillAttempts,
		},
		Prescription: DocumentProfile{
			Type:     RoundPrescription,
			Prompt:   prescriptionPrompt,
			Model:    cfg.VisionModel,
			Attempts: cfg.PrescriptionAttempts,
			Table:    extract.PrescriptionTable,
		},
	}
}

// billTextSeparator joins the extraction samples handed to the processing round.
const billTextSeparator = "\n\nEXTRACTION RESULTS:\n\n"

const productPrompt = `Extract text from the image and provide the following details: Batch No., Mfg. Date, Exp. Date, MRP. Make sure the dates are converted into numerical MM/YYYY format strictly. For Example: Batch No: 1234, Mfg Date: 12/2021, Exp Date: 12/2023, MRP: 100.00`

const billExtractionPrompt = `Make sure to extract the text carefully and structure the text as:
1. Product Details separately covering everything there in the Product's row.
2. Bill Details such as Name of Biller, Bill Date, and Total Amount precisely.
Ensure these things are followed strictly.
Note: The text may contain some noise, so focus on the relevant information and ignore the name of the pharmacy the bill is addressed to.`

const billProcessingSystem = `You are a helpful assistant that analyzes bill text and extracts structured information. You process and structure the text according to the given prompt.`

const billProcessingPrompt = "Extract the following information from this bill into a structured JSON format:\n\n" +
	"1. Bill Details - including bill number, bill date, total amount, and drawing party information.\n" +
	"2. Product Details - including a list of all products with their name, quantity, batch number, price, total price, and expiration date.\n\n" +
	"Format the response as follows:\n" +
	"```json\n" +
	`{
    "bill_details": {
        "bill_number": "12345",
        "bill_date": "01/01/2025",
        "total_amount": "100.00",
        "drawing_party": "Supplier Name"
    },
    "products": [
        {
            "product_name": "Product 1",
            "quantity": 2,
            "batch_number": "B123",
            "mrp": 100.00,
            "rate": 50.00,
            "amount": 100.00,
            "exp_date": "08/26"
        }
    ]
}` + "\n```\n\n" +
	"bill_date is required, in MM/DD/YYYY format. exp_date is required, in MM/YY format. " +
	"drawing_party is the supplier that issued the bill, never the pharmacy it is addressed to. " +
	"Use null for anything that is not present. Respond with the JSON only."

const prescriptionPrompt = `You are an expert medical transcriptionist specializing in deciphering and accurately transcribing handwritten medical prescriptions. Analyze the provided prescription image and extract all relevant information with the highest degree of precision.

Here are some examples of the expected output format:

Example 1:
Patient's full name: John Doe
Patient's age: 45 /45y
Patient's gender: M/Male
Doctor's full name: Dr. Jane Smith
Doctor's license number: ABC123456
Prescription date: 2023-04-01
Medications:
- Medication name: Amoxicillin
  Dosage: 500 mg
  Frequency: Twice a day
  Duration: 7 days
- Medication name: Ibuprofen
  Dosage: 200 mg
  Frequency: Every 4 hours as needed
  Duration: 5 days
Additional notes:
- Take medications with food.
- Drink plenty of water.

Example 2:
Patient's full name: Jane Roe
Patient's age: 60/60y
Patient's gender: F/Female
Doctor's full name: Dr. John Doe
Doctor's license number: XYZ654321
Prescription date: 2023-05-10
Medications:
- Medication name: Metformin
  Dosage: 850 mg
  Frequency: Once a day
  Duration: 30 days
Additional notes:
- Monitor blood sugar levels daily.
- Avoid sugary foods.

Extract and accurately transcribe the following details:
1. Patient's full name
2. Patient's age (handle different formats like "42y", "42yrs", "42", "42 years")
3. Patient's gender
4. Doctor's full name
5. Doctor's license number
6. Prescription date (in YYYY-MM-DD format)
7. List of medications including:
    - Medication name
    - Dosage
    - Frequency
    - Duration
8. Additional notes or instructions, as clear and concise bullet points.

Important Instructions:
- If any information is not legible or missing, write 'Not available'.
- Do not guess or infer any information that is not clearly legible.
- Pay close attention to details like medication names, dosages, and frequencies.`
