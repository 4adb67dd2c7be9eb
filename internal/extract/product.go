package extract

// Product label field names.
const (
	FieldBatchNumber = "BNo"
	FieldMfgDate     = "MfgD"
	FieldExpiryDate  = "ExpD"
	FieldMRP         = "MRP"
)

// ProductLabelTable extracts batch number, manufacture date, expiry date and
// MRP from a product label transcription. Four-digit-year dates are tried
// before two-digit ones.
var ProductLabelTable = Table{
	MustCompile(FieldBatchNumber, "alphanumeric",
		`B\.? ?NO\.?/? ?([A-Za-z0-9]+)`,
		`^\*\s*\*\*Batch ?No\.?:?\*\*:? ?([A-Za-z0-9]+)`,
		`^\*\*Batch ?No\.?:?\*\*:? ?([A-Za-z0-9]+)`,
		`Batch ?No\.?/? ?([A-Za-z0-9]+)`,
		`Batch ?no\.?/? ?([A-Za-z0-9]+)`,
		`Batch ?number:? ?([A-Za-z0-9]+)`,
		`\*\s*Batch\s*No\.?:\s*([A-Za-z0-9]+)`,
		`BATCH ?NO\.?/? ?([A-Za-z0-9]+)`,
		`BNO\.?/? ?([A-Za-z0-9]+)`,
		`B\.?NO\.?/? ?([A-Za-z0-9]+)`,
		`Batch ?No\.?:? ?([A-Za-z0-9]+)`,
	),
	MustCompile(FieldMfgDate, "MM/YYYY",
		`(?:MFD|Mfg\.? Date|M\.? Date):? ?(\d{2}/\d{4})`,
		`\*\s*Mfg\.?\s*Date:\s*(\d{2}/\d{4})`,
		`MFG\.? ?DATE:? ?(\d{2}/\d{4})`,
		`MANUFACTURING ?DATE:? ?(\d{2}/\d{4})`,
		`(?:MFD|Mfg\.? Date|M\.? Date):? ?(\d{2}/\d{2})`,
		`\*\s*Mfg\.?\s*Date:\s*(\d{2}/\d{2})`,
		`MFG\.? ?DATE:? ?(\d{2}/\d{2})`,
		`MANUFACTURING ?DATE:? ?(\d{2}/\d{2})`,
	),
	MustCompile(FieldExpiryDate, "MM/YYYY",
		`(?:EXP|Exp\.? Date|Expiry Date|Expiration Date):? ?(\d{2}/\d{4})`,
		`\*\s*Expiry\s*Date:\s*(\d{2}/\d{4})`,
		`EXPIRY ?DATE:? ?(\d{2}/\d{4})`,
		`EXP\.? ?DATE:? ?(\d{2}/\d{4})`,
		`(?:EXP|Exp\.? Date|Expiry Date|Expiration Date):? ?(\d{2}/\d{2})`,
		`\*\s*Expiry\s*Date:\s*(\d{2}/\d{2})`,
		`EXPIRY ?DATE:? ?(\d{2}/\d{2})`,
		`EXP\.? ?DATE:? ?(\d{2}/\d{2})`,
	),
	MustCompile(FieldMRP, "decimal",
		`(?:Price|Mrp|MRP|Rs\.?|₹):? ?(\d+\.\d{2})`,
		`PRICE:? ?(\d+\.\d{2})`,
		`MAXIMUM ?RETAIL ?PRICE:? ?(\d+\.\d{2})`,
		`Rs\.? ?(\d+\.\d{2})`,
		`₹ ?(\d+\.\d{2})`,
	),
}
