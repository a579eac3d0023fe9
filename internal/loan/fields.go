package loan

// ValueType is the kind of value a form field collects.
type ValueType int

const (
	Number ValueType = iota
	Text
)

func (v ValueType) String() string {
	if v == Text {
		return "text"
	}
	return "number"
}

func (v ValueType) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// FieldSpec describes one input of a category's form.
type FieldSpec struct {
	Name      string    `json:"name"`
	Label     string    `json:"label"`
	ValueType ValueType `json:"type"`
}

var fieldRegistry = [categoryCount][]FieldSpec{
	Home: {
		{Name: "Gender", Label: "Gender", ValueType: Number},
		{Name: "Married", Label: "Married", ValueType: Number},
		{Name: "Dependents", Label: "Dependents", ValueType: Number},
		{Name: "Education", Label: "Education", ValueType: Number},
		{Name: "Self_Employed", Label: "Self Employed", ValueType: Number},
		{Name: "ApplicantIncome", Label: "Applicant Income", ValueType: Number},
		{Name: "CoapplicantIncome", Label: "Coapplicant Income", ValueType: Number},
		{Name: "LoanAmount", Label: "Loan Amount", ValueType: Number},
		{Name: "Loan_Amount_Term", Label: "Loan Amount Term", ValueType: Number},
		{Name: "Credit_History", Label: "Credit History", ValueType: Number},
		{Name: "Property_Area", Label: "Property Area", ValueType: Number},
	},
	General: {
		{Name: "no_of_dependents", Label: "Number of Dependents", ValueType: Number},
		{Name: "education", Label: "Education", ValueType: Number},
		{Name: "self_employed", Label: "Self Employed", ValueType: Number},
		{Name: "income_annum", Label: "Annual Income", ValueType: Number},
		{Name: "loan_amount", Label: "Loan Amount", ValueType: Number},
		{Name: "loan_term", Label: "Loan Term", ValueType: Number},
		{Name: "cibil_score", Label: "CIBIL Score", ValueType: Number},
		{Name: "residential_assets_value", Label: "Residential Assets Value", ValueType: Number},
		{Name: "commercial_assets_value", Label: "Commercial Assets Value", ValueType: Number},
		{Name: "luxury_assets_value", Label: "Luxury Assets Value", ValueType: Number},
		{Name: "bank_asset_value", Label: "Bank Asset Value", ValueType: Number},
	},
	CreditCard: {
		{Name: "CODE_GENDER", Label: "Code Gender", ValueType: Number},
		{Name: "FLAG_OWN_CAR", Label: "Own Car Flag", ValueType: Number},
		{Name: "FLAG_OWN_REALTY", Label: "Own Realty Flag", ValueType: Number},
		{Name: "CNT_CHILDREN", Label: "Number of Children", ValueType: Number},
		{Name: "AMT_INCOME_TOTAL", Label: "Total Income", ValueType: Number},
		{Name: "NAME_INCOME_TYPE", Label: "Income Type", ValueType: Number},
		{Name: "NAME_EDUCATION_TYPE", Label: "Education Type", ValueType: Number},
		{Name: "NAME_FAMILY_STATUS", Label: "Family Status", ValueType: Number},
		{Name: "NAME_HOUSING_TYPE", Label: "Housing Type", ValueType: Number},
		{Name: "DAYS_BIRTH", Label: "Days from Birth", ValueType: Number},
		{Name: "DAYS_EMPLOYED", Label: "Days Employed", ValueType: Number},
		{Name: "FLAG_MOBIL", Label: "Mobile Flag", ValueType: Number},
		{Name: "FLAG_WORK_PHONE", Label: "Work Phone Flag", ValueType: Number},
		{Name: "FLAG_PHONE", Label: "Phone Flag", ValueType: Number},
		{Name: "FLAG_EMAIL", Label: "Email Flag", ValueType: Number},
		{Name: "OCCUPATION_TYPE", Label: "Occupation Type", ValueType: Number},
		{Name: "CNT_FAM_MEMBERS", Label: "Family Members", ValueType: Number},
	},
}

// FieldsFor returns the ordered field list of a category. The returned slice
// is a copy; callers may not mutate the registry through it.
//
// It panics on an undeclared category.
func FieldsFor(category LoanCategory) []FieldSpec {
	category.mustBeValid()
	fields := fieldRegistry[category]
	out := make([]FieldSpec, len(fields))
	copy(out, fields)
	return out
}

// FieldNames returns the field names of a category in schema order.
func FieldNames(category LoanCategory) []string {
	fields := FieldsFor(category)
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

func lookupField(category LoanCategory, name string) (FieldSpec, bool) {
	for _, f := range fieldRegistry[category] {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}
