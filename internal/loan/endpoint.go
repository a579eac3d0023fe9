package loan

type endpointPair struct {
	standard string
	fair     string
}

// endpoints is indexed by category; the array length pins one pair per
// declared category.
var endpoints = [categoryCount]endpointPair{
	Home: {
		standard: "/api/loan-approval/predict-home",
		fair:     "/api/loan-approval/predict-home-fair",
	},
	General: {
		standard: "/api/loan-approval/predict-general",
		fair:     "/api/loan-approval/predict-general-fair",
	},
	CreditCard: {
		standard: "/api/loan-approval/predict-credit",
		fair:     "/api/loan-approval/predict-credit-fair",
	},
}

// EndpointFor returns the prediction path for a (category, fairness mode)
// pair. There is no fallback: an undeclared category panics.
func EndpointFor(category LoanCategory, fairMode bool) string {
	category.mustBeValid()
	pair := endpoints[category]
	if fairMode {
		return pair.fair
	}
	return pair.standard
}

// ModeLabel names the model variant a fairness flag selects.
func ModeLabel(fairMode bool) string {
	if fairMode {
		return "Fair Model Mode"
	}
	return "Standard Model Mode"
}
