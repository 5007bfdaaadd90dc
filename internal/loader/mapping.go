package loader

import "churndb/internal/schema"

var internetLabels = map[int]string{
	0: "No",
	1: "DSL",
	2: "Fiber optic",
}

var contractLabels = map[int]string{
	0: "Month-to-month",
	1: "One year",
	2: "Two year",
}

// GenderLabel maps gender_encoded: 1 is Male, anything else Female
func GenderLabel(code int) string {
	if code == 1 {
		return "Male"
	}
	return "Female"
}

// InternetLabel maps internet_service_encoded, defaulting to "No"
func InternetLabel(code int) string {
	if label, ok := internetLabels[code]; ok {
		return label
	}
	return internetLabels[0]
}

// ContractLabel maps contract_encoded, defaulting to "Month-to-month"
func ContractLabel(code int) string {
	if label, ok := contractLabels[code]; ok {
		return label
	}
	return contractLabels[0]
}

// tableSpec describes how records fill one table
type tableSpec struct {
	name    string
	columns []string
	values  func(r *Record) []interface{}
}

const keyColumn = "customer_id"

// tableSpecs are ordered parent first
var tableSpecs = []tableSpec{
	{
		name: schema.TableCustomers,
		columns: []string{
			keyColumn, "gender", "senior_citizen", "has_partner", "has_dependents", "tenure_months",
		},
		values: func(r *Record) []interface{} {
			return []interface{}{
				r.CustomerID,
				GenderLabel(r.GenderEncoded.Int()),
				r.SeniorCitizen.Int(),
				r.PartnerEncoded.Int(),
				r.DependentsEncoded.Int(),
				r.Tenure.Int(),
			}
		},
	},
	{
		name: schema.TableServiceSubscriptions,
		columns: []string{
			keyColumn, "phone_service", "internet_service", "contract_type", "paperless_billing",
			"total_services", "has_streaming", "has_security", "has_support",
		},
		values: func(r *Record) []interface{} {
			return []interface{}{
				r.CustomerID,
				r.PhoneServiceEncoded.Int(),
				InternetLabel(r.InternetServiceEncoded.Int()),
				ContractLabel(r.ContractEncoded.Int()),
				r.PaperlessBillingEncoded.Int(),
				r.TotalServices.Int(),
				r.HasStreaming.Int(),
				r.HasSecurity.Int(),
				r.HasSupport.Int(),
			}
		},
	},
	{
		name: schema.TableBillingInfo,
		columns: []string{
			keyColumn, "monthly_charges", "total_charges", "payment_method",
			"auto_payment", "avg_monthly_spend", "charge_per_tenure",
		},
		values: func(r *Record) []interface{} {
			return []interface{}{
				r.CustomerID,
				r.MonthlyCharges,
				r.TotalCharges,
				r.PaymentMethod,
				r.AutoPayment.Int(),
				r.AvgMonthlySpend,
				r.ChargePerTenure,
			}
		},
	},
	{
		name: schema.TableChurnFeatures,
		columns: []string{
			keyColumn, "is_long_term", "has_partner_or_dependent", "churn",
		},
		values: func(r *Record) []interface{} {
			return []interface{}{
				r.CustomerID,
				r.IsLongTerm.Int(),
				r.HasPartnerOrDependent.Int(),
				r.ChurnEncoded.Int(),
			}
		},
	},
}
