package loader

import "strings"

const testHeader = "customerID,gender_encoded,SeniorCitizen,partner_encoded,dependents_encoded,tenure," +
	"phone_service_encoded,internet_service_encoded,contract_encoded,paperless_billing_encoded," +
	"total_services,has_streaming,has_security,has_support,MonthlyCharges,TotalCharges,auto_payment," +
	"avg_monthly_spend,charge_per_tenure,is_long_term,has_partner_or_dependent,churn_encoded," +
	"payment_Bank_transfer_(automatic),payment_Credit_card_(automatic),payment_Electronic_check,payment_Mailed_check"

var testRows = []string{
	"1000-ABCD,1,0,1,0,5,1,2,0,1,4,1,0,0,70.70,353.50,0,70.70,14.14,0,1,1,0,0,1,0",
	"2000-EFGH,0,1,0,1,40,1,1,2,0,6,0,1,1,55.20,2208.00,1,55.20,1.38,1,1,0,1.0,0,0,0",
	"3000-IJKL,true,0,0,0,1,0,0,1,0,1,0,0,0,20.05,20.05,0,20.05,20.05,0,0,0,0,0,0,0",
}

func testCSV(rows ...string) string {
	return testHeader + "\n" + strings.Join(rows, "\n") + "\n"
}
