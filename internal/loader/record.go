package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	apperrors "churndb/pkg/errors"

	"github.com/jszwec/csvutil"
)

const (
	paymentPrefix        = "payment_"
	defaultPaymentMethod = "Electronic check"
)

// Code is an encoded categorical or flag column. It accepts "1", "1.0"
// and "true"/"false" as produced by different preprocessing tools.
type Code int

// UnmarshalText implements encoding.TextUnmarshaler
func (c *Code) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	switch strings.ToLower(s) {
	case "true":
		*c = 1
		return nil
	case "false":
		*c = 0
		return nil
	case "":
		return fmt.Errorf("empty value")
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("invalid encoded value %q", s)
	}
	*c = Code(int(f))
	return nil
}

// Int returns the code as an int
func (c Code) Int() int { return int(c) }

// Record is one row of the preprocessed churn CSV
type Record struct {
	CustomerID              string  `csv:"customerID"`
	GenderEncoded           Code    `csv:"gender_encoded"`
	SeniorCitizen           Code    `csv:"SeniorCitizen"`
	PartnerEncoded          Code    `csv:"partner_encoded"`
	DependentsEncoded       Code    `csv:"dependents_encoded"`
	Tenure                  Code    `csv:"tenure"`
	PhoneServiceEncoded     Code    `csv:"phone_service_encoded"`
	InternetServiceEncoded  Code    `csv:"internet_service_encoded"`
	ContractEncoded         Code    `csv:"contract_encoded"`
	PaperlessBillingEncoded Code    `csv:"paperless_billing_encoded"`
	TotalServices           Code    `csv:"total_services"`
	HasStreaming            Code    `csv:"has_streaming"`
	HasSecurity             Code    `csv:"has_security"`
	HasSupport              Code    `csv:"has_support"`
	MonthlyCharges          float64 `csv:"MonthlyCharges"`
	TotalCharges            float64 `csv:"TotalCharges"`
	AutoPayment             Code    `csv:"auto_payment"`
	AvgMonthlySpend         float64 `csv:"avg_monthly_spend"`
	ChargePerTenure         float64 `csv:"charge_per_tenure"`
	IsLongTerm              Code    `csv:"is_long_term"`
	HasPartnerOrDependent   Code    `csv:"has_partner_or_dependent"`
	ChurnEncoded            Code    `csv:"churn_encoded"`

	// PaymentMethod is derived from the one-hot payment_* columns
	PaymentMethod string `csv:"-"`
}

// RequiredColumns returns the header names every input file must carry
func RequiredColumns() []string {
	header, err := csvutil.Header(Record{}, "csv")
	if err != nil {
		panic(err) // Record tags are static
	}
	return header
}

// ReadFile decodes the CSV file at path
func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path) // #nosec G304 - path comes from config
	if err != nil {
		return nil, apperrors.FileError(path, err)
	}
	defer f.Close()

	records, err := Read(f)
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			appErr.WithContext("path", path)
		}
		return nil, err
	}
	return records, nil
}

// Read decodes every record from r after checking the header
func Read(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	dec, err := csvutil.NewDecoder(cr)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, apperrors.DataError("CSV file is empty", nil)
		}
		return nil, apperrors.DataError("Failed to read CSV header", err)
	}

	header := dec.Header()
	if missing := missingColumns(header); len(missing) > 0 {
		return nil, apperrors.New(apperrors.ErrCodeMissingColumns,
			fmt.Sprintf("CSV is missing required columns: %s", strings.Join(missing, ", "))).
			WithContext("missing", missing).
			WithSuggestions("Re-run the preprocessing step that produces the processed CSV")
	}

	paymentCols := paymentColumns(header)

	var records []Record
	for {
		var rec Record
		if err := dec.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			line, _ := cr.FieldPos(0)
			return nil, apperrors.DataError(fmt.Sprintf("Invalid CSV data on line %d", line), err).
				WithContext("line", line)
		}

		rec.CustomerID = strings.TrimSpace(rec.CustomerID)
		if rec.CustomerID == "" {
			line, _ := cr.FieldPos(0)
			return nil, apperrors.New(apperrors.ErrCodeRequiredField, fmt.Sprintf("Empty customerID on line %d", line)).
				WithContext("line", line)
		}
		rec.PaymentMethod = paymentMethod(dec.Record(), paymentCols)
		records = append(records, rec)
	}

	return records, nil
}

func missingColumns(header []string) []string {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[h] = true
	}

	var missing []string
	for _, col := range RequiredColumns() {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	return missing
}

type paymentColumn struct {
	index  int
	method string
}

func paymentColumns(header []string) []paymentColumn {
	var cols []paymentColumn
	for i, h := range header {
		if strings.HasPrefix(h, paymentPrefix) {
			cols = append(cols, paymentColumn{index: i, method: PaymentMethodName(h)})
		}
	}
	return cols
}

// PaymentMethodName turns a one-hot column name into a method label,
// e.g. "payment_Bank_transfer_(automatic)" becomes "Bank transfer (automatic)"
func PaymentMethodName(column string) string {
	return strings.ReplaceAll(strings.ReplaceAll(column, paymentPrefix, ""), "_", " ")
}

// paymentMethod returns the first method whose flag is set
func paymentMethod(record []string, cols []paymentColumn) string {
	for _, col := range cols {
		if col.index >= len(record) {
			continue
		}
		var flag Code
		if err := flag.UnmarshalText([]byte(record[col.index])); err == nil && flag == 1 {
			return col.method
		}
	}
	return defaultPaymentMethod
}
