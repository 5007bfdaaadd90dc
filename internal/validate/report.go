package validate

// Status is the outcome of one check
type Status string

const (
	StatusPass Status = "PASS"
	StatusWarn Status = "WARN"
	StatusFail Status = "FAIL"
)

// Section groups checks in the printed report
type Section string

const (
	SectionCounts   Section = "Table Row Counts"
	SectionQuality  Section = "Data Quality Checks"
	SectionBusiness Section = "Business Logic Validation"
	SectionFeatures Section = "Feature Matrix Validation"
	SectionViews    Section = "View Validation"
)

// Check is a single validation result
type Check struct {
	Section Section
	Name    string
	Status  Status
	Message string
	Details []string
}

// Report is the ordered list of checks
type Report struct {
	Checks []Check
}

func (r *Report) add(c Check) {
	r.Checks = append(r.Checks, c)
}

// Count returns how many checks ended with status
func (r *Report) Count(status Status) int {
	n := 0
	for _, c := range r.Checks {
		if c.Status == status {
			n++
		}
	}
	return n
}

// Sections returns the sections in report order with their checks
func (r *Report) Sections() ([]Section, map[Section][]Check) {
	var order []Section
	grouped := make(map[Section][]Check)
	for _, c := range r.Checks {
		if _, ok := grouped[c.Section]; !ok {
			order = append(order, c.Section)
		}
		grouped[c.Section] = append(grouped[c.Section], c)
	}
	return order, grouped
}

// Passed reports whether no check failed
func (r *Report) Passed() bool {
	return r.Count(StatusFail) == 0
}
