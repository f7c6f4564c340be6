package catalog

// Kind is the input control used for an attribute.
type Kind int

const (
	KindFlag Kind = iota
	KindInteger
	KindDecimal
	KindChoice
)

func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindDecimal:
		return "decimal"
	case KindChoice:
		return "choice"
	default:
		return "flag"
	}
}

var (
	Ethnicities = []string{"White", "Black", "Asian", "Hispanic or Latino", "Other"}
	Genders     = []string{"male", "female", "other"}

	EducationLevels = []string{
		"Less than high school",
		"High school",
		"Some college",
		"Bachelor's degree",
		"Graduate degree",
	}

	choices = map[string][]string{
		"ethnicity":      Ethnicities,
		"gender":         Genders,
		"educationlevel": EducationLevels,
	}

	measurements = map[string]bool{
		"bmi":                      true,
		"alcoholconsumption":       true,
		"physicalactivity":         true,
		"dietquality":              true,
		"sleepquality":             true,
		"systolicbp":               true,
		"diastolicbp":              true,
		"cholesteroltotal":         true,
		"cholesterolldl":           true,
		"cholesterolhdl":           true,
		"cholesteroltriglycerides": true,
		"mmse":                     true,
		"functionalassessment":     true,
		"adl":                      true,
		"riskfactorscore":          true,
		"symptomcount":             true,
	}
)

// KindOf classifies an attribute. Anything not explicitly numeric or
// categorical is a boolean flag.
func KindOf(name string) Kind {
	switch {
	case name == "age":
		return KindInteger
	case choices[name] != nil:
		return KindChoice
	case measurements[name]:
		return KindDecimal
	default:
		return KindFlag
	}
}

// Choices returns the closed option list for a categorical attribute, or nil.
func Choices(name string) []string {
	return choices[name]
}
