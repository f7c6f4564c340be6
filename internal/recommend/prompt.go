package recommend

import (
	"fmt"
	"strconv"
	"strings"
)

// absent is substituted for attributes missing from the record.
const absent = "None"

const promptInstructions = `Recommend personalized behavioral interventions to improve the quality of life for the following patient.
Please return recommendations strictly in a valid JSON format, using double quotes for keys and strings.
Do not provide text before or after the JSON format.

The JSON format should be like this:
[
  {"intervention": "Specific intervention 1", "rationale": "Rationale for intervention 1", "confidence": "high/medium/low"},
  {"intervention": "Specific intervention 2", "rationale": "Rationale for intervention 2", "confidence": "high/medium/low"},
  {"intervention": "Specific intervention 3", "rationale": "Rationale for intervention 3", "confidence": "high/medium/low"}
]

`

type promptField struct {
	label string
	key   string
}

// promptFields is the fixed order in which attributes appear in the prompt.
var promptFields = []promptField{
	{"Patient Age", "age"},
	{"Patient Ethnicity", "ethnicity"},
	{"Patient Education Level", "educationlevel"},
	{"BMI", "bmi"},
	{"Alcohol Consumption", "alcoholconsumption"},
	{"Physical Activity", "physicalactivity"},
	{"Diet Quality", "dietquality"},
	{"Sleep Quality", "sleepquality"},
	{"Systolic BP", "systolicbp"},
	{"Diastolic BP", "diastolicbp"},
	{"Total Cholesterol", "cholesteroltotal"},
	{"LDL Cholesterol", "cholesterolldl"},
	{"HDL Cholesterol", "cholesterolhdl"},
	{"Triglycerides", "cholesteroltriglycerides"},
	{"MMSE", "mmse"},
	{"Functional Assessment", "functionalassessment"},
	{"ADL", "adl"},
	{"Risk Factor Score", "riskfactorscore"},
	{"Symptom Count", "symptomcount"},
	{"Gender", "gender"},
	{"Smoking", "smoking"},
	{"Family History Alzheimer's", "familyhistoryalzheimers"},
	{"Cardiovascular Disease", "cardiovasculardisease"},
	{"Diabetes", "diabetes"},
	{"Depression", "depression"},
	{"Head Injury", "headinjury"},
	{"Hypertension", "hypertension"},
	{"Memory Complaints", "memorycomplaints"},
	{"Behavioral Problems", "behavioralproblems"},
	{"Confusion", "confusion"},
	{"Disorientation", "disorientation"},
	{"Personality Changes", "personalitychanges"},
	{"Difficulty Completing Tasks", "difficultycompletingtasks"},
	{"Forgetfulness", "forgetfulness"},
	{"Diabetes CVD", "diabetes_cvd"},
	{"Has Any Risk Factor", "hasanyriskfactor"},
	{"Has Any Symptom", "hasanysymptom"},
	{"Age Group 70-80", "agegroup_70-80"},
	{"Age Group 80-90", "agegroup_80-90"},
	{"Age Group 90+", "agegroup_90+"},
}

// BuildPrompt renders the generation prompt for a record and free-text
// observation. Output depends only on its inputs.
func BuildPrompt(record PatientRecord, observation string) string {
	var sb strings.Builder
	sb.WriteString(promptInstructions)
	for _, f := range promptFields {
		sb.WriteString(f.label)
		sb.WriteString(": ")
		sb.WriteString(formatValue(record, f.key))
		sb.WriteByte('\n')
	}
	sb.WriteString("Observations: ")
	sb.WriteString(observation)
	sb.WriteByte('\n')
	return sb.String()
}

func formatValue(record PatientRecord, key string) string {
	v, ok := record[key]
	if !ok || v == nil {
		return absent
	}
	switch val := v.(type) {
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	default:
		return fmt.Sprint(val)
	}
}
