package server

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/Skufu/interventions/internal/catalog"
	"github.com/Skufu/interventions/internal/recommend"
)

var fieldLabels = map[string]string{
	"age":            "Age",
	"ethnicity":      "Ethnicity",
	"gender":         "Gender",
	"educationlevel": "Education Level",
}

type formField struct {
	Name    string
	Label   string
	Kind    string
	Options []string
	Value   string
	Checked bool
}

// buildFields lays out one input per catalog column, pre-filled from record
// when given, otherwise with the form defaults.
func buildFields(cols catalog.Catalog, record recommend.PatientRecord) []formField {
	fields := make([]formField, 0, len(cols))
	for _, name := range cols {
		kind := catalog.KindOf(name)
		f := formField{Name: name, Label: name, Kind: kind.String()}
		if label, ok := fieldLabels[name]; ok {
			f.Label = label
		}
		v, has := record[name]

		switch kind {
		case catalog.KindInteger:
			f.Value = "30"
			if has {
				f.Value = fmt.Sprint(v)
			}
		case catalog.KindDecimal:
			f.Value = "0.0"
			if has {
				f.Value = fmt.Sprint(v)
			}
		case catalog.KindChoice:
			f.Options = catalog.Choices(name)
			f.Value = f.Options[0]
			if s, ok := v.(string); has && ok {
				f.Value = s
			}
		default:
			b, _ := v.(bool)
			f.Checked = b
		}
		fields = append(fields, f)
	}
	return fields
}

// valueGetter abstracts form posts and JSON bodies.
type valueGetter func(name string) (any, bool)

// buildRecord collects catalog values into a record. Values are converted to
// their attribute kind; anything that cannot be converted is reported.
func buildRecord(cols catalog.Catalog, get valueGetter) (recommend.PatientRecord, error) {
	record := make(recommend.PatientRecord, len(cols))
	var problems []string

	for _, name := range cols {
		raw, ok := get(name)
		kind := catalog.KindOf(name)
		if !ok {
			if kind == catalog.KindFlag {
				record[name] = false
			}
			continue
		}

		v, err := convert(name, kind, raw)
		if err != nil {
			problems = append(problems, err.Error())
			continue
		}
		record[name] = v
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return record, nil
}

func convert(name string, kind catalog.Kind, raw any) (any, error) {
	switch kind {
	case catalog.KindInteger:
		n, err := toFloat(raw)
		if err != nil || n != math.Trunc(n) || n < 0 || n > math.MaxInt32 {
			return nil, fmt.Errorf("%s must be a non-negative whole number", name)
		}
		return int(n), nil
	case catalog.KindDecimal:
		n, err := toFloat(raw)
		if err != nil {
			return nil, fmt.Errorf("%s must be a number", name)
		}
		return n, nil
	case catalog.KindChoice:
		s, ok := raw.(string)
		if !ok || !slices.Contains(catalog.Choices(name), s) {
			return nil, fmt.Errorf("%s must be one of %s", name, strings.Join(catalog.Choices(name), ", "))
		}
		return s, nil
	default:
		switch b := raw.(type) {
		case bool:
			return b, nil
		case string:
			return b == "true" || b == "on" || b == "1", nil
		}
		return nil, fmt.Errorf("%s must be true or false", name)
	}
}

// toFloat accepts finite numbers only; NaN and Inf cannot be stored or sent.
func toFloat(raw any) (float64, error) {
	var (
		n   float64
		err error
	)
	switch v := raw.(type) {
	case float64:
		n = v
	case int:
		n = float64(v)
	case string:
		n, err = strconv.ParseFloat(strings.TrimSpace(v), 64)
	default:
		err = fmt.Errorf("not a number: %v", raw)
	}
	if err != nil {
		return 0, err
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, fmt.Errorf("not a finite number: %v", raw)
	}
	return n, nil
}
