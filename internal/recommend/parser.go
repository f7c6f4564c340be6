package recommend

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	ErrMalformedOutput = errors.New("malformed model output")
	ErrShapeMismatch   = errors.New("model output does not match the recommendation shape")
)

// MalformedOutputError carries the raw text that failed to parse.
type MalformedOutputError struct {
	Raw string
	Err error
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("invalid JSON response: %s", e.Raw)
}

func (e *MalformedOutputError) Unwrap() []error {
	return []error{ErrMalformedOutput, e.Err}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Parse decodes model output into a Set. Empty input yields (nil, nil): the
// upstream failure has already been reported by the client.
func Parse(text string) (Set, error) {
	body := stripFence(strings.TrimSpace(text))
	if body == "" {
		return nil, nil
	}
	var probe any
	if err := json.Unmarshal([]byte(body), &probe); err != nil {
		return nil, &MalformedOutputError{Raw: text, Err: err}
	}

	var raw []map[string]any
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return nil, fmt.Errorf("%w: expected an array of objects: %v", ErrShapeMismatch, err)
	}

	set := make(Set, 0, len(raw))
	for i, obj := range raw {
		item, err := itemFrom(obj)
		if err != nil {
			return nil, fmt.Errorf("%w: item %d: %v", ErrShapeMismatch, i+1, err)
		}
		set = append(set, item)
	}
	return set, nil
}

func itemFrom(obj map[string]any) (Item, error) {
	str := func(key string) (string, error) {
		v, ok := obj[key]
		if !ok {
			return "", fmt.Errorf("missing %q", key)
		}
		s, ok := v.(string)
		if !ok {
			return "", fmt.Errorf("%q is not a string", key)
		}
		return strings.TrimSpace(s), nil
	}

	var item Item
	var err error
	if item.Intervention, err = str("intervention"); err != nil {
		return Item{}, err
	}
	if item.Rationale, err = str("rationale"); err != nil {
		return Item{}, err
	}
	conf, err := str("confidence")
	if err != nil {
		return Item{}, err
	}
	item.Confidence = Confidence(strings.ToLower(conf))

	if err := validate.Struct(item); err != nil {
		return Item{}, err
	}
	return item, nil
}

// stripFence removes a surrounding Markdown code fence such as ```json ... ```.
func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(s, "```"), "```")
	if nl := strings.IndexByte(inner, '\n'); nl >= 0 {
		lang := strings.TrimSpace(inner[:nl])
		if lang == "" || !strings.ContainsAny(lang, "[{\"") {
			inner = inner[nl+1:]
		}
	}
	return strings.TrimSpace(inner)
}
