package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "data_columns.json", `{"data_columns": ["age", "ethnicity", "smoking"]}`)

	cols, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(Catalog{"age", "ethnicity", "smoking"}, cols); diff != "" {
		t.Fatalf("catalog mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "columns.yaml", "data_columns:\n  - age\n  - gender\n")

	cols, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(Catalog{"age", "gender"}, cols); diff != "" {
		t.Fatalf("catalog mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable to be wrapped, got %v", err)
	}
}

func TestLoadMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":     `{"data_columns": [`,
		"wrong type":   `{"data_columns": "age"}`,
		"missing key":  `{"columns": ["age"]}`,
		"empty list":   `{"data_columns": []}`,
		"blank column": `{"data_columns": ["age", " "]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, "data_columns.json", body)
			if _, err := Load(path); !errors.Is(err, ErrMalformedSource) {
				t.Fatalf("expected ErrMalformedSource, got %v", err)
			}
		})
	}
}

func TestLoadDirectoryIsUnknown(t *testing.T) {
	_, err := Load(t.TempDir())
	if !errors.Is(err, ErrUnknown) {
		t.Fatalf("expected ErrUnknown for a directory, got %v", err)
	}
}

func TestKindOf(t *testing.T) {
	want := map[string]Kind{
		"age":              KindInteger,
		"ethnicity":        KindChoice,
		"gender":           KindChoice,
		"educationlevel":   KindChoice,
		"bmi":              KindDecimal,
		"symptomcount":     KindDecimal,
		"smoking":          KindFlag,
		"agegroup_90+":     KindFlag,
		"memorycomplaints": KindFlag,
	}
	for name, kind := range want {
		if got := KindOf(name); got != kind {
			t.Errorf("KindOf(%q) = %s, want %s", name, got, kind)
		}
	}
	if Choices("gender")[0] != "male" {
		t.Fatalf("expected first gender option to be male, got %v", Choices("gender"))
	}
	if Choices("bmi") != nil {
		t.Fatal("expected no choices for a decimal attribute")
	}
}
