package envelope

import (
	"encoding/json"
	"testing"

	rserrors "reposcope/internal/errors"
)

func TestSuccess(t *testing.T) {
	r := Success(map[string]int{"count": 3})
	if r.SchemaVersion != CurrentSchemaVersion {
		t.Errorf("schemaVersion = %q", r.SchemaVersion)
	}
	if r.Error != nil {
		t.Error("success should carry no error")
	}
}

func TestFailure_ToolError(t *testing.T) {
	err := rserrors.New(rserrors.PathEscape, "path must be under the project root").
		WithDetails(map[string]string{"got": "/etc"})
	r := Failure(err)

	if r.Error == nil {
		t.Fatal("error missing")
	}
	if r.Error.Code != "PATH_ESCAPE" {
		t.Errorf("code = %q", r.Error.Code)
	}
	if r.Error.Message != "path must be under the project root" {
		t.Errorf("message = %q", r.Error.Message)
	}
	if r.Error.Details == nil {
		t.Error("details dropped")
	}
}

func TestFailure_PlainError(t *testing.T) {
	r := Failure(json.Unmarshal([]byte("{"), &struct{}{}))
	if r.Error.Code != "INTERNAL_ERROR" {
		t.Errorf("code = %q, want INTERNAL_ERROR", r.Error.Code)
	}
}

func TestWithTruncation(t *testing.T) {
	r := Success(nil).WithTruncation(false, 0, "")
	if r.Meta != nil {
		t.Error("no truncation should leave meta empty")
	}

	r = Success(nil).WithTruncation(true, 10, "maxItems")
	if r.Meta == nil || !r.Meta.Truncation.IsTruncated || r.Meta.Truncation.Shown != 10 {
		t.Errorf("meta = %+v", r.Meta)
	}
}

func TestEnvelopeJSONShape(t *testing.T) {
	r := Success([]string{"a"}).AddWarning("W1", "heads up").WithDuration(5)
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"schemaVersion", "data", "warnings", "meta"} {
		if _, ok := doc[key]; !ok {
			t.Errorf("envelope missing %q", key)
		}
	}
	if _, ok := doc["error"]; ok {
		t.Error("success envelope should omit error")
	}
}
