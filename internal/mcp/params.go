package mcp

import (
	"reposcope/internal/errors"
	"reposcope/internal/surgery"
)

// JSON numbers arrive as float64; these helpers keep the handlers flat.

func stringParam(params map[string]interface{}, key string) string {
	if v, ok := params[key].(string); ok {
		return v
	}
	return ""
}

func intParam(params map[string]interface{}, key string) int {
	switch v := params[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

func boolParam(params map[string]interface{}, key string) bool {
	if v, ok := params[key].(bool); ok {
		return v
	}
	return false
}

func stringSliceParam(params map[string]interface{}, key string) []string {
	raw, ok := params[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// projectIDOf extracts projectId without validating it, for audit use.
func projectIDOf(params map[string]interface{}) int64 {
	return int64(intParam(params, "projectId"))
}

// requireProjectID extracts and validates the mandatory projectId.
func requireProjectID(params map[string]interface{}) (int64, error) {
	id := projectIDOf(params)
	if id <= 0 {
		return 0, errors.NewInvalidParameterError("projectId", "a positive project id is required")
	}
	return id, nil
}

// requireString extracts a mandatory non-empty string parameter.
func requireString(params map[string]interface{}, key string) (string, error) {
	v := stringParam(params, key)
	if v == "" {
		return "", errors.NewInvalidParameterError(key, "required")
	}
	return v, nil
}

// parseTarget builds a surgery target from either startLine/endLine or
// an anchor object. Exactly one form must be present.
func parseTarget(params map[string]interface{}) (surgery.Target, error) {
	target := surgery.Target{
		Start: intParam(params, "startLine"),
		End:   intParam(params, "endLine"),
	}

	raw, hasAnchor := params["anchor"].(map[string]interface{})
	if hasAnchor {
		if target.Start != 0 {
			return surgery.Target{}, errors.NewInvalidParameterError("anchor", "pass either startLine or anchor, not both")
		}
		anchor := &surgery.Anchor{
			Text:       stringParam(raw, "text"),
			IsRegex:    boolParam(raw, "isRegex"),
			Occurrence: surgery.Occurrence(stringParam(raw, "occurrence")),
			Nth:        intParam(raw, "nth"),
			Offset:     intParam(raw, "offset"),
			Length:     intParam(raw, "length"),
		}
		if anchor.Text == "" {
			return surgery.Target{}, errors.NewInvalidParameterError("anchor.text", "required")
		}
		target.Anchor = anchor
		return target, nil
	}

	if target.Start == 0 {
		return surgery.Target{}, errors.NewInvalidParameterError("startLine", "pass startLine or an anchor")
	}
	return target, nil
}
