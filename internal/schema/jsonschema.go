package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const draft = "https://json-schema.org/draft/2020-12/schema"

var printer = message.NewPrinter(language.English)

// ValidationResult contains the outcome of a schema validation.
type ValidationResult struct {
	Valid  bool
	Issues []ValidationIssue
}

// ValidationIssue is a single failed constraint.
type ValidationIssue struct {
	Path    string // instance location, e.g. "/name"
	Message string
	Keyword string // schema keyword that failed, e.g. "pattern"
}

// ToJSONSchema renders n as a JSON Schema document.
func ToJSONSchema(n Node) map[string]any {
	out := render(n)
	out["$schema"] = draft
	return out
}

func render(n Node) map[string]any {
	out := map[string]any{}
	meta := n.Info()
	if meta.Title != "" {
		out["title"] = meta.Title
	}
	if meta.Description != "" {
		out["description"] = meta.Description
	}

	switch v := n.(type) {
	case *String:
		out["type"] = "string"
		if v.Length.Min != nil {
			out["minLength"] = *v.Length.Min
		}
		if v.Length.Max != nil {
			out["maxLength"] = *v.Length.Max
		}
		if v.Pattern != "" {
			out["pattern"] = v.Pattern
		}
		// phone has no JSON Schema counterpart.
		if v.Format == FormatEmail || v.Format == FormatURI {
			out["format"] = string(v.Format)
		}
		if len(v.Enum) > 0 {
			out["enum"] = v.Enum
		}
		if v.Default != nil {
			out["default"] = *v.Default
		}
	case *Number:
		out["type"] = "number"
		if v.Range.Min != nil {
			out["minimum"] = *v.Range.Min
		}
		if v.Range.Max != nil {
			out["maximum"] = *v.Range.Max
		}
		if len(v.Enum) > 0 {
			out["enum"] = v.Enum
		}
		if v.Default != nil {
			out["default"] = *v.Default
		}
	case *Boolean:
		out["type"] = "boolean"
		if v.Default != nil {
			out["default"] = *v.Default
		}
	case *Object:
		props := map[string]any{}
		for _, p := range v.Properties {
			if p.Name == Wildcard {
				out["additionalProperties"] = render(p.Schema)
				continue
			}
			props[p.Name] = render(p.Schema)
		}
		out["type"] = "object"
		if len(props) > 0 {
			out["properties"] = props
		}
		if len(v.Required) > 0 {
			out["required"] = v.Required
		}
		if v.Shorthand {
			objectForm := map[string]any{}
			for k, val := range out {
				if k != "title" && k != "description" {
					objectForm[k] = val
				}
			}
			maps.DeleteFunc(out, func(k string, _ any) bool { return k != "title" && k != "description" })
			out["anyOf"] = []any{map[string]any{"type": "string"}, objectForm}
		}
	case *Array:
		out["type"] = "array"
		switch len(v.Items) {
		case 0:
		case 1:
			out["items"] = render(v.Items[0])
		default:
			alts := make([]any, len(v.Items))
			for i, it := range v.Items {
				alts[i] = render(it)
			}
			out["items"] = map[string]any{"anyOf": alts}
		}
	}
	return out
}

// Compile turns n into a validator.
func Compile(n Node) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(ToJSONSchema(n))
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	c.AssertFormat()
	if err := c.AddResource("package.schema.json", doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	sch, err := c.Compile("package.schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return sch, nil
}

// Validate checks the JSON document data against root.
// The error return is for malformed input or schema compilation failures;
// constraint violations are reported in the result.
func Validate(data []byte, root Node) (*ValidationResult, error) {
	sch, err := Compile(root)
	if err != nil {
		return nil, err
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	err = sch.Validate(inst)
	if err == nil {
		return &ValidationResult{Valid: true}, nil
	}
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return nil, fmt.Errorf("unexpected validation error type: %w", err)
	}
	return &ValidationResult{Issues: extractIssues(ve)}, nil
}

func extractIssues(ve *jsonschema.ValidationError) []ValidationIssue {
	var issues []ValidationIssue
	collectIssues(ve, &issues)
	if len(issues) == 0 {
		return []ValidationIssue{{Message: ve.Error()}}
	}

	seen := make(map[string]bool)
	var out []ValidationIssue
	for _, is := range issues {
		key := is.Path + "|" + is.Keyword + "|" + is.Message
		if !seen[key] {
			seen[key] = true
			out = append(out, is)
		}
	}
	return out
}

func collectIssues(ve *jsonschema.ValidationError, issues *[]ValidationIssue) {
	if len(ve.Causes) > 0 {
		for _, c := range ve.Causes {
			collectIssues(c, issues)
		}
		return
	}

	var keyword, msg string
	if ve.ErrorKind != nil {
		if kw := ve.ErrorKind.KeywordPath(); len(kw) > 0 {
			keyword = kw[len(kw)-1]
		}
		msg = ve.ErrorKind.LocalizedString(printer)
	}
	if keyword == "" || keyword == "anyOf" || keyword == "$ref" {
		return
	}

	path := ""
	if len(ve.InstanceLocation) > 0 {
		path = "/" + strings.Join(ve.InstanceLocation, "/")
	}
	*issues = append(*issues, ValidationIssue{Path: path, Message: msg, Keyword: keyword})
}
