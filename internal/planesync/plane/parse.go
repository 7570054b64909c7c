package plane

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

var errInvalidFormat = errors.New("invalid API response format")

// SkippedRecord describes a record that could not be parsed
type SkippedRecord struct {
	Index int
	Err   error
}

// ParseResult holds the records parsed from a list response and the ones that were skipped
type ParseResult[T any] struct {
	Parsed  []T
	Skipped []SkippedRecord
}

func parseAll[T any](records []json.RawMessage, parse func(json.RawMessage) (T, error)) ParseResult[T] {
	result := ParseResult[T]{Parsed: make([]T, 0, len(records))}
	for i, record := range records {
		parsed, err := parse(record)
		if err != nil {
			result.Skipped = append(result.Skipped, SkippedRecord{Index: i, Err: err})
			continue
		}
		result.Parsed = append(result.Parsed, parsed)
	}
	return result
}

// listRecords extracts the records of a list endpoint. Plane answers either with
// a paginated object holding a "results" array or with a bare array. When
// requireResults is false an object without "results" is an empty list.
func listRecords(body []byte, requireResults bool) ([]json.RawMessage, error) {
	body = bytes.TrimSpace(body)
	var list []json.RawMessage
	if len(body) > 0 && body[0] == '[' {
		if err := json.Unmarshal(body, &list); err != nil {
			return nil, errInvalidFormat
		}
		return list, nil
	}

	var object map[string]json.RawMessage
	if err := json.Unmarshal(body, &object); err != nil || object == nil {
		return nil, errInvalidFormat
	}

	results, ok := object["results"]
	if !ok {
		if requireResults {
			return nil, errInvalidFormat
		}
		return nil, nil
	}
	if err := json.Unmarshal(results, &list); err != nil {
		return nil, errInvalidFormat
	}
	return list, nil
}

type fields map[string]json.RawMessage

func decodeFields(raw json.RawMessage) (fields, error) {
	var f fields
	if err := json.Unmarshal(raw, &f); err != nil || f == nil {
		return nil, fmt.Errorf("record is not an object")
	}
	return f, nil
}

func (f fields) present(name string) bool {
	v, ok := f[name]
	return ok && string(v) != "null"
}

func (f fields) requiredString(name string) (string, error) {
	if !f.present(name) {
		return "", fmt.Errorf("missing required field %q", name)
	}
	var s string
	if err := json.Unmarshal(f[name], &s); err != nil {
		return "", fmt.Errorf("field %q: %w", name, err)
	}
	return s, nil
}

func (f fields) optionalString(name string) (string, error) {
	if !f.present(name) {
		return "", nil
	}
	return f.requiredString(name)
}

func (f fields) requiredNumber(name string) (float64, error) {
	if !f.present(name) {
		return 0, fmt.Errorf("missing required field %q", name)
	}
	var n float64
	if err := json.Unmarshal(f[name], &n); err != nil {
		return 0, fmt.Errorf("field %q: %w", name, err)
	}
	return n, nil
}

func (f fields) requiredTime(name string) (time.Time, error) {
	s, err := f.requiredString(name)
	if err != nil {
		return time.Time{}, err
	}
	t, err := parseTimestamp(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("field %q: %w", name, err)
	}
	return t, nil
}

func (f fields) optionalTime(name string) (*time.Time, error) {
	if !f.present(name) {
		return nil, nil
	}
	t, err := f.requiredTime(name)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// stringList accepts a list of ids or a list of objects carrying an "id"
func (f fields) stringList(name string) ([]string, error) {
	if !f.present(name) {
		return []string{}, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(f[name], &items); err != nil {
		return nil, fmt.Errorf("field %q: %w", name, err)
	}
	values := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			values = append(values, s)
			continue
		}
		var obj struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(item, &obj); err != nil || obj.ID == "" {
			return nil, fmt.Errorf("field %q: unsupported item %s", name, string(item))
		}
		values = append(values, obj.ID)
	}
	return values, nil
}

// estimatePoint is numeric in older Plane releases and may be an id or absent in newer ones
func (f fields) estimatePoint() *int {
	if !f.present("estimate_point") {
		return nil
	}
	var n float64
	if err := json.Unmarshal(f["estimate_point"], &n); err == nil {
		v := int(n)
		return &v
	}
	var s string
	if err := json.Unmarshal(f["estimate_point"], &s); err == nil {
		if v, err := strconv.Atoi(s); err == nil {
			return &v
		}
	}
	return nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

func parseTimestamp(s string) (time.Time, error) {
	return ParseTimestamp(s, time.UTC)
}

// ParseTimestamp reads an ISO-8601 timestamp with or without an offset.
// Timestamps without an offset are interpreted in loc.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported timestamp %q", s)
}

// ParseIssue converts a single issue record of the Plane API
func ParseIssue(raw json.RawMessage) (Issue, error) {
	f, err := decodeFields(raw)
	if err != nil {
		return Issue{}, err
	}

	var issue Issue
	if issue.ID, err = f.requiredString("id"); err != nil {
		return Issue{}, err
	}
	if issue.Name, err = f.requiredString("name"); err != nil {
		return Issue{}, err
	}
	if issue.State, err = f.requiredString("state"); err != nil {
		return Issue{}, err
	}
	sequenceID, err := f.requiredNumber("sequence_id")
	if err != nil {
		return Issue{}, err
	}
	issue.SequenceID = int(sequenceID)
	if issue.CreatedAt, err = f.requiredTime("created_at"); err != nil {
		return Issue{}, err
	}
	if issue.UpdatedAt, err = f.requiredTime("updated_at"); err != nil {
		return Issue{}, err
	}

	priority, err := f.optionalString("priority")
	if err != nil {
		return Issue{}, err
	}
	if priority == "" {
		priority = string(PriorityNone)
	}
	issue.Priority = Priority(priority)

	if issue.DescriptionHTML, err = f.optionalString("description_html"); err != nil {
		return Issue{}, err
	}
	if issue.ProjectID, err = f.optionalString("project"); err != nil {
		return Issue{}, err
	}
	if issue.StartDate, err = f.optionalString("start_date"); err != nil {
		return Issue{}, err
	}
	if issue.TargetDate, err = f.optionalString("target_date"); err != nil {
		return Issue{}, err
	}
	if issue.CompletedAt, err = f.optionalTime("completed_at"); err != nil {
		return Issue{}, err
	}
	if issue.Labels, err = f.stringList("labels"); err != nil {
		return Issue{}, err
	}
	if issue.Assignees, err = f.stringList("assignees"); err != nil {
		return Issue{}, err
	}
	issue.EstimatePoint = f.estimatePoint()

	return issue, nil
}

// ParseState converts a single state record of the Plane API
func ParseState(raw json.RawMessage) (State, error) {
	f, err := decodeFields(raw)
	if err != nil {
		return State{}, err
	}

	var state State
	if state.ID, err = f.requiredString("id"); err != nil {
		return State{}, err
	}
	if state.Name, err = f.requiredString("name"); err != nil {
		return State{}, err
	}
	if state.Sequence, err = f.requiredNumber("sequence"); err != nil {
		return State{}, err
	}
	group, err := f.requiredString("group")
	if err != nil {
		return State{}, err
	}
	state.Group = StateGroup(group)
	if state.Color, err = f.optionalString("color"); err != nil {
		return State{}, err
	}
	if f.present("default") {
		if err := json.Unmarshal(f["default"], &state.Default); err != nil {
			return State{}, fmt.Errorf("field %q: %w", "default", err)
		}
	}

	return state, nil
}

// ParseIssues parses an issue list response body
func ParseIssues(body []byte) (ParseResult[Issue], error) {
	records, err := listRecords(body, false)
	if err != nil {
		return ParseResult[Issue]{}, err
	}
	return parseAll(records, ParseIssue), nil
}

// ParseStates parses a state list response body. Only the "results" object
// and bare list shapes are accepted.
func ParseStates(body []byte) (ParseResult[State], error) {
	records, err := listRecords(body, true)
	if err != nil {
		return ParseResult[State]{}, err
	}
	return parseAll(records, ParseState), nil
}
