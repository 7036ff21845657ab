package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strings"
)

// recordFields are the exact keys an unsynced record on the wire carries.
var recordFields = []string{"data", "id", "state", "type"}

// ValidateUnsyncedRecords checks a JSON array of unsynced records received by
// an exchange implementation and decodes it.
//
// Each entry must be an object with exactly the fields id, state, type and
// data; id must be a non-empty string, state one of updated or deleted, type
// one of allowedTypes and data a JSON object. The first violation is returned
// as an error wrapping ErrValidation.
func ValidateUnsyncedRecords(payload json.RawMessage, allowedTypes []string) ([]UnsyncedRecord, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(payload, &entries); err != nil {
		return nil, fmt.Errorf("%w: records must be an array: %w", ErrValidation, err)
	}
	if entries == nil && !bytes.Equal(bytes.TrimSpace(payload), []byte("[]")) {
		return nil, fmt.Errorf("%w: records must be an array", ErrValidation)
	}

	records := make([]UnsyncedRecord, 0, len(entries))
	for i, entry := range entries {
		rec, err := validateEntry(entry, allowedTypes)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %s", ErrValidation, i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func validateEntry(entry json.RawMessage, allowedTypes []string) (UnsyncedRecord, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(entry, &fields); err != nil || fields == nil {
		return UnsyncedRecord{}, fmt.Errorf("must be an object")
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if !slices.Equal(keys, recordFields) {
		return UnsyncedRecord{}, fmt.Errorf("fields must be exactly %s, got %s",
			strings.Join(recordFields, ", "), strings.Join(keys, ", "))
	}

	var rec UnsyncedRecord
	if err := json.Unmarshal(fields["id"], &rec.ID); err != nil {
		return UnsyncedRecord{}, fmt.Errorf("id must be a string")
	}
	if rec.ID == "" {
		return UnsyncedRecord{}, fmt.Errorf("id must not be empty")
	}

	var state string
	if err := json.Unmarshal(fields["state"], &state); err != nil {
		return UnsyncedRecord{}, fmt.Errorf("state must be a string")
	}
	rec.State = RecordState(state)
	if !rec.State.IsValid() {
		return UnsyncedRecord{}, fmt.Errorf("state %q must be %q or %q", state, StateUpdated, StateDeleted)
	}

	if err := json.Unmarshal(fields["type"], &rec.Type); err != nil {
		return UnsyncedRecord{}, fmt.Errorf("type must be a string")
	}
	if !slices.Contains(allowedTypes, rec.Type) {
		return UnsyncedRecord{}, fmt.Errorf("type %q is not allowed", rec.Type)
	}

	data := bytes.TrimSpace(fields["data"])
	if len(data) == 0 || data[0] != '{' {
		return UnsyncedRecord{}, fmt.Errorf("data must be an object")
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return UnsyncedRecord{}, fmt.Errorf("data must be an object")
	}
	rec.Data = json.RawMessage(data)

	return rec, nil
}
