package domain

import "encoding/json"

// UnsyncedMarker is the persisted value of the unsynced marker.
// Records that are synced store no marker at all, so the marker can back an
// equality index that only contains pending records.
const UnsyncedMarker = "true"

// RecordState is the wire-level state of a record exchanged with the server.
type RecordState string

// Record states.
const (
	// StateUpdated means the record exists with the given data.
	StateUpdated RecordState = "updated"

	// StateDeleted means the record has been deleted.
	StateDeleted RecordState = "deleted"
)

// IsValid returns true if the state is recognised.
func (s RecordState) IsValid() bool {
	return s == StateUpdated || s == StateDeleted
}

// String returns the string representation.
func (s RecordState) String() string {
	return string(s)
}

// Record is the durable unit of storage.
type Record struct {
	// ID is the client-generated primary key.
	ID string

	// Type is one of the store-defined record types.
	// It never changes across overwrites of the same ID.
	Type string

	// Data is the JSON application payload.
	Data json.RawMessage

	// Deleted marks a soft-deleted record. The row still exists.
	Deleted bool

	// Unsynced is true while the record carries a local write that the
	// server has not confirmed yet.
	Unsynced bool
}

// Tombstone returns the soft-delete record written for id.
func Tombstone(id, recordType string) Record {
	return Record{
		ID:       id,
		Type:     recordType,
		Data:     json.RawMessage(`{}`),
		Deleted:  true,
		Unsynced: true,
	}
}

// ToUnsynced converts the record into its push representation.
func (r Record) ToUnsynced() UnsyncedRecord {
	state := StateUpdated
	if r.Deleted {
		state = StateDeleted
	}
	data := r.Data
	if len(data) == 0 {
		data = json.RawMessage(`{}`)
	}
	return UnsyncedRecord{
		ID:    r.ID,
		Type:  r.Type,
		State: state,
		Data:  data,
	}
}

// UnsyncedRecord is a local write sent to the remote exchange.
type UnsyncedRecord struct {
	ID    string          `json:"id"`
	Type  string          `json:"type"`
	State RecordState     `json:"state"`
	Data  json.RawMessage `json:"data"`
}

// SyncedRecord is the server's authoritative state for one record.
type SyncedRecord struct {
	ID    string          `json:"id"`
	Type  string          `json:"type"`
	State RecordState     `json:"state"`
	Data  json.RawMessage `json:"data"`
}

// ToRecord converts an updated server record into a synced local record.
func (r SyncedRecord) ToRecord() Record {
	data := r.Data
	if len(data) == 0 {
		data = json.RawMessage(`null`)
	}
	return Record{
		ID:   r.ID,
		Type: r.Type,
		Data: data,
	}
}

// ExchangeResult is the response of one push-pull exchange.
type ExchangeResult struct {
	// Records is the authoritative state the client must apply.
	Records []SyncedRecord `json:"records"`

	// SyncCursor bounds what the client has received.
	// Empty means the server returned no cursor.
	SyncCursor string `json:"syncCursor,omitempty"`
}

// Partition splits the result into records to write and ids to purge.
// Entries with any other state are returned in unknown and must not be applied.
func (r ExchangeResult) Partition() (updated []Record, deleted []string, unknown []SyncedRecord) {
	for _, rec := range r.Records {
		switch rec.State {
		case StateUpdated:
			updated = append(updated, rec.ToRecord())
		case StateDeleted:
			deleted = append(deleted, rec.ID)
		default:
			unknown = append(unknown, rec)
		}
	}
	return updated, deleted, unknown
}

// ExchangeRequest is the HTTP body of one push-pull exchange.
type ExchangeRequest struct {
	Records    []UnsyncedRecord `json:"records"`
	Namespace  string           `json:"namespace"`
	SyncCursor string           `json:"syncCursor,omitempty"`
}
