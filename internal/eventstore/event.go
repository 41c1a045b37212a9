package eventstore

import (
	"encoding/json"
	"time"
)

// Event types appended to the ledger.
const (
	TypeBuildStarted    = "build_started"
	TypeTaskFinished    = "task_finished"
	TypeArtifactWritten = "artifact_written"
	TypeDocsGenerated   = "docs_generated"
	TypeBuildFinished   = "build_finished"
)

// Event is one ledger row. Seq is assigned by the store and orders events
// of the same millisecond.
type Event struct {
	Seq      int64
	BuildID  string
	Type     string
	At       time.Time
	Payload  json.RawMessage
	Metadata map[string]string
}

// Decode unmarshals the payload into v.
func (e Event) Decode(v any) error {
	return json.Unmarshal(e.Payload, v)
}
