package profile

import (
	"encoding/json"
	"time"
)

// PatternContext is the structured context record attached to a
// pattern: which session the evidence came from and the excerpt that
// triggered detection.
type PatternContext struct {
	SessionID string            `json:"session_id"`
	Title     string            `json:"title"`
	Summary   string            `json:"summary,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Excerpt   string            `json:"excerpt,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Sentinel values for context fields with no known source.
const (
	UnknownSession      = "unknown"
	UnknownSessionTitle = "unknown session"
)

// ContextValue is the polymorphic context field on Pattern. Stored
// data historically holds either a plain list of excerpt strings or a
// structured record; both shapes must parse. The structured form is
// canonical: legacy excerpt lists are upgraded on read and the legacy
// shape is never written again.
type ContextValue struct {
	// Record is the canonical structured context. Non-nil after a
	// successful unmarshal of either shape.
	Record *PatternContext

	// Excerpts holds the raw evidence strings. For legacy data this
	// is the whole value; for structured data it mirrors Record.Excerpt.
	Excerpts []string
}

// NewContext wraps a structured record.
func NewContext(record PatternContext) ContextValue {
	v := ContextValue{Record: &record}
	if record.Excerpt != "" {
		v.Excerpts = []string{record.Excerpt}
	}
	return v
}

// NewLegacyContext wraps plain excerpt strings, upgrading them to the
// structured form immediately.
func NewLegacyContext(excerpts []string) ContextValue {
	v := ContextValue{Excerpts: excerpts}
	v.upgrade()
	return v
}

// upgrade builds a structured record from legacy excerpts.
func (v *ContextValue) upgrade() {
	if v.Record != nil {
		return
	}
	record := &PatternContext{
		SessionID: UnknownSession,
		Title:     UnknownSessionTitle,
		Timestamp: time.Now().UTC(),
	}
	if len(v.Excerpts) > 0 {
		record.Excerpt = v.Excerpts[0]
	}
	v.Record = record
}

// IsZero reports whether the value carries no context at all.
func (v ContextValue) IsZero() bool {
	return v.Record == nil && len(v.Excerpts) == 0
}

// UnmarshalJSON accepts both the legacy array-of-strings shape and the
// structured record shape.
func (v *ContextValue) UnmarshalJSON(data []byte) error {
	var excerpts []string
	if err := json.Unmarshal(data, &excerpts); err == nil {
		*v = NewLegacyContext(excerpts)
		return nil
	}

	var record PatternContext
	if err := json.Unmarshal(data, &record); err != nil {
		return err
	}
	*v = NewContext(record)
	return nil
}

// MarshalJSON always writes the canonical structured form.
func (v ContextValue) MarshalJSON() ([]byte, error) {
	v.upgrade()
	return json.Marshal(v.Record)
}
