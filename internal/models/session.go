package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Language is a source language the backend can analyze.
type Language string

const (
	LanguagePython     Language = "python"
	LanguageJavaScript Language = "javascript"
	LanguageJava       Language = "java"
	LanguageC          Language = "c"
	LanguageCPP        Language = "cpp"
)

// Languages lists every supported language in display order.
var Languages = []Language{LanguageJavaScript, LanguagePython, LanguageJava, LanguageC, LanguageCPP}

// ParseLanguage resolves a case-insensitive language name.
func ParseLanguage(s string) (Language, error) {
	l := Language(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Languages {
		if l == known {
			return l, nil
		}
	}
	return "", fmt.Errorf("unsupported language %q (want one of python, javascript, java, c, cpp)", s)
}

// Depth is the requested thoroughness of an analysis.
type Depth string

const (
	DepthStandard Depth = "standard"
	DepthDeep     Depth = "deep"
)

// ParseDepth resolves a case-insensitive depth name.
func ParseDepth(s string) (Depth, error) {
	switch d := Depth(strings.ToLower(strings.TrimSpace(s))); d {
	case DepthStandard, DepthDeep:
		return d, nil
	}
	return "", fmt.Errorf("unsupported depth %q (want standard or deep)", s)
}

// SessionID identifies a session. Locally created sessions carry a UUID;
// the backend assigns integer IDs, which decode into the same type.
type SessionID string

// UnmarshalJSON accepts both JSON strings and JSON numbers.
func (id *SessionID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = SessionID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("session id: %w", err)
	}
	*id = SessionID(n.String())
	return nil
}

// Numeric reports whether the ID was assigned by the backend.
func (id SessionID) Numeric() bool {
	_, err := strconv.ParseInt(string(id), 10, 64)
	return err == nil
}

// Session is one completed review. Sessions are immutable once created.
type Session struct {
	ID         SessionID `json:"id"`
	Timestamp  time.Time `json:"ts"`
	Language   Language  `json:"language"`
	Snippet    string    `json:"snippet"`
	Issues     []Issue   `json:"issues"`
	AIFeedback string    `json:"ai_feedback,omitempty"`
}

// UnmarshalJSON accepts created_at as an alias for ts and tolerates the
// backend's timezone-less timestamps.
func (s *Session) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID         SessionID `json:"id"`
		TS         string    `json:"ts"`
		CreatedAt  string    `json:"created_at"`
		Language   Language  `json:"language"`
		Snippet    string    `json:"snippet"`
		Issues     []Issue   `json:"issues"`
		AIFeedback string    `json:"ai_feedback"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	ts := raw.TS
	if ts == "" {
		ts = raw.CreatedAt
	}
	var when time.Time
	if ts != "" {
		t, err := parseTimestamp(ts)
		if err != nil {
			return fmt.Errorf("session %s: %w", raw.ID, err)
		}
		when = t
	}

	*s = Session{
		ID:         raw.ID,
		Timestamp:  when,
		Language:   raw.Language,
		Snippet:    raw.Snippet,
		Issues:     raw.Issues,
		AIFeedback: raw.AIFeedback,
	}
	return nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// SessionData is the payload sent to the backend when creating a session.
type SessionData struct {
	Language   Language `json:"language"`
	Snippet    string   `json:"snippet"`
	Issues     []Issue  `json:"issues"`
	AIFeedback string   `json:"ai_feedback"`
}

// Data returns the backend creation payload for s.
func (s *Session) Data() SessionData {
	issues := s.Issues
	if issues == nil {
		issues = []Issue{}
	}
	return SessionData{
		Language:   s.Language,
		Snippet:    s.Snippet,
		Issues:     issues,
		AIFeedback: s.AIFeedback,
	}
}
