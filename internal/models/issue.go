package models

// IssueType is the category of a finding. The backend may send values beyond
// the known set, so it is treated as an open string.
type IssueType string

const (
	IssueTypeLogic    IssueType = "logic"
	IssueTypeSecurity IssueType = "security"
	IssueTypeStyle    IssueType = "style"
	IssueTypeSyntax   IssueType = "syntax"
	IssueTypeError    IssueType = "error"
	IssueTypeInfo     IssueType = "info"
	IssueTypeRuntime  IssueType = "runtime"
	IssueTypeSemgrep  IssueType = "semgrep"
)

// Known reports whether t is one of the issue types with a dedicated rendering.
func (t IssueType) Known() bool {
	switch t {
	case IssueTypeLogic, IssueTypeSecurity, IssueTypeStyle, IssueTypeSyntax,
		IssueTypeError, IssueTypeInfo, IssueTypeRuntime, IssueTypeSemgrep:
		return true
	}
	return false
}

// Severity is how serious a finding is. Empty means unspecified.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Issue is one finding within a session. It has no identity of its own.
type Issue struct {
	Type           IssueType `json:"type"`
	Severity       Severity  `json:"severity,omitempty"`
	Line           *int      `json:"line,omitempty"`
	Column         *int      `json:"column,omitempty"`
	Length         *int      `json:"length,omitempty"`
	Message        string    `json:"message"`
	Recommendation string    `json:"recommendation,omitempty"`
	Confidence     *float64  `json:"confidence,omitempty"`
}
