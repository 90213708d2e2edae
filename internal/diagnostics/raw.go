// Package diagnostics turns the build tool's raw error and warning objects
// into uniform records and groups them into report tree items.
package diagnostics

// Unknown is substituted for any field no raw shape could supply.
const Unknown = "unknown"

// RawError is one error or warning object as emitted by the build tool. The
// tool uses several incompatible layouts; which fields are set tells them
// apart (see Shapes).
type RawError struct {
	// Type-checker layout.
	File       string           `json:"file,omitempty"`
	RawMessage string           `json:"rawMessage,omitempty"`
	Location   *CheckerLocation `json:"location,omitempty"`

	// Module build error layout.
	Error *ModuleBuildError `json:"error,omitempty"`

	// Module resource layout.
	Message string     `json:"message,omitempty"`
	Module  *ModuleRef `json:"module,omitempty"`
}

// CheckerLocation is a 1-based position reported by type checkers.
type CheckerLocation struct {
	Line      *int `json:"line,omitempty"`
	Character *int `json:"character,omitempty"`
}

// ModuleBuildError is the nested error of a failed module build.
type ModuleBuildError struct {
	Message string     `json:"message,omitempty"`
	Loc     *SourceLoc `json:"loc,omitempty"`
}

// SourceLoc is a 1-based line/column position.
type SourceLoc struct {
	Line   *int `json:"line,omitempty"`
	Column *int `json:"column,omitempty"`
}

// ModuleRef identifies the module a raw error belongs to.
type ModuleRef struct {
	Resource string `json:"resource,omitempty"`
}
