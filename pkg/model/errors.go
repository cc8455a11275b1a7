package model

import "fmt"

// Error code constants.
const (
	ErrCodeUnsupportedCategory    = "UNSUPPORTED_CATEGORY"
	ErrCodeUnclassifiableArtifact = "UNCLASSIFIABLE_ARTIFACT"
	ErrCodeMalformedArtifact      = "MALFORMED_ARTIFACT"
)

// Sentinels for errors.Is; they match any ScanError carrying the same code.
var (
	ErrUnsupportedCategory    = &ScanError{Code: ErrCodeUnsupportedCategory}
	ErrUnclassifiableArtifact = &ScanError{Code: ErrCodeUnclassifiableArtifact}
	ErrMalformedArtifact      = &ScanError{Code: ErrCodeMalformedArtifact}
)

// ScanError is a fatal classification or parse failure.
type ScanError struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Artifact string `json:"artifact,omitempty"`
	Err      error  `json:"-"`
}

func (e *ScanError) Error() string {
	if e.Artifact != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Artifact, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ScanError) Unwrap() error { return e.Err }

// Is matches on the error code so callers can compare against the sentinels.
func (e *ScanError) Is(target error) bool {
	t, ok := target.(*ScanError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewScanError creates a new ScanError.
func NewScanError(code, message string) *ScanError {
	return &ScanError{Code: code, Message: message}
}

// Malformed wraps a parse failure as MALFORMED_ARTIFACT.
func Malformed(err error, format string, args ...interface{}) *ScanError {
	return &ScanError{
		Code:    ErrCodeMalformedArtifact,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// WithArtifact returns a copy of the error tagged with the artifact name.
func (e *ScanError) WithArtifact(name string) *ScanError {
	cp := *e
	cp.Artifact = name
	return &cp
}
