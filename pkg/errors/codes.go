package errors

import (
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
// Codes follow the "<MODULE>_<NNN>" convention.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal        ErrorCode = "COMMON_001"
	ErrCodeBadRequest      ErrorCode = "COMMON_002"
	ErrCodeNotFound        ErrorCode = "COMMON_005"
	ErrCodeTimeout         ErrorCode = "COMMON_009"
	ErrCodeValidation      ErrorCode = "COMMON_010"
	ErrCodeSerialization   ErrorCode = "COMMON_011"
	ErrCodeCacheError      ErrorCode = "COMMON_013"
	ErrCodeExternalService ErrorCode = "COMMON_014"
	ErrCodeNotImplemented  ErrorCode = "COMMON_016"
)

// Aliases kept for call sites that read better with the short names.
const (
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeNotFound     = ErrCodeNotFound
	CodeOK           = ErrorCode("OK")
	CodeUnknown      = ErrorCode("")
)

// Input Error Codes
const (
	ErrCodeNoInputFiles      ErrorCode = "IO_001"
	ErrCodeMissingInputKind  ErrorCode = "IO_002"
	ErrCodeStructureParse    ErrorCode = "IO_003"
	ErrCodeSequenceParse     ErrorCode = "IO_004"
	ErrCodeOutputWriteFailed ErrorCode = "IO_005"
	ErrCodeTooManyChains     ErrorCode = "IO_006"
)

// Clustering Error Codes
const (
	ErrCodeIdentityThresholdInvalid ErrorCode = "CLU_001"
	ErrCodeEmptySequence            ErrorCode = "CLU_002"
	ErrCodeAlignmentFailed          ErrorCode = "CLU_003"
)

// Assembly Error Codes
const (
	ErrCodeInputMismatch              ErrorCode = "ASM_001"
	ErrCodeDegenerateFit              ErrorCode = "ASM_002"
	ErrCodeAssemblyImpossible         ErrorCode = "ASM_003"
	ErrCodeStoichiometryUnsatisfiable ErrorCode = "ASM_004"
	ErrCodeSearchLimitExceeded        ErrorCode = "ASM_005"
	ErrCodeStoichiometryInvalid       ErrorCode = "ASM_006"
	ErrCodeUnknownClusterLabel        ErrorCode = "ASM_007"
)

// Storage Error Codes
const (
	ErrCodeStorageUnavailable ErrorCode = "STO_001"
	ErrCodeUploadFailed       ErrorCode = "STO_002"
)

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:        "internal error",
	ErrCodeBadRequest:      "bad request",
	ErrCodeNotFound:        "resource not found",
	ErrCodeTimeout:         "operation timed out",
	ErrCodeValidation:      "validation failed",
	ErrCodeSerialization:   "serialization failed",
	ErrCodeCacheError:      "cache error",
	ErrCodeExternalService: "external service error",
	ErrCodeNotImplemented:  "not implemented",

	ErrCodeNoInputFiles:      "no fasta or pdb files were found",
	ErrCodeMissingInputKind:  "fasta or pdb file is missing",
	ErrCodeStructureParse:    "failed to parse structure file",
	ErrCodeSequenceParse:     "failed to parse sequence file",
	ErrCodeOutputWriteFailed: "failed to write output model",
	ErrCodeTooManyChains:     "model has more chains than the output format supports",

	ErrCodeIdentityThresholdInvalid: "invalid sequence identity threshold",
	ErrCodeEmptySequence:            "chain has an empty sequence",
	ErrCodeAlignmentFailed:          "sequence alignment failed",

	ErrCodeInputMismatch:              "atom sets differ in length",
	ErrCodeDegenerateFit:              "superposition needs at least three atom pairs",
	ErrCodeAssemblyImpossible:         "no usable seed template",
	ErrCodeStoichiometryUnsatisfiable: "stoichiometry target could not be reached",
	ErrCodeSearchLimitExceeded:        "search limit reached before completion",
	ErrCodeStoichiometryInvalid:       "invalid stoichiometry notation",
	ErrCodeUnknownClusterLabel:        "stoichiometry references an unknown cluster",

	ErrCodeStorageUnavailable: "object storage unavailable",
	ErrCodeUploadFailed:       "model upload failed",
}

// Exit statuses used by the command line front end.
const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitUsage    = 2
	ExitInput    = 3
	ExitAssembly = 4
	ExitWarning  = 5
)

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 1 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}

// IsWarningCode reports whether code describes a non-fatal assembly outcome
// that still carries a usable (partial) model.
func IsWarningCode(code ErrorCode) bool {
	return code == ErrCodeStoichiometryUnsatisfiable || code == ErrCodeSearchLimitExceeded
}

// ExitCodeForCode maps an ErrorCode to the process exit status.
func ExitCodeForCode(code ErrorCode) int {
	if code == CodeOK {
		return ExitOK
	}
	if IsWarningCode(code) {
		return ExitWarning
	}
	switch ModuleForCode(code) {
	case "IO":
		return ExitInput
	case "ASM", "CLU":
		if code == ErrCodeStoichiometryInvalid || code == ErrCodeIdentityThresholdInvalid {
			return ExitUsage
		}
		return ExitAssembly
	}
	switch code {
	case ErrCodeBadRequest, ErrCodeValidation:
		return ExitUsage
	}
	return ExitFailure
}
