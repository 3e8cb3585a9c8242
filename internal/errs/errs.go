// Package errs implements the stable numeric error taxonomy: codes
// grouped by decade (general, database, bluetooth, crypto, settings,
// file transfer), each mapping deterministically to a fixed, non-
// sensitive user-facing message alongside the wrapped cause.
package errs

import "fmt"

// Code is a stable numeric error code. Codes are grouped by decade;
// the decade identifies the domain, the offset within it identifies
// the specific failure.
type Code int

const (
	// General (1000s) — the escape hatch for failures with no more
	// specific domain.
	CodeGeneral         Code = 1000
	CodeInvalidArgument Code = 1001
	CodeNotFound        Code = 1002
	CodeUnavailable     Code = 1003

	// Database (2000s) — persistence failures.
	CodeConnectionFailed Code = 2000
	CodeQueryFailed      Code = 2001
	CodeMigrationFailed  Code = 2002
	CodeIntegrityError   Code = 2003
	CodeIO               Code = 2004

	// Bluetooth (3000s) — transport/discovery failures.
	CodeDiscoveryFailed  Code = 3000
	CodeConnectFailed    Code = 3001
	CodeTransportClosed  Code = 3002
	CodeTransportTimeout Code = 3003

	// Crypto (4000s) — cryptographic misuse or failure.
	CodeKeyLength        Code = 4000
	CodeNonceSize        Code = 4001
	CodeDecryptionFailed Code = 4002
	CodeEncryptionFailed Code = 4003
	CodeReplayRejected   Code = 4004

	// Settings (5000s) — settings blob load/save failures.
	CodeSettingsLoadFailed Code = 5000
	CodeSettingsSaveFailed Code = 5001
	CodeSettingsCorrupt    Code = 5002

	// File transfer (6000s).
	CodeTransferFailed    Code = 6000
	CodeTransferCancelled Code = 6001
	CodeChecksumMismatch  Code = 6002
)

// userMessages maps each code to a fixed, non-sensitive English string
// safe to surface to an end user. Codes without an entry fall back to
// a generic message in UserMessage.
var userMessages = map[Code]string{
	CodeGeneral:            "Something went wrong.",
	CodeInvalidArgument:    "That request was not valid.",
	CodeNotFound:           "The requested item was not found.",
	CodeUnavailable:        "This feature is currently unavailable.",
	CodeConnectionFailed:   "Could not connect to local storage.",
	CodeQueryFailed:        "A storage operation failed.",
	CodeMigrationFailed:    "Local storage could not be prepared.",
	CodeIntegrityError:     "Local storage reported a consistency error.",
	CodeIO:                 "A storage I/O error occurred.",
	CodeDiscoveryFailed:    "Could not search for nearby devices.",
	CodeConnectFailed:      "Could not connect to that device.",
	CodeTransportClosed:    "The connection to that device was lost.",
	CodeTransportTimeout:   "The connection to that device timed out.",
	CodeKeyLength:          "A cryptographic key was the wrong length.",
	CodeNonceSize:          "A cryptographic nonce was the wrong length.",
	CodeDecryptionFailed:   "A message could not be decrypted.",
	CodeEncryptionFailed:   "A message could not be encrypted.",
	CodeReplayRejected:     "A duplicate or out-of-order message was rejected.",
	CodeSettingsLoadFailed: "Saved settings could not be loaded; defaults were used.",
	CodeSettingsSaveFailed: "Settings could not be saved.",
	CodeSettingsCorrupt:    "Saved settings were corrupted; defaults were used.",
	CodeTransferFailed:     "The file transfer failed.",
	CodeTransferCancelled:  "The file transfer was cancelled.",
	CodeChecksumMismatch:   "The received file failed its integrity check.",
}

// Error is the top-level error type. Every error the core returns
// across a public boundary is an *Error, carrying a stable numeric
// code, a fixed user-safe message, and the wrapped underlying cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

// New constructs an Error for code, looking up its fixed user message
// and wrapping cause (which may be nil).
func New(code Code, cause error) *Error {
	msg, ok := userMessages[code]
	if !ok {
		msg = userMessages[CodeGeneral]
	}
	return &Error{Code: code, Message: msg, cause: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.cause
}

// UserMessage returns the fixed, non-sensitive message safe to show an
// end user, irrespective of the wrapped cause's content.
func (e *Error) UserMessage() string {
	return e.Message
}

// General wraps cause as a general-domain (1000s) error.
func General(cause error) *Error { return New(CodeGeneral, cause) }

// Database wraps cause as a database-domain (2000s) error.
func Database(code Code, cause error) *Error { return New(code, cause) }

// Bluetooth wraps cause as a bluetooth-domain (3000s) error.
func Bluetooth(code Code, cause error) *Error { return New(code, cause) }

// Crypto wraps cause as a crypto-domain (4000s) error.
func Crypto(code Code, cause error) *Error { return New(code, cause) }

// Settings wraps cause as a settings-domain (5000s) error.
func Settings(code Code, cause error) *Error { return New(code, cause) }

// Transfer wraps cause as a file-transfer-domain (6000s) error.
func Transfer(code Code, cause error) *Error { return New(code, cause) }
