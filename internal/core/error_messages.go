// Package core error codes.
//
// # Error Codes Reference
//
// Errors shown to users carry a code they can quote when reporting a
// problem. Codes are grouped by category:
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: File exceeds the configured size limit
//	          Action: Open a smaller file or raise LOAD_MAX_FILE_SIZE
//	          Matches: ErrFileTooLarge, "file too large"
//
//	FILE006 - Not found: The file does not exist or cannot be opened
//	          Action: Check the path and its permissions
//	          Matches: ErrNotFound, "file not found"
//
//	FILE007 - Read error: The file could not be read to the end
//	          Action: Check the file is not being modified and try again
//	          Matches: KindStreamIO, "stream i/o"
//
//	FILE008 - Outside root: The path resolves outside the served directory
//	          Action: Use a path inside the served directory
//	          Matches: ErrOutsideRoot, "path outside root"
//
// # Encoding Errors (ENC001-ENC099)
//
//	ENC001 - Unknown encoding: The encoding label is not recognized
//	         Action: Pick a label from /api/encodings
//	         Matches: KindUnrecognizedEncoding, "unrecognized encoding"
//
// # Load Errors (LOAD001-LOAD099)
//
//	LOAD001 - Missing path: No path was given
//	          Action: Pass the file path to open
//	          Matches: "path is required"
//
//	LOAD002 - System busy: Too many files are being opened
//	          Action: Please wait a moment and try again
//	          Matches: ErrTooManyLoads, "too many concurrent loads"
//
//	LOAD003 - Request cancelled: Request was cancelled
//	          Matches: "context canceled"
//
//	LOAD004 - Request timeout: Request timed out
//	          Matches: "context deadline exceeded"
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Invalid parameter: A request parameter has the wrong form
//	         Matches: "must be true or false"
//
// # History Errors (DB001-DB099)
//
//	DB001 - History disabled: No database is configured
//	        Matches: ErrHistoryDisabled
//
//	DB004 - Connection refused: Unable to connect to database
//	        Matches: "connection refused"
//
//	DB006 - Timeout: Database operation timed out
//	        Matches: "timeout"
//
// # Rate Limiting (RATE001-RATE099)
//
//	RATE001 - Rate limited: Too many requests
//	          Matches: "rate limit"
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: An unexpected error occurred
//
// Typed errors are matched first with errors.Is and errors.As, so a path
// that happens to contain one of the patterns does not change the code.
// Patterns are then matched case-insensitively with strings.Contains; the
// first match wins.
package core

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

var (
	msgFileTooLarge = UserMessage{
		Message: "File exceeds the configured size limit",
		Action:  "Open a smaller file or raise the size limit",
		Code:    "FILE001",
	}
	msgNotFound = UserMessage{
		Message: "File not found",
		Action:  "Check the path and its permissions",
		Code:    "FILE006",
	}
	msgStreamIO = UserMessage{
		Message: "The file could not be read",
		Action:  "Check the file is not being modified and try again",
		Code:    "FILE007",
	}
	msgOutsideRoot = UserMessage{
		Message: "Path is outside the served directory",
		Action:  "Use a path inside the served directory",
		Code:    "FILE008",
	}
	msgUnknownEncoding = UserMessage{
		Message: "Encoding label is not recognized",
		Action:  "Pick one of the labels listed by /api/encodings",
		Code:    "ENC001",
	}
	msgTooManyLoads = UserMessage{
		Message: "System is busy opening other files",
		Action:  "Please wait a moment and try again",
		Code:    "LOAD002",
	}
	msgHistoryDisabled = UserMessage{
		Message: "History is not enabled",
		Action:  "Configure DATABASE_URL to record history",
		Code:    "DB001",
	}
)

// errorTarget maps a sentinel to a user message.
type errorTarget struct {
	target error
	msg    UserMessage
}

var errorTargets = []errorTarget{
	{ErrNotFound, msgNotFound},
	{ErrFileTooLarge, msgFileTooLarge},
	{ErrOutsideRoot, msgOutsideRoot},
	{ErrTooManyLoads, msgTooManyLoads},
	{ErrHistoryDisabled, msgHistoryDisabled},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error text (case-insensitive) to user
// messages. Order matters: specific patterns before general ones.
var errorPatterns = []errorPattern{
	// File
	{pattern: "file too large", msg: msgFileTooLarge},
	{pattern: "file not found", msg: msgNotFound},
	{pattern: "no such file or directory", msg: msgNotFound},
	{pattern: "stream i/o", msg: msgStreamIO},
	{pattern: "path outside root", msg: msgOutsideRoot},

	// Encoding
	{pattern: "unrecognized encoding", msg: msgUnknownEncoding},

	// Load
	{
		pattern: "path is required",
		msg: UserMessage{
			Message: "No path was given",
			Action:  "Pass the path of the file to open",
			Code:    "LOAD001",
		},
	},
	{pattern: "too many concurrent loads", msg: msgTooManyLoads},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "LOAD003",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or check your connection",
			Code:    "LOAD004",
		},
	},

	// Validation
	{
		pattern: "must be true or false",
		msg: UserMessage{
			Message: "Invalid request parameter",
			Action:  "Use true or false for boolean parameters",
			Code:    "VAL001",
		},
	},

	// History database
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Database operation timed out",
			Action:  "Please try again later",
			Code:    "DB006",
		},
	},

	// Rate limiting
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000). Support staff
// should check the application logs for the original error.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
//
// Example:
//
//	_, err := loader.Load(ctx, Request{Path: "missing.txt"})
//	msg := MapError(err)
//	// msg.Code == "FILE006"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var le *LoadError
	if errors.As(err, &le) {
		switch le.Kind {
		case KindUnrecognizedEncoding:
			return msgUnknownEncoding
		case KindStreamIO:
			return msgStreamIO
		}
	}
	for _, et := range errorTargets {
		if errors.Is(err, et.target) {
			return et.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display:
// "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the generic ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message. The
// original error is kept for logging.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
