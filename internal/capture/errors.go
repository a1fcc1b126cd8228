package capture

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyCapturing is returned when a capture is requested while
	// another is still in progress.
	ErrAlreadyCapturing = errors.New("capture already in progress")
	// ErrCancelled is returned to a pending capture released by teardown or
	// a fatal session error.
	ErrCancelled = errors.New("capture cancelled")
	// ErrCaptureTimeout is returned when the watchdog abandons a capture.
	ErrCaptureTimeout = errors.New("capture timed out waiting for focus or exposure")
)

// ErrorCode identifies a fatal camera or session failure.
type ErrorCode string

// Session error codes.
const (
	ErrCodeCameraInUse        ErrorCode = "CAMERA_IN_USE"
	ErrCodeMaxCamerasInUse    ErrorCode = "MAX_CAMERAS_IN_USE"
	ErrCodeCameraDisabled     ErrorCode = "CAMERA_DISABLED"
	ErrCodeCameraDevice       ErrorCode = "CAMERA_DEVICE"
	ErrCodeCameraService      ErrorCode = "CAMERA_SERVICE"
	ErrCodeCameraDisconnected ErrorCode = "CAMERA_DISCONNECTED"
	ErrCodeConfigureFailed    ErrorCode = "CONFIGURE_FAILED"
	ErrCodeSessionFailed      ErrorCode = "SESSION_FAILED"
)

var codeMessages = map[ErrorCode]string{
	ErrCodeCameraInUse:        "camera device is in use by another client",
	ErrCodeMaxCamerasInUse:    "too many camera devices are open",
	ErrCodeCameraDisabled:     "camera device is disabled by policy",
	ErrCodeCameraDevice:       "camera device encountered a fatal error",
	ErrCodeCameraService:      "camera service encountered a fatal error",
	ErrCodeCameraDisconnected: "camera device was disconnected",
	ErrCodeConfigureFailed:    "capture session could not be configured",
	ErrCodeSessionFailed:      "capture session has failed",
}

// Message returns a human readable description of the code.
func (c ErrorCode) Message() string {
	if m, ok := codeMessages[c]; ok {
		return m
	}
	return "unknown camera error"
}

// Known reports whether c is one of the defined session error codes.
func (c ErrorCode) Known() bool {
	_, ok := codeMessages[c]
	return ok
}

// CodeFromDeviceError maps a numeric device error as reported by the
// camera stack (1 through 5) to an ErrorCode. Unknown values map to
// ErrCodeCameraDevice.
func CodeFromDeviceError(n int) ErrorCode {
	switch n {
	case 1:
		return ErrCodeCameraInUse
	case 2:
		return ErrCodeMaxCamerasInUse
	case 3:
		return ErrCodeCameraDisabled
	case 5:
		return ErrCodeCameraService
	default:
		return ErrCodeCameraDevice
	}
}

// SessionError is a fatal failure of the camera or its capture session.
type SessionError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

// NewSessionError creates a session error. An empty message uses the
// code's default description.
func NewSessionError(code ErrorCode, message string, cause error) *SessionError {
	if message == "" {
		message = code.Message()
	}
	return &SessionError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func (e *SessionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *SessionError) Unwrap() error {
	return e.Cause
}

// HasCode reports whether err is a SessionError with the given code.
func HasCode(err error, code ErrorCode) bool {
	var se *SessionError
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}
