// Package models holds the request and response bodies of the HTTP API.
package models

import (
	"github.com/smazurov/camseq/internal/device"
	"github.com/smazurov/camseq/internal/sizing"
)

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
	State   string `json:"state" example:"idle" doc:"Capture sequencer state"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"dev" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc123" doc:"Git commit hash"`
	BuildDate string `json:"build_date" example:"2025-01-27T10:30:00Z" doc:"Build timestamp"`
	BuildID   string `json:"build_id" example:"42" doc:"Build identifier"`
	GoVersion string `json:"go_version" example:"go1.24.11" doc:"Go compiler version"`
	Compiler  string `json:"compiler" example:"gc" doc:"Go compiler"`
	Platform  string `json:"platform" example:"linux/arm64" doc:"Target platform"`
}

type VersionResponse struct {
	Body VersionData
}

// Capture models
type CaptureRequest struct {
	IncludeImage bool `query:"include_image" doc:"Return the JPEG as base64 in the response"`
}

type CaptureData struct {
	ID          string      `json:"id" example:"6f1c2a9e-4b7d-4a8e-9c31-2f5d7e0b1a44" doc:"Capture identifier"`
	Path        string      `json:"path,omitempty" example:"photos/IMG_20250127_103000_6f1c2a9e.jpg" doc:"Where the still was saved"`
	Size        sizing.Size `json:"size" doc:"Still dimensions"`
	Orientation int         `json:"orientation" example:"90" doc:"JPEG orientation in degrees"`
	FlashMode   string      `json:"flash_mode" example:"auto" doc:"Flash mode used for the capture"`
	DurationMs  int64       `json:"duration_ms" example:"412" doc:"Time from request to saved image"`
	Image       string      `json:"image,omitempty" doc:"Base64 JPEG, when requested"`
}

type CaptureResponse struct {
	Body CaptureData
}

// Capture state models
type SessionFailure struct {
	Code    string `json:"code" example:"CAMERA_DISCONNECTED" doc:"Error code"`
	Message string `json:"message" example:"camera device was disconnected" doc:"Error message"`
}

type CaptureStateData struct {
	State     string          `json:"state" example:"idle" doc:"Sequencer state"`
	Capturing bool            `json:"capturing" example:"false" doc:"Whether a capture is in progress"`
	CaptureID string          `json:"capture_id,omitempty" doc:"Capture in progress, if any"`
	FlashMode string          `json:"flash_mode" example:"auto" doc:"Current flash mode"`
	Autofocus bool            `json:"autofocus" example:"true" doc:"Whether captures start with a focus lock"`
	Attached  bool            `json:"attached" example:"true" doc:"Whether a camera session is attached"`
	Failure   *SessionFailure `json:"failure,omitempty" doc:"Recorded session failure"`
}

type CaptureStateResponse struct {
	Body CaptureStateData
}

// Flash models
type FlashRequest struct {
	Body struct {
		Mode string `json:"mode" enum:"off,on,auto,torch" example:"auto" doc:"Flash mode"`
	}
}

type FlashData struct {
	Mode   string   `json:"mode" example:"auto" doc:"Current flash mode"`
	AEMode string   `json:"ae_mode" example:"on_auto_flash" doc:"Resolved auto-exposure mode"`
	Flash  string   `json:"flash" example:"single" doc:"Resolved flash actuation"`
	Modes  []string `json:"modes" doc:"Selectable flash modes"`
}

type FlashResponse struct {
	Body FlashData
}

// Session models
type FaultRequest struct {
	Body struct {
		Code string `json:"code" example:"CAMERA_DISCONNECTED" doc:"Session error code to inject"`
	}
}

// Size selection models
type OptimalSizeRequest struct {
	Body struct {
		Choices   []string `json:"choices" minItems:"1" doc:"Candidate sizes"`
		MinWidth  int      `json:"min_width" minimum:"0" example:"1920" doc:"Minimum width"`
		MinHeight int      `json:"min_height" minimum:"0" example:"1080" doc:"Minimum height"`
		Aspect    string   `json:"aspect" example:"4032x3024" doc:"Size whose aspect ratio must be matched exactly"`
	}
}

type VideoSizeRequest struct {
	Body struct {
		Choices  []string `json:"choices" minItems:"1" doc:"Candidate sizes in enumeration order"`
		MaxWidth int      `json:"max_width" minimum:"1" example:"1920" doc:"Maximum width"`
	}
}

type SizeData struct {
	Size     sizing.Size `json:"size" doc:"Selected size"`
	Fallback bool        `json:"fallback" example:"false" doc:"True when no candidate qualified and a fallback was returned"`
	Warning  string      `json:"warning,omitempty" doc:"Why the fallback was taken"`
}

type SizeResponse struct {
	Body SizeData
}

// Camera models
type CameraData struct {
	Camera      device.Characteristics `json:"camera" doc:"Selected camera"`
	Plan        sizing.Plan            `json:"plan" doc:"Sizes selected for the session"`
	Orientation int                    `json:"orientation" example:"90" doc:"JPEG orientation stamped on stills"`
	Warnings    []string               `json:"warnings,omitempty" doc:"Size fallbacks taken while planning"`
}

type CameraResponse struct {
	Body CameraData
}

// Logging models
type LogLevelsData struct {
	Levels map[string]string `json:"levels" doc:"Effective level per module"`
}

type LogLevelsResponse struct {
	Body LogLevelsData
}

type LogLevelRequest struct {
	Module string `path:"module" example:"session" doc:"Logger module"`
	Body   struct {
		Level string `json:"level" enum:"debug,info,warn,error" example:"debug" doc:"New level"`
	}
}

// LED models
type LEDRequest struct {
	Body struct {
		Role    string `json:"role" example:"tally" doc:"LED role (tally, or flash when the board has one)"`
		Enabled bool   `json:"enabled" example:"true" doc:"Switch the LED on or off"`
		Pattern string `json:"pattern,omitempty" enum:"solid,blink,heartbeat" example:"solid" doc:"Pattern to run; omitted keeps the current one"`
	}
}

type LEDState struct {
	Role    string `json:"role" example:"tally" doc:"LED role"`
	Enabled bool   `json:"enabled" example:"true" doc:"Requested state"`
	Pattern string `json:"pattern,omitempty" example:"solid" doc:"Requested pattern"`
}

type LEDResponse struct {
	Body LEDState
}

type LEDCapabilities struct {
	Roles    []string `json:"roles" doc:"LED roles available on this board"`
	Patterns []string `json:"patterns" doc:"Supported LED patterns"`
}

type LEDCapabilitiesResponse struct {
	Body LEDCapabilities
}
