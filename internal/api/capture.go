package api

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/camseq/internal/api/models"
	"github.com/smazurov/camseq/internal/capture"
	"github.com/smazurov/camseq/internal/flash"
	"github.com/smazurov/camseq/internal/session"
)

// captureError maps controller errors to HTTP statuses.
func captureError(err error) error {
	var se *capture.SessionError
	switch {
	case errors.Is(err, capture.ErrAlreadyCapturing):
		return huma.Error409Conflict("Capture already in progress", err)
	case errors.Is(err, capture.ErrCaptureTimeout), errors.Is(err, context.DeadlineExceeded):
		return huma.Error504GatewayTimeout("Capture timed out", err)
	case errors.As(err, &se):
		return huma.Error503ServiceUnavailable("Camera session unavailable", err)
	case errors.Is(err, capture.ErrCancelled), errors.Is(err, session.ErrClosed):
		return huma.Error503ServiceUnavailable("Capture cancelled", err)
	default:
		return huma.Error500InternalServerError("Capture failed", err)
	}
}

func stateData(st session.Status) models.CaptureStateData {
	data := models.CaptureStateData{
		State:     string(st.State),
		Capturing: st.State.Capturing(),
		CaptureID: st.CaptureID,
		FlashMode: string(st.FlashMode),
		Autofocus: st.Autofocus,
		Attached:  st.Attached,
	}
	if st.Failure != nil {
		data.Failure = &models.SessionFailure{
			Code:    string(st.Failure.Code),
			Message: st.Failure.Error(),
		}
	}
	return data
}

func flashData(mode flash.Mode) models.FlashData {
	policy := flash.Resolve(mode)
	modes := make([]string, 0, len(flash.Modes()))
	for _, m := range flash.Modes() {
		modes = append(modes, string(m))
	}
	return models.FlashData{
		Mode:   string(mode),
		AEMode: string(policy.AE),
		Flash:  string(policy.Flash),
		Modes:  modes,
	}
}

func (s *Server) registerCaptureRoutes() {
	if s.options.Capture == nil {
		s.logger.Debug("No capture service, skipping capture routes")
		return
	}
	svc := s.options.Capture

	huma.Register(s.api, huma.Operation{
		OperationID: "capture-still",
		Method:      http.MethodPost,
		Path:        "/api/capture",
		Summary:     "Capture Still",
		Description: "Run one capture sequence (focus lock, precapture metering when needed, still capture) and save the image.",
		Tags:        []string{"capture"},
		Security:    withAuth(),
		Errors:      []int{401, 409, 500, 503, 504},
	}, func(ctx context.Context, input *models.CaptureRequest) (*models.CaptureResponse, error) {
		if s.options.CaptureTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.options.CaptureTimeout)
			defer cancel()
		}

		res, err := svc.Capture(ctx)
		if err != nil {
			return nil, captureError(err)
		}

		body := models.CaptureData{
			ID:          res.ID,
			Path:        res.Path,
			Size:        res.Size,
			Orientation: res.Orientation,
			FlashMode:   string(res.FlashMode),
			DurationMs:  res.Duration.Milliseconds(),
		}
		if input.IncludeImage && res.Still != nil {
			body.Image = base64.StdEncoding.EncodeToString(res.Still.Data)
		}
		return &models.CaptureResponse{Body: body}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-capture-state",
		Method:      http.MethodGet,
		Path:        "/api/capture/state",
		Summary:     "Capture State",
		Description: "Current sequencer state, flash mode and any recorded session failure",
		Tags:        []string{"capture"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(ctx context.Context, _ *struct{}) (*models.CaptureStateResponse, error) {
		return &models.CaptureStateResponse{Body: stateData(svc.Status())}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-flash",
		Method:      http.MethodGet,
		Path:        "/api/flash",
		Summary:     "Get Flash Mode",
		Description: "Current flash mode and the exposure policy it resolves to",
		Tags:        []string{"capture"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(ctx context.Context, _ *struct{}) (*models.FlashResponse, error) {
		return &models.FlashResponse{Body: flashData(svc.Status().FlashMode)}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "set-flash",
		Method:      http.MethodPut,
		Path:        "/api/flash",
		Summary:     "Set Flash Mode",
		Description: "Change the flash mode. While idle the preview is re-issued with the new policy; a capture in progress keeps its mode.",
		Tags:        []string{"capture"},
		Security:    withAuth(),
		Errors:      []int{400, 401, 503},
	}, func(ctx context.Context, input *models.FlashRequest) (*models.FlashResponse, error) {
		mode, err := flash.ParseMode(input.Body.Mode)
		if err != nil {
			return nil, huma.Error400BadRequest("Invalid flash mode", err)
		}
		if err := svc.SetFlashFrom(ctx, mode, "api"); err != nil {
			return nil, captureError(err)
		}
		return &models.FlashResponse{Body: flashData(mode)}, nil
	})

	if s.options.Rig == nil {
		return
	}
	rig := s.options.Rig

	huma.Register(s.api, huma.Operation{
		OperationID: "reopen-session",
		Method:      http.MethodPost,
		Path:        "/api/session/reopen",
		Summary:     "Reopen Session",
		Description: "Attach a fresh camera session and restart the preview, clearing a recorded failure",
		Tags:        []string{"session"},
		Security:    withAuth(),
		Errors:      []int{401, 503},
	}, func(ctx context.Context, _ *struct{}) (*models.CaptureStateResponse, error) {
		if err := rig.Reopen(ctx); err != nil {
			return nil, huma.Error503ServiceUnavailable("Failed to reopen session", err)
		}
		return &models.CaptureStateResponse{Body: stateData(svc.Status())}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "inject-fault",
		Method:      http.MethodPost,
		Path:        "/api/session/fault",
		Summary:     "Inject Session Fault",
		Description: "Report a device error through the simulated camera, as a hardware failure would",
		Tags:        []string{"session"},
		Security:    withAuth(),
		Errors:      []int{400, 401, 503},
	}, func(ctx context.Context, input *models.FaultRequest) (*struct{}, error) {
		code := capture.ErrorCode(input.Body.Code)
		if !code.Known() {
			return nil, huma.Error400BadRequest("Unknown error code " + input.Body.Code)
		}
		if err := rig.InjectFault(code); err != nil {
			return nil, huma.Error503ServiceUnavailable("No camera attached", err)
		}
		return &struct{}{}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-camera",
		Method:      http.MethodGet,
		Path:        "/api/camera",
		Summary:     "Camera",
		Description: "Selected camera characteristics and the sizes planned for its session",
		Tags:        []string{"session"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(ctx context.Context, _ *struct{}) (*models.CameraResponse, error) {
		plan := rig.Plan()
		body := models.CameraData{
			Camera:      rig.Camera(),
			Plan:        plan,
			Orientation: rig.Orientation(),
		}
		for _, w := range plan.Warnings {
			body.Warnings = append(body.Warnings, w.Error())
		}
		return &models.CameraResponse{Body: body}, nil
	})
}
