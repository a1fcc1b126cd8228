package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/camseq/internal/api/models"
)

// registerLEDRoutes exposes manual LED control. Manual settings last until
// the tally manager reacts to the next capture state change.
func (s *Server) registerLEDRoutes() {
	ctl := s.options.LEDController
	if ctl == nil {
		s.logger.Debug("No LED controller, skipping LED routes")
		return
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "set-led",
		Method:      http.MethodPost,
		Path:        "/api/leds",
		Summary:     "Set LED",
		Description: "Switch the LED with the given role and optionally change its pattern.",
		Tags:        []string{"leds"},
		Security:    withAuth(),
		Errors:      []int{400, 401, 422},
	}, func(ctx context.Context, input *models.LEDRequest) (*models.LEDResponse, error) {
		req := input.Body
		if err := ctl.Set(req.Role, req.Enabled, req.Pattern); err != nil {
			return nil, huma.Error400BadRequest("Cannot set LED "+req.Role, err)
		}
		return &models.LEDResponse{Body: models.LEDState{
			Role:    req.Role,
			Enabled: req.Enabled,
			Pattern: req.Pattern,
		}}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-led-capabilities",
		Method:      http.MethodGet,
		Path:        "/api/leds/capabilities",
		Summary:     "LED Capabilities",
		Description: "LED roles and patterns available on this board",
		Tags:        []string{"leds"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(ctx context.Context, _ *struct{}) (*models.LEDCapabilitiesResponse, error) {
		return &models.LEDCapabilitiesResponse{Body: models.LEDCapabilities{
			Roles:    ctl.Available(),
			Patterns: ctl.Patterns(),
		}}, nil
	})
}
