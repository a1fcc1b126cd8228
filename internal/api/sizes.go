package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/camseq/internal/api/models"
	"github.com/smazurov/camseq/internal/sizing"
)

func sizeResult(size sizing.Size, err error) (*models.SizeResponse, error) {
	body := models.SizeData{Size: size}
	switch {
	case err == nil:
	case errors.Is(err, sizing.ErrNoSuitableSize):
		body.Fallback = true
		body.Warning = err.Error()
	default:
		return nil, huma.Error422UnprocessableEntity("No size could be selected", err)
	}
	return &models.SizeResponse{Body: body}, nil
}

// registerSizeRoutes exposes the size selectors for checking a camera's
// size lists without opening it.
func (s *Server) registerSizeRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "choose-optimal-size",
		Method:      http.MethodPost,
		Path:        "/api/sizes/optimal",
		Summary:     "Choose Optimal Size",
		Description: "Smallest candidate with the reference aspect ratio that covers the minimum dimensions. Falls back to the reference size itself.",
		Tags:        []string{"sizes"},
		Security:    withAuth(),
		Errors:      []int{400, 401, 422},
	}, func(ctx context.Context, input *models.OptimalSizeRequest) (*models.SizeResponse, error) {
		choices, err := sizing.ParseSizes(input.Body.Choices)
		if err != nil {
			return nil, huma.Error400BadRequest("Invalid choices", err)
		}
		aspect, err := sizing.ParseSize(input.Body.Aspect)
		if err != nil {
			return nil, huma.Error400BadRequest("Invalid aspect", err)
		}
		return sizeResult(sizing.ChooseOptimal(choices, input.Body.MinWidth, input.Body.MinHeight, aspect))
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "choose-video-size",
		Method:      http.MethodPost,
		Path:        "/api/sizes/video",
		Summary:     "Choose Video Size",
		Description: "First candidate with a 4:3 aspect ratio no wider than max_width. Falls back to the last candidate.",
		Tags:        []string{"sizes"},
		Security:    withAuth(),
		Errors:      []int{400, 401, 422},
	}, func(ctx context.Context, input *models.VideoSizeRequest) (*models.SizeResponse, error) {
		choices, err := sizing.ParseSizes(input.Body.Choices)
		if err != nil {
			return nil, huma.Error400BadRequest("Invalid choices", err)
		}
		return sizeResult(sizing.ChooseVideo(choices, input.Body.MaxWidth))
	})
}
