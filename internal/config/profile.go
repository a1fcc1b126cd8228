package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/smazurov/camseq/internal/device"
	"github.com/smazurov/camseq/internal/flash"
	"github.com/smazurov/camseq/internal/sizing"
)

// Duration is a time.Duration written as a string ("5s", "33ms") in TOML.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Profile describes the camera rig: which lens to use, how the display is
// oriented, the advertised sizes, capture policy and simulator timing.
type Profile struct {
	Facing          string          `toml:"facing"`
	DisplayRotation int             `toml:"display_rotation"`
	Display         string          `toml:"display"`
	SessionType     string          `toml:"session_type"`
	Capture         CaptureSettings `toml:"capture"`
	Sim             SimSettings     `toml:"sim"`
	Cameras         []CameraProfile `toml:"cameras"`
}

// CaptureSettings are the hot-reloadable capture policy settings.
type CaptureSettings struct {
	Flash           string   `toml:"flash"`
	MaxObservations int      `toml:"max_observations"`
	Timeout         Duration `toml:"timeout"`
	SaveDir         string   `toml:"save_dir"`
}

// SimSettings tune the simulated camera.
type SimSettings struct {
	FrameInterval    Duration `toml:"frame_interval"`
	StillLatency     Duration `toml:"still_latency"`
	FocusFrames      int      `toml:"focus_frames"`
	PrecaptureFrames int      `toml:"precapture_frames"`
	LowLight         bool     `toml:"low_light"`
	JPEGQuality      int      `toml:"jpeg_quality"`
}

// CameraProfile is one camera's characteristics in TOML form.
type CameraProfile struct {
	ID                string   `toml:"id"`
	Facing            string   `toml:"facing"`
	AFModes           []int    `toml:"af_modes"`
	SensorOrientation int      `toml:"sensor_orientation"`
	JPEGSizes         []string `toml:"jpeg_sizes"`
	PreviewSizes      []string `toml:"preview_sizes"`
	VideoSizes        []string `toml:"video_sizes"`
}

// DefaultProfile is a 4:3 back camera with continuous autofocus and a
// fixed-focus front camera, held in landscape on a 2340x1080 display.
func DefaultProfile() *Profile {
	return &Profile{
		Facing:          "back",
		DisplayRotation: 90,
		Display:         "2340x1080",
		SessionType:     "picture",
		Capture: CaptureSettings{
			Flash:           "auto",
			MaxObservations: 300,
			Timeout:         Duration(10 * time.Second),
			SaveDir:         "photos",
		},
		Sim: SimSettings{
			FrameInterval:    Duration(33 * time.Millisecond),
			StillLatency:     Duration(120 * time.Millisecond),
			FocusFrames:      4,
			PrecaptureFrames: 3,
			JPEGQuality:      85,
		},
		Cameras: []CameraProfile{
			{
				ID:                "0",
				Facing:            "back",
				AFModes:           []int{0, 1, 2, 3, 4},
				SensorOrientation: 90,
				JPEGSizes:         []string{"4032x3024", "4000x3000", "3264x2448", "1920x1080", "1280x960", "640x480"},
				PreviewSizes:      []string{"1920x1440", "1920x1080", "1440x1080", "1280x960", "1280x720", "640x480"},
				VideoSizes:        []string{"3840x2160", "1920x1080", "1440x1080", "1280x720", "640x480"},
			},
			{
				ID:                "1",
				Facing:            "front",
				AFModes:           []int{0},
				SensorOrientation: 270,
				JPEGSizes:         []string{"3264x2448", "1920x1080", "640x480"},
				PreviewSizes:      []string{"1920x1080", "1280x960", "640x480"},
				VideoSizes:        []string{"1920x1080", "1280x960", "640x480"},
			},
		},
	}
}

// LoadProfile reads a profile on top of DefaultProfile and validates it.
// Keys missing from the file keep their defaults.
func LoadProfile(path string) (*Profile, error) {
	p := DefaultProfile()
	if path == "" {
		return p, p.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	defaults := p.Cameras
	p.Cameras = nil
	if err := toml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parse profile %s: %w", path, err)
	}
	if len(p.Cameras) == 0 {
		p.Cameras = defaults
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("profile %s: %w", path, err)
	}
	return p, nil
}

// Validate checks every enumerated field and size list.
func (p *Profile) Validate() error {
	var errs []error
	if _, err := device.ParseFacing(p.Facing); err != nil {
		errs = append(errs, err)
	}
	if _, err := flash.ParseMode(p.Capture.Flash); err != nil {
		errs = append(errs, fmt.Errorf("capture.flash: %w", err))
	}
	if _, err := sizing.ParseSessionType(p.SessionType); err != nil {
		errs = append(errs, err)
	}
	if _, err := sizing.ParseSize(p.Display); err != nil {
		errs = append(errs, fmt.Errorf("display: %w", err))
	}
	if _, err := device.JPEGOrientation(p.DisplayRotation, 0); err != nil {
		errs = append(errs, fmt.Errorf("display_rotation: %w", err))
	}
	if p.Capture.MaxObservations < 0 {
		errs = append(errs, errors.New("capture.max_observations must not be negative"))
	}
	if p.Capture.Timeout < 0 {
		errs = append(errs, errors.New("capture.timeout must not be negative"))
	}
	if len(p.Cameras) == 0 {
		errs = append(errs, errors.New("no cameras defined"))
	}
	if _, err := p.Characteristics(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// FlashMode returns the configured flash mode (off when invalid).
func (p *Profile) FlashMode() flash.Mode {
	mode, err := flash.ParseMode(p.Capture.Flash)
	if err != nil {
		return flash.ModeOff
	}
	return mode
}

// Characteristics converts every camera entry.
func (p *Profile) Characteristics() ([]device.Characteristics, error) {
	out := make([]device.Characteristics, 0, len(p.Cameras))
	for i, cam := range p.Cameras {
		facing, err := device.ParseFacing(cam.Facing)
		if err != nil {
			return nil, fmt.Errorf("cameras[%d]: %w", i, err)
		}
		if _, err := device.JPEGOrientation(0, cam.SensorOrientation); err != nil {
			return nil, fmt.Errorf("cameras[%d].sensor_orientation: %w", i, err)
		}
		jpegSizes, err := sizing.ParseSizes(cam.JPEGSizes)
		if err != nil {
			return nil, fmt.Errorf("cameras[%d].jpeg_sizes: %w", i, err)
		}
		previewSizes, err := sizing.ParseSizes(cam.PreviewSizes)
		if err != nil {
			return nil, fmt.Errorf("cameras[%d].preview_sizes: %w", i, err)
		}
		videoSizes, err := sizing.ParseSizes(cam.VideoSizes)
		if err != nil {
			return nil, fmt.Errorf("cameras[%d].video_sizes: %w", i, err)
		}

		id := cam.ID
		if id == "" {
			id = fmt.Sprintf("%d", i)
		}
		out = append(out, device.Characteristics{
			ID:                id,
			Facing:            facing,
			AFModes:           append([]int(nil), cam.AFModes...),
			SensorOrientation: cam.SensorOrientation,
			JPEGSizes:         jpegSizes,
			PreviewSizes:      previewSizes,
			VideoSizes:        videoSizes,
		})
	}
	return out, nil
}

// Provider returns the profile's cameras as a device.Provider.
func (p *Profile) Provider() (device.StaticProvider, error) {
	cams, err := p.Characteristics()
	if err != nil {
		return nil, err
	}
	return device.StaticProvider(cams), nil
}

// PlanInput builds the size-selection input for cam.
func (p *Profile) PlanInput(cam device.Characteristics) (sizing.PlanInput, error) {
	display, err := sizing.ParseSize(p.Display)
	if err != nil {
		return sizing.PlanInput{}, fmt.Errorf("display: %w", err)
	}
	sessionType, err := sizing.ParseSessionType(p.SessionType)
	if err != nil {
		return sizing.PlanInput{}, err
	}
	return sizing.PlanInput{
		Display:        display,
		SwapDimensions: device.SwapDimensions(p.DisplayRotation, cam.SensorOrientation),
		SessionType:    sessionType,
		JPEGSizes:      cam.JPEGSizes,
		PreviewSizes:   cam.PreviewSizes,
		VideoSizes:     cam.VideoSizes,
	}, nil
}
