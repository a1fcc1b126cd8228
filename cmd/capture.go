package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/smazurov/camseq/internal/app"
	"github.com/smazurov/camseq/internal/flash"
	"github.com/smazurov/camseq/internal/logging"
)

// CreateCaptureCmd creates the capture command. profile returns the
// profile path resolved from flags, environment and config file.
func CreateCaptureCmd(profile func() string) *cobra.Command {
	var count int
	var interval time.Duration
	var flashMode string
	var facing string
	var outDir string
	var lowLight bool

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Capture stills without starting the server",
		Long: `Opens the profile's camera, runs the capture sequence the given number of times ` +
			`and prints where each still was saved.`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			p, err := loadProfile(profile())
			if err != nil {
				return err
			}
			if flashMode != "" {
				mode, err := flash.ParseMode(flashMode)
				if err != nil {
					return err
				}
				p.Capture.Flash = string(mode)
			}
			if facing != "" {
				p.Facing = facing
			}
			if outDir != "" {
				p.Capture.SaveDir = outDir
			}
			if lowLight {
				p.Sim.LowLight = true
			}
			if err := p.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(c.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger := logging.GetLogger("capture-cmd")
			rig, err := app.New(ctx, app.Options{Profile: p, Logger: logger})
			if err != nil {
				return err
			}
			defer rig.Close()

			if err := rig.Start(ctx); err != nil {
				return err
			}
			return runCaptures(ctx, c, rig, count, interval)
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 1, "Number of stills to capture")
	cmd.Flags().DurationVar(&interval, "interval", 0, "Pause between captures")
	cmd.Flags().StringVar(&flashMode, "flash", "", "Flash mode override (off, on, auto)")
	cmd.Flags().StringVar(&facing, "facing", "", "Camera facing override (back, front)")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Directory for saved stills")
	cmd.Flags().BoolVar(&lowLight, "low-light", false, "Simulate a scene that needs flash")
	return cmd
}

func runCaptures(ctx context.Context, c *cobra.Command, rig *app.Rig, count int, interval time.Duration) error {
	for i := range count {
		if i > 0 && interval > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(interval):
			}
		}
		res, err := rig.Controller().Capture(ctx)
		if err != nil {
			return fmt.Errorf("capture %d of %d: %w", i+1, count, err)
		}
		fmt.Fprintf(c.OutOrStdout(), "%s\t%s\t%s\t%dms\n",
			res.ID, res.Path, res.Size, res.Duration.Milliseconds())
	}
	return nil
}
