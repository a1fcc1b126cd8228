package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/smazurov/camseq/internal/device"
	"github.com/smazurov/camseq/internal/sizing"
)

// CreateSizesCmd creates the sizes command and its plan, optimal and
// video subcommands.
func CreateSizesCmd(profile func() string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sizes",
		Short: "Inspect size selection",
	}
	cmd.AddCommand(sizesPlanCmd(profile), sizesOptimalCmd(), sizesVideoCmd())
	return cmd
}

func sizesPlanCmd(profile func() string) *cobra.Command {
	var facing string
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the sizes the profile's camera would use",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			p, err := loadProfile(profile())
			if err != nil {
				return err
			}
			if facing != "" {
				p.Facing = facing
			}
			provider, err := p.Provider()
			if err != nil {
				return err
			}
			f, err := device.ParseFacing(p.Facing)
			if err != nil {
				return err
			}
			cam, err := device.Open(c.Context(), provider, f)
			if err != nil {
				return err
			}
			in, err := p.PlanInput(cam)
			if err != nil {
				return err
			}
			plan, err := sizing.NewPlan(in)
			if err != nil {
				return err
			}
			orientation, err := device.JPEGOrientation(p.DisplayRotation, cam.SensorOrientation)
			if err != nil {
				return err
			}
			printPlan(c.OutOrStdout(), cam, plan, orientation)
			return nil
		},
	}
	cmd.Flags().StringVar(&facing, "facing", "", "Camera facing override (back, front)")
	return cmd
}

func printPlan(w io.Writer, cam device.Characteristics, plan sizing.Plan, orientation int) {
	fmt.Fprintf(w, "camera\t%s (%s)\n", cam.ID, cam.Facing)
	fmt.Fprintf(w, "autofocus\t%v\n", cam.AutofocusAvailable())
	fmt.Fprintf(w, "session\t%s\n", plan.SessionType)
	fmt.Fprintf(w, "bounds\t%s\n", plan.Bounds)
	fmt.Fprintf(w, "picture\t%s\n", plan.Picture)
	fmt.Fprintf(w, "preview\t%s\n", plan.Preview)
	if plan.Video != (sizing.Size{}) {
		fmt.Fprintf(w, "video\t%s\n", plan.Video)
	}
	fmt.Fprintf(w, "orientation\t%d\n", orientation)
	for _, warning := range plan.Warnings {
		fmt.Fprintf(w, "warning\t%v\n", warning)
	}
}

func sizesOptimalCmd() *cobra.Command {
	var aspect string
	var minimum string
	cmd := &cobra.Command{
		Use:   "optimal SIZE...",
		Short: "Choose the smallest size matching an aspect ratio and minimum",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			choices, err := sizing.ParseSizes(args)
			if err != nil {
				return err
			}
			ref, err := sizing.ParseSize(aspect)
			if err != nil {
				return fmt.Errorf("--aspect: %w", err)
			}
			var floor sizing.Size
			if minimum != "" {
				if floor, err = sizing.ParseSize(minimum); err != nil {
					return fmt.Errorf("--min: %w", err)
				}
			}
			return printChoice(c.OutOrStdout(), c.ErrOrStderr())(sizing.ChooseOptimal(choices, floor.Width, floor.Height, ref))
		},
	}
	cmd.Flags().StringVar(&aspect, "aspect", "", "Size whose aspect ratio must match exactly")
	cmd.Flags().StringVar(&minimum, "min", "", "Minimum WIDTHxHEIGHT")
	_ = cmd.MarkFlagRequired("aspect")
	return cmd
}

func sizesVideoCmd() *cobra.Command {
	var maxWidth int
	cmd := &cobra.Command{
		Use:   "video SIZE...",
		Short: "Choose the first 4:3 size no wider than a limit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			choices, err := sizing.ParseSizes(args)
			if err != nil {
				return err
			}
			return printChoice(c.OutOrStdout(), c.ErrOrStderr())(sizing.ChooseVideo(choices, maxWidth))
		},
	}
	cmd.Flags().IntVar(&maxWidth, "max-width", 1080, "Maximum width")
	return cmd
}

// printChoice writes the selected size, sending a fallback warning to
// stderr. Only non-fallback errors are returned.
func printChoice(out, errOut io.Writer) func(sizing.Size, error) error {
	return func(size sizing.Size, err error) error {
		if err != nil && !errors.Is(err, sizing.ErrNoSuitableSize) {
			return err
		}
		if err != nil {
			fmt.Fprintf(errOut, "warning: %v\n", err)
		}
		fmt.Fprintln(out, size)
		return nil
	}
}
