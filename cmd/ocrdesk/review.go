package main

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"

	"github.com/spf13/cobra"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/wudi/ocrdesk/overlay"
)

func (a *app) reviewCmd() *cobra.Command {
	var (
		width    float64
		out      string
		geometry bool
	)
	cmd := &cobra.Command{
		Use:   "review STEM",
		Short: "Render a page image with its numbered text regions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			stem := args[0]
			detail, err := a.client.Result(ctx, stem)
			if err != nil {
				return err
			}
			if detail.OriginalFilename == "" {
				return fmt.Errorf("result %s has no original filename", stem)
			}
			rc, err := a.client.Image(ctx, detail.OriginalFilename)
			if err != nil {
				return err
			}
			img, _, err := image.Decode(rc)
			_ = rc.Close()
			if err != nil {
				return fmt.Errorf("decode %s: %w", detail.OriginalFilename, err)
			}
			b := img.Bounds()
			natural := overlay.Size{Width: float64(b.Dx()), Height: float64(b.Dy())}
			displayed := natural
			if width > 0 {
				displayed = overlay.FitWidth(natural, width)
			}

			r := overlay.NewRenderer(overlay.WithLogger(a.log), overlay.WithTracer(a.tracer))
			if geometry {
				rec := &overlay.Recorder{}
				if _, err := r.Render(rec, detail, displayed, natural); err != nil {
					return err
				}
				fmt.Fprintf(a.stdout, "%s: natural %.0fx%.0f, displayed %.0fx%.0f\n",
					detail.OriginalFilename, natural.Width, natural.Height, displayed.Width, displayed.Height)
				labels := rec.Labels()
				for i, box := range rec.Boxes() {
					fmt.Fprintf(a.stdout, "%s\t%.1f\t%.1f\t%.1f\t%.1f\n", labels[i], box.X, box.Y, box.Width, box.Height)
				}
				return nil
			}

			composed, n, err := r.Compose(ctx, img, detail, displayed)
			if err != nil {
				return err
			}
			if out == "" {
				out = stem + "_overlay.png"
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := png.Encode(f, composed); err != nil {
				_ = f.Close()
				return fmt.Errorf("encode %s: %w", out, err)
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "wrote %s (%d regions)\n", out, n)
			return nil
		},
	}
	cmd.Flags().Float64Var(&width, "width", 0, "Displayed width in pixels; height keeps the aspect ratio")
	cmd.Flags().StringVar(&out, "out", "", "Output PNG (default STEM_overlay.png)")
	cmd.Flags().BoolVar(&geometry, "geometry", false, "Print the mapped boxes instead of writing an image")
	return cmd
}
