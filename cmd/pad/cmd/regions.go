package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/pogo-pad/internal/files"
	"github.com/MeKo-Tech/pogo-pad/internal/overlay"
	"github.com/MeKo-Tech/pogo-pad/internal/recognition"
	"github.com/MeKo-Tech/pogo-pad/internal/regions"
)

// regionsResult is the json/yaml document printed by the regions command.
type regionsResult struct {
	File    string           `json:"file" yaml:"file"`
	Engine  string           `json:"engine" yaml:"engine"`
	Regions []regions.Region `json:"regions" yaml:"regions"`
	Hit     *regions.Region  `json:"hit,omitempty" yaml:"hit,omitempty"`
}

type regionsOptions struct {
	Format      string
	At          string
	OverlayPath string
	BoxColor    string
	Policy      regions.DuplicatePolicy
}

// regionsCmd represents the regions command.
var regionsCmd = &cobra.Command{
	Use:   "regions <file>",
	Short: "Recognize a file and print its text regions",
	Long: `Recognize a single image or PDF page and print the regions the editor would
offer for clicking. With --at only the region under that point is printed.

Examples:
  pogo-pad regions scan.png
  pogo-pad regions scan.png --format json
  pogo-pad regions scan.png --at 120,48 --overlay hit.png`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		policy, err := cfg.DuplicatePolicy()
		if err != nil {
			return err
		}

		opts := regionsOptions{
			Format:   cfg.Output.Format,
			BoxColor: cfg.Output.OverlayBoxColor,
			Policy:   policy,
		}
		if cmd.Flags().Changed("format") {
			opts.Format, _ = cmd.Flags().GetString("format")
		}
		opts.At, _ = cmd.Flags().GetString("at")
		opts.OverlayPath, _ = cmd.Flags().GetString("overlay")

		adapter, err := newAdapter(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = adapter.Close() }()

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		return runRegions(ctx, adapter, args[0], opts, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(regionsCmd)
	regionsCmd.Flags().StringP("format", "f", "text", "output format (text, json, yaml)")
	regionsCmd.Flags().String("at", "", "only print the region containing X,Y")
	regionsCmd.Flags().String("overlay", "", "write an image with the region boxes drawn to this path")
}

func runRegions(ctx context.Context, adapter *recognition.Adapter, path string, opts regionsOptions, out io.Writer) error {
	if !files.Accepts(path) {
		return fmt.Errorf("unsupported file: %s", path)
	}
	regs, err := adapter.Recognize(ctx, path)
	if err != nil {
		return err
	}

	ix := regions.NewIndex(opts.Policy)
	ix.Rebuild(regs)
	result := regionsResult{File: path, Engine: adapter.EngineName(), Regions: ix.Regions()}

	if opts.At != "" {
		x, y, err := parsePoint(strings.Split(opts.At, ","))
		if err != nil {
			return fmt.Errorf("invalid --at %q: want X,Y", opts.At)
		}
		hit, ok := ix.HitTestRegion(x, y)
		if !ok {
			return fmt.Errorf("no region at %d,%d", x, y)
		}
		result.Hit = &hit
	}

	if opts.OverlayPath != "" {
		if err := writeOverlay(adapter, result, opts); err != nil {
			return err
		}
	}

	switch opts.Format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(result); err != nil {
			return err
		}
		return enc.Close()
	case "", "text":
		if result.Hit != nil {
			_, _ = fmt.Fprintln(out, result.Hit.Text)
			return nil
		}
		writeRegionsText(out, result.Regions)
		return nil
	default:
		return fmt.Errorf("unsupported format: %s", opts.Format)
	}
}

func writeOverlay(adapter *recognition.Adapter, result regionsResult, opts regionsOptions) error {
	img, err := adapter.Decode(result.File)
	if err != nil {
		return err
	}
	ovOpts := overlay.Options{}
	if opts.BoxColor != "" {
		col, err := overlay.ParseHexColor(opts.BoxColor)
		if err != nil {
			return err
		}
		ovOpts.BoxColor = col
	}
	if result.Hit != nil {
		ovOpts.Highlight = &result.Hit.Box
	}
	if err := imaging.Save(overlay.Render(img, result.Regions, ovOpts), opts.OverlayPath); err != nil {
		return fmt.Errorf("failed to write overlay: %w", err)
	}
	return nil
}

func writeRegionsText(out io.Writer, regs []regions.Region) {
	for i, r := range regs {
		_, _ = fmt.Fprintf(out, "%3d  %-24s %.2f  %s\n", i, r.Box.String(), r.Confidence, strconv.Quote(r.Text))
	}
}
