package main

import (
	"fmt"
	"image"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/spf13/cobra"

	"github.com/setanarut/skintone"
	"github.com/setanarut/skintone/reflectance"
	"github.com/setanarut/skintone/utils"
)

func (a *app) distanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "distance <hex> <hex>",
		Short: "Print the CIEDE2000 difference of two colors",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := skintone.HexDistance(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%.4f\n", d)
			return nil
		},
	}
}

type regionFlags struct {
	image string
	mask  string
}

func (f *regionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.image, "image", "", "input image")
	cmd.Flags().StringVar(&f.mask, "mask", "", "mask image; white pixels select the region (default: whole image)")
	_ = cmd.MarkFlagRequired("image")
}

func (f *regionFlags) load(threshold uint8) (image.Image, skintone.Mask, error) {
	img, err := utils.ReadImage(f.image)
	if err != nil {
		return nil, skintone.Mask{}, err
	}
	b := img.Bounds()
	if f.mask == "" {
		m := skintone.NewMask(b.Dx(), b.Dy())
		for i := range m.Bits {
			m.Bits[i] = true
		}
		return img, m, nil
	}
	m, err := utils.ReadMask(f.mask, threshold)
	if err != nil {
		return nil, skintone.Mask{}, err
	}
	return img, m, nil
}

func (a *app) clustersCmd() *cobra.Command {
	var (
		rf  regionFlags
		out string
	)
	cmd := &cobra.Command{
		Use:   "clusters",
		Short: "Split a masked region into k tone clusters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			img, mask, err := rf.load(a.cfg.MaskThreshold)
			if err != nil {
				return err
			}
			method, err := skintone.ParseSampleMethod(a.cfg.Sample)
			if err != nil {
				return err
			}
			seed := a.cfg.Seed
			if seed == 0 {
				seed = rand.Uint64()
			}
			rng := rand.New(rand.NewPCG(seed, 0))

			candidates, err := skintone.SampleCandidates(img, mask, a.cfg.Candidates, method, rng)
			if err != nil {
				return fmt.Errorf("sample candidates: %w", err)
			}
			a.log.Debug("candidates sampled", "method", method, "count", candidates.Len())

			sel, err := skintone.BestClusters(cmd.Context(), candidates, img, mask, a.cfg.K, skintone.SelectOptions{
				Iterations: a.cfg.Iterations,
				Tolerance:  a.cfg.Tolerance,
				Workers:    a.cfg.Workers,
				Seed:       seed,
				Logger:     a.log,
			})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			total := mask.Count()
			palette := make([]colorful.Color, len(sel.Medoids))
			for i, m := range sel.Medoids {
				palette[i] = m.Color()
				n := sel.Masks[i].Count()
				fmt.Fprintf(w, "%d\t%s\tL=%.2f a=%.2f b=%.2f\t%d px\t%.1f%%\n",
					sel.Indices[i], m.Hex(), m.L, m.A, m.B, n, 100*float64(n)/float64(total))
			}
			fmt.Fprintf(w, "cost %.4f after %d trials (%d distinct)\n", sel.Cost, sel.Trials, sel.Evaluated)

			if out == "" {
				return nil
			}
			return writeClusters(out, sel, palette)
		},
	}
	rf.register(cmd)
	f := cmd.Flags()
	f.IntVarP(&a.cfg.K, "k", "k", a.cfg.K, "number of clusters")
	f.IntVar(&a.cfg.Candidates, "candidates", a.cfg.Candidates, "candidate colors sampled from the region")
	f.StringVar(&a.cfg.Sample, "sample", a.cfg.Sample, "candidate sampler: uniform, kmeans or dominantcolor")
	f.IntVar(&a.cfg.Iterations, "iterations", a.cfg.Iterations, "k-medoids restarts")
	f.Float64Var(&a.cfg.Tolerance, "tolerance", a.cfg.Tolerance, "stop once the clustering cost is at most this")
	f.IntVar(&a.cfg.Workers, "workers", a.cfg.Workers, "concurrent restarts")
	f.Uint64Var(&a.cfg.Seed, "seed", a.cfg.Seed, "random seed (0 picks one)")
	f.Uint8Var(&a.cfg.MaskThreshold, "threshold", a.cfg.MaskThreshold, "mask gray level threshold")
	f.StringVar(&out, "out", "", "directory for cluster masks, overlay and palette")
	return cmd
}

func writeClusters(dir string, sel *skintone.Selection, palette []colorful.Color) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if _, err := utils.SaveMasks(sel.Masks, dir, "cluster"); err != nil {
		return err
	}
	overlay, err := utils.Overlay(sel.Masks, palette)
	if err != nil {
		return err
	}
	if err := utils.SaveImage(overlay, filepath.Join(dir, "overlay.png")); err != nil {
		return err
	}
	swatches := slices.Clone(palette)
	utils.SortByBrightness(swatches)
	return utils.SavePalette(swatches, 64, filepath.Join(dir, "palette.png"))
}

func (a *app) methodFlag(cmd *cobra.Command) {
	cmd.Flags().StringVar(&a.cfg.Method, "method", a.cfg.Method, "reconstruction method: lhtss or ilss")
}

func (a *app) spectrumCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spectrum <hex>",
		Short: "Reconstruct the reflectance curve of a color",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := colorful.Hex(args[0])
			if err != nil {
				return err
			}
			method, err := reflectance.ParseMethod(a.cfg.Method)
			if err != nil {
				return err
			}
			rho, err := skintone.ReconstructReflectance(cmd.Context(), c, method)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for i, nm := range reflectance.Wavelengths() {
				fmt.Fprintf(w, "%d\t%.6f\n", nm, rho[i])
			}
			return nil
		},
	}
	a.methodFlag(cmd)
	return cmd
}

func (a *app) mixCmd() *cobra.Command {
	var alpha float64
	cmd := &cobra.Command{
		Use:   "mix <hex> <hex>",
		Short: "Mix two colors subtractively through their reflectance curves",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c1, err := colorful.Hex(args[0])
			if err != nil {
				return err
			}
			c2, err := colorful.Hex(args[1])
			if err != nil {
				return err
			}
			method, err := reflectance.ParseMethod(a.cfg.Method)
			if err != nil {
				return err
			}
			if alpha < 0 || alpha > 1 {
				return fmt.Errorf("alpha %g outside [0,1]", alpha)
			}
			mixed, err := reflectance.Mix(cmd.Context(), c1, c2, alpha, method, reflectance.DefaultOptions())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), mixed.Hex())
			return nil
		},
	}
	cmd.Flags().Float64Var(&alpha, "alpha", 0.5, "weight of the first color")
	a.methodFlag(cmd)
	return cmd
}

func (a *app) tonesCmd() *cobra.Command {
	var rf regionFlags
	cmd := &cobra.Command{
		Use:   "tones",
		Short: "List the mean colors of brightness bands in a masked region",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			img, mask, err := rf.load(a.cfg.MaskThreshold)
			if err != nil {
				return err
			}
			tones, err := skintone.BrightnessTones(img, mask, a.cfg.BandWidth)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, t := range tones {
				fmt.Fprintf(w, "%s\t%.2f%%\n", t.RGB.Hex(), t.Percent)
			}
			return nil
		},
	}
	rf.register(cmd)
	cmd.Flags().IntVar(&a.cfg.BandWidth, "band", a.cfg.BandWidth, "brightness levels per band")
	cmd.Flags().Uint8Var(&a.cfg.MaskThreshold, "threshold", a.cfg.MaskThreshold, "mask gray level threshold")
	return cmd
}
