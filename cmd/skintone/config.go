package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/setanarut/skintone"
)

// Config holds the tunables a YAML file may set. Flags given on the
// command line take precedence over the file.
type Config struct {
	K          int     `yaml:"k"`
	Candidates int     `yaml:"candidates"`
	Sample     string  `yaml:"sample"`
	Iterations int     `yaml:"iterations"`
	Tolerance  float64 `yaml:"tolerance"`
	Workers    int     `yaml:"workers"`
	Seed       uint64  `yaml:"seed"`
	// Gray level at or above which a mask pixel is set.
	MaskThreshold uint8  `yaml:"mask_threshold"`
	Method        string `yaml:"method"`
	BandWidth     int    `yaml:"band_width"`
}

func DefaultConfig() Config {
	sel := skintone.DefaultSelectOptions()
	return Config{
		K:             3,
		Candidates:    100,
		Sample:        skintone.SampleUniform.String(),
		Iterations:    sel.Iterations,
		Tolerance:     sel.Tolerance,
		Workers:       sel.Workers,
		MaskThreshold: skintone.DefaultMaskThreshold,
		Method:        "lhtss",
		BandWidth:     skintone.DefaultBandWidth,
	}
}

// loadConfig overlays the YAML file on a.cfg, then re-applies every flag
// the user set explicitly.
func (a *app) loadConfig(cmd *cobra.Command) error {
	data, err := os.ReadFile(a.configPath)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	explicit := map[string]string{}
	cmd.Flags().Visit(func(f *pflag.Flag) {
		explicit[f.Name] = f.Value.String()
	})

	if err := yaml.Unmarshal(data, &a.cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", a.configPath, err)
	}

	for name, v := range explicit {
		if err := cmd.Flags().Set(name, v); err != nil {
			return fmt.Errorf("flag --%s: %w", name, err)
		}
	}
	return nil
}
