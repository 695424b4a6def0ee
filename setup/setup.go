// Package setup loads the server configuration and builds the sample tree
// and hardware controller from it.
package setup

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/providers/structs"

	"github.com/aics-microscopy/goscope/hardware"
	"github.com/aics-microscopy/goscope/rec"
	"github.com/aics-microscopy/goscope/sample"
)

// HolderConfig describes the plate holder root: the safe retreat position
// and the ids of the hardware components that serve everything on it.
type HolderConfig struct {
	Name             string  `koanf:"Name" yaml:"Name"`
	SafeX            float64 `koanf:"SafeX" yaml:"SafeX"`
	SafeY            float64 `koanf:"SafeY" yaml:"SafeY"`
	SafeZ            float64 `koanf:"SafeZ" yaml:"SafeZ"`
	Stage            string  `koanf:"Stage" yaml:"Stage"`
	FocusDrive       string  `koanf:"FocusDrive" yaml:"FocusDrive"`
	AutoFocus        string  `koanf:"AutoFocus" yaml:"AutoFocus"`
	ObjectiveChanger string  `koanf:"ObjectiveChanger" yaml:"ObjectiveChanger"`
	Safety           string  `koanf:"Safety" yaml:"Safety"`
}

// PlateConfig describes one plate on the holder.
type PlateConfig struct {
	Name string `koanf:"Name" yaml:"Name"`

	// Format selects a standard layout by well count: "96", "24", "12"
	Format string `koanf:"Format" yaml:"Format"`

	ZeroX float64 `koanf:"ZeroX" yaml:"ZeroX"`
	ZeroY float64 `koanf:"ZeroY" yaml:"ZeroY"`
	ZeroZ float64 `koanf:"ZeroZ" yaml:"ZeroZ"`
}

// RecorderConfig describes where acquired images land.
type RecorderConfig struct {
	Root    string `koanf:"Root" yaml:"Root"`
	Prefix  string `koanf:"Prefix" yaml:"Prefix"`
	Enabled bool   `koanf:"Enabled" yaml:"Enabled"`
}

// BarcodeConfig describes the plate barcode scanner.
type BarcodeConfig struct {
	Addr    string `koanf:"Addr" yaml:"Addr"`
	Enabled bool   `koanf:"Enabled" yaml:"Enabled"`
}

// Config holds the initialization parameters of the server.
type Config struct {
	// Addr is the address to listen at
	Addr string `koanf:"Addr" yaml:"Addr"`

	// Mock replaces the vendor backend with the simulator
	Mock bool `koanf:"Mock" yaml:"Mock"`

	Holder   HolderConfig   `koanf:"Holder" yaml:"Holder"`
	Plates   []PlateConfig  `koanf:"Plates" yaml:"Plates"`
	Recorder RecorderConfig `koanf:"Recorder" yaml:"Recorder"`
	Barcode  BarcodeConfig  `koanf:"Barcode" yaml:"Barcode"`
}

// Default returns the configuration used when no file overrides it: a
// simulated microscope with a single 96 well plate.
func Default() Config {
	return Config{
		Addr: ":8000",
		Mock: true,
		Holder: HolderConfig{
			Name:       "holder",
			SafeX:      55600,
			SafeY:      31800,
			Stage:      "Marzhauser",
			FocusDrive: "MotorizedFocus",
			AutoFocus:  "DefiniteFocus2",
			Safety:     "ZSD_01_plate",
		},
		Plates: []PlateConfig{
			{Name: "plate_01", Format: "96", ZeroX: 2000, ZeroY: 1500, ZeroZ: 110},
		},
		Recorder: RecorderConfig{Root: "images", Prefix: "img_"},
	}
}

func unmarshal(k *koanf.Koanf) (Config, error) {
	c := Config{}
	err := k.Unmarshal("", &c)
	return c, err
}

// Load reads a config file over the defaults.  A missing file is not an
// error; the defaults stand.
func Load(path string) (Config, error) {
	k := koanf.New(".")
	k.Load(structs.Provider(Default(), "koanf"), nil)
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if !strings.Contains(err.Error(), "no such") {
			return Config{}, fmt.Errorf("setup: error loading config: %w", err)
		}
	}
	return unmarshal(k)
}

// Parse reads a config from bytes over the defaults.
func Parse(b []byte) (Config, error) {
	k := koanf.New(".")
	k.Load(structs.Provider(Default(), "koanf"), nil)
	if err := k.Load(rawbytes.Provider(b), yaml.Parser()); err != nil {
		return Config{}, fmt.Errorf("setup: error parsing config: %w", err)
	}
	return unmarshal(k)
}

// Build constructs the controller and sample tree a config describes.
// backend may be nil when Mock is set, in which case the simulator is used;
// a real vendor backend must be passed in otherwise.
func Build(cfg Config, backend hardware.Backend, prompter hardware.Prompter) (*sample.Object, *hardware.Controller, error) {
	if backend == nil {
		if !cfg.Mock {
			return nil, nil, fmt.Errorf("setup: no backend provided and Mock is false")
		}
		backend = hardware.NewMockBackend()
	}
	ctl := hardware.NewController(backend, prompter)

	holder, err := sample.NewPlateHolder(ctl, sample.FrameConfig{
		Name: cfg.Holder.Name,
		Safe: &sample.Position{X: cfg.Holder.SafeX, Y: cfg.Holder.SafeY, Z: cfg.Holder.SafeZ},
		Hardware: sample.HardwareIDs{
			Stage:            cfg.Holder.Stage,
			FocusDrive:       cfg.Holder.FocusDrive,
			AutoFocus:        cfg.Holder.AutoFocus,
			ObjectiveChanger: cfg.Holder.ObjectiveChanger,
			Safety:           cfg.Holder.Safety,
		},
	})
	if err != nil {
		return nil, nil, err
	}

	for _, pc := range cfg.Plates {
		plate, err := sample.NewPlate(holder, sample.FrameConfig{
			Name: pc.Name,
			Zero: sample.Position{X: pc.ZeroX, Y: pc.ZeroY, Z: pc.ZeroZ},
		})
		if err != nil {
			return nil, nil, err
		}
		layout, err := sample.StandardPlateLayout(pc.Format)
		if err != nil {
			return nil, nil, err
		}
		if _, err := sample.PopulatePlate(plate, layout); err != nil {
			return nil, nil, err
		}
	}
	return holder, ctl, nil
}

// Recorder constructs the image recorder a config describes.
func Recorder(cfg Config) *rec.Recorder {
	return &rec.Recorder{
		Root:    cfg.Recorder.Root,
		Prefix:  cfg.Recorder.Prefix,
		Enabled: cfg.Recorder.Enabled,
	}
}
