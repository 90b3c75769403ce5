package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"pipower-go/errcode"
	"pipower-go/types"
	"pipower-go/x/mathx"
)

const (
	// EnvPath names the override file; EnvLogLevel overrides log_level.
	EnvPath     = "PIPOWER_CONFIG"
	EnvLogLevel = "PIPOWER_LOG_LEVEL"

	DefaultPath = "/etc/pipower/pipower.yaml"
)

// Defaults returns the embedded configuration for a board profile.
func Defaults(board string) (types.Config, error) {
	raw, ok := embeddedConfigs[board]
	if !ok {
		return types.Config{}, &errcode.E{C: errcode.InvalidConfig, Op: "defaults", Msg: "no embedded config for board " + board}
	}
	var cfg types.Config
	if err := decode([]byte(raw), &cfg); err != nil {
		return types.Config{}, err
	}
	return cfg, nil
}

// Load resolves the process configuration: embedded defaults, then the file
// at path decoded on top (keys absent from the file keep their defaults),
// then environment overrides. A missing file is not an error.
func Load(path string) (types.Config, error) {
	cfg, err := Defaults(DefaultBoard)
	if err != nil {
		return types.Config{}, err
	}
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return types.Config{}, &errcode.E{C: errcode.InvalidConfig, Op: "load", Msg: path, Err: err}
		default:
			if err := decode(b, &cfg); err != nil {
				return types.Config{}, err
			}
		}
	}
	if lvl := os.Getenv(EnvLogLevel); lvl != "" {
		cfg.LogLevel = lvl
	}
	return cfg, nil
}

// PathFromEnv returns the override file location.
func PathFromEnv() string {
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	return DefaultPath
}

func decode(b []byte, cfg *types.Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return &errcode.E{C: errcode.InvalidConfig, Op: "decode", Err: err}
	}
	return nil
}

// Validate checks configuration correctness once at startup.
// It MUST NOT mutate configuration.
func Validate(cfg *types.Config) error {
	bad := func(format string, a ...any) error {
		return &errcode.E{C: errcode.InvalidConfig, Op: "validate", Msg: fmt.Sprintf(format, a...)}
	}

	a := cfg.ADC
	for _, ch := range []struct {
		name string
		n    int
	}{{"battery_channel", a.BatteryChannel}, {"usb_channel", a.USBChannel}} {
		if !mathx.Between(ch.n, 0, 7) {
			return bad("adc.%s %d outside 0..7", ch.name, ch.n)
		}
	}
	if a.BatteryChannel == a.USBChannel {
		return bad("adc battery and usb channels must differ")
	}

	if cfg.Divider.R1 < 0 || cfg.Divider.R2 <= 0 {
		return bad("divider resistances must be positive (r1=%v r2=%v)", cfg.Divider.R1, cfg.Divider.R2)
	}
	r := cfg.Ranges
	if r.Battery.Min >= r.Battery.Max {
		return bad("ranges.battery min %v must be below max %v", r.Battery.Min, r.Battery.Max)
	}
	if r.USB.Max <= 0 || r.GPIO.Max <= 0 {
		return bad("ranges.usb.max_v and ranges.gpio.max_v must be positive")
	}

	p := cfg.Poll
	if p.IntervalMs <= 0 {
		return bad("poll.interval_ms must be positive")
	}
	if !mathx.Between(p.MinBatteryFraction, 0.0, 1.0) {
		return bad("poll.min_battery_fraction %v outside 0..1", p.MinBatteryFraction)
	}

	b := cfg.Button
	if b.SampleMs <= 0 || b.HoldMs < b.SampleMs {
		return bad("button.sample_ms must be positive and not exceed hold_ms")
	}
	if b.HoldMs%b.SampleMs != 0 {
		return bad("button.hold_ms %d is not a multiple of sample_ms %d", b.HoldMs, b.SampleMs)
	}
	if b.DebounceMs < 0 {
		return bad("button.debounce_ms must not be negative")
	}

	switch cfg.LED.Polarity {
	case types.CommonAnode, types.CommonCathode:
	default:
		return bad("led.polarity %q must be %q or %q", cfg.LED.Polarity, types.CommonAnode, types.CommonCathode)
	}

	// Every line is owned by exactly one function.
	pins := map[int]string{}
	for _, pin := range []struct {
		name string
		n    int
	}{
		{"adc.clock_pin", a.Clock}, {"adc.mosi_pin", a.DataOut}, {"adc.miso_pin", a.DataIn},
		{"adc.cs_pin", a.ChipSelect}, {"button.pin", b.Pin},
		{"led.red_pin", cfg.LED.Red}, {"led.green_pin", cfg.LED.Green},
	} {
		if pin.n < 0 {
			return bad("%s must not be negative", pin.name)
		}
		if other, dup := pins[pin.n]; dup {
			return bad("%s and %s share line %d", other, pin.name, pin.n)
		}
		pins[pin.n] = pin.name
	}
	return nil
}
