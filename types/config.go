package types

// Process configuration, read once at startup.
// Durations are carried as milliseconds, matching the YAML keys.

type Config struct {
	Board    string        `yaml:"board"`
	LogLevel string        `yaml:"log_level"` // "debug" | "info" | "warn" | "error"
	ADC      ADCConfig     `yaml:"adc"`
	Divider  DividerConfig `yaml:"divider"`
	Ranges   RangeConfig   `yaml:"ranges"`
	Poll     PollConfig    `yaml:"poll"`
	Button   ButtonConfig  `yaml:"button"`
	LED      LEDConfig     `yaml:"led"`
	System   SystemConfig  `yaml:"system"`
}

// ADCConfig binds the four bit-banged lines (BCM numbering) and the channels.
type ADCConfig struct {
	Clock          int    `yaml:"clock_pin"`
	DataOut        int    `yaml:"mosi_pin"`
	DataIn         int    `yaml:"miso_pin"`
	ChipSelect     int    `yaml:"cs_pin"`
	BatteryChannel int    `yaml:"battery_channel"`
	USBChannel     int    `yaml:"usb_channel"`
	ClockHz        uint64 `yaml:"clock_hz"` // 0 => no enforced pulse width
	Framed         bool   `yaml:"framed"`   // byte-framed transaction instead of 5+12 clocks
}

// DividerConfig describes Vin ---[R1]---+---[R2]--- GND, Vout at the junction.
type DividerConfig struct {
	R1 float64 `yaml:"r1_ohm"`
	R2 float64 `yaml:"r2_ohm"`
}

type VoltageRange struct {
	Min float64 `yaml:"min_v"`
	Max float64 `yaml:"max_v"`
}

type RangeConfig struct {
	USB     VoltageRange `yaml:"usb"`
	GPIO    VoltageRange `yaml:"gpio"`
	Battery VoltageRange `yaml:"battery"`
}

type PollConfig struct {
	IntervalMs         int     `yaml:"interval_ms"`
	MinBatteryFraction float64 `yaml:"min_battery_fraction"`
	USBThresholdV      float64 `yaml:"usb_threshold_v"`
}

type ButtonConfig struct {
	Pin        int `yaml:"pin"`
	DebounceMs int `yaml:"debounce_ms"`
	HoldMs     int `yaml:"hold_ms"`
	SampleMs   int `yaml:"sample_ms"`
}

type LEDConfig struct {
	Red      int         `yaml:"red_pin"`
	Green    int         `yaml:"green_pin"`
	Polarity LEDPolarity `yaml:"polarity"`
}

type SystemConfig struct {
	AuditTag string `yaml:"audit_tag"`
	DryRun   bool   `yaml:"dry_run"` // log controller calls instead of executing them
}
