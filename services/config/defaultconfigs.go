package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Key: board profile name
// Val: raw YAML for that board. An override file is decoded on top of it.
// -----------------------------------------------------------------------------

const DefaultBoard = "powerboost-1000c"

// Raspberry Pi + Adafruit PowerBoost 1000C + MCP3008, BCM numbering.
// LiPo range is nominally 3.7-4.2 V, but Vbat drops to ~4.05 V as soon as USB
// is removed, so the effective range is narrower.
const cfgPowerBoost = `
board: powerboost-1000c
log_level: info
adc:
  clock_pin: 17
  miso_pin: 23
  mosi_pin: 24
  cs_pin: 25
  battery_channel: 0
  usb_channel: 1
  clock_hz: 0
  framed: false
divider:
  r1_ohm: 6800
  r2_ohm: 10000
ranges:
  usb:     {min_v: 0.0,  max_v: 5.2}
  gpio:    {min_v: 0.0,  max_v: 3.3}
  battery: {min_v: 3.75, max_v: 4.05}
poll:
  interval_ms: 10000
  min_battery_fraction: 0.075
  usb_threshold_v: 1.0
button:
  pin: 26
  debounce_ms: 1000
  hold_ms: 3000
  sample_ms: 100
led:
  red_pin: 21
  green_pin: 8
  polarity: common_anode
system:
  audit_tag: pi_power
  dry_run: false
`

var embeddedConfigs = map[string]string{
	DefaultBoard: cfgPowerBoost,
}
