package settings

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kpelzel/artnode/internal/artnet"
)

const (
	MaxPorts            = artnet.BlockPorts
	MaxUniversesPerPort = 8
	MaxLedsPerPort      = 1020
)

var ErrValidation = errors.New("invalid settings")

type LedType uint8

const (
	WS2811 LedType = iota
	WS2812
	WS2812B
	SK6812
	SM16703
	UCS1903
	TM1814
	DMX512
	ledTypeCount
)

var ledTypeNames = [...]string{"WS2811", "WS2812", "WS2812B", "SK6812", "SM16703", "UCS1903", "TM1814", "DMX512"}

func (t LedType) Valid() bool {
	return t < ledTypeCount
}

func (t LedType) String() string {
	if !t.Valid() {
		return fmt.Sprintf("LedType(%d)", uint8(t))
	}
	return ledTypeNames[t]
}

// BytesPerLed is the number of channels one fixture consumes in the output buffer.
func (t LedType) BytesPerLed() int {
	switch t {
	case SK6812, TM1814:
		return 4
	case DMX512:
		return 1
	default:
		return 3
	}
}

func (t LedType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("unknown led type %d", uint8(t))
	}
	return []byte(t.String()), nil
}

func (t *LedType) UnmarshalText(b []byte) error {
	for i, n := range ledTypeNames {
		if strings.EqualFold(n, string(b)) {
			*t = LedType(i)
			return nil
		}
	}
	return fmt.Errorf("unknown led type %q", string(b))
}

type PortSettings struct {
	StartUniverse uint16 `json:"StartUniverse" yaml:"start_universe" validate:"max=32767"`
	NoUniverses   uint16 `json:"NoUniverses" yaml:"no_universes" validate:"min=1,max=8"`
	LedCount      uint16 `json:"LedCount" yaml:"led_count" validate:"min=1,max=1020"`
}

// Settings is the persisted parameter block of the node. Ports lists the active outputs
// in port number order.
type Settings struct {
	StaticIP   string         `json:"StaticIP" yaml:"static_ip" validate:"omitempty,ipv4"`
	LedType    LedType        `json:"LedType" yaml:"led_type" validate:"ledtype"`
	TimeHigh   uint16         `json:"TimeHigh" yaml:"time_high" validate:"omitempty,min=50,max=5000"`
	TimeLow    uint16         `json:"TimeLow" yaml:"time_low" validate:"omitempty,min=50,max=5000"`
	Identity   string         `json:"Identity" yaml:"identity" validate:"max=17"`
	Model      string         `json:"Model" yaml:"model" validate:"max=17"`
	ProductID  string         `json:"ProductID" yaml:"product_id" validate:"max=16"`
	ArtNetSync bool           `json:"ArtNetSync" yaml:"artnet_sync"`
	Ports      []PortSettings `json:"Ports" yaml:"ports" validate:"min=1,max=4,dive"`
}

func Defaults() Settings {
	s := Settings{
		LedType:    SM16703,
		Identity:   "artnode",
		Model:      "AN-4",
		ProductID:  "AN4-PX",
		ArtNetSync: true,
	}
	for i := 0; i < MaxPorts; i++ {
		s.Ports = append(s.Ports, PortSettings{
			StartUniverse: uint16(i * 6),
			NoUniverses:   6,
			LedCount:      MaxLedsPerPort,
		})
	}
	return s
}

// Clone returns a copy that shares no memory with s.
func (s Settings) Clone() Settings {
	s.Ports = append([]PortSettings(nil), s.Ports...)
	return s
}

// Window is the union [start, start+count) of the port ranges; it is the device wide
// universe filter.
func (s Settings) Window() (start, count int) {
	if len(s.Ports) == 0 {
		return 0, 0
	}
	lo := int(s.Ports[0].StartUniverse)
	hi := lo + int(s.Ports[0].NoUniverses)
	for _, p := range s.Ports[1:] {
		lo = min(lo, int(p.StartUniverse))
		hi = max(hi, int(p.StartUniverse)+int(p.NoUniverses))
	}
	return lo, hi - lo
}

// OutputLen is the number of output buffer bytes the port's fixtures consume.
func (s Settings) OutputLen(p PortSettings) int {
	return int(p.LedCount) * s.LedType.BytesPerLed()
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("ledtype", func(fl validator.FieldLevel) bool {
		return LedType(fl.Field().Uint()).Valid()
	}); err != nil {
		panic("failed to register ledtype validation: " + err.Error())
	}
	return v
}

// Validate checks every field; settings are applied all or nothing.
func (s Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}
