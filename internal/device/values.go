package device

import (
	"errors"
	"fmt"
)

// Pin is a GPIO index.
type Pin int

// NewPin validates a GPIO index against the ESP32 range.
func NewPin(val int) (Pin, error) {
	if val < 0 {
		return 0, errors.New("pin must not be negative")
	}
	if val > MaxGPIO {
		return 0, fmt.Errorf("pin %d is outside GPIO range 0-%d", val, MaxGPIO)
	}
	return Pin(val), nil
}

// Brightness is the global LED intensity, 0-255.
type Brightness int

// NewBrightness rejects values outside 0-255.
func NewBrightness(val int) (Brightness, error) {
	if val < 0 || val > 255 {
		return 0, fmt.Errorf("led_brightness %d is outside 0-255", val)
	}
	return Brightness(val), nil
}

// Scale applies the brightness to a full-range channel value.
func (b Brightness) Scale(v uint8) uint8 {
	return uint8(int(v) * int(b) / 255)
}
