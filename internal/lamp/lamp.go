package lamp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"MoonLamp/internal/model"
)

// Lamp is a transport that delivers status frames to the lamp firmware.
type Lamp interface {
	Send(ctx context.Context, msg model.LampMessage) error
	Name() string
	Close() error
}

// Encode returns the newline-terminated JSON frame the firmware reads.
func Encode(msg model.LampMessage) ([]byte, error) {
	b, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode lamp message: %w", err)
	}
	return append(b, '\n'), nil
}

// Multi fans a frame out to several lamps.
type Multi []Lamp

func (m Multi) Name() string { return "multi" }

// Send delivers to every lamp and joins the failures.
func (m Multi) Send(ctx context.Context, msg model.LampMessage) error {
	var errs []error
	for _, l := range m {
		if err := l.Send(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", l.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, l := range m {
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", l.Name(), err))
		}
	}
	return errors.Join(errs...)
}
