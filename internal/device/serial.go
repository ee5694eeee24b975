package device

import (
	"context"
	"sync"
)

// serialSensor lets one reading run at a time. The capture stage and the
// control heartbeat both read the sensor, and a pressure sensor's
// convert-then-read cycle must not interleave.
type serialSensor struct {
	mu     sync.Mutex
	sensor Sensor
}

// Serialize wraps s so its readings never overlap. A nil Sensor stays nil.
func Serialize(s Sensor) Sensor {
	if s == nil {
		return nil
	}
	if _, ok := s.(*serialSensor); ok {
		return s
	}
	return &serialSensor{sensor: s}
}

func (s *serialSensor) Depth(ctx context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sensor.Depth(ctx)
}

func (s *serialSensor) Pressure(ctx context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sensor.Pressure(ctx)
}

func (s *serialSensor) Temperature(ctx context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sensor.Temperature(ctx)
}
