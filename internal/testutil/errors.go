// Package testutil provides testing utilities for aegir.
//
// This package contains mock errors used across test files.
// It should only be imported by test files (*_test.go).
package testutil

import "errors"

// Mock errors for testing purposes.
var (
	// ErrMockDevice simulates a camera that reports a hardware fault.
	ErrMockDevice = errors.New("device fault")

	// ErrMockSensor simulates a sensor read that fails.
	ErrMockSensor = errors.New("sensor read failed")

	// ErrMockWrite simulates a failed write to disk or a pipe.
	ErrMockWrite = errors.New("write failed")

	// ErrMockTick simulates a failure inside a scheduler tick.
	ErrMockTick = errors.New("tick failed")
)
