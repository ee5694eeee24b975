package device

import (
	"github.com/mrz1836/aegir/internal/constants"
	"github.com/mrz1836/aegir/internal/errors"
)

// DriverSimulator selects the built-in simulator.
const DriverSimulator = constants.DriverSimulator

// Devices bundles the collaborators a routine needs.
type Devices struct {
	Camera    Camera
	Sensor    Sensor
	Telemetry Telemetry
}

// Open returns the devices for driver. Only the simulator ships with aegir;
// any other driver reports ErrDeviceUnavailable.
func Open(driver string, opts SimulatorOptions) (Devices, error) {
	switch driver {
	case DriverSimulator, "":
		sim := NewSimulator(opts)
		return Devices{Camera: sim, Sensor: Serialize(sim), Telemetry: sim}, nil
	default:
		return Devices{}, errors.Wrapf(errors.ErrDeviceUnavailable, "no driver %q", driver)
	}
}
