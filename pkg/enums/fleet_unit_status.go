package enums

import "fmt"

// FleetUnitStatus tracks the availability of a delivery drone.
type FleetUnitStatus string

const (
	FleetUnitStatusAvailable        FleetUnitStatus = "available"
	FleetUnitStatusBusy             FleetUnitStatus = "busy"
	FleetUnitStatusUnderMaintenance FleetUnitStatus = "under_maintenance"
)

var validFleetUnitStatuses = []FleetUnitStatus{
	FleetUnitStatusAvailable,
	FleetUnitStatusBusy,
	FleetUnitStatusUnderMaintenance,
}

// String implements fmt.Stringer.
func (f FleetUnitStatus) String() string {
	return string(f)
}

// IsValid reports whether the value is a known FleetUnitStatus.
func (f FleetUnitStatus) IsValid() bool {
	for _, candidate := range validFleetUnitStatuses {
		if candidate == f {
			return true
		}
	}
	return false
}

// ParseFleetUnitStatus converts raw input into a FleetUnitStatus.
func ParseFleetUnitStatus(value string) (FleetUnitStatus, error) {
	for _, candidate := range validFleetUnitStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid fleet unit status %q", value)
}
