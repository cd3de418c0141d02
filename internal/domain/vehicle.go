package domain

type VehicleStatus string

const (
	VehicleAvailable VehicleStatus = "available"
	VehicleAssigned  VehicleStatus = "assigned"
	VehicleActive    VehicleStatus = "active"
	VehicleOffline   VehicleStatus = "offline"
)

type VehicleType string

const (
	VehicleCar   VehicleType = "car"
	VehicleVan   VehicleType = "van"
	VehicleTruck VehicleType = "truck"
	VehicleBike  VehicleType = "bike"
)

// Travel profile used for routing and speed estimates.
type Profile string

const (
	ProfileDriving Profile = "driving"
	ProfileCycling Profile = "cycling"
)

// Mobile resource (driver plus conveyance) owned by fleet management.
// Dispatch only reads location, capacity and status, and moves
// available vehicles to assigned.
type Vehicle struct {
	ID       string        `json:"id"`
	Location Location      `json:"location"`
	Capacity float64       `json:"capacity"`
	Status   VehicleStatus `json:"status"`
	Type     VehicleType   `json:"type"`
}

// Profile returns the routing profile for the vehicle type.
func (v Vehicle) Profile() Profile {
	if v.Type == VehicleBike {
		return ProfileCycling
	}
	return ProfileDriving
}
