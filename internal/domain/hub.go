package domain

// Hub is a distribution center where a vehicle loads before its drops.
type Hub struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Location Location `json:"location"`
}
