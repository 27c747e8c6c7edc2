package entity

import (
	"time"

	"github.com/google/uuid"
)

// RouterRecord is the finished record handed to the durable queue store.
type RouterRecord struct {
	ID              uuid.UUID `json:"id"`
	SerialNumber    string    `json:"serial_number"`
	DefaultSSID     string    `json:"default_ssid"`
	DefaultPassword string    `json:"default_pass"`
	SimID           string    `json:"sim_id"`
	TargetSSID      string    `json:"target_ssid"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
}
