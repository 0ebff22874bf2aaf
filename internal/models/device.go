package models

import (
	"time"
)

const (
	// MaxDeviceIDLength bounds the external identifier a controller reports.
	MaxDeviceIDLength = 32

	DefaultDeviceName     = "SmartGrowth Device"
	DefaultIrrIntensity   = 1
	DefaultIrrTime        = 1
	DefaultLightIntensity = 76

	// StaleAfter is how long a device may stay silent before its readings
	// are considered outdated.
	StaleAfter = 20 * time.Second
)

// Device is the persisted state of one grow-box controller. The identifier
// is assigned by the controller itself on first contact; IrrOn is owned by
// the irrigation scheduler and must not be written by any other component.
type Device struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"-"`
	DeviceID   string    `gorm:"column:device_id;size:32;uniqueIndex;not null" json:"deviceId"`
	DeviceName string    `gorm:"column:device_name;size:64;not null" json:"deviceName"`
	LastSeenAt time.Time `gorm:"column:last_seen_at" json:"lastSeenAt"`

	Temperature float64 `gorm:"column:temperature" json:"temperature"`
	Humidity    float64 `gorm:"column:humidity" json:"humidity"`
	PH          float64 `gorm:"column:ph" json:"ph"`

	IsEnabled      bool `gorm:"column:is_enabled" json:"isEnabled"`
	IrrIntensity   int  `gorm:"column:irr_intensity" json:"irrIntensity"`
	IrrTime        int  `gorm:"column:irr_time" json:"irrTime"`
	IrrOn          bool `gorm:"column:irr_on" json:"irrOn"`
	LightIntensity int  `gorm:"column:light_intensity" json:"lightIntensity"`
}

func (Device) TableName() string {
	return "devices"
}

// NewDevice returns a record with the documented first-contact defaults.
func NewDevice(deviceID, name string, now time.Time) Device {
	return Device{
		DeviceID:       deviceID,
		DeviceName:     name,
		LastSeenAt:     now,
		IrrIntensity:   DefaultIrrIntensity,
		IrrTime:        DefaultIrrTime,
		LightIntensity: DefaultLightIntensity,
	}
}

// Stale reports whether the device has not checked in recently.
func (d Device) Stale(now time.Time) bool {
	return now.Sub(d.LastSeenAt) >= StaleAfter
}
