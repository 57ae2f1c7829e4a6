// Package backend defines the wire-level constants shared with the SubSense
// backend.
package backend

const (
	AuthorizationHeader = "Authorization"
	AppNameHeader       = "X-SubSense-App"
	VersionHeader       = "X-SubSense-Version"
	PlatformHeader      = "X-SubSense-Platform"
	DeviceIDHeader      = "X-SubSense-Device-Id"
)
