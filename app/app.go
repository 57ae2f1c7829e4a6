package app

const (
	Name = "subsense"

	Version  = "0.3.1"
	Platform = "desktop"

	LogFileName = "subsense.log"
)
