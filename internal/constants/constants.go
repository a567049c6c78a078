// Package constants defines application-wide constants and version information.
package constants

import "runtime"

// Version holds the application version information.
const Version = "1.0-" + runtime.GOOS + "/" + runtime.GOARCH

// ConfigVersionMajor is the configuration document major version this build
// requires. A configuration whose major version differs is rejected outright.
const ConfigVersionMajor = 1

// ConfigVersionMinor is the minimum configuration document minor version this
// build understands. A configuration with a lower minor version is rejected.
const ConfigVersionMinor = 0
