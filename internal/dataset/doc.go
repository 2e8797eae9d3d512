// Package dataset discovers tilt series directories and classifies the
// alignment metadata that determines each one's processing route.
package dataset
