// Package volume adjusts the host system's master volume on behalf of the
// microcontroller's potentiometer.
package volume

import volumego "github.com/itchyny/volume-go"

// Service gets and sets the system master volume as a percentage.
type Service interface {
	Get() (int, error)
	Set(percent int) error
}

// System controls the host's master volume.
type System struct{}

func (System) Get() (int, error) {
	return volumego.GetVolume()
}

func (System) Set(percent int) error {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return volumego.SetVolume(percent)
}

// Noop ignores volume commands; used with --no-volume and in tests.
type Noop struct{}

func (Noop) Get() (int, error) { return 0, nil }
func (Noop) Set(int) error     { return nil }
