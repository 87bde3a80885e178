package wm

import (
	"slices"

	"github.com/mstarongithub/way2kiosk/backend"
)

const SeatName = "seat0"

type Device struct {
	ID   backend.DeviceID
	Kind backend.DeviceKind
	Name string
}

// Seat is the one set of input devices this server serves
type Seat struct {
	Name string
	// Pointer position in layout coordinates
	X, Y      float64
	Modifiers backend.Modifiers
	// Zero if no keyboard is attached
	Keyboard backend.DeviceID

	devices map[backend.DeviceID]*Device
}

func NewSeat() *Seat {
	return &Seat{
		Name:    SeatName,
		devices: map[backend.DeviceID]*Device{},
	}
}

func (s *Seat) AddDevice(dev *Device) {
	s.devices[dev.ID] = dev
}

// RemoveDevice forgets the device. If it was the active keyboard, another keyboard takes over.
// Returns the removed device, nil if it wasn't known
func (s *Seat) RemoveDevice(id backend.DeviceID) *Device {
	dev, ok := s.devices[id]
	if !ok {
		return nil
	}
	delete(s.devices, id)
	if s.Keyboard == id {
		s.Keyboard = 0
		if kbds := s.Keyboards(); len(kbds) > 0 {
			s.Keyboard = kbds[len(kbds)-1]
		}
	}
	return dev
}

func (s *Seat) Device(id backend.DeviceID) (*Device, bool) {
	dev, ok := s.devices[id]
	return dev, ok
}

// Keyboards returns the ids of attached keyboards, ascending
func (s *Seat) Keyboards() []backend.DeviceID {
	ids := []backend.DeviceID{}
	for id, dev := range s.devices {
		if dev.Kind == backend.DeviceKeyboard {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// Devices returns every attached device ordered by id
func (s *Seat) Devices() []*Device {
	devs := make([]*Device, 0, len(s.devices))
	for _, dev := range s.devices {
		devs = append(devs, dev)
	}
	slices.SortFunc(devs, func(a, b *Device) int {
		return int(a.ID) - int(b.ID)
	})
	return devs
}

// Capabilities advertised to clients.
// There always is a cursor, even without a pointer device, so pointer is always included
func (s *Seat) Capabilities() backend.Capabilities {
	caps := backend.CapPointer
	if len(s.Keyboards()) > 0 {
		caps |= backend.CapKeyboard
	}
	return caps
}
