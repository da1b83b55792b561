// Package disk2 implements the Disk II floppy controller register window
// ($C0E0-$C0EF): the four-phase stepper motor, drive motor/select, and the
// Q6/Q7 shift-register read/write latch, driving nibblized .nib track
// images. spec.md §1 names the FDC an opaque external collaborator; this
// is the concrete sub-device the peripheral harness coordinates with, kept
// deliberately simple since the controller's own bit-cell timing is out of
// scope.
package disk2

const (
	// TracksPerDisk is the standard 5.25" floppy track count.
	TracksPerDisk = 35
	// QuarterTracksPerDisk is the number of quarter-track head positions
	// the stepper can address: four per track.
	QuarterTracksPerDisk = TracksPerDisk * 4
	// NibBytesPerTrack is the standard raw .nib track length.
	NibBytesPerTrack = 6656
	// NumDrives is the number of drives one controller manages.
	NumDrives = 2
)

// Drive holds one inserted (or absent) nibblized disk image.
type Drive struct {
	image        []byte
	writeProtect bool
	bytePos      int
}

// Insert mounts a raw .nib image. An empty slice leaves the drive empty.
func (d *Drive) Insert(nib []byte, writeProtect bool) {
	d.image = nib
	d.writeProtect = writeProtect
	d.bytePos = 0
}

// Eject removes whatever image is mounted.
func (d *Drive) Eject() {
	d.image = nil
	d.bytePos = 0
}

// Inserted reports whether a disk image is currently mounted.
func (d *Drive) Inserted() bool { return len(d.image) > 0 }

// FDC is the four-phase-stepper Disk II controller.
type FDC struct {
	Drives [NumDrives]Drive

	selected int
	motorOn  bool
	phases   [4]bool

	quarterTrack int

	q6        bool
	q7        bool
	dataLatch uint8

	rotationCounter uint32
}

// New returns a controller with both drive bays empty.
func New() *FDC { return &FDC{} }

// Reset restores controller state (stepper phases, motor, Q6/Q7) without
// disturbing whatever disks are currently inserted.
func (f *FDC) Reset() {
	drives := f.Drives
	*f = FDC{Drives: drives}
}

// InsertDisk mounts an image into the given drive bay (0 or 1).
func (f *FDC) InsertDisk(drive int, nib []byte, writeProtect bool) {
	if drive < 0 || drive >= NumDrives {
		return
	}
	f.Drives[drive].Insert(nib, writeProtect)
}

func (f *FDC) currentDrive() *Drive { return &f.Drives[f.selected] }

func (f *FDC) setPhase(phase uint8, on bool) {
	f.phases[phase&3] = on
	if !on {
		return
	}
	// A phase turning on one position clockwise or counter-clockwise of
	// the currently engaged phase nudges the head by one quarter track.
	current := f.quarterTrack & 3
	switch (int(phase) - current + 4) % 4 {
	case 1:
		if f.quarterTrack < QuarterTracksPerDisk-1 {
			f.quarterTrack++
		}
	case 3:
		if f.quarterTrack > 0 {
			f.quarterTrack--
		}
	}
}

// Track reports the current physical track (0-34) under the head.
func (f *FDC) Track() int { return f.quarterTrack / 4 }

func (f *FDC) trackOffset() int { return f.Track() * NibBytesPerTrack }

func (f *FDC) latchByte() {
	d := f.currentDrive()
	if !d.Inserted() {
		f.dataLatch = 0
		return
	}
	off := f.trackOffset() + d.bytePos
	if off >= len(d.image) {
		f.dataLatch = 0
		return
	}
	f.dataLatch = d.image[off]
	d.bytePos = (d.bytePos + 1) % NibBytesPerTrack
}

func (f *FDC) commitByte() {
	d := f.currentDrive()
	if !d.Inserted() || d.writeProtect {
		return
	}
	off := f.trackOffset() + d.bytePos
	if off < len(d.image) {
		d.image[off] = f.dataLatch
	}
	d.bytePos = (d.bytePos + 1) % NibBytesPerTrack
}

func (f *FDC) writeProtectStatus() uint8 {
	if f.currentDrive().writeProtect {
		return 0x80
	}
	return 0x00
}

// Read services a CPU read of register reg (0x0-0xF).
func (f *FDC) Read(reg uint8) uint8 {
	return f.access(reg&0xF, false, 0)
}

// Write services a CPU write of v to register reg (0x0-0xF).
func (f *FDC) Write(reg uint8, v uint8) {
	f.access(reg&0xF, true, v)
}

func (f *FDC) access(reg uint8, isWrite bool, data uint8) uint8 {
	switch {
	case reg <= 0x07:
		f.setPhase(reg>>1, reg&1 == 1)
	case reg == 0x08:
		f.motorOn = false
	case reg == 0x09:
		f.motorOn = true
	case reg == 0x0A:
		f.selected = 0
	case reg == 0x0B:
		f.selected = 1
	case reg == 0x0C: // Q6L
		f.q6 = false
		if f.q7 {
			f.commitByte()
		} else {
			f.latchByte()
		}
	case reg == 0x0D: // Q6H
		f.q6 = true
		if isWrite {
			f.dataLatch = data
		} else if !f.q7 {
			return f.writeProtectStatus()
		}
	case reg == 0x0E: // Q7L: read mode
		f.q7 = false
	case reg == 0x0F: // Q7H: write mode
		f.q7 = true
	}
	return f.dataLatch
}

// Tick advances the controller's rotation timer. The core calls this
// every 128 system ticks regardless of motor state.
func (f *FDC) Tick() {
	f.rotationCounter++
}

// Snapshot is the gob-serializable controller state. Mounted disk images
// are not included: a host restoring a snapshot is expected to have the
// same images already mounted, the same way real emulators re-attach
// media rather than embed it in a save state.
type Snapshot struct {
	Selected     int
	MotorOn      bool
	Phases       [4]bool
	QuarterTrack int
	Q6, Q7       bool
	DataLatch    uint8
	BytePos      [NumDrives]int
}

// Save captures the controller's register/position state.
func (f *FDC) Save() Snapshot {
	s := Snapshot{
		Selected:     f.selected,
		MotorOn:      f.motorOn,
		Phases:       f.phases,
		QuarterTrack: f.quarterTrack,
		Q6:           f.q6,
		Q7:           f.q7,
		DataLatch:    f.dataLatch,
	}
	for i := range f.Drives {
		s.BytePos[i] = f.Drives[i].bytePos
	}
	return s
}

// Restore replaces the controller's register/position state from s.
func (f *FDC) Restore(s Snapshot) {
	f.selected = s.Selected
	f.motorOn = s.MotorOn
	f.phases = s.Phases
	f.quarterTrack = s.QuarterTrack
	f.q6 = s.Q6
	f.q7 = s.Q7
	f.dataLatch = s.DataLatch
	for i := range f.Drives {
		if i < len(s.BytePos) {
			f.Drives[i].bytePos = s.BytePos[i]
		}
	}
}
