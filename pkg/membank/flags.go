package membank

// Flags holds every soft-switch-controlled boolean the core tracks. All
// of them default false at power-on except the handful Reset sets
// explicitly (see Reset).
type Flags struct {
	Text       bool
	Mixed      bool
	Page2      bool
	Hires      bool
	DHires     bool
	Col80      bool
	AltCharset bool

	Store80   bool
	RamRD     bool
	RamWRT    bool
	AltZP     bool
	IntCxROM  bool
	SlotC3ROM bool

	LCRam        bool
	LCBnk2       bool
	PreWrite     bool
	WriteEnabled bool

	IOUDis bool
	VBL    bool
	Flash  bool
}
