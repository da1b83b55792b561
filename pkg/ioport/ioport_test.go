package ioport

import (
	"testing"

	"github.com/kris92/reload-emulator/pkg/membank"
)

type fakeCPU struct {
	data     uint8
	cxxx     bool
	slotData bool
}

func (f *fakeCPU) Reset()                    {}
func (f *fakeCPU) Tick() (uint16, bool)      { return 0, false }
func (f *fakeCPU) Data() uint8               { return f.data }
func (f *fakeCPU) SetData(v uint8)           { f.data = v }
func (f *fakeCPU) SetCxxxAccess(in bool)     { f.cxxx = in }
func (f *fakeCPU) SetSlotData(floating bool) { f.slotData = floating }

type fakeFDC struct {
	lastReg   uint8
	lastWrite uint8
	written   bool
}

func (f *fakeFDC) Read(reg uint8) uint8 {
	f.lastReg = reg
	return 0x37
}
func (f *fakeFDC) Write(reg uint8, v uint8) {
	f.lastReg = reg
	f.lastWrite = v
	f.written = true
}

type fakeBeeper struct{ toggled int }

func (b *fakeBeeper) Toggle() { b.toggled++ }

func newTestMMU(t *testing.T) *membank.MMU {
	t.Helper()
	m, err := membank.New(make([]byte, 0x4000), make([]byte, 0x1000))
	if err != nil {
		t.Fatalf("membank.New: %v", err)
	}
	return m
}

func TestKeyboardLatchReadDoesNotClearHighBit(t *testing.T) {
	mm := newTestMMU(t)
	p := &Port{LastKeyCode: 0xC1}
	c := &fakeCPU{}

	p.Dispatch(mm, c, 0xC000, false)
	if c.data != 0xC1 {
		t.Fatalf("expected latch byte 0xC1, got %#x", c.data)
	}
	if p.LastKeyCode != 0xC1 {
		t.Fatal("reading $C000 must not clear the strobe bit")
	}
}

func TestKeyboardStrobeClearClearsHighBitOnly(t *testing.T) {
	mm := newTestMMU(t)
	p := &Port{LastKeyCode: 0xC1}
	c := &fakeCPU{}

	p.Dispatch(mm, c, 0xC010, false)
	if p.LastKeyCode != 0x41 {
		t.Fatalf("expected high bit cleared, code preserved: got %#x", p.LastKeyCode)
	}
}

func TestSpeakerToggleFiresOnAnyAccessInRange(t *testing.T) {
	mm := newTestMMU(t)
	beeper := &fakeBeeper{}
	p := &Port{Beeper: beeper}
	c := &fakeCPU{}

	p.Dispatch(mm, c, 0xC030, false)
	p.Dispatch(mm, c, 0xC03F, true)
	if beeper.toggled != 2 {
		t.Fatalf("expected 2 toggles, got %d", beeper.toggled)
	}
}

func TestDisplaySwitchesMutateFlags(t *testing.T) {
	mm := newTestMMU(t)
	p := &Port{}
	c := &fakeCPU{}

	p.Dispatch(mm, c, 0xC051, true) // TEXT on
	if !mm.Flags.Text {
		t.Fatal("expected Text=true after $C051")
	}
	p.Dispatch(mm, c, 0xC050, true) // TEXT off
	if mm.Flags.Text {
		t.Fatal("expected Text=false after $C050")
	}
}

func TestDHiresGatedByIOUDis(t *testing.T) {
	mm := newTestMMU(t)
	p := &Port{}
	c := &fakeCPU{}

	mm.Flags.IOUDis = false
	p.Dispatch(mm, c, 0xC05E, true)
	if mm.Flags.DHires {
		t.Fatal("DHIRES write must be ignored while IOUDIS is clear")
	}

	mm.Flags.IOUDis = true
	p.Dispatch(mm, c, 0xC05E, true)
	if !mm.Flags.DHires {
		t.Fatal("DHIRES write should take effect once IOUDIS is set")
	}
}

func TestIOUDisReadReturnsInvertedFlagAndWriteSetsIt(t *testing.T) {
	mm := newTestMMU(t)
	p := &Port{}
	c := &fakeCPU{}

	mm.Flags.IOUDis = false
	p.Dispatch(mm, c, 0xC07E, false)
	if c.data != 0x80 {
		t.Fatalf("expected 0x80 read for IOUDis clear (bit 7 inverted), got %#x", c.data)
	}

	p.Dispatch(mm, c, 0xC07E, true)
	if !mm.Flags.IOUDis {
		t.Fatal("write to $C07E should set IOUDis")
	}

	p.Dispatch(mm, c, 0xC07E, false)
	if c.data != 0x00 {
		t.Fatalf("expected 0x00 read for IOUDis set (bit 7 inverted), got %#x", c.data)
	}
}

func TestDHiresReadIsInverted(t *testing.T) {
	mm := newTestMMU(t)
	p := &Port{}
	c := &fakeCPU{}

	mm.Flags.DHires = false
	p.Dispatch(mm, c, 0xC07F, false)
	if c.data != 0x80 {
		t.Fatalf("expected 0x80 read for DHires clear (bit 7 inverted), got %#x", c.data)
	}

	mm.Flags.DHires = true
	p.Dispatch(mm, c, 0xC07F, false)
	if c.data != 0x00 {
		t.Fatalf("expected 0x00 read for DHires set (bit 7 inverted), got %#x", c.data)
	}
}

func TestLanguageCardWindowRoutesIntoMMU(t *testing.T) {
	mm := newTestMMU(t)
	p := &Port{}
	c := &fakeCPU{}

	p.Dispatch(mm, c, 0xC083, false)
	p.Dispatch(mm, c, 0xC083, false)
	if !mm.Flags.WriteEnabled {
		t.Fatal("double read strobe at $C083 should arm write-enable")
	}
}

func TestFDCWindowRoutesToDeviceWhenPresent(t *testing.T) {
	mm := newTestMMU(t)
	fdc := &fakeFDC{}
	p := &Port{FDC: fdc}
	c := &fakeCPU{}

	p.Dispatch(mm, c, 0xC0E0, false)
	if c.data != 0x37 {
		t.Fatalf("expected FDC.Read result, got %#x", c.data)
	}
	if fdc.lastReg != 0 {
		t.Fatalf("expected register 0, got %d", fdc.lastReg)
	}

	c.data = 0x99
	p.Dispatch(mm, c, 0xC0EC, true)
	if !fdc.written || fdc.lastWrite != 0x99 || fdc.lastReg != 0x0C {
		t.Fatalf("expected FDC.Write(0x0C, 0x99), got reg=%d v=%#x written=%v", fdc.lastReg, fdc.lastWrite, fdc.written)
	}
}

func TestFDCWindowAbsentReturnsZero(t *testing.T) {
	mm := newTestMMU(t)
	p := &Port{}
	c := &fakeCPU{data: 0xFF}

	p.Dispatch(mm, c, 0xC0E5, false)
	if c.data != 0 {
		t.Fatalf("expected 0 with no FDC attached, got %#x", c.data)
	}
}

func TestOpenAppleAliasesBothAddresses(t *testing.T) {
	mm := newTestMMU(t)
	p := &Port{OpenApplePressed: true}
	c := &fakeCPU{}

	p.Dispatch(mm, c, 0xC061, false)
	if c.data != 0x80 {
		t.Fatalf("expected 0x80 at $C061, got %#x", c.data)
	}
	c.data = 0
	p.Dispatch(mm, c, 0xC069, false)
	if c.data != 0x80 {
		t.Fatalf("expected 0x80 at $C069, got %#x", c.data)
	}
}

func TestSlotWindowsFloatBus(t *testing.T) {
	mm := newTestMMU(t)
	p := &Port{}
	c := &fakeCPU{}

	p.Dispatch(mm, c, 0xC0A5, false)
	if !c.slotData {
		t.Fatal("expected SetSlotData(true) for unimplemented slot-2 ($C0A0-$C0AF window)")
	}
}
