// Package ioport implements the $C000-$C0FF soft-switch dispatcher: the
// keyboard latch, the one-bit speaker toggle, the display-mode switches,
// the Open-/Solid-Apple paddle-button reads, the IOUDIS/DHIRES pair, and
// the register windows handed off to the FDC and HDC peripherals.
//
// Everything outside $C000-$C0FF (including the $C100-$CFFF slot-ROM
// window) is the memory router's job, not this dispatcher's — see
// membank.MMU.Access.
package ioport

import (
	"github.com/kris92/reload-emulator/pkg/cpu"
	"github.com/kris92/reload-emulator/pkg/membank"
)

// FDC is the register-window surface the Disk II controller exposes to
// the dispatcher at $C0E0-$C0EF.
type FDC interface {
	Read(reg uint8) uint8
	Write(reg uint8, v uint8)
}

// HDC is the register-window surface the ProDOS block controller exposes
// at $C0F0-$C0FF. It receives the MMU directly because block transfers
// are DMA-like, moving bytes into and out of guest memory.
type HDC interface {
	Read(reg uint8) uint8
	Write(reg uint8, v uint8, mm *membank.MMU)
}

// Beeper is the one-bit audio toggle driven by any access in $C030-$C03F.
type Beeper interface {
	Toggle()
}

// Port is the I/O dispatcher's own state: the keyboard latch and the two
// modifier-key flags it tracks independently of the MMU's soft switches.
type Port struct {
	LastKeyCode       uint8
	OpenApplePressed  bool
	SolidApplePressed bool

	FDC    FDC
	HDC    HDC
	Beeper Beeper
}

func boolByte(b bool) uint8 {
	if b {
		return 0x80
	}
	return 0x00
}

// Dispatch services one CPU bus transaction already known to fall in
// $C000-$C0FF.
func (p *Port) Dispatch(mm *membank.MMU, c cpu.CPU, addr uint16, write bool) {
	c.SetCxxxAccess(true)
	off := addr & 0xFF

	switch {
	case off <= 0x0F:
		c.SetSlotData(false)
		if write {
			p.writeSwitch(mm, off)
		} else {
			c.SetData(p.LastKeyCode)
		}
	case off == 0x10:
		c.SetSlotData(false)
		p.LastKeyCode &^= 0x80
		if !write {
			c.SetData(p.LastKeyCode)
		}
	case off >= 0x11 && off <= 0x1F:
		c.SetSlotData(false)
		if !write {
			c.SetData(p.readStatus(mm, off))
		}
	case off >= 0x30 && off <= 0x3F:
		c.SetSlotData(true)
		if p.Beeper != nil {
			p.Beeper.Toggle()
		}
	case off >= 0x50 && off <= 0x5F:
		c.SetSlotData(false)
		p.dispatchDisplay(mm, off)
	case off == 0x61 || off == 0x69:
		c.SetSlotData(false)
		if !write {
			c.SetData(boolByte(p.OpenApplePressed))
		}
	case off == 0x62 || off == 0x6A:
		c.SetSlotData(false)
		if !write {
			c.SetData(boolByte(p.SolidApplePressed))
		}
	case off == 0x7E:
		c.SetSlotData(false)
		if !write {
			c.SetData(boolByte(!mm.Flags.IOUDis))
		} else {
			mm.Flags.IOUDis = true
		}
	case off == 0x7F:
		c.SetSlotData(false)
		if !write {
			c.SetData(boolByte(!mm.Flags.DHires))
		} else {
			mm.Flags.IOUDis = false
		}
	case off >= 0x80 && off <= 0x8F:
		c.SetSlotData(false)
		mm.LCControl(uint8(off), !write)
		if !write {
			c.SetData(0xFF)
		}
	case (off >= 0xA0 && off <= 0xAF) || (off >= 0xC0 && off <= 0xCF):
		c.SetSlotData(true)
	case off >= 0xE0 && off <= 0xEF:
		c.SetSlotData(false)
		p.dispatchFDC(c, off, write)
	case off >= 0xF0:
		c.SetSlotData(false)
		p.dispatchHDC(mm, c, off, write)
	default:
		c.SetSlotData(false)
	}
}

func (p *Port) writeSwitch(mm *membank.MMU, off uint16) {
	switch off {
	case 0x00:
		mm.SetStore80(false)
	case 0x01:
		mm.SetStore80(true)
	case 0x02:
		mm.SetRamRD(false)
	case 0x03:
		mm.SetRamRD(true)
	case 0x04:
		mm.SetRamWRT(false)
	case 0x05:
		mm.SetRamWRT(true)
	case 0x06:
		mm.Flags.IntCxROM = false
	case 0x07:
		mm.Flags.IntCxROM = true
	case 0x08:
		mm.SetAltZP(false)
	case 0x09:
		mm.SetAltZP(true)
	case 0x0A:
		mm.Flags.SlotC3ROM = false
	case 0x0B:
		mm.Flags.SlotC3ROM = true
	case 0x0C:
		mm.Flags.Col80 = false
	case 0x0D:
		mm.Flags.Col80 = true
	case 0x0E:
		mm.Flags.AltCharset = false
	case 0x0F:
		mm.Flags.AltCharset = true
	}
}

func (p *Port) readStatus(mm *membank.MMU, off uint16) uint8 {
	switch off {
	case 0x11:
		return boolByte(mm.Flags.LCBnk2)
	case 0x12:
		return boolByte(mm.Flags.LCRam)
	case 0x13:
		return boolByte(mm.Flags.RamRD)
	case 0x14:
		return boolByte(mm.Flags.RamWRT)
	case 0x15:
		return boolByte(mm.Flags.IntCxROM)
	case 0x16:
		return boolByte(mm.Flags.AltZP)
	case 0x17:
		return boolByte(mm.Flags.SlotC3ROM)
	case 0x18:
		return boolByte(mm.Flags.Store80)
	case 0x19:
		return boolByte(mm.Flags.VBL)
	case 0x1A:
		return boolByte(mm.Flags.Text)
	case 0x1B:
		return boolByte(mm.Flags.Mixed)
	case 0x1C:
		return boolByte(mm.Flags.Page2)
	case 0x1D:
		return boolByte(mm.Flags.Hires)
	case 0x1E:
		return boolByte(mm.Flags.AltCharset)
	case 0x1F:
		return boolByte(mm.Flags.Col80)
	}
	return 0
}

func (p *Port) dispatchDisplay(mm *membank.MMU, off uint16) {
	switch off {
	case 0x50:
		mm.Flags.Text = false
	case 0x51:
		mm.Flags.Text = true
	case 0x52:
		mm.Flags.Mixed = false
	case 0x53:
		mm.Flags.Mixed = true
	case 0x54:
		mm.SetPage2(false)
	case 0x55:
		mm.SetPage2(true)
	case 0x56:
		mm.SetHires(false)
	case 0x57:
		mm.SetHires(true)
	case 0x5E:
		if mm.Flags.IOUDis {
			mm.Flags.DHires = true
		}
	case 0x5F:
		if mm.Flags.IOUDis {
			mm.Flags.DHires = false
		}
	}
}

func (p *Port) dispatchFDC(c cpu.CPU, off uint16, write bool) {
	if p.FDC == nil {
		if !write {
			c.SetData(0)
		}
		return
	}
	reg := uint8(off & 0x0F)
	if write {
		p.FDC.Write(reg, c.Data())
	} else {
		c.SetData(p.FDC.Read(reg))
	}
}

func (p *Port) dispatchHDC(mm *membank.MMU, c cpu.CPU, off uint16, write bool) {
	if p.HDC == nil {
		if !write {
			c.SetData(0)
		}
		return
	}
	reg := uint8(off & 0x0F)
	if write {
		p.HDC.Write(reg, c.Data(), mm)
	} else {
		c.SetData(p.HDC.Read(reg))
	}
}
