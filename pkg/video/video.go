// Package video implements the NTSC-ish renderer: text, lo-res, hi-res
// and double hi-res row updates, the hi-res artifact-color lookup table,
// and the 560x192 4-bit-per-pixel packed framebuffer.
//
// Ported directly from the reference firmware's
// _apple2e_render_line_monochrome/_apple2e_render_line_color/
// _apple2e_text_update/_apple2e_lores_update/_apple2e_hgr_update/
// _apple2e_dhgr_update family (original_source/src/systems/apple2e.h),
// expressed against membank.MMU instead of a single monolithic system
// struct.
package video

import "github.com/kris92/reload-emulator/pkg/membank"

const (
	ScreenWidth  = 560
	ScreenHeight = 192

	bytesPerRow      = ScreenWidth / 2
	FramebufferSize  = bytesPerRow * ScreenHeight
	textColumns      = 40
)

// artifactLUT is the 128-entry hi-res artifact-color table, transcribed
// verbatim from the reference firmware.
var artifactLUT = [128]uint8{
	0x00, 0x00, 0x00, 0x00, 0x88, 0x00, 0x00, 0x00, 0x11, 0x11, 0x55, 0x11, 0x99, 0x99, 0xDD, 0xFF,
	0x22, 0x22, 0x66, 0x66, 0xAA, 0xAA, 0xEE, 0xEE, 0x33, 0x33, 0x33, 0x33, 0xBB, 0xBB, 0xFF, 0xFF,
	0x00, 0x00, 0x44, 0x44, 0xCC, 0xCC, 0xCC, 0xCC, 0x55, 0x55, 0x55, 0x55, 0x99, 0x99, 0xDD, 0xFF,
	0x00, 0x22, 0x66, 0x66, 0xEE, 0xAA, 0xEE, 0xEE, 0x77, 0x77, 0x77, 0x77, 0xFF, 0xFF, 0xFF, 0xFF,
	0x00, 0x00, 0x00, 0x00, 0x88, 0x88, 0x88, 0x88, 0x11, 0x11, 0x55, 0x11, 0x99, 0x99, 0xDD, 0xFF,
	0x00, 0x22, 0x66, 0x66, 0xAA, 0xAA, 0xAA, 0xAA, 0x33, 0x33, 0x33, 0x33, 0xBB, 0xBB, 0xFF, 0xFF,
	0x00, 0x00, 0x44, 0x44, 0xCC, 0xCC, 0xCC, 0xCC, 0x11, 0x11, 0x55, 0x55, 0x99, 0x99, 0xDD, 0xDD,
	0x00, 0x22, 0x66, 0x66, 0xEE, 0xAA, 0xEE, 0xEE, 0xFF, 0xFF, 0xFF, 0x77, 0xFF, 0xFF, 0xFF, 0xFF,
}

func rotl4b(n, count uint32) uint32 {
	return (n >> ((0 - count) & 3)) & 0xF
}

func rotl4(n, count uint32) uint32 {
	return rotl4b(n*0x11, count)
}

func double7Bits(bits uint8) uint16 {
	var result uint16
	for i := 6; i >= 0; i-- {
		bit := uint16(0)
		if bits&(1<<uint(i)) != 0 {
			bit = 1
		}
		result = (result << 1) | bit
		result = (result << 1) | bit
	}
	return result
}

func nibble(b byte, row int) byte {
	return (b >> uint(row&4)) & 0x0F
}

// Renderer owns the packed framebuffer produced by Update.
type Renderer struct {
	FB [FramebufferSize]byte
}

func fbOffset(row int) int { return row * bytesPerRow }

func renderLineMonochrome(out []byte, in [textColumns]uint16, startCol, stopCol int) {
	w := uint32(in[startCol])
	for col := startCol; col < stopCol; col++ {
		if col+1 < textColumns {
			w |= uint32(in[col+1]) << 14
		}
		for b := 0; b < 7; b++ {
			var c1 uint8
			if w&1 != 0 {
				c1 = 0x0F
			}
			w >>= 1
			var c2 uint8
			if w&1 != 0 {
				c2 = 0x0F
			}
			w >>= 1
			out[col*7+b] = (c1 << 4) | c2
		}
	}
}

func renderLineColor(out []byte, in [textColumns]uint16, startCol, stopCol int, col80 bool) {
	var off uint32
	if col80 {
		off = 1
	}
	w := uint32(in[startCol]) << 3
	for col := startCol; col < stopCol; col++ {
		if col+1 < textColumns {
			w |= uint32(in[col+1]) << 17
		}
		for b := 0; b < 7; b++ {
			c1 := rotl4b(uint32(artifactLUT[w&0x7F]), uint32(col*14+b*2)+off)
			w >>= 1
			c2 := rotl4b(uint32(artifactLUT[w&0x7F]), uint32(col*14+b*2+1)+off)
			w >>= 1
			out[col*7+b] = byte((c1 << 4) | c2)
		}
	}
}

func getTextCharacter(m *membank.MMU, code uint8, row int) uint8 {
	invertMask := uint8(0x7F)
	if !m.Flags.AltCharset {
		if code >= 0x40 && code <= 0x7F {
			code &= 0x3F
			if m.Flags.Flash {
				invertMask ^= 0x7F
			}
		}
	} else if code >= 0x60 && code <= 0x7F {
		code |= 0x80
		invertMask ^= 0x7F
	}
	bits := m.CharacterROM[int(code)*8+row]
	bits &= 0x7F
	bits ^= invertMask
	return bits
}

func textRowAddress(base uint16, row int) uint16 {
	rt := uint16(row / 8)
	return base + ((rt & 0x07) << 7) + (rt&0x18)*5
}

func (r *Renderer) textUpdate(m *membank.MMU, beginRow, endRow int) {
	dirty := m.TextPage1Dirty
	if m.Flags.Page2 {
		dirty = m.TextPage2Dirty
	}
	if !dirty {
		return
	}

	startAddress := uint16(0x0400)
	if m.Flags.Page2 && !m.Flags.Store80 {
		startAddress = 0x0800
	}

	for row := beginRow; row <= endRow; row++ {
		address := textRowAddress(startAddress, row)
		mainRow := m.RAM[address:]
		auxRow := m.AuxRAM[address:]

		var words [textColumns]uint16
		for col := 0; col < textColumns; col++ {
			if m.Flags.Col80 {
				lo := getTextCharacter(m, auxRow[col], row&7)
				hi := getTextCharacter(m, mainRow[col], row&7)
				words[col] = uint16(lo) | (uint16(hi) << 7)
			} else {
				words[col] = double7Bits(getTextCharacter(m, mainRow[col], row&7))
			}
		}
		renderLineMonochrome(r.FB[fbOffset(row):], words, 0, textColumns)
	}

	if m.Flags.Page2 {
		m.TextPage2Dirty = false
	} else {
		m.TextPage1Dirty = false
	}
}

func (r *Renderer) lowresUpdate(m *membank.MMU, beginRow, endRow int) {
	dirty := m.TextPage1Dirty
	if m.Flags.Page2 {
		dirty = m.TextPage2Dirty
	}
	if !dirty {
		return
	}

	double := m.Flags.DHires && m.Flags.Col80
	startAddress := uint16(0x0400)
	if m.Flags.Page2 && !m.Flags.Store80 {
		startAddress = 0x0800
	}

	startRow := (beginRow / 8) * 8
	stopRow := ((endRow / 8) + 1) * 8

	for row := startRow; row < stopRow; row += 4 {
		address := textRowAddress(startAddress, row)
		mainRow := m.RAM[address:]
		auxRow := m.AuxRAM[address:]
		rowBase := fbOffset(row)
		p := rowBase

		for col := 0; col < textColumns; col++ {
			if double {
				c := byte(rotl4(uint32(nibble(auxRow[col], row)), 1))
				for b := 0; b < 3; b++ {
					r.FB[p] = (c << 4) | c
					p++
				}
				c2 := nibble(mainRow[col], row)
				r.FB[p] = (c << 4) | c2
				p++
				for b := 0; b < 3; b++ {
					r.FB[p] = (c2 << 4) | c2
					p++
				}
			} else {
				c := nibble(mainRow[col], row)
				packed := (c << 4) | c
				for b := 0; b < 7; b++ {
					r.FB[p] = packed
					p++
				}
			}
		}

		for y := 1; y < 4 && row+y < ScreenHeight; y++ {
			copy(r.FB[fbOffset(row+y):fbOffset(row+y)+bytesPerRow], r.FB[rowBase:rowBase+bytesPerRow])
		}
	}

	if m.Flags.Page2 {
		m.TextPage2Dirty = false
	} else {
		m.TextPage1Dirty = false
	}
}

func hiresRowAddress(base uint16, row int) uint16 {
	rt := uint16(row / 8)
	return base + ((rt & 0x07) << 7) + (rt&0x18)*5 + (uint16(row&7) << 10)
}

func (r *Renderer) hgrUpdate(m *membank.MMU, beginRow, endRow int) {
	dirty := m.HiresPage1Dirty
	if m.Flags.Page2 {
		dirty = m.HiresPage2Dirty
	}
	if !dirty {
		return
	}

	startAddress := uint16(0x2000)
	if m.Flags.Page2 && !m.Flags.Store80 {
		startAddress = 0x4000
	}

	for row := beginRow; row <= endRow; row++ {
		address := hiresRowAddress(startAddress, row)
		rowBytes := m.RAM[address:]

		var words [textColumns]uint16
		var lastBit uint16
		for col := 0; col < textColumns; col++ {
			w := double7Bits(rowBytes[col] & 0x7F)
			if rowBytes[col]&0x80 != 0 {
				w = ((w << 1) | lastBit) & 0x3FFF
			}
			words[col] = w
			lastBit = w >> 13
		}
		renderLineColor(r.FB[fbOffset(row):], words, 0, textColumns, false)
	}

	if m.Flags.Page2 {
		m.HiresPage2Dirty = false
	} else {
		m.HiresPage1Dirty = false
	}
}

func (r *Renderer) dhgrUpdate(m *membank.MMU, beginRow, endRow int) {
	dirty := m.HiresPage1Dirty
	if m.Flags.Page2 {
		dirty = m.HiresPage2Dirty
	}
	if !dirty {
		return
	}

	startAddress := uint16(0x2000)
	if m.Flags.Page2 && !m.Flags.Store80 {
		startAddress = 0x4000
	}

	for row := beginRow; row <= endRow; row++ {
		address := hiresRowAddress(startAddress, row)
		mainRow := m.RAM[address:]
		auxRow := m.AuxRAM[address:]

		var words [textColumns]uint16
		for col := 0; col < textColumns; col++ {
			words[col] = (uint16(auxRow[col]&0x7F) | (uint16(mainRow[col]&0x7F) << 7)) & 0x3FFF
		}
		renderLineColor(r.FB[fbOffset(row):], words, 0, textColumns, true)
	}

	if m.Flags.Page2 {
		m.HiresPage2Dirty = false
	} else {
		m.HiresPage1Dirty = false
	}
}

// Update redraws whatever portion of the screen the current soft switches
// and dirty flags call for: a mixed-mode split between a graphics region
// and a four-row text window, or either alone.
func (r *Renderer) Update(m *membank.MMU) {
	textStartRow := 0
	if !m.Flags.Text {
		textStartRow = ScreenHeight
		if m.Flags.Mixed {
			textStartRow = 160
		}
		switch {
		case m.Flags.Hires && m.Flags.DHires && m.Flags.Col80:
			r.dhgrUpdate(m, 0, textStartRow-1)
		case m.Flags.Hires:
			r.hgrUpdate(m, 0, textStartRow-1)
		default:
			r.lowresUpdate(m, 0, textStartRow-1)
		}
	}
	if textStartRow < ScreenHeight {
		r.textUpdate(m, textStartRow, ScreenHeight-1)
	}
}
