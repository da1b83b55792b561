// Command sdl-display is an SDL2 front end for the Apple //e core: it
// opens a window, maps the 560x192 framebuffer onto a streaming texture,
// pumps SDL events into KeyDown/KeyUp, and drives the machine in real
// time. Modeled directly on the teacher's cmd/sdl-display/main.go (window/
// renderer/texture setup, the *sdl.KeyboardEvent/*sdl.QuitEvent event
// loop, and pacing via sdl.Delay).
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/kris92/reload-emulator/pkg/cpu"
	"github.com/kris92/reload-emulator/pkg/diskimage"
	"github.com/kris92/reload-emulator/pkg/machine"
	"github.com/kris92/reload-emulator/pkg/video"
)

const (
	windowScale = 2
	frameMicros = 16667 // ~60Hz
)

// NewCPU constructs the 65C02 decoder collaborator the core drives. No
// concrete decoder ships in this module (pkg/cpu.CPU documents why); a
// build wiring in a real one sets this before main runs. Left nil, the
// command reports a clear error instead of silently doing nothing.
var NewCPU func() cpu.CPU

// palette maps the core's 4-bit color indices to display RGB, in the
// Apple //e's conventional low-res color order.
var palette = [16][3]uint8{
	{0x00, 0x00, 0x00}, // black
	{0xA0, 0x20, 0x50}, // deep red
	{0x40, 0x20, 0xA0}, // dark blue
	{0xE0, 0x40, 0xE0}, // purple
	{0x20, 0x60, 0x20}, // dark green
	{0x60, 0x60, 0x60}, // gray 1
	{0x20, 0x40, 0xE0}, // medium blue
	{0xA0, 0xA0, 0xE0}, // light blue
	{0x60, 0x40, 0x20}, // brown
	{0xE0, 0x60, 0x20}, // orange
	{0xA0, 0xA0, 0xA0}, // gray 2
	{0xE0, 0xA0, 0xA0}, // pink
	{0x20, 0xE0, 0x20}, // green
	{0xE0, 0xE0, 0x40}, // yellow
	{0x40, 0xE0, 0xA0}, // aqua
	{0xFF, 0xFF, 0xFF}, // white
}

func main() {
	if len(os.Args) < 3 {
		log.Fatalf("usage: %s <rom.bin> <charrom.bin> [disk.nib]", os.Args[0])
	}
	romPath, charROMPath := os.Args[1], os.Args[2]

	rom, err := os.ReadFile(romPath)
	if err != nil {
		log.Fatalf("reading system ROM: %v", err)
	}
	charROM, err := os.ReadFile(charROMPath)
	if err != nil {
		log.Fatalf("reading character ROM: %v", err)
	}

	if NewCPU == nil {
		log.Fatalf("no 65C02 decoder wired in: set sdl-display.NewCPU before running")
	}

	// Every disk image named on the command line after the ROMs is both
	// mounted into drive 1 (the first one) and registered so the F1-F9
	// keys can swap among them, the way the reference firmware offers a
	// fixed table of embedded images to its key-down handler.
	images := &diskimage.Registry{}
	for _, diskPath := range os.Args[3:] {
		nib, err := os.ReadFile(diskPath)
		if err != nil {
			log.Fatalf("reading disk image: %v", err)
		}
		images.AddNib(diskPath, nib)
	}

	m, err := machine.Init(machine.Descriptor{
		CPU:          NewCPU(),
		ROM:          rom,
		CharacterROM: charROM,
		SampleHz:     44100,
		Volume:       0.25,
		Images:       images,
	})
	if err != nil {
		log.Fatalf("machine.Init: %v", err)
	}
	m.Reset()

	if first, ok := images.NibAt(0); ok {
		m.InsertFloppy(0, first.Data, false)
		fmt.Printf("inserted %s into drive 1\n", first.Name)
	}

	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		log.Fatalf("sdl.Init: %v", err)
	}
	defer sdl.Quit()

	window, err := sdl.CreateWindow(
		"Apple //e",
		sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
		int32(video.ScreenWidth*windowScale), int32(video.ScreenHeight*windowScale),
		sdl.WINDOW_SHOWN,
	)
	if err != nil {
		log.Fatalf("sdl.CreateWindow: %v", err)
	}
	defer window.Destroy()

	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED)
	if err != nil {
		log.Fatalf("sdl.CreateRenderer: %v", err)
	}
	defer renderer.Destroy()

	texture, err := renderer.CreateTexture(
		sdl.PIXELFORMAT_RGB24,
		sdl.TEXTUREACCESS_STREAMING,
		int32(video.ScreenWidth), int32(video.ScreenHeight),
	)
	if err != nil {
		log.Fatalf("renderer.CreateTexture: %v", err)
	}
	defer texture.Destroy()

	rgb := make([]byte, video.ScreenWidth*video.ScreenHeight*3)
	paused := false
	running := true

	for running {
		for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
			switch e := event.(type) {
			case *sdl.QuitEvent:
				running = false
			case *sdl.KeyboardEvent:
				handleKeyEvent(m, e, &paused, &running)
			}
		}

		if !paused {
			m.Exec(frameMicros)
			m.ScreenUpdate()
		}

		packToRGB(m.Framebuffer(), rgb)
		if err := texture.Update(nil, rgb, video.ScreenWidth*3); err != nil {
			log.Fatalf("texture.Update: %v", err)
		}

		renderer.Clear()
		renderer.Copy(texture, nil, nil)
		renderer.Present()

		sdl.Delay(1000 / 60)
	}
}

// packToRGB expands the core's 4bpp-packed framebuffer (two pixels per
// byte) into a 24-bit RGB buffer SDL can stream into a texture.
func packToRGB(fb []byte, rgb []byte) {
	out := 0
	for _, packed := range fb {
		hi := palette[packed>>4]
		lo := palette[packed&0x0F]
		rgb[out], rgb[out+1], rgb[out+2] = hi[0], hi[1], hi[2]
		out += 3
		rgb[out], rgb[out+1], rgb[out+2] = lo[0], lo[1], lo[2]
		out += 3
	}
}

// handleKeyEvent forwards a raw keysym to KeyDown/KeyUp, letting the core
// itself interpret arrows, the F-row, and the Apple modifier keys (see
// machine.KeyDown). Only pause and quit stay host-side controls, since
// neither has a key code in the core's escape-code space.
func handleKeyEvent(m *machine.Machine, e *sdl.KeyboardEvent, paused, running *bool) {
	down := e.Type == sdl.KEYDOWN

	switch e.Keysym.Sym {
	case sdl.K_PAUSE:
		if down {
			*paused = !*paused
		}
		return
	case sdl.K_ESCAPE:
		if down {
			*running = false
		}
		return
	}

	code, ok := keyCodeForKeysym(e.Keysym)
	if !ok {
		return
	}
	if down {
		m.KeyDown(code)
	} else {
		m.KeyUp(code)
	}
}

// keyCodeForKeysym maps an SDL keysym onto either a plain ASCII code or
// one of the core's reserved escape codes (arrows, F-row, GUI modifiers).
func keyCodeForKeysym(k sdl.Keysym) (uint16, bool) {
	switch k.Sym {
	case sdl.K_RETURN:
		return 0x0D, true
	case sdl.K_BACKSPACE:
		return 0x08, true
	case sdl.K_TAB:
		return 0x09, true
	case sdl.K_LEFT:
		return machine.ArrowLeftKeyCode, true
	case sdl.K_RIGHT:
		return machine.ArrowRightKeyCode, true
	case sdl.K_UP:
		return machine.ArrowUpKeyCode, true
	case sdl.K_DOWN:
		return machine.ArrowDownKeyCode, true
	case sdl.K_F1, sdl.K_F2, sdl.K_F3, sdl.K_F4, sdl.K_F5, sdl.K_F6, sdl.K_F7, sdl.K_F8, sdl.K_F9:
		return machine.F1KeyCode + uint16(k.Sym-sdl.K_F1), true
	case sdl.K_F12:
		return machine.F12KeyCode, true
	case sdl.K_LGUI:
		return machine.OpenAppleKeyCode, true
	case sdl.K_RGUI:
		return machine.SolidAppleKeyCode, true
	}
	if k.Sym >= 'a' && k.Sym <= 'z' {
		return uint16(k.Sym - 'a' + 'A'), true
	}
	if k.Sym >= ' ' && k.Sym <= '~' {
		return uint16(k.Sym), true
	}
	return 0, false
}
