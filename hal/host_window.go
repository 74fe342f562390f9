//go:build !tinygo && cgo

package hal

import (
	"errors"
	"image"

	"wcet/internal/buildinfo"

	"github.com/hajimehoshi/ebiten/v2"
)

// RunWindow starts run on its own goroutine and shows the console framebuffer
// in a desktop window. It blocks until the window closes.
func RunWindow(h HAL, run func(HAL)) error {
	host, ok := h.(*hostHAL)
	if !ok || host.fb == nil {
		return errors.New("window mode requires a host HAL with a framebuffer")
	}
	go run(h)

	g := &hostGame{h: host}
	ebiten.SetWindowTitle("wcet (" + buildinfo.Short() + ")")
	ebiten.SetWindowSize(host.fb.width*2, host.fb.height*2)
	ebiten.SetTPS(30)
	return ebiten.RunGame(g)
}

type hostGame struct {
	h       *hostHAL
	img     *image.RGBA
	fbImg   *ebiten.Image
	scratch []byte
	halted  bool
}

func (g *hostGame) Update() error {
	if g.halted {
		return nil
	}
	select {
	case <-g.h.part.Halted():
		g.halted = true
		ebiten.SetWindowTitle("wcet (" + buildinfo.Short() + ") - halted")
	default:
	}
	return nil
}

func (g *hostGame) Draw(screen *ebiten.Image) {
	fb := g.h.fb
	if g.img == nil {
		g.img = image.NewRGBA(image.Rect(0, 0, fb.width, fb.height))
		g.scratch = make([]byte, len(fb.buf))
		g.fbImg = ebiten.NewImage(fb.width, fb.height)
	}

	fb.snapshotRGB565(g.scratch)

	src := g.scratch
	dst := g.img.Pix
	for i := 0; i+1 < len(src) && i/2*4+3 < len(dst); i += 2 {
		r, gg, b := rgb888From565(uint16(src[i]) | uint16(src[i+1])<<8)
		j := (i / 2) * 4
		dst[j+0] = r
		dst[j+1] = gg
		dst[j+2] = b
		dst[j+3] = 0xFF
	}

	g.fbImg.WritePixels(g.img.Pix)
	screen.DrawImage(g.fbImg, nil)
}

func (g *hostGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.h.fb.width, g.h.fb.height
}

// rgb888From565 expands a pixel to 8 bits per channel.
func rgb888From565(p uint16) (r, g, b uint8) {
	r = uint8(uint32(p>>11&0x1F) * 255 / 31)
	g = uint8(uint32(p>>5&0x3F) * 255 / 63)
	b = uint8(uint32(p&0x1F) * 255 / 31)
	return r, g, b
}
