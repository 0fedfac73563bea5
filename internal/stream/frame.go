package stream

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// errorFrameColor is the solid fill of a placeholder frame.
var errorFrameColor = color.RGBA{R: 200, G: 30, B: 30, A: 255}

const maxErrorText = 120

// ErrorFrame renders a fixed-size placeholder frame carrying the capture
// error, encoded the same way as a real captured frame.
func ErrorFrame(width, height int, message string) []byte {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(errorFrameColor), image.Point{}, draw.Src)

	if len(message) > maxErrorText {
		message = message[:maxErrorText]
	}
	drawer := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.White),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(10, 20),
	}
	drawer.DrawString("Error: " + message)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}); err != nil {
		// Encoding a fully in-memory RGBA image only fails on a broken
		// writer; an empty frame is still a frame.
		return nil
	}
	return buf.Bytes()
}
