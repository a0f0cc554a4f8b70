// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"bytes"
	"fmt"
	"image"
	_ "image/png" // PNG textures

	"golang.org/x/image/draw"
	_ "golang.org/x/image/bmp"  // BMP textures
	_ "golang.org/x/image/webp" // WebP textures
)

// GetPixels transforms a given image into right arrangement of pixels
// by drawing the decoded image onto a controlled RGBA canvas.
// With flip set the rows are written bottom to top.
func GetPixels(img image.Image, flip bool) *image.RGBA {
	bounds := img.Bounds()
	newImg := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(newImg, newImg.Bounds(), img, bounds.Min, draw.Src)
	if flip {
		FlipVertical(newImg)
	}
	return newImg
}

// FlipVertical mirrors img around its horizontal center line in place
func FlipVertical(img *image.RGBA) {
	height := img.Bounds().Dy()
	rowLen := img.Bounds().Dx() * 4
	tmp := make([]byte, rowLen)
	for top, bottom := 0, height-1; top < bottom; top, bottom = top+1, bottom-1 {
		topRow := img.Pix[top*img.Stride : top*img.Stride+rowLen]
		bottomRow := img.Pix[bottom*img.Stride : bottom*img.Stride+rowLen]
		copy(tmp, topRow)
		copy(topRow, bottomRow)
		copy(bottomRow, tmp)
	}
}

// DecodeTexture decodes an encoded image into tightly packed RGBA pixels
func DecodeTexture(data []byte, flip bool) (*image.RGBA, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("image decode failed: %s", err.Error())
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("%s image is empty", format)
	}
	return GetPixels(img, flip), nil
}
