// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"fmt"
	"math"
	"unsafe"

	vk "github.com/devblok/vulkan"

	"github.com/devblok/sprite/gfx"
)

type sliceHeader struct {
	Data uintptr
	Len  int
	Cap  int
}

// SliceUint32 reslices bytes into uint32 words, that is used
// to submit SPIR-V code for shader module creation.
// Trailing bytes that do not fill a word are dropped.
func SliceUint32(data []byte) []uint32 {
	if len(data) < 4 {
		return nil
	}
	const m = 0x7fffffff
	return (*[m / 4]uint32)(unsafe.Pointer((*sliceHeader)(unsafe.Pointer(&data)).Data))[:len(data)/4 : len(data)/4]
}

func safeString(s string) string {
	return fmt.Sprintf("%s\x00", s)
}

func safeStrings(sgs []string) []string {
	safe := []string{}
	for _, s := range sgs {
		safe = append(safe, safeString(s))
	}
	return safe
}

// presentResult translates the outcome of acquire and present calls.
func presentResult(result vk.Result) gfx.PresentResult {
	switch result {
	case vk.Success:
		return gfx.PresentOK
	case vk.Suboptimal:
		return gfx.PresentSuboptimal
	case vk.ErrorOutOfDate:
		return gfx.PresentOutOfDate
	default:
		return gfx.PresentFailed
	}
}

func addressMode(w gfx.Wrap) vk.SamplerAddressMode {
	switch w {
	case gfx.WrapClampToEdge:
		return vk.SamplerAddressModeClampToEdge
	case gfx.WrapMirroredRepeat:
		return vk.SamplerAddressModeMirroredRepeat
	default:
		return vk.SamplerAddressModeRepeat
	}
}

// samplerFilter returns the texel filter and the mipmap mode for f
func samplerFilter(f gfx.Filter) (vk.Filter, vk.SamplerMipmapMode) {
	switch f {
	case gfx.FilterLinear:
		return vk.FilterLinear, vk.SamplerMipmapModeNearest
	case gfx.FilterLinearMipmapLinear:
		return vk.FilterLinear, vk.SamplerMipmapModeLinear
	default:
		return vk.FilterNearest, vk.SamplerMipmapModeNearest
	}
}

// mipLevels is the length of the full mip chain for an image
func mipLevels(width, height int) uint32 {
	levels := uint32(1)
	for width > 1 || height > 1 {
		width /= 2
		height /= 2
		levels++
	}
	return levels
}

// clampExtent fits the requested size into what the surface supports.
// A surface reporting a fixed current extent wins over the request.
func clampExtent(width, height int, caps vk.SurfaceCapabilities) (uint32, uint32, error) {
	if caps.CurrentExtent.Width != math.MaxUint32 {
		width, height = int(caps.CurrentExtent.Width), int(caps.CurrentExtent.Height)
	}
	w := clamp(uint32(width), caps.MinImageExtent.Width, caps.MaxImageExtent.Width)
	h := clamp(uint32(height), caps.MinImageExtent.Height, caps.MaxImageExtent.Height)
	if w == 0 || h == 0 {
		return 0, 0, gfx.ErrUnsupportedExtent
	}
	return w, h, nil
}

func clamp(v, min, max uint32) uint32 {
	if v < min {
		return min
	}
	if max != 0 && v > max {
		return max
	}
	return v
}

// imageCount picks the swapchain length, a zero maximum means unbounded
func imageCount(requested uint32, caps vk.SurfaceCapabilities) uint32 {
	count := requested
	if count < caps.MinImageCount {
		count = caps.MinImageCount
	}
	if caps.MaxImageCount > 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}
	return count
}
