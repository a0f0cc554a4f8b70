// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"errors"
	"fmt"
	"image"
	"unsafe"

	vk "github.com/devblok/vulkan"
	log "github.com/sirupsen/logrus"

	"github.com/devblok/sprite/gfx"
)

// tightPixels returns the image rows without stride padding
func tightPixels(img *image.RGBA) []uint8 {
	bounds := img.Bounds()
	rowLen := bounds.Dx() * 4
	if img.Stride == rowLen && len(img.Pix) == rowLen*bounds.Dy() {
		return img.Pix
	}
	pixels := make([]uint8, 0, rowLen*bounds.Dy())
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		start := img.PixOffset(bounds.Min.X, y)
		pixels = append(pixels, img.Pix[start:start+rowLen]...)
	}
	return pixels
}

func (d *Device) newTexture(data gfx.TextureData) (*texture, error) {
	if data.Image == nil {
		return nil, errors.New("vkr.UploadTexture(): no pixels")
	}
	bounds := data.Image.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("vkr.UploadTexture(): %s is empty", data.Name)
	}

	levels := uint32(1)
	if data.Sampler.Mipmaps {
		if d.linearBlit(textureFormat) {
			levels = mipLevels(width, height)
		} else {
			log.WithField("texture", data.Name).Warn("Linear blit not supported, mip levels not generated")
		}
	}

	pixels := tightPixels(data.Image)
	staging, err := NewBuffer(d.device, uint(len(pixels)), vk.BufferUsageTransferSrcBit, vk.SharingModeExclusive, d.allocator)
	if err != nil {
		return nil, fmt.Errorf("%s: %s", data.Name, err.Error())
	}
	defer staging.Release()

	if err := staging.Mem().Write(pixels); err != nil {
		return nil, fmt.Errorf("%s: %s", data.Name, err.Error())
	}

	img, err := NewImage(d.device, uint32(width), uint32(height), levels, textureFormat,
		vk.ImageUsageTransferSrcBit|vk.ImageUsageTransferDstBit|vk.ImageUsageSampledBit,
		vk.ImageAspectColorBit, d.allocator)
	if err != nil {
		return nil, fmt.Errorf("%s: %s", data.Name, err.Error())
	}

	if err := d.fillImage(staging.Get(), img.Get(), uint32(width), uint32(height), levels); err != nil {
		img.Release()
		return nil, fmt.Errorf("%s: %s", data.Name, err.Error())
	}

	sampler, err := d.createSampler(data.Sampler, levels)
	if err != nil {
		img.Release()
		return nil, fmt.Errorf("%s: %s", data.Name, err.Error())
	}

	set, err := d.createDescriptorSet(img.View(), sampler)
	if err != nil {
		vk.DestroySampler(d.device, sampler, nil)
		img.Release()
		return nil, fmt.Errorf("%s: %s", data.Name, err.Error())
	}

	return &texture{
		device:  d.device,
		pool:    d.descriptorPool,
		image:   img,
		sampler: sampler,
		set:     set,
		width:   width,
		height:  height,
	}, nil
}

func (d *Device) linearBlit(format vk.Format) bool {
	var props vk.FormatProperties
	vk.GetPhysicalDeviceFormatProperties(d.physicalDevice, format, &props)
	props.Deref()
	return props.OptimalTilingFeatures&vk.FormatFeatureFlags(vk.FormatFeatureSampledImageFilterLinearBit) != 0
}

// fillImage copies the staging buffer into mip level 0, blits every
// following level from the previous one and leaves all of them ready
// for sampling.
func (d *Device) fillImage(src vk.Buffer, dst vk.Image, width, height, levels uint32) error {
	cmd, err := d.beginSingleTimeCommands()
	if err != nil {
		return err
	}

	barrier := func(level uint32, old, new vk.ImageLayout, srcAccess, dstAccess vk.AccessFlagBits, srcStage, dstStage vk.PipelineStageFlagBits) {
		b := vk.ImageMemoryBarrier{
			SType:               vk.StructureTypeImageMemoryBarrier,
			OldLayout:           old,
			NewLayout:           new,
			SrcAccessMask:       vk.AccessFlags(srcAccess),
			DstAccessMask:       vk.AccessFlags(dstAccess),
			SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
			DstQueueFamilyIndex: vk.QueueFamilyIgnored,
			Image:               dst,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask:   vk.ImageAspectFlags(vk.ImageAspectColorBit),
				BaseMipLevel: level,
				LevelCount:   1,
				LayerCount:   1,
			},
		}
		vk.CmdPipelineBarrier(cmd, vk.PipelineStageFlags(srcStage), vk.PipelineStageFlags(dstStage), 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{b})
	}

	for level := uint32(0); level < levels; level++ {
		barrier(level, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal,
			0, vk.AccessTransferWriteBit,
			vk.PipelineStageTopOfPipeBit, vk.PipelineStageTransferBit)
	}

	region := vk.BufferImageCopy{
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LayerCount: 1,
		},
		ImageExtent: vk.Extent3D{
			Width:  width,
			Height: height,
			Depth:  1,
		},
	}
	vk.CmdCopyBufferToImage(cmd, src, dst, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{region})

	w, h := int32(width), int32(height)
	for level := uint32(1); level < levels; level++ {
		barrier(level-1, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutTransferSrcOptimal,
			vk.AccessTransferWriteBit, vk.AccessTransferReadBit,
			vk.PipelineStageTransferBit, vk.PipelineStageTransferBit)

		nw, nh := half(w), half(h)
		blit := vk.ImageBlit{
			SrcSubresource: vk.ImageSubresourceLayers{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				MipLevel:   level - 1,
				LayerCount: 1,
			},
			SrcOffsets: [2]vk.Offset3D{{}, {X: w, Y: h, Z: 1}},
			DstSubresource: vk.ImageSubresourceLayers{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				MipLevel:   level,
				LayerCount: 1,
			},
			DstOffsets: [2]vk.Offset3D{{}, {X: nw, Y: nh, Z: 1}},
		}
		vk.CmdBlitImage(cmd, dst, vk.ImageLayoutTransferSrcOptimal, dst, vk.ImageLayoutTransferDstOptimal, 1, []vk.ImageBlit{blit}, vk.FilterLinear)

		barrier(level-1, vk.ImageLayoutTransferSrcOptimal, vk.ImageLayoutShaderReadOnlyOptimal,
			vk.AccessTransferReadBit, vk.AccessShaderReadBit,
			vk.PipelineStageTransferBit, vk.PipelineStageFragmentShaderBit)
		w, h = nw, nh
	}

	barrier(levels-1, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal,
		vk.AccessTransferWriteBit, vk.AccessShaderReadBit,
		vk.PipelineStageTransferBit, vk.PipelineStageFragmentShaderBit)

	return d.endSingleTimeCommands(cmd)
}

func half(v int32) int32 {
	if v > 1 {
		return v / 2
	}
	return 1
}

func (d *Device) createSampler(params gfx.SamplerParams, levels uint32) (vk.Sampler, error) {
	magFilter, _ := samplerFilter(params.MagFilter)
	minFilter, mipmapMode := samplerFilter(params.MinFilter)

	sci := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               magFilter,
		MinFilter:               minFilter,
		MipmapMode:              mipmapMode,
		AddressModeU:            addressMode(params.WrapS),
		AddressModeV:            addressMode(params.WrapT),
		AddressModeW:            vk.SamplerAddressModeRepeat,
		BorderColor:             vk.BorderColorFloatOpaqueBlack,
		UnnormalizedCoordinates: vk.False,
		CompareEnable:           vk.False,
		CompareOp:               vk.CompareOpAlways,
		MinLod:                  0,
		MaxLod:                  float32(levels),
	}
	if d.anisotropy {
		sci.AnisotropyEnable = vk.True
		sci.MaxAnisotropy = 16
	}

	var sampler vk.Sampler
	if err := vk.Error(vk.CreateSampler(d.device, &sci, nil, &sampler)); err != nil {
		return nil, fmt.Errorf("vk.CreateSampler(): %s", err.Error())
	}
	return sampler, nil
}

func (d *Device) createDescriptorSet(view vk.ImageView, sampler vk.Sampler) (vk.DescriptorSet, error) {
	dsai := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     d.descriptorPool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{d.descriptorSetLayout},
	}

	var set vk.DescriptorSet
	if err := vk.Error(vk.AllocateDescriptorSets(d.device, &dsai, &set)); err != nil {
		return nil, fmt.Errorf("vk.AllocateDescriptorSets(): %s", err.Error())
	}

	wds := []vk.WriteDescriptorSet{{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          set,
		DstBinding:      0,
		DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
		DescriptorCount: 1,
		PImageInfo: []vk.DescriptorImageInfo{{
			ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
			ImageView:   view,
			Sampler:     sampler,
		}},
	}}
	vk.UpdateDescriptorSets(d.device, uint32(len(wds)), wds, 0, nil)
	return set, nil
}

// texture is a sampled image with its own sampler and descriptor set
type texture struct {
	device  vk.Device
	pool    vk.DescriptorPool
	image   Image
	sampler vk.Sampler
	set     vk.DescriptorSet
	width   int
	height  int
}

func (t *texture) Handle() uint64 {
	return uint64(uintptr(unsafe.Pointer(t.image.Get())))
}

func (t *texture) Width() int {
	return t.width
}

func (t *texture) Height() int {
	return t.height
}

func (t *texture) Release() {
	if t.set == nil {
		return
	}
	vk.DeviceWaitIdle(t.device)
	vk.FreeDescriptorSets(t.device, t.pool, 1, &t.set)
	vk.DestroySampler(t.device, t.sampler, nil)
	t.image.Release()
	t.set = nil
}
