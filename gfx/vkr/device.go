// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"errors"
	"fmt"
	"image"
	"math"
	"unsafe"

	vk "github.com/devblok/vulkan"
	log "github.com/sirupsen/logrus"

	"github.com/devblok/sprite/core"
	"github.com/devblok/sprite/gfx"
	"github.com/devblok/sprite/model"
)

const (
	framesInFlight = 2
	depthFormat    = vk.FormatD16Unorm
	textureFormat  = vk.FormatR8g8b8a8Unorm

	// maxTextures bounds the descriptor pool, one set per texture
	maxTextures = 64
)

// frame holds what one frame in flight records and waits on
type frame struct {
	commandBuffer  vk.CommandBuffer
	imageAvailable vk.Semaphore
	renderFinished vk.Semaphore
	fence          vk.Fence
}

// NewDevice creates the logical device and every surface bound object
// on the instance's surface.
func NewDevice(instance *Instance, cfg core.RendererConfiguration, width, height int) (gfx.Device, error) {
	if instance.Surface() == vk.NullSurface {
		return nil, errors.New("vkr.NewDevice(): instance has no surface")
	}

	d := &Device{
		configuration: cfg,
		instance:      instance,
		surface:       instance.Surface(),
		tracker:       gfx.NewSwapchainTracker(width, height),
	}

	if err := d.pickPhysicalDevice(); err != nil {
		return nil, err
	}

	steps := []func() error{
		d.createLogicalDevice,
		d.chooseSurfaceFormat,
		d.choosePresentMode,
		d.createRenderPass,
		d.createPipelineLayout,
		d.createPipelineCache,
		d.createDescriptorPool,
		d.createCommandPool,
		d.createFrames,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			d.Release()
			return nil, err
		}
	}

	d.tracker.Resized(width, height)
	if err := d.tracker.Recreate(d.recreateSwapchain); err != nil && !errors.Is(err, gfx.ErrFrameSkipped) {
		d.Release()
		return nil, err
	}

	blank := image.NewRGBA(image.Rect(0, 0, 1, 1))
	copy(blank.Pix, []uint8{0xff, 0xff, 0xff, 0xff})
	tex, err := d.newTexture(gfx.TextureData{Name: "blank", Image: blank, Sampler: gfx.DefaultSamplerParams})
	if err != nil {
		d.Release()
		return nil, err
	}
	d.blank = tex

	var properties vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(d.physicalDevice, &properties)
	properties.Deref()
	log.WithFields(log.Fields{
		"device":    vk.ToString(properties.DeviceName[:]),
		"swapchain": len(d.swapchainImages),
		"present":   d.presentMode,
	}).Info("Vulkan device ready")

	return d, nil
}

// Device renders through a Vulkan swapchain
type Device struct {
	configuration core.RendererConfiguration
	instance      *Instance

	physicalDevice vk.PhysicalDevice
	device         vk.Device
	queue          vk.Queue
	queueFamily    uint32
	anisotropy     bool
	allocator      *MemoryAllocator

	surface         vk.Surface
	imageFormat     vk.Format
	imageColorspace vk.ColorSpace
	presentMode     vk.PresentMode

	tracker             *gfx.SwapchainTracker
	swapchain           vk.Swapchain
	swapchainImages     []vk.Image
	swapchainImageViews []vk.ImageView
	framebuffers        []vk.Framebuffer
	depth               Image
	extent              vk.Extent2D
	viewport            vk.Viewport
	scissor             vk.Rect2D

	renderPass          vk.RenderPass
	descriptorSetLayout vk.DescriptorSetLayout
	pipelineLayout      vk.PipelineLayout
	pipelineCache       vk.PipelineCache
	descriptorPool      vk.DescriptorPool
	commandPool         vk.CommandPool

	frames     [framesInFlight]frame
	current    int
	imageIndex uint32
	inFrame    bool
	bound      vk.Pipeline

	blank *texture
}

func (d *Device) pickPhysicalDevice() error {
	for _, phy := range d.instance.availableDevices {
		var count uint32
		vk.GetPhysicalDeviceQueueFamilyProperties(phy, &count, nil)
		families := make([]vk.QueueFamilyProperties, count)
		vk.GetPhysicalDeviceQueueFamilyProperties(phy, &count, families)

		for idx := uint32(0); idx < count; idx++ {
			families[idx].Deref()
			if families[idx].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) == 0 {
				continue
			}
			var supportsPresent vk.Bool32
			vk.GetPhysicalDeviceSurfaceSupport(phy, idx, d.surface, &supportsPresent)
			if supportsPresent.B() {
				d.physicalDevice = phy
				d.queueFamily = idx
				return nil
			}
		}
	}
	return errors.New("vkr.NewDevice(): no queue family with graphics and present support")
}

func (d *Device) createLogicalDevice() error {
	var features vk.PhysicalDeviceFeatures
	vk.GetPhysicalDeviceFeatures(d.physicalDevice, &features)
	features.Deref()
	d.anisotropy = features.SamplerAnisotropy == vk.True

	enabled := vk.PhysicalDeviceFeatures{}
	if d.anisotropy {
		enabled.SamplerAnisotropy = vk.True
	}

	queueInfos := []vk.DeviceQueueCreateInfo{{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: d.queueFamily,
		QueueCount:       1,
		PQueuePriorities: []float32{1},
	}}

	extensions := d.configuration.DeviceExtensions
	if len(extensions) == 0 {
		extensions = []string{vk.KhrSwapchainExtensionName}
	}

	dci := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: safeStrings(extensions),
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{enabled},
	}

	var device vk.Device
	if err := vk.Error(vk.CreateDevice(d.physicalDevice, &dci, nil, &device)); err != nil {
		return errors.New("vk.CreateDevice(): " + err.Error())
	}
	d.device = device

	var queue vk.Queue
	vk.GetDeviceQueue(device, d.queueFamily, 0, &queue)
	d.queue = queue

	d.allocator = NewMemoryAllocator(device, d.physicalDevice)
	return nil
}

func (d *Device) chooseSurfaceFormat() error {
	var count uint32
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceFormats(d.physicalDevice, d.surface, &count, nil)); err != nil {
		return errors.New("vk.GetPhysicalDeviceSurfaceFormats(): " + err.Error())
	}
	if count == 0 {
		return errors.New("vk.GetPhysicalDeviceSurfaceFormats(): surface has no formats")
	}
	formats := make([]vk.SurfaceFormat, count)
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceFormats(d.physicalDevice, d.surface, &count, formats)); err != nil {
		return errors.New("vk.GetPhysicalDeviceSurfaceFormats(): " + err.Error())
	}
	for idx := range formats {
		formats[idx].Deref()
	}
	d.imageFormat, d.imageColorspace = surfaceFormat(formats)
	return nil
}

func (d *Device) choosePresentMode() error {
	var count uint32
	if err := vk.Error(vk.GetPhysicalDeviceSurfacePresentModes(d.physicalDevice, d.surface, &count, nil)); err != nil {
		return errors.New("vk.GetPhysicalDeviceSurfacePresentModes(): " + err.Error())
	}
	modes := make([]vk.PresentMode, count)
	if err := vk.Error(vk.GetPhysicalDeviceSurfacePresentModes(d.physicalDevice, d.surface, &count, modes)); err != nil {
		return errors.New("vk.GetPhysicalDeviceSurfacePresentModes(): " + err.Error())
	}
	d.presentMode = presentMode(modes, d.configuration.VSync)
	return nil
}

func (d *Device) createRenderPass() error {
	attachments := []vk.AttachmentDescription{{
		Format:         d.imageFormat,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutPresentSrc,
	}, {
		Format:         depthFormat,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpDontCare,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
	}}

	colorRef := []vk.AttachmentReference{{
		Attachment: 0,
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}}
	depthRef := vk.AttachmentReference{
		Attachment: 1,
		Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
	}

	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit),
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:       vk.PipelineBindPointGraphics,
		ColorAttachmentCount:    uint32(len(colorRef)),
		PColorAttachments:       colorRef,
		PDepthStencilAttachment: &depthRef,
	}

	rpci := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}

	var renderPass vk.RenderPass
	if err := vk.Error(vk.CreateRenderPass(d.device, &rpci, nil, &renderPass)); err != nil {
		return errors.New("vk.CreateRenderPass(): " + err.Error())
	}
	d.renderPass = renderPass
	return nil
}

// createPipelineLayout declares the layout shared by all programs:
// a combined image sampler at set 0 binding 0 and the MVP push constant.
func (d *Device) createPipelineLayout() error {
	bindings := []vk.DescriptorSetLayoutBinding{{
		Binding:         0,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
		StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
	}}
	dslci := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}

	var setLayout vk.DescriptorSetLayout
	if err := vk.Error(vk.CreateDescriptorSetLayout(d.device, &dslci, nil, &setLayout)); err != nil {
		return errors.New("vk.CreateDescriptorSetLayout(): " + err.Error())
	}
	d.descriptorSetLayout = setLayout

	ranges := []vk.PushConstantRange{{
		Offset:     0,
		Size:       uint32(unsafe.Sizeof(model.Uniform{})),
		StageFlags: vk.ShaderStageFlags(vk.ShaderStageVertexBit),
	}}

	plci := vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         1,
		PSetLayouts:            []vk.DescriptorSetLayout{setLayout},
		PushConstantRangeCount: uint32(len(ranges)),
		PPushConstantRanges:    ranges,
	}

	var layout vk.PipelineLayout
	if err := vk.Error(vk.CreatePipelineLayout(d.device, &plci, nil, &layout)); err != nil {
		return errors.New("vk.CreatePipelineLayout(): " + err.Error())
	}
	d.pipelineLayout = layout
	return nil
}

func (d *Device) createPipelineCache() error {
	pcci := vk.PipelineCacheCreateInfo{
		SType: vk.StructureTypePipelineCacheCreateInfo,
	}

	var cache vk.PipelineCache
	if err := vk.Error(vk.CreatePipelineCache(d.device, &pcci, nil, &cache)); err != nil {
		return errors.New("vk.CreatePipelineCache(): " + err.Error())
	}
	d.pipelineCache = cache
	return nil
}

func (d *Device) createDescriptorPool() error {
	poolSizes := []vk.DescriptorPoolSize{{
		Type:            vk.DescriptorTypeCombinedImageSampler,
		DescriptorCount: maxTextures,
	}}
	dpci := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit),
		MaxSets:       maxTextures,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}

	var pool vk.DescriptorPool
	if err := vk.Error(vk.CreateDescriptorPool(d.device, &dpci, nil, &pool)); err != nil {
		return errors.New("vk.CreateDescriptorPool(): " + err.Error())
	}
	d.descriptorPool = pool
	return nil
}

func (d *Device) createCommandPool() error {
	cpci := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: d.queueFamily,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}

	var pool vk.CommandPool
	if err := vk.Error(vk.CreateCommandPool(d.device, &cpci, nil, &pool)); err != nil {
		return errors.New("vk.CreateCommandPool(): " + err.Error())
	}
	d.commandPool = pool
	return nil
}

// createFrames allocates a command buffer and sync objects per frame in
// flight. Fences start signaled so the first wait returns at once.
func (d *Device) createFrames() error {
	cbai := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        d.commandPool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: framesInFlight,
	}
	buffers := make([]vk.CommandBuffer, framesInFlight)
	if err := vk.Error(vk.AllocateCommandBuffers(d.device, &cbai, buffers)); err != nil {
		return errors.New("vk.AllocateCommandBuffers(): " + err.Error())
	}

	sci := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	fci := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
		Flags: vk.FenceCreateFlags(vk.FenceCreateSignaledBit),
	}

	for idx := range d.frames {
		f := &d.frames[idx]
		f.commandBuffer = buffers[idx]
		if err := vk.Error(vk.CreateSemaphore(d.device, &sci, nil, &f.imageAvailable)); err != nil {
			return errors.New("vk.CreateSemaphore(): " + err.Error())
		}
		if err := vk.Error(vk.CreateSemaphore(d.device, &sci, nil, &f.renderFinished)); err != nil {
			return errors.New("vk.CreateSemaphore(): " + err.Error())
		}
		if err := vk.Error(vk.CreateFence(d.device, &fci, nil, &f.fence)); err != nil {
			return errors.New("vk.CreateFence(): " + err.Error())
		}
	}
	return nil
}

// recreateSwapchain rebuilds everything sized by the surface. The render
// pass and pipelines survive, viewport and scissor are dynamic state.
func (d *Device) recreateSwapchain(width, height int) (int, int, error) {
	vk.DeviceWaitIdle(d.device)

	var caps vk.SurfaceCapabilities
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceCapabilities(d.physicalDevice, d.surface, &caps)); err != nil {
		return 0, 0, errors.New("vk.GetPhysicalDeviceSurfaceCapabilities(): " + err.Error())
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()

	w, h, err := clampExtent(width, height, caps)
	if err != nil {
		return 0, 0, err
	}

	d.destroySwapchainResources()
	d.extent = vk.Extent2D{Width: w, Height: h}

	old := d.swapchain
	if err := d.createSwapchain(w, h, caps, old); err != nil {
		return 0, 0, err
	}
	if old != nil {
		vk.DestroySwapchain(d.device, old, nil)
	}

	if err := d.createImageViews(); err != nil {
		return 0, 0, err
	}

	depth, err := NewImage(d.device, w, h, 1, depthFormat, vk.ImageUsageDepthStencilAttachmentBit, vk.ImageAspectDepthBit, d.allocator)
	if err != nil {
		return 0, 0, err
	}
	d.depth = depth

	if err := d.createFramebuffers(); err != nil {
		return 0, 0, err
	}

	d.viewport = vk.Viewport{
		Width:    float32(w),
		Height:   float32(h),
		MinDepth: 0,
		MaxDepth: 1,
	}
	d.scissor = vk.Rect2D{
		Extent: d.extent,
	}

	log.WithFields(log.Fields{
		"width":  w,
		"height": h,
		"images": len(d.swapchainImages),
	}).Debug("Swapchain created")
	return int(w), int(h), nil
}

func (d *Device) createSwapchain(width, height uint32, caps vk.SurfaceCapabilities, old vk.Swapchain) error {
	compositeAlpha := vk.CompositeAlphaOpaqueBit
	for _, flag := range []vk.CompositeAlphaFlagBits{
		vk.CompositeAlphaOpaqueBit,
		vk.CompositeAlphaPreMultipliedBit,
		vk.CompositeAlphaPostMultipliedBit,
		vk.CompositeAlphaInheritBit,
	} {
		if caps.SupportedCompositeAlpha&vk.CompositeAlphaFlags(flag) != 0 {
			compositeAlpha = flag
			break
		}
	}

	scci := vk.SwapchainCreateInfo{
		SType:           vk.StructureTypeSwapchainCreateInfo,
		Surface:         d.surface,
		MinImageCount:   imageCount(d.configuration.SwapchainSize, caps),
		ImageFormat:     d.imageFormat,
		ImageColorSpace: d.imageColorspace,
		ImageExtent: vk.Extent2D{
			Width:  width,
			Height: height,
		},
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     caps.CurrentTransform,
		CompositeAlpha:   compositeAlpha,
		PresentMode:      d.presentMode,
		Clipped:          vk.True,
		ImageArrayLayers: 1,
		ImageSharingMode: vk.SharingModeExclusive,
		OldSwapchain:     old,
	}

	var swapchain vk.Swapchain
	if err := vk.Error(vk.CreateSwapchain(d.device, &scci, nil, &swapchain)); err != nil {
		return errors.New("vk.CreateSwapchain(): " + err.Error())
	}
	d.swapchain = swapchain

	var numImages uint32
	if err := vk.Error(vk.GetSwapchainImages(d.device, d.swapchain, &numImages, nil)); err != nil {
		return errors.New("vk.GetSwapchainImages(): " + err.Error())
	}
	d.swapchainImages = make([]vk.Image, numImages)
	if err := vk.Error(vk.GetSwapchainImages(d.device, d.swapchain, &numImages, d.swapchainImages)); err != nil {
		return errors.New("vk.GetSwapchainImages(): " + err.Error())
	}
	return nil
}

func (d *Device) createImageViews() error {
	for idx, img := range d.swapchainImages {
		ivci := vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    img,
			ViewType: vk.ImageViewType2d,
			Format:   d.imageFormat,
			Components: vk.ComponentMapping{
				R: vk.ComponentSwizzleIdentity,
				G: vk.ComponentSwizzleIdentity,
				B: vk.ComponentSwizzleIdentity,
				A: vk.ComponentSwizzleIdentity,
			},
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				LevelCount: 1,
				LayerCount: 1,
			},
		}

		var view vk.ImageView
		if err := vk.Error(vk.CreateImageView(d.device, &ivci, nil, &view)); err != nil {
			return fmt.Errorf("vk.CreateImageView()[%d]: %s", idx, err.Error())
		}
		d.swapchainImageViews = append(d.swapchainImageViews, view)
	}
	return nil
}

func (d *Device) createFramebuffers() error {
	for _, view := range d.swapchainImageViews {
		attachments := []vk.ImageView{
			view,
			d.depth.View(),
		}
		fci := vk.FramebufferCreateInfo{
			SType:           vk.StructureTypeFramebufferCreateInfo,
			RenderPass:      d.renderPass,
			AttachmentCount: uint32(len(attachments)),
			PAttachments:    attachments,
			Width:           d.extent.Width,
			Height:          d.extent.Height,
			Layers:          1,
		}

		var framebuffer vk.Framebuffer
		if err := vk.Error(vk.CreateFramebuffer(d.device, &fci, nil, &framebuffer)); err != nil {
			return errors.New("vk.CreateFramebuffer(): " + err.Error())
		}
		d.framebuffers = append(d.framebuffers, framebuffer)
	}
	return nil
}

// destroySwapchainResources keeps the swapchain itself, it's handed
// over as the old swapchain on recreation.
func (d *Device) destroySwapchainResources() {
	for _, fb := range d.framebuffers {
		vk.DestroyFramebuffer(d.device, fb, nil)
	}
	d.framebuffers = nil

	for _, view := range d.swapchainImageViews {
		vk.DestroyImageView(d.device, view, nil)
	}
	d.swapchainImageViews = nil
	d.swapchainImages = nil

	d.depth.Release()
}

func (d *Device) beginSingleTimeCommands() (vk.CommandBuffer, error) {
	cbai := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		Level:              vk.CommandBufferLevelPrimary,
		CommandPool:        d.commandPool,
		CommandBufferCount: 1,
	}

	buffers := make([]vk.CommandBuffer, 1)
	if err := vk.Error(vk.AllocateCommandBuffers(d.device, &cbai, buffers)); err != nil {
		return nil, fmt.Errorf("vk.AllocateCommandBuffers(): %s", err.Error())
	}

	cbbi := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if err := vk.Error(vk.BeginCommandBuffer(buffers[0], &cbbi)); err != nil {
		vk.FreeCommandBuffers(d.device, d.commandPool, 1, buffers)
		return nil, fmt.Errorf("vk.BeginCommandBuffer(): %s", err.Error())
	}
	return buffers[0], nil
}

func (d *Device) endSingleTimeCommands(cmd vk.CommandBuffer) error {
	buffers := []vk.CommandBuffer{cmd}
	defer vk.FreeCommandBuffers(d.device, d.commandPool, 1, buffers)

	if err := vk.Error(vk.EndCommandBuffer(cmd)); err != nil {
		return fmt.Errorf("vk.EndCommandBuffer(): %s", err.Error())
	}

	si := []vk.SubmitInfo{{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    buffers,
	}}
	if err := vk.Error(vk.QueueSubmit(d.queue, 1, si, nil)); err != nil {
		return fmt.Errorf("vk.QueueSubmit(): %s", err.Error())
	}
	if err := vk.Error(vk.QueueWaitIdle(d.queue)); err != nil {
		return fmt.Errorf("vk.QueueWaitIdle(): %s", err.Error())
	}
	return nil
}

// ShaderFormat implements gfx.Device
func (d *Device) ShaderFormat() gfx.ShaderFormat {
	return gfx.ShaderFormatSPIRV
}

// CompileProgram implements gfx.Device
func (d *Device) CompileProgram(source gfx.ShaderSource) (gfx.Program, error) {
	return d.newProgram(source)
}

// UploadTexture implements gfx.Device
func (d *Device) UploadTexture(data gfx.TextureData) (gfx.Texture, error) {
	return d.newTexture(data)
}

// CreateMesh implements gfx.Device
func (d *Device) CreateMesh(vertices []model.Vertex, indices []uint32) (gfx.Mesh, error) {
	return d.newMesh(vertices, indices)
}

// Resize implements gfx.Device, the swapchain is rebuilt on the next BeginFrame
func (d *Device) Resize(width, height int) error {
	if width < 0 || height < 0 {
		return fmt.Errorf("negative extent %dx%d", width, height)
	}
	d.tracker.Resized(width, height)
	return nil
}

// Extent implements gfx.Device
func (d *Device) Extent() (int, int) {
	if d.tracker.State() == gfx.SwapchainRecreate {
		return d.tracker.Extent()
	}
	return int(d.extent.Width), int(d.extent.Height)
}

// BeginFrame implements gfx.Device. Recreates the swapchain if pending,
// acquires the next image and starts the render pass.
func (d *Device) BeginFrame() error {
	if d.inFrame {
		return errors.New("vkr.BeginFrame(): frame already in progress")
	}
	if err := d.tracker.Recreate(d.recreateSwapchain); err != nil {
		return err
	}

	f := &d.frames[d.current]
	fences := []vk.Fence{f.fence}
	if err := vk.Error(vk.WaitForFences(d.device, 1, fences, vk.True, math.MaxUint64)); err != nil {
		return errors.New("vk.WaitForFences(): " + err.Error())
	}

	result := vk.AcquireNextImage(d.device, d.swapchain, math.MaxUint64, f.imageAvailable, nil, &d.imageIndex)
	if err := d.tracker.Acquired(presentResult(result)); err != nil {
		if errors.Is(err, gfx.ErrFrameSkipped) {
			return err
		}
		return fmt.Errorf("vk.AcquireNextImage(): %s (result %d)", err.Error(), result)
	}

	// reset only once work is certain to be submitted
	vk.ResetFences(d.device, 1, fences)

	if err := vk.Error(vk.ResetCommandBuffer(f.commandBuffer, 0)); err != nil {
		return fmt.Errorf("vk.ResetCommandBuffer(): %s", err.Error())
	}
	cbbi := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if err := vk.Error(vk.BeginCommandBuffer(f.commandBuffer, &cbbi)); err != nil {
		return fmt.Errorf("vk.BeginCommandBuffer(): %s", err.Error())
	}

	clearValues := make([]vk.ClearValue, 2)
	clearValues[0].SetColor(d.configuration.ClearColor[:])
	clearValues[1].SetDepthStencil(1, 0)

	rpbi := vk.RenderPassBeginInfo{
		SType:           vk.StructureTypeRenderPassBeginInfo,
		RenderPass:      d.renderPass,
		Framebuffer:     d.framebuffers[d.imageIndex],
		RenderArea:      d.scissor,
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}
	vk.CmdBeginRenderPass(f.commandBuffer, &rpbi, vk.SubpassContentsInline)
	vk.CmdSetViewport(f.commandBuffer, 0, 1, []vk.Viewport{d.viewport})
	vk.CmdSetScissor(f.commandBuffer, 0, 1, []vk.Rect2D{d.scissor})

	d.bound = nil
	d.inFrame = true
	return nil
}

// Draw implements gfx.Device
func (d *Device) Draw(call gfx.DrawCall) error {
	if !d.inFrame {
		return errors.New("vkr.Draw(): no frame in progress")
	}
	prog, ok := call.Program.(*program)
	if !ok {
		return fmt.Errorf("vkr.Draw(): foreign program %T", call.Program)
	}
	m, ok := call.Mesh.(*mesh)
	if !ok {
		return fmt.Errorf("vkr.Draw(): foreign mesh %T", call.Mesh)
	}
	tex := d.blank
	if call.Texture != nil {
		if tex, ok = call.Texture.(*texture); !ok {
			return fmt.Errorf("vkr.Draw(): foreign texture %T", call.Texture)
		}
	}

	cb := d.frames[d.current].commandBuffer
	if d.bound != prog.pipeline {
		vk.CmdBindPipeline(cb, vk.PipelineBindPointGraphics, prog.pipeline)
		d.bound = prog.pipeline
	}
	vk.CmdBindDescriptorSets(cb, vk.PipelineBindPointGraphics, d.pipelineLayout, 0, 1, []vk.DescriptorSet{tex.set}, 0, nil)

	push := prog.pushConstants()
	vk.CmdPushConstants(cb, d.pipelineLayout, vk.ShaderStageFlags(vk.ShaderStageVertexBit), 0, uint32(unsafe.Sizeof(push)), unsafe.Pointer(&push))

	vk.CmdBindVertexBuffers(cb, 0, 1, []vk.Buffer{m.vertices.Get()}, []vk.DeviceSize{0})
	vk.CmdBindIndexBuffer(cb, m.indices.Get(), 0, vk.IndexTypeUint32)
	vk.CmdDrawIndexed(cb, uint32(m.count), 1, 0, 0, 0)
	return nil
}

// EndFrame implements gfx.Device, submits the recorded frame and presents it
func (d *Device) EndFrame() error {
	if !d.inFrame {
		return errors.New("vkr.EndFrame(): no frame in progress")
	}
	d.inFrame = false

	f := &d.frames[d.current]
	d.current = (d.current + 1) % framesInFlight

	vk.CmdEndRenderPass(f.commandBuffer)
	if err := vk.Error(vk.EndCommandBuffer(f.commandBuffer)); err != nil {
		return fmt.Errorf("vk.EndCommandBuffer(): %s", err.Error())
	}

	submit := []vk.SubmitInfo{{
		SType:              vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{f.imageAvailable},
		PWaitDstStageMask: []vk.PipelineStageFlags{
			vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{f.commandBuffer},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{f.renderFinished},
	}}
	if err := vk.Error(vk.QueueSubmit(d.queue, 1, submit, f.fence)); err != nil {
		return fmt.Errorf("vk.QueueSubmit(): %s", err.Error())
	}

	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{f.renderFinished},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{d.swapchain},
		PImageIndices:      []uint32{d.imageIndex},
	}
	result := vk.QueuePresent(d.queue, &presentInfo)
	if err := d.tracker.Presented(presentResult(result)); err != nil {
		if errors.Is(err, gfx.ErrFrameSkipped) {
			return err
		}
		return fmt.Errorf("vk.QueuePresent(): %s (result %d)", err.Error(), result)
	}
	return nil
}

// Release implements gfx.Releasable. Programs, textures and meshes
// have to be released before the device.
func (d *Device) Release() {
	if d.device == nil {
		return
	}
	vk.DeviceWaitIdle(d.device)

	if d.blank != nil {
		d.blank.Release()
		d.blank = nil
	}

	for idx := range d.frames {
		f := &d.frames[idx]
		vk.DestroySemaphore(d.device, f.imageAvailable, nil)
		vk.DestroySemaphore(d.device, f.renderFinished, nil)
		vk.DestroyFence(d.device, f.fence, nil)
	}

	d.destroySwapchainResources()
	vk.DestroySwapchain(d.device, d.swapchain, nil)

	vk.DestroyCommandPool(d.device, d.commandPool, nil)
	vk.DestroyDescriptorPool(d.device, d.descriptorPool, nil)
	vk.DestroyPipelineCache(d.device, d.pipelineCache, nil)
	vk.DestroyPipelineLayout(d.device, d.pipelineLayout, nil)
	vk.DestroyDescriptorSetLayout(d.device, d.descriptorSetLayout, nil)
	vk.DestroyRenderPass(d.device, d.renderPass, nil)

	vk.DestroyDevice(d.device, nil)
	d.device = nil
}

// surfaceFormat prefers 8 bit sRGB BGRA, falling back to the first format
func surfaceFormat(formats []vk.SurfaceFormat) (vk.Format, vk.ColorSpace) {
	if len(formats) == 1 && formats[0].Format == vk.FormatUndefined {
		return vk.FormatB8g8r8a8Srgb, vk.ColorSpaceSrgbNonlinear
	}
	for _, f := range formats {
		if f.Format == vk.FormatB8g8r8a8Srgb && f.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return f.Format, f.ColorSpace
		}
	}
	return formats[0].Format, formats[0].ColorSpace
}

// presentMode picks FIFO with vsync, otherwise the lowest latency mode available
func presentMode(modes []vk.PresentMode, vsync bool) vk.PresentMode {
	if vsync {
		return vk.PresentModeFifo
	}
	for _, preferred := range []vk.PresentMode{vk.PresentModeMailbox, vk.PresentModeImmediate} {
		for _, mode := range modes {
			if mode == preferred {
				return mode
			}
		}
	}
	return vk.PresentModeFifo
}
