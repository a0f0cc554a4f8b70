// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package vkr is the Vulkan backend. SPIR-V programs become graphics
// pipelines, the combined MVP matrix is sent as a push constant.
package vkr

import (
	"errors"
	"fmt"
	"unsafe"

	vk "github.com/devblok/vulkan"
	log "github.com/sirupsen/logrus"
)

// DefaultApplicationInfo describes the application to the driver
var DefaultApplicationInfo = &vk.ApplicationInfo{
	SType:              vk.StructureTypeApplicationInfo,
	ApiVersion:         vk.MakeVersion(1, 0, 0),
	ApplicationVersion: vk.MakeVersion(1, 0, 0),
	PApplicationName:   safeString("Sprite"),
	PEngineName:        safeString("Sprite"),
}

// InstanceConfiguration lists what the instance is created with
type InstanceConfiguration struct {
	Extensions []string
	Layers     []string
	Debug      bool
}

// PhysicalDeviceInfo describes a GPU visible to the instance
type PhysicalDeviceInfo struct {
	ID            int      `json:"id"`
	VendorID      int      `json:"vendor_id"`
	DriverVersion int      `json:"driver_version"`
	Name          string   `json:"name"`
	Invalid       bool     `json:"invalid"`
	Extensions    []string `json:"extensions"`
	Layers        []string `json:"layers"`
	Memory        uint64   `json:"memory"`
}

// NewInstance loads the loader and creates a Vulkan instance. procAddr is
// the windowing library's vkGetInstanceProcAddr, nil uses the system loader.
func NewInstance(appInfo *vk.ApplicationInfo, procAddr unsafe.Pointer, cfg InstanceConfiguration) (*Instance, error) {
	if cfg.Debug {
		cfg.Layers = append(cfg.Layers, "VK_LAYER_KHRONOS_validation")
		cfg.Extensions = append(cfg.Extensions, "VK_EXT_debug_report")
	}

	if procAddr == nil {
		if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
			return nil, errors.New("vk.SetDefaultGetInstanceProcAddr(): " + err.Error())
		}
	} else {
		vk.SetGetInstanceProcAddr(procAddr)
	}

	if err := vk.Init(); err != nil {
		return nil, errors.New("vk.Init(): " + err.Error())
	}

	instanceInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        appInfo,
		EnabledExtensionCount:   uint32(len(cfg.Extensions)),
		PpEnabledExtensionNames: safeStrings(cfg.Extensions),
		EnabledLayerCount:       uint32(len(cfg.Layers)),
		PpEnabledLayerNames:     safeStrings(cfg.Layers),
	}

	var instance vk.Instance
	if err := vk.Error(vk.CreateInstance(&instanceInfo, nil, &instance)); err != nil {
		return nil, errors.New("vk.CreateInstance(): " + err.Error())
	}
	vk.InitInstance(instance)

	devices, err := enumerateDevices(instance)
	if err != nil {
		vk.DestroyInstance(instance, nil)
		return nil, err
	}

	log.WithFields(log.Fields{
		"extensions": cfg.Extensions,
		"layers":     cfg.Layers,
		"devices":    len(devices),
	}).Debug("Vulkan instance created")

	return &Instance{
		configuration:    cfg,
		instance:         instance,
		availableDevices: devices,
	}, nil
}

// Instance owns the Vulkan instance and the window surface
type Instance struct {
	configuration InstanceConfiguration

	availableDevices []vk.PhysicalDevice
	surface          vk.Surface
	instance         vk.Instance
}

func enumerateDevices(instance vk.Instance) ([]vk.PhysicalDevice, error) {
	var deviceCount uint32
	if err := vk.Error(vk.EnumeratePhysicalDevices(instance, &deviceCount, nil)); err != nil {
		return nil, fmt.Errorf("vk.EnumeratePhysicalDevices(): %s", err)
	}
	if deviceCount == 0 {
		return nil, errors.New("vk.EnumeratePhysicalDevices(): no devices")
	}
	devices := make([]vk.PhysicalDevice, deviceCount)
	if err := vk.Error(vk.EnumeratePhysicalDevices(instance, &deviceCount, devices)); err != nil {
		return nil, fmt.Errorf("vk.EnumeratePhysicalDevices(): %s", err)
	}
	return devices, nil
}

// PhysicalDevicesInfo describes every available physical device
func (v *Instance) PhysicalDevicesInfo() []PhysicalDeviceInfo {
	pdi := make([]PhysicalDeviceInfo, len(v.availableDevices))
	for i, device := range v.availableDevices {
		var numExtensions uint32
		if err := vk.Error(vk.EnumerateDeviceExtensionProperties(device, "", &numExtensions, nil)); err != nil {
			pdi[i].Invalid = true
		}
		extensions := make([]vk.ExtensionProperties, numExtensions)
		if err := vk.Error(vk.EnumerateDeviceExtensionProperties(device, "", &numExtensions, extensions)); err != nil {
			pdi[i].Invalid = true
		}
		for _, ext := range extensions {
			ext.Deref()
			pdi[i].Extensions = append(pdi[i].Extensions, vk.ToString(ext.ExtensionName[:]))
		}

		var numLayers uint32
		if err := vk.Error(vk.EnumerateDeviceLayerProperties(device, &numLayers, nil)); err != nil {
			pdi[i].Invalid = true
		}
		layers := make([]vk.LayerProperties, numLayers)
		if err := vk.Error(vk.EnumerateDeviceLayerProperties(device, &numLayers, layers)); err != nil {
			pdi[i].Invalid = true
		}
		for _, layer := range layers {
			layer.Deref()
			pdi[i].Layers = append(pdi[i].Layers, vk.ToString(layer.LayerName[:]))
		}

		var memoryProperties vk.PhysicalDeviceMemoryProperties
		vk.GetPhysicalDeviceMemoryProperties(device, &memoryProperties)
		memoryProperties.Deref()
		for heap := uint32(0); heap < memoryProperties.MemoryHeapCount; heap++ {
			memoryProperties.MemoryHeaps[heap].Deref()
			pdi[i].Memory += uint64(memoryProperties.MemoryHeaps[heap].Size)
		}

		var properties vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(device, &properties)
		properties.Deref()
		pdi[i].ID = int(properties.DeviceID)
		pdi[i].VendorID = int(properties.VendorID)
		pdi[i].Name = vk.ToString(properties.DeviceName[:])
		pdi[i].DriverVersion = int(properties.DriverVersion)
	}
	return pdi
}

// Instance returns the native handle, windowing libraries take it
// as an untyped value when creating surfaces.
func (v *Instance) Instance() interface{} {
	return v.instance
}

// SetSurface takes ownership of a surface created by the window
func (v *Instance) SetSurface(surface unsafe.Pointer) {
	v.surface = vk.SurfaceFromPointer(uintptr(surface))
}

// Surface returns the surface set with SetSurface
func (v *Instance) Surface() vk.Surface {
	if v.surface == nil {
		return vk.NullSurface
	}
	return v.surface
}

// Destroy destroys the surface and the instance, devices created
// from it must be released first.
func (v *Instance) Destroy() {
	if v.surface != nil {
		vk.DestroySurface(v.instance, v.surface, nil)
		v.surface = nil
	}
	v.availableDevices = nil
	vk.DestroyInstance(v.instance, nil)
}
