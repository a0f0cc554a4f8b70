// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"errors"
	"unsafe"

	vk "github.com/devblok/vulkan"

	"github.com/devblok/sprite/model"
)

// asBytes views n bytes starting at ptr
func asBytes(ptr unsafe.Pointer, n int) []byte {
	return *(*[]byte)(unsafe.Pointer(&sliceHeader{
		Data: uintptr(ptr),
		Len:  n,
		Cap:  n,
	}))
}

// newMesh keeps both buffers host visible, sprite meshes are tiny
func (d *Device) newMesh(vertices []model.Vertex, indices []uint32) (*mesh, error) {
	if len(vertices) == 0 || len(indices) == 0 {
		return nil, errors.New("vkr.CreateMesh(): empty mesh")
	}

	vertexBytes := asBytes(unsafe.Pointer(&vertices[0]), len(vertices)*int(model.VertexStride))
	vertexBuffer, err := NewBuffer(d.device, uint(len(vertexBytes)), vk.BufferUsageVertexBufferBit, vk.SharingModeExclusive, d.allocator)
	if err != nil {
		return nil, err
	}
	if err := vertexBuffer.Mem().Write(vertexBytes); err != nil {
		vertexBuffer.Release()
		return nil, err
	}

	indexBytes := asBytes(unsafe.Pointer(&indices[0]), len(indices)*4)
	indexBuffer, err := NewBuffer(d.device, uint(len(indexBytes)), vk.BufferUsageIndexBufferBit, vk.SharingModeExclusive, d.allocator)
	if err != nil {
		vertexBuffer.Release()
		return nil, err
	}
	if err := indexBuffer.Mem().Write(indexBytes); err != nil {
		vertexBuffer.Release()
		indexBuffer.Release()
		return nil, err
	}

	return &mesh{
		device:   d.device,
		vertices: vertexBuffer,
		indices:  indexBuffer,
		count:    len(indices),
	}, nil
}

type mesh struct {
	device   vk.Device
	vertices Buffer
	indices  Buffer
	count    int
}

func (m *mesh) IndexCount() int {
	return m.count
}

func (m *mesh) Release() {
	if m.vertices.Get() == nil {
		return
	}
	vk.DeviceWaitIdle(m.device)
	m.vertices.Release()
	m.indices.Release()
}
