// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package assets holds the shaders and textures packed into the binary.
// SPIR-V for the Vulkan backend is built from shaders/vulkan with glslc.
package assets

//go:generate glslc -o shaders/sprite.vert.spv shaders/vulkan/sprite.vert
//go:generate glslc -o shaders/sprite.frag.spv shaders/vulkan/sprite.frag
//go:generate glslc -o shaders/font.vert.spv shaders/vulkan/font.vert
//go:generate glslc -o shaders/font.frag.spv shaders/vulkan/font.frag
