// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

// Names of the resources the engine loads at startup
const (
	SpriteShader = "sprite_shader"
	TextShader   = "text_shader"
	AwesomeFace  = "awesome_face"
)

// ShaderAsset names the sources of a single program.
// Geometry is optional.
type ShaderAsset struct {
	Name     string
	Vertex   string
	Fragment string
	Geometry string
}

// TextureAsset names an encoded image
type TextureAsset struct {
	Name string
	Path string
}

// Manifest is the set of resources loaded by ResourceStore.Initialise
type Manifest struct {
	Shaders  []ShaderAsset
	Textures []TextureAsset
}

// DefaultManifest lists the assets shipped in the assets directory
func DefaultManifest() Manifest {
	return Manifest{
		Shaders: []ShaderAsset{
			{
				Name:     SpriteShader,
				Vertex:   "shaders/sprite.vert",
				Fragment: "shaders/sprite.frag",
			},
			{
				Name:     TextShader,
				Vertex:   "shaders/font.vert",
				Fragment: "shaders/font.frag",
			},
		},
		Textures: []TextureAsset{
			{
				Name: AwesomeFace,
				Path: "textures/awesomeface.png",
			},
		},
	}
}
