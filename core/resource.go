// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"fmt"
	"hash/fnv"
	"strconv"

	log "github.com/sirupsen/logrus"

	"github.com/devblok/sprite/gfx"
)

// suffix of precompiled SPIR-V shader binaries next to their GLSL sources
const spirvSuffix = ".spv"

// ResourceID is a stable handle of a named resource.
// Collisions are not detected.
type ResourceID uint64

// NewResourceID hashes name with 64 bit FNV-1a
func NewResourceID(name string) ResourceID {
	h := fnv.New64a()
	h.Write([]byte(name))
	return ResourceID(h.Sum64())
}

func (id ResourceID) String() string {
	return "0x" + strconv.FormatUint(uint64(id), 16)
}

// NewResourceStore creates an empty store, Initialise loads the manifest into it
func NewResourceStore(device gfx.Device, source AssetSource, manifest Manifest, cfg AssetsConfiguration) *ResourceStore {
	return &ResourceStore{
		device:   device,
		source:   source,
		manifest: manifest,
		flip:     cfg.FlipTextures,
		names:    make(map[ResourceID]string),
		shaders:  make(map[ResourceID]gfx.Program),
		textures: make(map[ResourceID]gfx.Texture),
	}
}

// ResourceStore owns the compiled programs and uploaded textures.
// It's filled once at startup and only read from afterwards.
type ResourceStore struct {
	device   gfx.Device
	source   AssetSource
	manifest Manifest
	flip     bool

	names    map[ResourceID]string
	shaders  map[ResourceID]gfx.Program
	textures map[ResourceID]gfx.Texture
}

// Initialise loads every resource in the manifest.
// Any failure is fatal, the engine cannot run with a partial set.
func (r *ResourceStore) Initialise() error {
	for _, asset := range r.manifest.Shaders {
		if _, err := r.LoadShader(asset); err != nil {
			return Fatal("ResourceStore.Initialise()", err)
		}
	}
	for _, asset := range r.manifest.Textures {
		if _, err := r.LoadTexture(asset); err != nil {
			return Fatal("ResourceStore.Initialise()", err)
		}
	}
	log.WithFields(log.Fields{
		"shaders":  len(r.shaders),
		"textures": len(r.textures),
	}).Info("Resources loaded")
	return nil
}

// LoadShader reads and compiles a program, registering it under asset.Name
func (r *ResourceStore) LoadShader(asset ShaderAsset) (gfx.Program, error) {
	source := gfx.ShaderSource{Name: asset.Name}
	var err error
	if source.Vertex, err = r.readShader(asset.Vertex); err != nil {
		return nil, err
	}
	if source.Fragment, err = r.readShader(asset.Fragment); err != nil {
		return nil, err
	}
	if asset.Geometry != "" {
		if source.Geometry, err = r.readShader(asset.Geometry); err != nil {
			return nil, err
		}
	}

	program, err := r.device.CompileProgram(source)
	if err != nil {
		return nil, fmt.Errorf("shader %s: %s", asset.Name, err.Error())
	}

	id := r.register(asset.Name)
	if old, ok := r.shaders[id]; ok {
		old.Release()
	}
	r.shaders[id] = program
	log.WithFields(log.Fields{
		"name": asset.Name,
		"id":   id,
	}).Debug("Shader loaded")
	return program, nil
}

func (r *ResourceStore) readShader(path string) ([]byte, error) {
	if r.device.ShaderFormat() == gfx.ShaderFormatSPIRV {
		path += spirvSuffix
	}
	data, err := r.source.ReadAsset(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %s", path, err.Error())
	}
	return data, nil
}

// LoadTexture decodes and uploads an image, registering it under asset.Name
func (r *ResourceStore) LoadTexture(asset TextureAsset) (gfx.Texture, error) {
	data, err := r.source.ReadAsset(asset.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %s", asset.Path, err.Error())
	}

	pixels, err := DecodeTexture(data, r.flip)
	if err != nil {
		return nil, fmt.Errorf("texture %s: %s", asset.Name, err.Error())
	}

	texture, err := r.device.UploadTexture(gfx.TextureData{
		Name:    asset.Name,
		Image:   pixels,
		Sampler: gfx.DefaultSamplerParams,
	})
	if err != nil {
		return nil, fmt.Errorf("texture %s: %s", asset.Name, err.Error())
	}

	id := r.register(asset.Name)
	if old, ok := r.textures[id]; ok {
		old.Release()
	}
	r.textures[id] = texture
	log.WithFields(log.Fields{
		"name":   asset.Name,
		"id":     id,
		"width":  texture.Width(),
		"height": texture.Height(),
	}).Debug("Texture loaded")
	return texture, nil
}

func (r *ResourceStore) register(name string) ResourceID {
	id := NewResourceID(name)
	if existing, ok := r.names[id]; ok && existing != name {
		log.WithFields(log.Fields{
			"name":     name,
			"existing": existing,
			"id":       id,
		}).Warn("Resource id collision")
	}
	r.names[id] = name
	return id
}

// Shader returns the program registered under id
func (r *ResourceStore) Shader(id ResourceID) (gfx.Program, error) {
	program, ok := r.shaders[id]
	if !ok {
		return nil, ErrUnknownResource
	}
	return program, nil
}

// Texture returns the texture registered under id
func (r *ResourceStore) Texture(id ResourceID) (gfx.Texture, error) {
	texture, ok := r.textures[id]
	if !ok {
		return nil, ErrUnknownResource
	}
	return texture, nil
}

// Name returns the name id was registered with
func (r *ResourceStore) Name(id ResourceID) (string, bool) {
	name, ok := r.names[id]
	return name, ok
}

// ShaderCount returns the number of programs held
func (r *ResourceStore) ShaderCount() int {
	return len(r.shaders)
}

// TextureCount returns the number of textures held
func (r *ResourceStore) TextureCount() int {
	return len(r.textures)
}

// Shutdown releases every program and texture and empties the store.
// It has to run while the device is still alive, calling it again does nothing.
func (r *ResourceStore) Shutdown() {
	for id, program := range r.shaders {
		program.Release()
		delete(r.shaders, id)
	}
	for id, texture := range r.textures {
		texture.Release()
		delete(r.textures, id)
	}
	for id := range r.names {
		delete(r.names, id)
	}
}
