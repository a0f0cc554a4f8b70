// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"errors"
	"fmt"
	"unsafe"

	vk "github.com/devblok/vulkan"
	glm "github.com/go-gl/mathgl/mgl32"

	"github.com/devblok/sprite/gfx"
	"github.com/devblok/sprite/model"
)

// mvpUniform is the only uniform that reaches the shaders, as a push constant
const mvpUniform = "MVP"

// clipCorrection maps OpenGL clip space onto Vulkan's: Y points down
// and depth runs from 0 to 1.
var clipCorrection = glm.Mat4{
	1, 0, 0, 0,
	0, -1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

func attributeFormat(components int32) (vk.Format, error) {
	switch components {
	case 1:
		return vk.FormatR32Sfloat, nil
	case 2:
		return vk.FormatR32g32Sfloat, nil
	case 3:
		return vk.FormatR32g32b32Sfloat, nil
	case 4:
		return vk.FormatR32g32b32a32Sfloat, nil
	default:
		return vk.FormatUndefined, fmt.Errorf("no vertex format with %d components", components)
	}
}

func vertexInput() ([]vk.VertexInputBindingDescription, []vk.VertexInputAttributeDescription, error) {
	bindings := []vk.VertexInputBindingDescription{{
		Binding:   0,
		Stride:    uint32(model.VertexStride),
		InputRate: vk.VertexInputRateVertex,
	}}

	var attributes []vk.VertexInputAttributeDescription
	for _, attr := range model.VertexAttributes() {
		format, err := attributeFormat(attr.Components)
		if err != nil {
			return nil, nil, err
		}
		attributes = append(attributes, vk.VertexInputAttributeDescription{
			Binding:  0,
			Location: attr.Location,
			Format:   format,
			Offset:   uint32(attr.Offset),
		})
	}
	return bindings, attributes, nil
}

func (d *Device) createShaderModule(code []byte) (vk.ShaderModule, error) {
	if len(code) == 0 || len(code)%4 != 0 {
		return nil, fmt.Errorf("SPIR-V code of %d bytes is not word aligned", len(code))
	}
	smci := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    SliceUint32(code),
	}

	var module vk.ShaderModule
	if err := vk.Error(vk.CreateShaderModule(d.device, &smci, nil, &module)); err != nil {
		return nil, fmt.Errorf("vk.CreateShaderModule(): %s", err.Error())
	}
	return module, nil
}

// newProgram builds a graphics pipeline over the shared layout and render pass
func (d *Device) newProgram(source gfx.ShaderSource) (*program, error) {
	stages := []struct {
		flag vk.ShaderStageFlagBits
		name string
		code []byte
	}{
		{vk.ShaderStageVertexBit, "vertex", source.Vertex},
		{vk.ShaderStageFragmentBit, "fragment", source.Fragment},
	}
	if len(source.Geometry) > 0 {
		stages = append(stages, struct {
			flag vk.ShaderStageFlagBits
			name string
			code []byte
		}{vk.ShaderStageGeometryBit, "geometry", source.Geometry})
	}

	var modules []vk.ShaderModule
	defer func() {
		for _, module := range modules {
			vk.DestroyShaderModule(d.device, module, nil)
		}
	}()

	stageInfos := make([]vk.PipelineShaderStageCreateInfo, 0, len(stages))
	for _, stage := range stages {
		module, err := d.createShaderModule(stage.code)
		if err != nil {
			return nil, fmt.Errorf("%s: %s stage: %s", source.Name, stage.name, err.Error())
		}
		modules = append(modules, module)
		stageInfos = append(stageInfos, vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  stage.flag,
			Module: module,
			PName:  safeString("main"),
		})
	}

	bindings, attributes, err := vertexInput()
	if err != nil {
		return nil, fmt.Errorf("%s: %s", source.Name, err.Error())
	}

	gpci := []vk.GraphicsPipelineCreateInfo{{
		SType:      vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount: uint32(len(stageInfos)),
		PStages:    stageInfos,
		PVertexInputState: &vk.PipelineVertexInputStateCreateInfo{
			SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
			VertexBindingDescriptionCount:   uint32(len(bindings)),
			PVertexBindingDescriptions:      bindings,
			VertexAttributeDescriptionCount: uint32(len(attributes)),
			PVertexAttributeDescriptions:    attributes,
		},
		PInputAssemblyState: &vk.PipelineInputAssemblyStateCreateInfo{
			SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
			Topology: vk.PrimitiveTopologyTriangleList,
		},
		PViewportState: &vk.PipelineViewportStateCreateInfo{
			SType:         vk.StructureTypePipelineViewportStateCreateInfo,
			ViewportCount: 1,
			ScissorCount:  1,
		},
		PRasterizationState: &vk.PipelineRasterizationStateCreateInfo{
			SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
			PolygonMode: vk.PolygonModeFill,
			CullMode:    vk.CullModeFlags(vk.CullModeNone),
			FrontFace:   vk.FrontFaceCounterClockwise,
			LineWidth:   1.0,
		},
		PDepthStencilState: &vk.PipelineDepthStencilStateCreateInfo{
			SType:            vk.StructureTypePipelineDepthStencilStateCreateInfo,
			DepthTestEnable:  vk.True,
			DepthWriteEnable: vk.True,
			DepthCompareOp:   vk.CompareOpLessOrEqual,
			Back: vk.StencilOpState{
				FailOp:    vk.StencilOpKeep,
				PassOp:    vk.StencilOpKeep,
				CompareOp: vk.CompareOpAlways,
			},
			Front: vk.StencilOpState{
				FailOp:    vk.StencilOpKeep,
				PassOp:    vk.StencilOpKeep,
				CompareOp: vk.CompareOpAlways,
			},
		},
		PMultisampleState: &vk.PipelineMultisampleStateCreateInfo{
			SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
			RasterizationSamples: vk.SampleCount1Bit,
		},
		PColorBlendState: &vk.PipelineColorBlendStateCreateInfo{
			SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
			AttachmentCount: 1,
			PAttachments: []vk.PipelineColorBlendAttachmentState{{
				BlendEnable:         vk.True,
				SrcColorBlendFactor: vk.BlendFactorSrcAlpha,
				DstColorBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
				ColorBlendOp:        vk.BlendOpAdd,
				SrcAlphaBlendFactor: vk.BlendFactorOne,
				DstAlphaBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
				AlphaBlendOp:        vk.BlendOpAdd,
				ColorWriteMask:      0xF,
			}},
		},
		PDynamicState: &vk.PipelineDynamicStateCreateInfo{
			SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
			DynamicStateCount: 2,
			PDynamicStates: []vk.DynamicState{
				vk.DynamicStateViewport,
				vk.DynamicStateScissor,
			},
		},
		Layout:     d.pipelineLayout,
		RenderPass: d.renderPass,
	}}

	pipelines := make([]vk.Pipeline, len(gpci))
	if err := vk.Error(vk.CreateGraphicsPipelines(d.device, d.pipelineCache, uint32(len(gpci)), gpci, nil, pipelines)); err != nil {
		return nil, errors.New(source.Name + ": vk.CreateGraphicsPipelines(): " + err.Error())
	}

	return &program{
		device:   d.device,
		pipeline: pipelines[0],
		values:   make(map[string]interface{}),
	}, nil
}

// program is a graphics pipeline. Uniform values are kept on the host,
// the MVP matrix is pushed with every draw.
type program struct {
	device   vk.Device
	pipeline vk.Pipeline
	values   map[string]interface{}
}

func (p *program) Handle() uint64 {
	return uint64(uintptr(unsafe.Pointer(p.pipeline)))
}

// Use is a no-op, the pipeline is bound when a draw is recorded
func (p *program) Use() {}

func (p *program) Release() {
	if p.pipeline == nil {
		return
	}
	vk.DeviceWaitIdle(p.device)
	vk.DestroyPipeline(p.device, p.pipeline, nil)
	p.pipeline = nil
}

// Value returns a value stored by one of the setters
func (p *program) Value(name string) (interface{}, bool) {
	v, ok := p.values[name]
	return v, ok
}

// pushConstants returns the push block in Vulkan clip space
func (p *program) pushConstants() model.Uniform {
	mvp, ok := p.values[mvpUniform].(glm.Mat4)
	if !ok {
		mvp = glm.Ident4()
	}
	return model.Uniform{MVP: clipCorrection.Mul4(mvp)}
}

func (p *program) SetFloat(name string, value float32, use bool) {
	p.values[name] = value
}

func (p *program) SetInteger(name string, value int32, use bool) {
	p.values[name] = value
}

func (p *program) SetVector2f(name string, x, y float32, use bool) {
	p.values[name] = glm.Vec2{x, y}
}

func (p *program) SetVector2(name string, value glm.Vec2, use bool) {
	p.values[name] = value
}

func (p *program) SetVector3f(name string, x, y, z float32, use bool) {
	p.values[name] = glm.Vec3{x, y, z}
}

func (p *program) SetVector3(name string, value glm.Vec3, use bool) {
	p.values[name] = value
}

func (p *program) SetVector4f(name string, x, y, z, w float32, use bool) {
	p.values[name] = glm.Vec4{x, y, z, w}
}

func (p *program) SetVector4(name string, value glm.Vec4, use bool) {
	p.values[name] = value
}

func (p *program) SetMatrix4(name string, value glm.Mat4, use bool) {
	p.values[name] = value
}
