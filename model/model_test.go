// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package model_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/devblok/sprite/model"
)

func TestVertexLayoutIsTightlyPacked(t *testing.T) {
	c := qt.New(t)

	c.Assert(model.VertexStride, qt.Equals, int32(8*4))

	attrs := model.VertexAttributes()
	c.Assert(attrs, qt.HasLen, 3)
	c.Assert(attrs[0].Offset, qt.Equals, uintptr(0))
	c.Assert(attrs[1].Offset, qt.Equals, uintptr(3*4))
	c.Assert(attrs[2].Offset, qt.Equals, uintptr(6*4))
	for idx, attr := range attrs {
		c.Assert(attr.Location, qt.Equals, uint32(idx))
	}
}

func TestQuadIndicesReferenceVertices(t *testing.T) {
	c := qt.New(t)

	vertices := model.QuadVertices()
	indices := model.QuadIndices()
	c.Assert(indices, qt.HasLen, 6)
	for _, idx := range indices {
		c.Assert(int(idx) < len(vertices), qt.Equals, true)
	}
	c.Assert(indices, qt.DeepEquals, []uint32{0, 1, 3, 1, 2, 3})
}
