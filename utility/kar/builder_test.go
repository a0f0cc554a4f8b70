// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package kar

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

func newTestBuilder(c *qt.C) *Builder {
	builder, err := NewBuilder(Header{
		Author:      "devblok",
		DateCreated: time.Now().Unix(),
		Version:     1,
	})
	c.Assert(err, qt.IsNil)
	c.Defer(func() { builder.Close() })
	return builder
}

func TestAddAndWrite(t *testing.T) {
	c := qt.New(t)
	defer c.Done()
	builder := newTestBuilder(c)

	c.Assert(builder.Add("test", strings.NewReader("idunvovkjnreovmegihjbrqlkmfrjnb")), qt.IsNil)
	c.Assert(builder.Add("test2", strings.NewReader("idunvovkjnreovmsdvwrvnervnreegihjbrqlkmfrjnb")), qt.IsNil)
	c.Assert(builder.files, qt.HasLen, 2)

	var buf bytes.Buffer
	num, err := builder.WriteTo(&buf)
	c.Assert(err, qt.IsNil)
	c.Assert(num, qt.Equals, int64(buf.Len()))
	c.Assert(buf.Bytes()[:MagicLength], qt.DeepEquals, magic[:])
}

func TestAddDuplicateName(t *testing.T) {
	c := qt.New(t)
	defer c.Done()
	builder := newTestBuilder(c)

	c.Assert(builder.Add("same", strings.NewReader("a")), qt.IsNil)
	c.Assert(builder.Add("same", strings.NewReader("b")), qt.Equals, ErrDuplicateName)
	c.Assert(builder.Len(), qt.Equals, 1)
}

func TestIndexOffsetsAreContiguous(t *testing.T) {
	c := qt.New(t)
	defer c.Done()
	builder := newTestBuilder(c)

	var wg sync.WaitGroup
	for idx := 0; idx < 8; idx++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			data := strings.Repeat(fmt.Sprintf("file %d ", idx), 100*(idx+1))
			if err := builder.Add(fmt.Sprintf("f%d", idx), strings.NewReader(data)); err != nil {
				t.Error(err)
			}
		}(idx)
	}
	wg.Wait()

	var buf bytes.Buffer
	_, err := builder.WriteTo(&buf)
	c.Assert(err, qt.IsNil)

	ar, err := Open(bytes.NewReader(buf.Bytes()))
	c.Assert(err, qt.IsNil)

	index := ar.Header().Index
	c.Assert(index, qt.HasLen, 8)
	var offset int64
	for idx, e := range index {
		c.Assert(e.Name, qt.Equals, fmt.Sprintf("f%d", idx))
		c.Assert(e.Offset, qt.Equals, offset)
		offset += e.CompressedSize
	}
	c.Assert(ar.dataStart+offset, qt.Equals, int64(buf.Len()))
}

func TestHeaderSizeEncoding(t *testing.T) {
	c := qt.New(t)
	defer c.Done()
	raw := headerSizeToBinary(1234567)
	c.Assert(raw, qt.HasLen, HeaderSizeNumberLength)

	num, err := binaryToHeaderSize(raw)
	c.Assert(err, qt.IsNil)
	c.Assert(num, qt.Equals, int64(1234567))
}
