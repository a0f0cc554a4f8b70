// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package kar_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/devblok/sprite/utility/kar"
)

var (
	testString1 = "idunvovkjnreovmegihjbrqlkmfrjnb"
	testString2 = "idunvovkjnreovmsdvwrvnervnreegihjbrqlkmfrjnb"
)

func buildArchive(c *qt.C, files map[string]string) []byte {
	builder, err := kar.NewBuilder(kar.Header{
		Author:      "devblok",
		DateCreated: time.Now().Unix(),
		Version:     1,
	})
	c.Assert(err, qt.IsNil)
	defer builder.Close()

	for name, content := range files {
		c.Assert(builder.Add(name, strings.NewReader(content)), qt.IsNil)
	}

	var buf bytes.Buffer
	written, err := builder.WriteTo(&buf)
	c.Assert(err, qt.IsNil)
	c.Assert(written, qt.Equals, int64(buf.Len()))
	return buf.Bytes()
}

func TestCreateAndRead(t *testing.T) {
	c := qt.New(t)
	defer c.Done()
	data := buildArchive(c, map[string]string{"test": testString1, "test2": testString2})

	ar, err := kar.Open(bytes.NewReader(data))
	c.Assert(err, qt.IsNil)

	f, err := ar.Open("test")
	c.Assert(err, qt.IsNil)
	c.Assert(f.Name(), qt.Equals, "test")
	c.Assert(f.Size(), qt.Equals, int64(len(testString1)))

	var result bytes.Buffer
	_, err = result.ReadFrom(f)
	c.Assert(err, qt.IsNil)
	c.Assert(result.String(), qt.Equals, testString1)
}

func TestCreateAndReadAll(t *testing.T) {
	c := qt.New(t)
	defer c.Done()
	data := buildArchive(c, map[string]string{"test": testString1, "test2": testString2})

	ar, err := kar.Open(bytes.NewReader(data))
	c.Assert(err, qt.IsNil)
	c.Assert(ar.Names(), qt.DeepEquals, []string{"test", "test2"})
	c.Assert(ar.Header().Author, qt.Equals, "devblok")

	f, err := ar.ReadAll("test2")
	c.Assert(err, qt.IsNil)
	c.Assert(string(f), qt.Equals, testString2)
}

func TestReadMissingFile(t *testing.T) {
	c := qt.New(t)
	defer c.Done()
	data := buildArchive(c, map[string]string{"test": testString1})

	ar, err := kar.Open(bytes.NewReader(data))
	c.Assert(err, qt.IsNil)

	_, err = ar.Open("nope")
	c.Assert(err, qt.Equals, kar.ErrNotFound)
	_, err = ar.ReadAll("nope")
	c.Assert(err, qt.Equals, kar.ErrNotFound)
}
