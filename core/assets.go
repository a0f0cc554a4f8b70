// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"fmt"
	"io/ioutil"
	"path/filepath"

	"github.com/gobuffalo/packr"
	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/mmap"

	"github.com/devblok/sprite/utility/kar"
)

// AssetSource provides raw asset bytes by their path relative to the asset root
type AssetSource interface {
	ReadAsset(name string) ([]byte, error)
}

// NewAssetSource opens the asset source described by cfg.
// The returned closer must be called once the assets are no longer read.
func NewAssetSource(cfg AssetsConfiguration) (AssetSource, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Source {
	case AssetSourceBox:
		return NewBoxSource(), noop, nil
	case AssetSourceDir:
		return DirSource(cfg.Directory), noop, nil
	case AssetSourceArchive:
		src, err := OpenArchiveSource(cfg.Archive)
		if err != nil {
			return nil, noop, err
		}
		return src, src.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown asset source %q", cfg.Source)
	}
}

// DirSource reads assets from a directory on disk
type DirSource string

// ReadAsset implements AssetSource
func (d DirSource) ReadAsset(name string) ([]byte, error) {
	return ioutil.ReadFile(filepath.Join(string(d), filepath.FromSlash(name)))
}

// NewBoxSource returns the assets packed into the binary
func NewBoxSource() *BoxSource {
	return &BoxSource{box: packr.NewBox("../assets")}
}

// BoxSource reads assets embedded with packr
type BoxSource struct {
	box packr.Box
}

// ReadAsset implements AssetSource
func (b *BoxSource) ReadAsset(name string) ([]byte, error) {
	return b.box.Find(name)
}

// OpenArchiveSource memory maps a kar archive and serves assets from it
func OpenArchiveSource(path string) (*ArchiveSource, error) {
	r, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	ar, err := kar.Open(r)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("%s: %s", path, err.Error())
	}
	log.WithFields(log.Fields{
		"path":  path,
		"files": len(ar.Header().Index),
	}).Debug("Asset archive opened")
	return &ArchiveSource{mapped: r, archive: ar}, nil
}

// ArchiveSource reads assets from a memory mapped kar archive
type ArchiveSource struct {
	mapped  *mmap.ReaderAt
	archive *kar.Archive
}

// ReadAsset implements AssetSource
func (a *ArchiveSource) ReadAsset(name string) ([]byte, error) {
	return a.archive.ReadAll(name)
}

// Close unmaps the archive
func (a *ArchiveSource) Close() error {
	return a.mapped.Close()
}
