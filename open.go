// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package vfa

import (
	"io"

	"github.com/luci/luci-go/common/errors"

	"github.com/tg11-org/vfa/vfadata"
)

// OpenedArchive is a parsed, not-yet-extracted archive: its header,
// footer, and decoded table of contents. Opening an archive never
// reads the block stream; List and the footer's stored digest are
// available immediately, but nothing is checked against that digest
// here: Verify or an extraction is required to confirm the block data
// itself is intact.
type OpenedArchive struct {
	r      io.ReadSeeker
	Header *vfadata.Header
	Footer *vfadata.Footer
	TOC    *vfadata.TOC

	key []byte
}

type openOptionData struct {
	password []byte
}

// OpenOption configures Open.
type OpenOption func(*openOptionData)

// WithOpenPassword supplies the password for an encrypted archive.
// Opening an encrypted archive without one fails immediately.
func WithOpenPassword(password []byte) OpenOption {
	return func(o *openOptionData) { o.password = password }
}

// Open reads and validates the header, footer, and table of contents
// of an archive from r, decrypting the TOC if necessary. r must
// support seeking since the footer and TOC are read from the tail of
// the stream before any block data is touched.
func Open(r io.ReadSeeker, options ...OpenOption) (*OpenedArchive, error) {
	var opts openOptionData
	for _, o := range options {
		o(&opts)
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, errors.Annotate(err).Reason("seeking to start").Err()
	}
	h, err := vfadata.ParseHeader(r)
	if err != nil {
		return nil, errors.Annotate(err).Reason("parsing header").Err()
	}

	footer, err := vfadata.ParseFooter(r)
	if err != nil {
		return nil, errors.Annotate(err).Reason("parsing footer").Err()
	}

	if _, err := r.Seek(int64(footer.TOCOffset), io.SeekStart); err != nil {
		return nil, errors.Annotate(err).Reason("seeking to TOC").Err()
	}
	tocBytes := make([]byte, footer.TOCSize)
	if _, err := io.ReadFull(r, tocBytes); err != nil {
		return nil, errors.Annotate(err).Reason("reading TOC bytes").Err()
	}

	var key []byte
	if h.Encrypted() {
		if len(opts.password) == 0 {
			return nil, errors.Reason("archive is encrypted; a password is required").Err()
		}
		key, err = vfadata.DeriveKey(opts.password, h)
		if err != nil {
			return nil, errors.Annotate(err).Reason("deriving key").Err()
		}
		tocBytes, err = vfadata.Open(key, h, vfadata.TOCBlockIndex, tocBytes, []byte("vfa-toc"))
		if err != nil {
			return nil, errors.Annotate(err).Reason("decrypting TOC (wrong password?)").Err()
		}
	}

	t, err := vfadata.ParseTOC(tocBytes, h.Solid())
	if err != nil {
		return nil, errors.Annotate(err).Reason("parsing TOC").Err()
	}

	return &OpenedArchive{r: r, Header: h, Footer: footer, TOC: t, key: key}, nil
}

// List returns the archive's entries in TOC order.
func (a *OpenedArchive) List() []vfadata.Entry { return a.TOC.Entries }
