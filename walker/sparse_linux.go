// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

//go:build linux

package walker

import (
	"context"
	"os"

	"github.com/luci/luci-go/common/logging"
	"golang.org/x/sys/unix"

	"github.com/tg11-org/vfa/vfadata"
)

// detectHoles walks sparse regions of path using SEEK_DATA/SEEK_HOLE.
// A filesystem that doesn't support them (or a non-sparse file) yields
// an empty, non-error result.
func detectHoles(path string, size int64) ([]vfadata.Hole, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var holes []vfadata.Hole
	fd := int(f.Fd())
	offset := int64(0)
	for offset < size {
		dataStart, err := unix.Seek(fd, offset, unix.SEEK_DATA)
		if err != nil {
			if err == unix.ENXIO {
				// No more data: the remainder of the file is a hole.
				holes = append(holes, vfadata.Hole{Offset: offset, Length: size - offset})
			}
			break
		}
		if dataStart > offset {
			holes = append(holes, vfadata.Hole{Offset: offset, Length: dataStart - offset})
		}
		holeStart, err := unix.Seek(fd, dataStart, unix.SEEK_HOLE)
		if err != nil {
			break
		}
		if holeStart >= size {
			break
		}
		offset = holeStart
	}
	return holes, nil
}

func punchHoles(ctx context.Context, path string, holes []vfadata.Hole) {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		logging.Debugf(ctx, "opening %q for hole punch: %s", path, err)
		return
	}
	defer f.Close()

	const mode = unix.FALLOC_FL_PUNCH_HOLE | unix.FALLOC_FL_KEEP_SIZE
	for _, h := range holes {
		if err := unix.Fallocate(int(f.Fd()), mode, h.Offset, h.Length); err != nil {
			logging.Debugf(ctx, "fallocate punch-hole %q offset=%d length=%d: %s",
				path, h.Offset, h.Length, err)
		}
	}
}
