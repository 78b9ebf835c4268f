// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

//go:build !windows && !linux

package walker

import (
	"context"

	"github.com/tg11-org/vfa/vfadata"
)

// detectHoles and punchHoles are no-ops outside Linux: SEEK_DATA/
// SEEK_HOLE and FALLOC_FL_PUNCH_HOLE are Linux-specific, and the
// --sparse flag is best-effort everywhere, so simply capturing no
// holes here is within contract.
func detectHoles(path string, size int64) ([]vfadata.Hole, error) {
	return nil, nil
}

func punchHoles(ctx context.Context, path string, holes []vfadata.Hole) {}
