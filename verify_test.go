// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package vfa

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tg11-org/vfa/vfadata"
)

func TestVerifyBlockMode(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.txt"), bytes.Repeat([]byte("q"), 5000), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(src, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "sub", "b.txt"), []byte("b"), 0644))

	var buf bytes.Buffer
	require.NoError(t, CreateFromPaths(ctx, &buf, []string{src}, WithBlockExp(10)))

	report, err := Verify(bytes.NewReader(buf.Bytes()), nil)
	require.NoError(t, err)
	require.Equal(t, 2, report.Files)
	require.Greater(t, report.Blocks, 0)

	corrupted := append([]byte(nil), buf.Bytes()...)
	corrupted[vfadata.HeaderSize] ^= 0xFF
	_, err = Verify(bytes.NewReader(corrupted), nil)
	require.Error(t, err, "corrupting a block byte must fail verification")
}

func TestVerifySolidMode(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.txt"), []byte("hello"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "b.txt"), []byte("world!!"), 0644))

	var buf bytes.Buffer
	require.NoError(t, CreateFromPaths(ctx, &buf, []string{src}, WithSolid("none")))

	report, err := Verify(bytes.NewReader(buf.Bytes()), nil)
	require.NoError(t, err)
	require.Equal(t, 2, report.Files)
}
