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
	"github.com/tg11-org/vfa/walker"
)

func writeTestTree(t *testing.T, root string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello world"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "b.txt"), bytes.Repeat([]byte("xyz"), 1000), 0644))
	require.NoError(t, os.Symlink("a.txt", filepath.Join(root, "link")))
}

func TestCreateExtractRoundTripBlockMode(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	src := t.TempDir()
	writeTestTree(t, src)

	var buf bytes.Buffer
	err := CreateFromPaths(ctx, &buf, []string{src},
		WithMethod(vfadata.MethodZstd, 3),
		WithBlockExp(12),
	)
	require.NoError(t, err)

	a, err := Open(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.False(t, a.Header.Encrypted())
	require.False(t, a.Header.Solid())
	require.NotEmpty(t, a.List())

	dst := t.TempDir()
	require.NoError(t, a.Extract(ctx, dst, walker.CaptureOptions{}))

	base := filepath.Base(src)
	got, err := os.ReadFile(filepath.Join(dst, base, "a.txt"))
	require.NoError(t, err)
	require.Equal(t, "hello world", string(got))

	got, err = os.ReadFile(filepath.Join(dst, base, "sub", "b.txt"))
	require.NoError(t, err)
	require.Equal(t, bytes.Repeat([]byte("xyz"), 1000), got)

	target, err := os.Readlink(filepath.Join(dst, base, "link"))
	require.NoError(t, err)
	require.Equal(t, "a.txt", target)
}

func TestCreateExtractRoundTripSolidMode(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	src := t.TempDir()
	writeTestTree(t, src)

	var buf bytes.Buffer
	err := CreateFromPaths(ctx, &buf, []string{src},
		WithMethod(vfadata.MethodZlib, 6),
		WithSolid("ext"),
		WithSolidChunkExp(10),
	)
	require.NoError(t, err)

	a, err := Open(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.True(t, a.Header.Solid())

	dst := t.TempDir()
	require.NoError(t, a.Extract(ctx, dst, walker.CaptureOptions{}))

	base := filepath.Base(src)
	got, err := os.ReadFile(filepath.Join(dst, base, "sub", "b.txt"))
	require.NoError(t, err)
	require.Equal(t, bytes.Repeat([]byte("xyz"), 1000), got)
}

func TestCreateExtractRoundTripEncrypted(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	src := t.TempDir()
	writeTestTree(t, src)

	var buf bytes.Buffer
	err := CreateFromPaths(ctx, &buf, []string{src},
		WithMethod(vfadata.MethodNone, 0),
		WithPassword([]byte("hunter2"), vfadata.KDFScrypt),
	)
	require.NoError(t, err)

	_, err = Open(bytes.NewReader(buf.Bytes()))
	require.Error(t, err, "opening an encrypted archive without a password must fail")

	a, err := Open(bytes.NewReader(buf.Bytes()), WithOpenPassword([]byte("wrong")))
	require.Error(t, err, "wrong password must fail TOC authentication")

	a, err = Open(bytes.NewReader(buf.Bytes()), WithOpenPassword([]byte("hunter2")))
	require.NoError(t, err)

	dst := t.TempDir()
	require.NoError(t, a.Extract(ctx, dst, walker.CaptureOptions{}))

	base := filepath.Base(src)
	got, err := os.ReadFile(filepath.Join(dst, base, "a.txt"))
	require.NoError(t, err)
	require.Equal(t, "hello world", string(got))
}

func TestCreateExtractHardlinks(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "first"), []byte("shared"), 0644))
	require.NoError(t, os.Link(filepath.Join(src, "first"), filepath.Join(src, "second")))

	var buf bytes.Buffer
	require.NoError(t, CreateFromPaths(ctx, &buf, []string{src}))

	a, err := Open(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	dst := t.TempDir()
	require.NoError(t, a.Extract(ctx, dst, walker.CaptureOptions{}))

	base := filepath.Base(src)
	first, err := os.ReadFile(filepath.Join(dst, base, "first"))
	require.NoError(t, err)
	second, err := os.ReadFile(filepath.Join(dst, base, "second"))
	require.NoError(t, err)
	require.Equal(t, first, second)
}
