// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package vfa

import (
	"context"
	"io"
	"os"
	"runtime"
	"sort"
	"strings"

	"github.com/luci/luci-go/common/errors"

	"github.com/tg11-org/vfa/vfadata"
	"github.com/tg11-org/vfa/walker"
)

// createOptionData holds the resolved parameters for CreateFromPaths,
// assembled from caller-supplied CreateOptions over a set of defaults.
type createOptionData struct {
	method         vfadata.CompressionMethod
	level          int
	methodExplicit bool // set by WithMethod; distinguishes an override from the default
	blockExp       uint8

	solid         bool
	solidBy       string // "none" or "ext"
	solidChunkExp uint8  // 0 means "one whole-buffer block"

	hashKind vfadata.HashKind

	password []byte
	kdf      vfadata.KDFID
	kdfT     uint32
	kdfM     uint32
	kdfP     uint8

	threadsHint uint16
	ramMiBHint  uint32

	capture walker.CaptureOptions

	onItem func(done, total int)
}

// CreateOption configures CreateFromPaths.
type CreateOption func(*createOptionData)

// WithMethod selects the compression method and level for block-mode
// file blocks and for the solid buffer's chunks.
func WithMethod(method vfadata.CompressionMethod, level int) CreateOption {
	return func(o *createOptionData) {
		o.method = method
		o.level = level
		o.methodExplicit = true
	}
}

// WithBlockExp sets the block-mode chunk size to 2^exp bytes.
func WithBlockExp(exp uint8) CreateOption {
	return func(o *createOptionData) { o.blockExp = exp }
}

// WithSolid enables solid mode, optionally ordering files by
// lowercased extension then path ("ext") instead of walk order
// ("none") before they're concatenated into the solid buffer.
func WithSolid(by string) CreateOption {
	return func(o *createOptionData) {
		o.solid = true
		o.solidBy = by
	}
}

// WithSolidChunkExp splits the solid buffer into independently
// compressed 2^exp-byte chunks instead of one whole-buffer block.
func WithSolidChunkExp(exp uint8) CreateOption {
	return func(o *createOptionData) { o.solidChunkExp = exp }
}

// WithHash selects the integrity hash sealed into the footer.
func WithHash(kind vfadata.HashKind) CreateOption {
	return func(o *createOptionData) { o.hashKind = kind }
}

// WithPassword enables AES-256-GCM encryption, deriving the key from
// password with kdf.
func WithPassword(password []byte, kdf vfadata.KDFID) CreateOption {
	return func(o *createOptionData) {
		o.password = password
		o.kdf = kdf
	}
}

// WithKDFParams sets the raw tuning parameters stored in the header
// alongside the password KDF: for KDFArgon2id these are (time, memory
// KiB, lanes); for KDFScrypt they are (N, r, p). DeriveKey substitutes
// its own default for any parameter left at zero.
func WithKDFParams(t, m uint32, p uint8) CreateOption {
	return func(o *createOptionData) {
		o.kdfT = t
		o.kdfM = m
		o.kdfP = p
	}
}

// WithCapture selects which metadata-capture adapters run over the
// walked tree.
func WithCapture(opts walker.CaptureOptions) CreateOption {
	return func(o *createOptionData) { o.capture = opts }
}

// WithThreadsHint and WithRAMHint record informational hints in the
// header; per spec they do not affect correctness and may be ignored
// by any compliant implementation.
func WithThreadsHint(n uint16) CreateOption {
	return func(o *createOptionData) { o.threadsHint = n }
}

func WithRAMHint(mib uint32) CreateOption {
	return func(o *createOptionData) { o.ramMiBHint = mib }
}

// WithProgress registers a callback invoked once per walked item,
// after that item's TOC entry has been recorded; done is 1-indexed
// and total is the walked item count. It exists for driving a CLI
// progress bar and has no effect on the archive's bytes.
func WithProgress(fn func(done, total int)) CreateOption {
	return func(o *createOptionData) { o.onItem = fn }
}

func defaultCreateOptions() createOptionData {
	return createOptionData{
		method:      vfadata.MethodZstd,
		level:       3,
		blockExp:    20, // 1 MiB
		solidBy:     "none",
		hashKind:    vfadata.DefaultHashKind(),
		kdf:         vfadata.KDFArgon2id,
		threadsHint: uint16(runtime.NumCPU()),
	}
}

// CreateFromPaths walks roots and writes a fresh archive to out.
func CreateFromPaths(ctx context.Context, out io.Writer, roots []string, options ...CreateOption) error {
	opts := defaultCreateOptions()
	for _, o := range options {
		o(&opts)
	}

	h := &vfadata.Header{
		Version:       vfadata.Version,
		DefaultMethod: opts.method,
		DefaultLevel:  uint8(opts.method.ClampLevel(opts.level)),
		BlockExp:      opts.blockExp,
		ThreadsHint:   opts.threadsHint,
		RAMMiBHint:    opts.ramMiBHint,
	}
	if opts.solid {
		h.Flags |= vfadata.FlagSolid
	}

	var key []byte
	if len(opts.password) > 0 {
		h.Flags |= vfadata.FlagEncrypted
		h.KDFID = opts.kdf
		h.KDFT = opts.kdfT
		h.KDFM = opts.kdfM
		h.KDFP = opts.kdfP
		h.AEADID = vfadata.AEADAESGCM
		salt, err := vfadata.RandomSalt()
		if err != nil {
			return errors.Annotate(err).Reason("generating salt").Err()
		}
		h.Salt = salt
		noncePrefix, err := vfadata.RandomNoncePrefix()
		if err != nil {
			return errors.Annotate(err).Reason("generating nonce prefix").Err()
		}
		h.AEADNoncePrefix = noncePrefix

		key, err = vfadata.DeriveKey(opts.password, h)
		if err != nil {
			return errors.Annotate(err).Reason("deriving key").Err()
		}
	}

	hasher, err := opts.hashKind.New()
	if err != nil {
		return errors.Annotate(err).Reason("initializing hash").Err()
	}
	tee := io.MultiWriter(out, hasher)

	if err := h.Pack(tee); err != nil {
		return errors.Annotate(err).Reason("writing header").Err()
	}

	items, err := walker.Walk(roots)
	if err != nil {
		return errors.Annotate(err).Reason("walking input paths").Err()
	}

	w := &createWalk{ctx: ctx, h: h, key: key, opts: &opts, tee: tee}
	entries, err := w.buildEntries(items)
	if err != nil {
		return err
	}

	tocBytes, err := (&vfadata.TOC{Entries: entries}).Pack(opts.solid)
	if err != nil {
		return errors.Annotate(err).Reason("packing TOC").Err()
	}
	if h.Encrypted() {
		tocBytes, err = vfadata.Seal(key, h, vfadata.TOCBlockIndex, tocBytes, []byte("vfa-toc"))
		if err != nil {
			return errors.Annotate(err).Reason("sealing TOC").Err()
		}
	}
	tocOffset := w.bytesWritten
	if _, err := tee.Write(tocBytes); err != nil {
		return errors.Annotate(err).Reason("writing TOC").Err()
	}

	footer := &vfadata.Footer{
		TOCOffset: uint64(tocOffset),
		TOCSize:   uint32(len(tocBytes)),
		HashKind:  opts.hashKind,
	}
	copy(footer.Digest[:], vfadata.Digest(hasher))
	if err := footer.Pack(out); err != nil {
		return errors.Annotate(err).Reason("writing footer").Err()
	}
	return nil
}

// createWalk threads the shared writer state (current block index,
// running output offset) through entry construction without
// polluting CreateFromPaths with a long parameter list.
type createWalk struct {
	ctx  context.Context
	h    *vfadata.Header
	key  []byte
	opts *createOptionData
	tee  io.Writer

	nextBlockIndex uint64
	bytesWritten   int64
}

func (w *createWalk) write(p []byte) error {
	n, err := w.tee.Write(p)
	w.bytesWritten += int64(n)
	return err
}

func (w *createWalk) buildEntries(items []walker.Item) ([]vfadata.Entry, error) {
	// vfadata.HeaderSize isn't tracked here because bytesWritten starts
	// counting only after the header write in CreateFromPaths; account
	// for it so TOCOffset lands at the true file offset.
	w.bytesWritten = int64(vfadata.HeaderSize)

	entries := make([]vfadata.Entry, len(items))
	var fileIdx []int

	for i, it := range items {
		meta, err := walker.Capture(w.ctx, it.Abs, it.Info, it.Kind, it.HardlinkTo, w.opts.capture)
		if err != nil {
			return nil, errors.Annotate(err).Reason("capturing metadata for %(path)q").
				D("path", it.Path).Err()
		}
		entries[i] = vfadata.Entry{
			Path:  it.Path,
			Mode:  uint32(it.Info.Mode()),
			Mtime: it.Info.ModTime().Unix(),
			Kind:  it.Kind,
			Meta:  meta,
		}
		if it.Kind == vfadata.KindFile {
			entries[i].Size = uint64(it.Info.Size())
			fileIdx = append(fileIdx, i)
		}
		if w.opts.onItem != nil {
			w.opts.onItem(i+1, len(items))
		}
	}

	if w.opts.solid {
		if err := w.fillSolid(items, entries, fileIdx); err != nil {
			return nil, err
		}
	} else {
		for _, idx := range fileIdx {
			if err := w.fillBlockFile(items[idx].Abs, &entries[idx]); err != nil {
				return nil, errors.Annotate(err).Reason("packing file %(path)q").
					D("path", items[idx].Path).Err()
			}
		}
	}

	return entries, nil
}

func (w *createWalk) fillBlockFile(abs string, e *vfadata.Entry) error {
	f, err := os.Open(abs)
	if err != nil {
		return err
	}
	defer f.Close()

	blockSize := w.h.BlockSize()
	buf := make([]byte, blockSize)
	for {
		n, err := io.ReadFull(f, buf)
		if err == io.EOF {
			break
		}
		if err != nil && err != io.ErrUnexpectedEOF {
			return err
		}
		chunk := buf[:n]

		payload, cerr := w.opts.method.Compress(w.opts.level, chunk)
		if cerr != nil {
			return cerr
		}
		method := w.opts.method
		if w.h.Encrypted() {
			payload, cerr = vfadata.Seal(w.key, w.h, w.nextBlockIndex, payload, []byte("vfa-data"))
			if cerr != nil {
				return cerr
			}
		}

		frameBuf := &frameCounter{w: w}
		if err := vfadata.WriteFrame(frameBuf, method, payload); err != nil {
			return err
		}

		e.Blocks = append(e.Blocks, vfadata.BlockDesc{
			Index:            w.nextBlockIndex,
			UncompressedSize: uint32(n),
			CompressedSize:   uint32(len(payload)),
			Method:           method,
		})
		w.nextBlockIndex++

		if err == io.ErrUnexpectedEOF {
			break
		}
	}
	return nil
}

// frameCounter adapts createWalk.write to the io.Writer WriteFrame
// expects, so the frame header and payload both flow through the
// shared hash/offset accounting in one place.
type frameCounter struct {
	w *createWalk
}

func (f *frameCounter) Write(p []byte) (int, error) {
	if err := f.w.write(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *createWalk) fillSolid(items []walker.Item, entries []vfadata.Entry, fileIdx []int) error {
	order := append([]int(nil), fileIdx...)
	if w.opts.solidBy == "ext" {
		sort.SliceStable(order, func(a, b int) bool {
			pa, pb := items[order[a]].Path, items[order[b]].Path
			ea, eb := strings.ToLower(extOf(pa)), strings.ToLower(extOf(pb))
			if ea != eb {
				return ea < eb
			}
			return pa < pb
		})
	}

	var solidBuf []byte
	for _, idx := range order {
		data, err := os.ReadFile(items[idx].Abs)
		if err != nil {
			return errors.Annotate(err).Reason("reading %(path)q").D("path", items[idx].Path).Err()
		}
		entries[idx].StartOff = uint64(len(solidBuf))
		entries[idx].Size = uint64(len(data))
		solidBuf = append(solidBuf, data...)
	}

	if w.opts.solidChunkExp == 0 {
		return w.flushSolidChunk(solidBuf)
	}
	chunkSize := int(uint64(1) << w.opts.solidChunkExp)
	for off := 0; off < len(solidBuf); off += chunkSize {
		end := off + chunkSize
		if end > len(solidBuf) {
			end = len(solidBuf)
		}
		if err := w.flushSolidChunk(solidBuf[off:end]); err != nil {
			return err
		}
	}
	if len(solidBuf) == 0 {
		return w.flushSolidChunk(nil)
	}
	return nil
}

func (w *createWalk) flushSolidChunk(chunk []byte) error {
	payload, err := w.opts.method.Compress(w.opts.level, chunk)
	if err != nil {
		return err
	}
	method := w.opts.method
	if w.h.Encrypted() {
		payload, err = vfadata.Seal(w.key, w.h, w.nextBlockIndex, payload, []byte("vfa-data"))
		if err != nil {
			return err
		}
	}
	if err := vfadata.WriteFrame(&frameCounter{w: w}, method, payload); err != nil {
		return err
	}
	w.nextBlockIndex++
	return nil
}

func extOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		switch path[i] {
		case '.':
			return path[i:]
		case '/':
			return ""
		}
	}
	return ""
}
