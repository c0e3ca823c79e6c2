package ddpt

import "bytes"

// sparingCompare implements oflag=sparing: read back the span that is
// about to be written and skip the write (in obpc-sized chunks) for any
// sub-range that already matches, per spec.md §4.6.
func sparingCompare(o *Options, st *iterState) (bool, error) {
	if !o.OFlags.Sparing {
		return false, nil
	}
	span := st.ocbpt*o.OBS + st.partialWriteBytes
	readBack := o.SpareBuf[:span]
	n, err := readBackSpan(o, readBack)
	if err != nil || n < span {
		// Can't compare a short or failed read-back: fall through to a
		// normal write of the whole span.
		return false, nil
	}
	if bytes.Equal(readBack, o.Buf[:span]) {
		st.bytesOf = span
		advanceWriteCursor(o, st)
		return true, nil
	}
	if o.Obpc <= 0 {
		return false, nil
	}
	return writeSparingChunks(o, st, readBack, span)
}

func readBackSpan(o *Options, dst []byte) (int, error) {
	pos := o.Seek * int64(o.OBSPI)
	if _, err := o.Out.File.Seek(pos, 0); err != nil {
		return 0, err
	}
	n, err := o.Out.File.Read(dst)
	o.Out.posValid = false
	return n, err
}

// writeSparingChunks writes only the obpc-sized sub-chunks that differ
// from what is already on disk.
func writeSparingChunks(o *Options, st *iterState, readBack []byte, span int) (bool, error) {
	chunk := o.Obpc * o.OBS
	if chunk <= 0 {
		return false, nil
	}
	written := 0
	for off := 0; off < span; off += chunk {
		end := off + chunk
		if end > span {
			end = span
		}
		if bytes.Equal(readBack[off:end], o.Buf[off:end]) {
			continue
		}
		pos := o.Seek*int64(o.OBSPI) + int64(off)
		if _, err := o.Out.File.Seek(pos, 0); err != nil {
			return false, err
		}
		n, err := o.Out.File.Write(o.Buf[off:end])
		if err != nil {
			return false, err
		}
		written += n
	}
	st.bytesOf = span
	o.Out.posValid = false
	_ = writeAccount(o, st, span)
	return true, nil
}

// sparseCompare implements oflag=sparse / sparse=N / trim: compare the
// whole span about to be written against an all-zero buffer and skip
// (or trim) it only when the entire span is zero. There is no per-chunk
// comparison: obpc is not consulted, and a span with any nonzero byte
// is written in full.
func sparseCompare(o *Options, st *iterState, isLast bool) (bool, error) {
	if o.OFlags.Sparse == 0 {
		return false, nil
	}
	span := st.ocbpt*o.OBS + st.partialWriteBytes
	buf := o.Buf[:span]
	if !bytes.Equal(buf, o.ZeroBuf[:span]) {
		return false, nil
	}
	// A bare sparse=1 still materialises its very last span, so the
	// output file's length matches a non-sparse copy (spec.md §4.6).
	if isLast && o.OFlags.Sparse == 1 {
		return false, nil
	}
	// Without trim, this is just a logical hole: advance cursors without
	// writing anything and let the filesystem's own sparse-file support
	// (or, for a fresh REG file, simple non-writing) do the rest.
	if o.OFlags.Trim && o.Out.IsPT() {
		blocks := st.ocbpt
		if _, err := o.Out.PTProvider.WriteSame(o.Out.PTHandle, uint64(o.Seek), o.OBSPI, blocks); err != nil {
			// Trim failures count but never abort the copy (spec.md
			// §4.6, §7): the hole is simply left unmaterialised and
			// the loop carries on as if this span were skipped.
			o.TrimErrs++
		}
	}
	if st.partialWriteBytes > 0 {
		o.OutSparsePartial++
	}
	o.OutSparse++
	st.bytesOf = span
	advanceWriteCursor(o, st)
	return true, nil
}
