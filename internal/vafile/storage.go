package vafile

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/therealutkarshpriyadarshi/vafile/internal/errs"
	"github.com/therealutkarshpriyadarshi/vafile/internal/marks"
)

// flagDeleted mirrors VA_DELETED from section 6's on-disk page trailer.
const flagDeleted uint16 = 1 << 1

// Flush writes the relation to w, little-endian: magic, nChanges, dim (u32),
// strategy (u32), reltuples (i64), the marks matrix row by row, the free-ring
// length and entries (u32 each), the page count (u32), then one record per
// data page (maxoff u16, flags u16, then maxoff tuples of {block u32,
// offset u16, apx[D]}). This is the only concession to the out-of-scope WAL:
// durability here is synchronous and opt-in, never logged.
func (idx *Index) Flush(w io.Writer) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	bw := bufio.NewWriter(w)

	if err := binary.Write(bw, binary.LittleEndian, idx.magic); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, idx.nChanges); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(idx.dim)); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(idx.strategy)); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, idx.reltuples); err != nil {
		return err
	}

	for _, row := range idx.marks {
		for _, v := range row {
			if err := binary.Write(bw, binary.LittleEndian, v); err != nil {
				return err
			}
		}
	}

	if err := binary.Write(bw, binary.LittleEndian, uint32(len(idx.ring))); err != nil {
		return err
	}
	for _, pi := range idx.ring {
		if err := binary.Write(bw, binary.LittleEndian, uint32(pi)); err != nil {
			return err
		}
	}

	if err := binary.Write(bw, binary.LittleEndian, uint32(len(idx.pages))); err != nil {
		return err
	}
	for _, p := range idx.pages {
		var flags uint16
		if p.deleted {
			flags |= flagDeleted
		}
		if err := binary.Write(bw, binary.LittleEndian, uint16(p.maxoff())); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.LittleEndian, flags); err != nil {
			return err
		}
		for _, t := range p.tuples {
			if err := binary.Write(bw, binary.LittleEndian, t.TID.Block); err != nil {
				return err
			}
			if err := binary.Write(bw, binary.LittleEndian, t.TID.Offset); err != nil {
				return err
			}
			if _, err := bw.Write(t.Apx); err != nil {
				return err
			}
		}
	}

	return bw.Flush()
}

// Load rebuilds a relation from a stream previously produced by Flush.
// The stream is always read as little-endian, the byte order Flush writes,
// whatever the host's byte order.
func Load(r io.Reader) (*Index, error) {
	br := bufio.NewReader(r)

	idx := &Index{}
	if err := binary.Read(br, binary.LittleEndian, &idx.magic); err != nil {
		return nil, err
	}
	if idx.magic != Magic {
		return nil, fmt.Errorf("%w: bad magic number", errs.ErrCorrupted)
	}
	if err := binary.Read(br, binary.LittleEndian, &idx.nChanges); err != nil {
		return nil, err
	}
	var dim32, strategy32 uint32
	if err := binary.Read(br, binary.LittleEndian, &dim32); err != nil {
		return nil, err
	}
	if err := binary.Read(br, binary.LittleEndian, &strategy32); err != nil {
		return nil, err
	}
	idx.dim = int(dim32)
	idx.strategy = marks.Strategy(strategy32)
	if err := binary.Read(br, binary.LittleEndian, &idx.reltuples); err != nil {
		return nil, err
	}

	idx.marks = make(marks.Matrix, idx.dim)
	for d := 0; d < idx.dim; d++ {
		row := make([]float64, marks.MaxMarks)
		for p := range row {
			if err := binary.Read(br, binary.LittleEndian, &row[p]); err != nil {
				return nil, err
			}
		}
		idx.marks[d] = row
	}

	var ringLen uint32
	if err := binary.Read(br, binary.LittleEndian, &ringLen); err != nil {
		return nil, err
	}
	idx.ring = make([]int, ringLen)
	for i := range idx.ring {
		var v uint32
		if err := binary.Read(br, binary.LittleEndian, &v); err != nil {
			return nil, err
		}
		idx.ring[i] = int(v)
	}

	var numPages uint32
	if err := binary.Read(br, binary.LittleEndian, &numPages); err != nil {
		return nil, err
	}
	idx.pages = make([]*page, numPages)
	for i := range idx.pages {
		var maxoff uint16
		var flags uint16
		if err := binary.Read(br, binary.LittleEndian, &maxoff); err != nil {
			return nil, err
		}
		if err := binary.Read(br, binary.LittleEndian, &flags); err != nil {
			return nil, err
		}
		p := &page{
			tuples:  make([]Tuple, maxoff),
			deleted: flags&flagDeleted != 0,
		}
		for t := 0; t < int(maxoff); t++ {
			var block uint32
			var offset uint16
			if err := binary.Read(br, binary.LittleEndian, &block); err != nil {
				return nil, err
			}
			if err := binary.Read(br, binary.LittleEndian, &offset); err != nil {
				return nil, err
			}
			apx := make([]byte, idx.dim)
			if _, err := io.ReadFull(br, apx); err != nil {
				return nil, err
			}
			p.tuples[t] = Tuple{TID: TID{Block: block, Offset: offset}, Apx: apx}
		}
		idx.pages[i] = p
	}

	idx.tuplesPerPage = tuplesPerPage(idx.dim)
	idx.built = true
	return idx, nil
}
