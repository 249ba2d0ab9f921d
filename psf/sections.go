package psf

import (
	"errors"
	"fmt"

	"github.com/laenix/psfgo/internal/wire"
)

// SectionInfo locates one of the five PSF sections: the byte offset of its
// MAJOR_SECTION preamble, and its size as derived from the TOC (footer
// path) or the preamble's own end offset (streaming path).
type SectionInfo struct {
	Offset int64
	Size   int64
}

// readChunkPreamble reads a (tag, end_offset) pair and validates the tag.
func readChunkPreamble(cur *wire.Cursor, want wire.ChunkTag) (endOffset int64, err error) {
	tag, err := cur.ReadU32()
	if err != nil {
		return 0, err
	}
	if wire.ChunkTag(tag) != want {
		return 0, newParseError(KindBadChunkTag, fmt.Sprintf("expected chunk tag 0x%x, got 0x%x", want, tag))
	}
	end, err := cur.ReadU32()
	if err != nil {
		return 0, err
	}
	return int64(end), nil
}

// discoverSections locates every section either via the footer's table of
// contents (footerPresent true) or by streaming section ids from offset 4
// (footerPresent false). A file with neither a footer nor any recognized
// streamed section id yields an empty map; the caller treats that as
// NotPsf.
func discoverSections(cur *wire.Cursor) (sections map[wire.SectionID]SectionInfo, footerPresent bool, err error) {
	footerPresent, err = probeFooter(cur)
	if err != nil {
		return nil, false, err
	}
	if footerPresent {
		sections, err = readFooterTOC(cur)
		return sections, true, err
	}
	sections, err = streamScanSections(cur)
	return sections, false, err
}

// probeFooter checks whether the 8 bytes at file_size − FooterTailLength
// equal the "Clarissa" marker.
func probeFooter(cur *wire.Cursor) (bool, error) {
	size := cur.FileSize()
	if size < wire.FooterTailLength {
		return false, nil
	}
	if err := cur.SeekAbsolute(size - wire.FooterTailLength); err != nil {
		return false, err
	}
	got, err := readRawString(cur, len(wire.FooterMarker))
	if err != nil {
		if errors.Is(err, wire.ErrTruncated) {
			return false, nil
		}
		return false, err
	}
	return got == wire.FooterMarker, nil
}

// readFooterTOC reads the data_size word, computes the section count and
// TOC start, then reads every (section_id, section_offset) entry. Section
// sizes are the difference of consecutive offsets; the last section
// extends to file_size − last_offset.
func readFooterTOC(cur *wire.Cursor) (map[wire.SectionID]SectionInfo, error) {
	size := cur.FileSize()
	if err := cur.SeekAbsolute(size - 4); err != nil {
		return nil, err
	}
	dataSize, err := cur.ReadU32()
	if err != nil {
		return nil, err
	}

	n := (size - int64(dataSize) - wire.FooterTailLength) / wire.TOCEntrySize
	if n <= 0 {
		return map[wire.SectionID]SectionInfo{}, nil
	}
	tocStart := size - wire.FooterTailLength - wire.TOCEntrySize*n

	type entry struct {
		id     wire.SectionID
		offset int64
	}
	entries := make([]entry, 0, n)
	for i := int64(0); i < n; i++ {
		if err := cur.SeekAbsolute(tocStart + wire.TOCEntrySize*i); err != nil {
			return nil, err
		}
		idWord, err := cur.ReadU32()
		if err != nil {
			return nil, err
		}
		offWord, err := cur.ReadU32()
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry{id: wire.SectionID(idWord), offset: int64(offWord)})
	}

	sections := make(map[wire.SectionID]SectionInfo, len(entries))
	for i, e := range entries {
		if i > 0 {
			prev := entries[i-1]
			sections[prev.id] = SectionInfo{Offset: prev.offset, Size: e.offset - prev.offset}
		}
	}
	last := entries[len(entries)-1]
	sections[last.id] = SectionInfo{Offset: last.offset, Size: size - last.offset}
	return sections, nil
}

// streamScanSections reads sections sequentially from offset 4. Each begins
// with a section id word followed by its MAJOR_SECTION preamble. The first
// id outside {Header..Value} terminates the scan.
func streamScanSections(cur *wire.Cursor) (map[wire.SectionID]SectionInfo, error) {
	if err := cur.SeekAbsolute(4); err != nil {
		return nil, err
	}

	sections := make(map[wire.SectionID]SectionInfo)
	size := cur.FileSize()
	for {
		pos, err := cur.Tell()
		if err != nil {
			return nil, err
		}
		if pos >= size {
			return sections, nil
		}

		idWord, err := cur.ReadU32()
		if err != nil {
			if errors.Is(err, wire.ErrTruncated) {
				return sections, nil
			}
			return nil, err
		}
		id := wire.SectionID(idWord)
		if id < wire.SectionHeader || id > wire.SectionValue {
			return sections, nil
		}

		preambleOffset, err := cur.Tell()
		if err != nil {
			return nil, err
		}
		endOffset, err := readChunkPreamble(cur, wire.MajorSection)
		if err != nil {
			return nil, err
		}
		sections[id] = SectionInfo{Offset: preambleOffset, Size: endOffset - preambleOffset}

		if err := cur.SeekAbsolute(endOffset); err != nil {
			return nil, err
		}
	}
}

// parseHeaderSection reads the Header section's MAJOR_SECTION preamble
// followed directly by its property dictionary — no nested MINOR_SECTION,
// unlike Type/Trace/non-swept Value.
func parseHeaderSection(cur *wire.Cursor, info SectionInfo) (map[string]PropertyValue, error) {
	if err := cur.SeekAbsolute(info.Offset); err != nil {
		return nil, err
	}
	if _, err := readChunkPreamble(cur, wire.MajorSection); err != nil {
		return nil, err
	}
	return readPropertyDictionary(cur)
}

// parseSweepSectionWrap reads the Sweep section's declared sweep
// variable(s). Unlike Type/Trace, Sweep has no nested MINOR_SECTION; its
// Variable records simply run until one fails to parse or the MAJOR_SECTION
// end offset is reached.
func parseSweepSectionWrap(cur *wire.Cursor, info SectionInfo) ([]*Variable, error) {
	if err := cur.SeekAbsolute(info.Offset); err != nil {
		return nil, err
	}
	endpos, err := readChunkPreamble(cur, wire.MajorSection)
	if err != nil {
		return nil, err
	}

	var vars []*Variable
	for {
		pos, err := cur.Tell()
		if err != nil {
			return nil, err
		}
		if pos >= endpos {
			return vars, nil
		}
		v, ok, err := parseVariable(cur)
		if err != nil {
			return nil, err
		}
		if !ok {
			return vars, nil
		}
		vars = append(vars, v)
	}
}

// parseTypeSectionWrap reads the Type section's MAJOR_SECTION and nested
// MINOR_SECTION preambles, then its Type records.
func parseTypeSectionWrap(cur *wire.Cursor, info SectionInfo) (typeRegistry, error) {
	if err := cur.SeekAbsolute(info.Offset); err != nil {
		return nil, err
	}
	if _, err := readChunkPreamble(cur, wire.MajorSection); err != nil {
		return nil, err
	}
	endSub, err := readChunkPreamble(cur, wire.MinorSection)
	if err != nil {
		return nil, err
	}
	return parseTypeSection(cur, endSub)
}

// parseTraceSectionWrap reads the Trace section's MAJOR_SECTION and nested
// MINOR_SECTION preambles, then its Group/Variable records.
func parseTraceSectionWrap(cur *wire.Cursor, info SectionInfo) ([]traceEntry, error) {
	if err := cur.SeekAbsolute(info.Offset); err != nil {
		return nil, err
	}
	if _, err := readChunkPreamble(cur, wire.MajorSection); err != nil {
		return nil, err
	}
	endSub, err := readChunkPreamble(cur, wire.MinorSection)
	if err != nil {
		return nil, err
	}
	return parseTraceSection(cur, endSub)
}

// readRawString reads n raw bytes with no length prefix or padding, used
// only for the fixed 8-byte footer marker check.
func readRawString(cur *wire.Cursor, n int) (string, error) {
	buf := make([]byte, 0, n)
	for len(buf) < n {
		word, err := cur.ReadU32()
		if err != nil {
			return "", err
		}
		buf = append(buf, byte(word>>24), byte(word>>16), byte(word>>8), byte(word))
	}
	return string(buf[:n]), nil
}
