// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package capture

import (
	"encoding/binary"
	"errors"
)

// Ring file layout, little endian:
//
//	header (32 bytes):
//	  magic     [4]byte "MBSN"
//	  version   uint32
//	  slotSize  uint32
//	  limit     uint32
//	  appended  uint64 total entries ever appended
//	  reserved  [8]byte
//	slots (limit * slotSize bytes), slot i holds entry number n where n % limit == i:
//	  length    uint32 of the JSON document that follows
//	  document  [slotSize-4]byte
const (
	ringMagic   = "MBSN"
	ringVersion = 1

	headerSize = 32
	slotSize   = 4096
	slotHeader = 4

	offsetVersion  = 4
	offsetSlotSize = 8
	offsetLimit    = 12
	offsetAppended = 16
)

var errEntryTooLarge = errors.New("capture: entry does not fit a ring slot")

type ringHeader struct {
	slotSize uint32
	limit    uint32
	appended uint64
}

func ringSize(limit int) int {
	return headerSize + limit*slotSize
}

func putHeader(b []byte, h ringHeader) {
	copy(b, ringMagic)
	binary.LittleEndian.PutUint32(b[offsetVersion:], ringVersion)
	binary.LittleEndian.PutUint32(b[offsetSlotSize:], h.slotSize)
	binary.LittleEndian.PutUint32(b[offsetLimit:], h.limit)
	binary.LittleEndian.PutUint64(b[offsetAppended:], h.appended)
}

func readHeader(b []byte) (ringHeader, bool) {
	if string(b[:len(ringMagic)]) != ringMagic || binary.LittleEndian.Uint32(b[offsetVersion:]) != ringVersion {
		return ringHeader{}, false
	}
	return ringHeader{
		slotSize: binary.LittleEndian.Uint32(b[offsetSlotSize:]),
		limit:    binary.LittleEndian.Uint32(b[offsetLimit:]),
		appended: binary.LittleEndian.Uint64(b[offsetAppended:]),
	}, true
}

func slot(data []byte, i int) []byte {
	off := headerSize + i*slotSize
	return data[off : off+slotSize]
}

func putSlot(s []byte, doc []byte) error {
	if len(doc) > len(s)-slotHeader {
		return errEntryTooLarge
	}
	binary.LittleEndian.PutUint32(s, uint32(len(doc)))
	copy(s[slotHeader:], doc)
	return nil
}

func readSlot(s []byte) ([]byte, bool) {
	n := int(binary.LittleEndian.Uint32(s))
	if n == 0 || n > len(s)-slotHeader {
		return nil, false
	}
	return s[slotHeader : slotHeader+n], true
}
