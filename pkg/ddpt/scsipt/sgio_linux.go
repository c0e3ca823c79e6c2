//go:build linux

package scsipt

import (
	"encoding/binary"
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// SG_IO ioctl constants and header layout, grounded on the pack's
// coreos-coreos-assembler vendored dswarbrick/smart sgio.go.
const (
	sgDxferNone       = -1
	sgDxferToDev      = -2
	sgDxferFromDev    = -3
	sgInfoOKMask      = 0x1
	sgInfoOK          = 0x0
	sgIO              = 0x2285
	sgIODefaultTimout = 20000 // milliseconds
)

type sgIOHdr struct {
	interfaceID    int32
	dxferDirection int32
	cmdLen         uint8
	mxSbLen        uint8
	iovecCount     uint16
	dxferLen       uint32
	dxferp         uintptr
	cmdp           uintptr
	sbp            uintptr
	timeout        uint32
	flags          uint32
	packID         int32
	usrPtr         uintptr
	status         uint8
	maskedStatus   uint8
	msgStatus      uint8
	sbLenWr        uint8
	hostStatus     uint16
	driverStatus   uint16
	resid          int32
	duration       uint32
	info           uint32
}

type sgError struct {
	scsiStatus   uint8
	hostStatus   uint16
	driverStatus uint16
}

func (e *sgError) Error() string {
	return fmt.Sprintf("SG_IO status: scsi=%#02x host=%#02x driver=%#02x",
		e.scsiStatus, e.hostStatus, e.driverStatus)
}

func init() {
	Register("sgio", newSGIOProvider)
}

type sgioProvider struct{}

func newSGIOProvider() (Provider, error) { return &sgioProvider{}, nil }

type sgioHandle struct {
	fd int
}

func (p *sgioProvider) openPath(path string, writable bool) (Handle, error) {
	mode := unix.O_RDONLY
	if writable {
		mode = unix.O_RDWR
	}
	fd, err := unix.Open(path, mode|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, err
	}
	return &sgioHandle{fd: fd}, nil
}

func (p *sgioProvider) OpenIn(path string) (Handle, error)  { return p.openPath(path, false) }
func (p *sgioProvider) OpenOut(path string) (Handle, error) { return p.openPath(path, true) }

func (p *sgioProvider) execCDB(h Handle, cdb []byte, data []byte, dir int32) (Status, error) {
	hd := h.(*sgioHandle)
	sense := make([]byte, 32)
	hdr := sgIOHdr{
		interfaceID:    'S',
		dxferDirection: dir,
		cmdLen:         uint8(len(cdb)),
		mxSbLen:        uint8(len(sense)),
		timeout:        sgIODefaultTimout,
		sbp:            uintptr(unsafe.Pointer(&sense[0])),
		cmdp:           uintptr(unsafe.Pointer(&cdb[0])),
	}
	if len(data) > 0 {
		hdr.dxferLen = uint32(len(data))
		hdr.dxferp = uintptr(unsafe.Pointer(&data[0]))
	}
	err := ioctl(uintptr(hd.fd), sgIO, uintptr(unsafe.Pointer(&hdr)))
	if err != nil {
		return StatusNotReady, err
	}
	if hdr.info&sgInfoOKMask != sgInfoOK {
		return classifySenseStatus(sense), &sgError{
			scsiStatus:   hdr.status,
			hostStatus:   hdr.hostStatus,
			driverStatus: hdr.driverStatus,
		}
	}
	return StatusOK, nil
}

// classifySenseStatus maps the SCSI sense key (byte 2 of fixed format
// sense data) onto the coarse Status the engine acts on (§7: READ
// CAPACITY retries once on UNIT_ATTENTION/ABORTED_COMMAND, others
// surface as MEDIUM_HARD, NOT_READY or INVALID_OP).
func classifySenseStatus(sense []byte) Status {
	if len(sense) < 3 {
		return StatusMediumHard
	}
	switch sense[2] & 0x0f {
	case 0x06: // UNIT ATTENTION
		return StatusUnitAttention
	case 0x0b: // ABORTED COMMAND
		return StatusAbortedCommand
	case 0x02: // NOT READY
		return StatusNotReady
	case 0x05: // ILLEGAL REQUEST
		return StatusInvalidOp
	case 0x03: // MEDIUM ERROR
		return StatusMediumHard
	default:
		return StatusMediumHard
	}
}

func (p *sgioProvider) ReadCapacity(h Handle, dir Direction) (uint64, int, Status, error) {
	resp := make([]byte, 32)
	// READ CAPACITY (16), CDB opcode 0x9E / service action 0x10, chosen
	// over READ CAPACITY (10) so that >2TiB devices report correctly.
	cdb := make([]byte, 16)
	cdb[0] = 0x9E
	cdb[1] = 0x10
	binary.BigEndian.PutUint32(cdb[10:], uint32(len(resp)))
	status, err := p.execCDB(h, cdb, resp, sgDxferFromDev)
	if err != nil {
		return 0, 0, status, err
	}
	lastLBA := binary.BigEndian.Uint64(resp[0:8])
	lbSize := binary.BigEndian.Uint32(resp[8:12])
	return lastLBA + 1, int(lbSize), StatusOK, nil
}

func (p *sgioProvider) Read(h Handle, lba uint64, buf []byte, blocks int, rdprotect int) (int, Status, error) {
	// READ (16), CDB opcode 0x88.
	cdb := make([]byte, 16)
	cdb[0] = 0x88
	cdb[1] = byte(rdprotect&0x7) << 5
	binary.BigEndian.PutUint64(cdb[2:10], lba)
	binary.BigEndian.PutUint32(cdb[10:14], uint32(blocks))
	status, err := p.execCDB(h, cdb, buf, sgDxferFromDev)
	if err != nil {
		return 0, status, err
	}
	blockSize := 0
	if blocks > 0 {
		blockSize = len(buf) / blocks
	}
	if blockSize == 0 {
		return 0, status, nil
	}
	return len(buf) / blockSize, StatusOK, nil
}

func (p *sgioProvider) Write(h Handle, lba uint64, buf []byte, blocks int, wrprotect int) (Status, error) {
	// WRITE (16), CDB opcode 0x8A.
	cdb := make([]byte, 16)
	cdb[0] = 0x8A
	cdb[1] = byte(wrprotect&0x7) << 5
	binary.BigEndian.PutUint64(cdb[2:10], lba)
	binary.BigEndian.PutUint32(cdb[10:14], uint32(blocks))
	return p.execCDB(h, cdb, buf, sgDxferToDev)
}

func (p *sgioProvider) WriteSame(h Handle, lba uint64, blockSize int, blocks int) (Status, error) {
	// WRITE SAME (16), CDB opcode 0x93, UNMAP bit set so the range is
	// de-allocated rather than physically zeroed.
	cdb := make([]byte, 16)
	cdb[0] = 0x93
	cdb[1] = 0x08 // UNMAP
	binary.BigEndian.PutUint64(cdb[2:10], lba)
	binary.BigEndian.PutUint32(cdb[10:14], uint32(blocks))
	buf := make([]byte, blockSize)
	return p.execCDB(h, cdb, buf, sgDxferToDev)
}

func (p *sgioProvider) SyncCache(h Handle) error {
	// SYNCHRONIZE CACHE (16), CDB opcode 0x91.
	cdb := make([]byte, 16)
	cdb[0] = 0x91
	_, err := p.execCDB(h, cdb, nil, sgDxferNone)
	return err
}

func (p *sgioProvider) Close(h Handle) error {
	hd := h.(*sgioHandle)
	return unix.Close(hd.fd)
}

func ioctl(fd, op, arg uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, op, arg)
	if errno != 0 {
		return errno
	}
	return nil
}
