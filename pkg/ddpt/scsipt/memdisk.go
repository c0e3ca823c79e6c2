package scsipt

import (
	"fmt"
	"sync"
)

func init() {
	Register("memdisk", newMemDiskProvider)
}

// memDiskProvider is an in-memory pass-through device, the analogue of
// the teacher's "virtual" CAN bus used in tests where real hardware
// (here, a /dev/sg* node) is unavailable. Every path opened against it
// maps to a shared, growable byte slice keyed by path so that an IFILE
// and an OFILE opened under the same provider instance can alias the
// same backing store the way two /dev/sg handles would.
type memDiskProvider struct {
	mu           sync.Mutex
	disks        map[string]*memDisk
	sectorSize   int
	failCount    int // number of upcoming Read calls to fail, for coe tests
	failStatus   Status
	failWSCount  int // number of upcoming WriteSame calls to fail, for trim tests
	failWSStatus Status
}

type memDisk struct {
	sectorSize int
	data       []byte
}

type memDiskHandle struct {
	disk *memDisk
	path string
}

func newMemDiskProvider() (Provider, error) {
	return &memDiskProvider{disks: make(map[string]*memDisk), sectorSize: 512}, nil
}

// NewMemDiskProviderWithSize builds a memdisk provider pre-populated with
// a single named disk of sizeBytes length, for tests that need to control
// capacity deterministically.
func NewMemDiskProviderWithSize(path string, sizeBytes int, sectorSize int) *memDiskProvider {
	p := &memDiskProvider{disks: make(map[string]*memDisk), sectorSize: sectorSize}
	p.disks[path] = &memDisk{sectorSize: sectorSize, data: make([]byte, sizeBytes)}
	return p
}

// FailNextReads arranges for the next n Read calls to report status
// instead of touching the backing buffer, for continue-on-error tests.
func (p *memDiskProvider) FailNextReads(n int, status Status) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failCount = n
	p.failStatus = status
}

// FailNextWriteSame arranges for the next n WriteSame (trim/UNMAP) calls
// to report status instead of touching the backing buffer, for trim
// error-handling tests.
func (p *memDiskProvider) FailNextWriteSame(n int, status Status) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failWSCount = n
	p.failWSStatus = status
}

func (p *memDiskProvider) diskFor(path string) *memDisk {
	p.mu.Lock()
	defer p.mu.Unlock()
	d, ok := p.disks[path]
	if !ok {
		d = &memDisk{sectorSize: p.sectorSize}
		p.disks[path] = d
	}
	return d
}

func (p *memDiskProvider) OpenIn(path string) (Handle, error) {
	return &memDiskHandle{disk: p.diskFor(path), path: path}, nil
}

func (p *memDiskProvider) OpenOut(path string) (Handle, error) {
	return &memDiskHandle{disk: p.diskFor(path), path: path}, nil
}

func (p *memDiskProvider) ReadCapacity(h Handle, dir Direction) (uint64, int, Status, error) {
	mh := h.(*memDiskHandle)
	sz := mh.disk.sectorSize
	if sz == 0 {
		sz = 512
	}
	return uint64(len(mh.disk.data)) / uint64(sz), sz, StatusOK, nil
}

func (p *memDiskProvider) Read(h Handle, lba uint64, buf []byte, blocks int, rdprotect int) (int, Status, error) {
	mh := h.(*memDiskHandle)
	p.mu.Lock()
	if p.failCount > 0 {
		p.failCount--
		status := p.failStatus
		p.mu.Unlock()
		return 0, status, fmt.Errorf("simulated read failure at lba %d", lba)
	}
	p.mu.Unlock()

	sz := mh.disk.sectorSize
	start := lba * uint64(sz)
	want := blocks * sz
	if int(start) >= len(mh.disk.data) {
		return 0, StatusOK, nil
	}
	end := int(start) + want
	if end > len(mh.disk.data) {
		end = len(mh.disk.data)
	}
	copy(buf, mh.disk.data[start:end])
	return (end - int(start)) / sz, StatusOK, nil
}

func (p *memDiskProvider) Write(h Handle, lba uint64, buf []byte, blocks int, wrprotect int) (Status, error) {
	mh := h.(*memDiskHandle)
	sz := mh.disk.sectorSize
	start := lba * uint64(sz)
	need := int(start) + blocks*sz
	if need > len(mh.disk.data) {
		grown := make([]byte, need)
		copy(grown, mh.disk.data)
		mh.disk.data = grown
	}
	copy(mh.disk.data[start:need], buf)
	return StatusOK, nil
}

func (p *memDiskProvider) WriteSame(h Handle, lba uint64, blockSize int, blocks int) (Status, error) {
	p.mu.Lock()
	if p.failWSCount > 0 {
		p.failWSCount--
		status := p.failWSStatus
		p.mu.Unlock()
		return status, fmt.Errorf("simulated write same failure at lba %d", lba)
	}
	p.mu.Unlock()

	mh := h.(*memDiskHandle)
	start := lba * uint64(blockSize)
	need := int(start) + blocks*blockSize
	if need > len(mh.disk.data) {
		grown := make([]byte, need)
		copy(grown, mh.disk.data)
		mh.disk.data = grown
	}
	for i := int(start); i < need; i++ {
		mh.disk.data[i] = 0
	}
	return StatusOK, nil
}

func (p *memDiskProvider) SyncCache(h Handle) error { return nil }

func (p *memDiskProvider) Close(h Handle) error { return nil }
