package storage

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/tuannm99/novadb/internal/bx"
)

// metaSize is the reserved size of the leading meta page; it is exactly
// one PageSize so that page offsets are simple multiples.
const metaSize = PageSize

const (
	formatMajorVersion = 1
	formatMinorVersion = 0
)

// DiskManager owns a single on-disk file holding a meta page followed by
// a dense array of fixed-size pages. All file access is serialized by a
// single mutex, matching the spec's single-threaded-I/O locking model.
//
// A Catalog typically constructs one DiskManager for the whole database
// and hands it to every table/index's own BufferPool instance, so that
// all relations share one page-id space and one underlying file.
type DiskManager struct {
	mu          sync.Mutex
	f           *os.File
	nextPageID  uint32 // next id AllocatePage will hand out
	freelistPID uint32
}

// Open creates or opens the database file at path. If the file is newly
// created, a meta page is written at offset 0. next_page_id is derived
// from the file length; an existing file whose length (minus the meta
// page) isn't a whole number of pages is rejected.
func Open(path string) (*DiskManager, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	dm := &DiskManager{f: f}

	if info.Size() == 0 {
		if err := dm.writeMeta(0); err != nil {
			_ = f.Close()
			return nil, err
		}
		dm.nextPageID = 1
		return dm, nil
	}

	dataLen := info.Size() - metaSize
	if dataLen < 0 || dataLen%PageSize != 0 {
		_ = f.Close()
		return nil, ErrInvalidPageSize
	}

	major, _, freelist, err := dm.readMeta()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if major != formatMajorVersion {
		_ = f.Close()
		return nil, fmt.Errorf("storage: unsupported format version %d", major)
	}
	dm.freelistPID = freelist
	dm.nextPageID = uint32(dataLen/PageSize) + 1
	return dm, nil
}

func (dm *DiskManager) writeMeta(freelistPID uint32) error {
	buf := make([]byte, metaSize)
	bx.PutU32BE(buf[0:4], formatMajorVersion)
	bx.PutU32BE(buf[4:8], formatMinorVersion)
	bx.PutU32BE(buf[8:12], freelistPID)
	_, err := dm.f.WriteAt(buf, 0)
	return err
}

func (dm *DiskManager) readMeta() (major, minor, freelist uint32, err error) {
	buf := make([]byte, 12)
	if _, err = dm.f.ReadAt(buf, 0); err != nil {
		return 0, 0, 0, err
	}
	return bx.U32BE(buf[0:4]), bx.U32BE(buf[4:8]), bx.U32BE(buf[8:12]), nil
}

func pageOffset(pid uint32) int64 {
	return int64(metaSize) + int64(pid-1)*int64(PageSize)
}

// ReadPage reads exactly PageSize bytes for pid.
func (dm *DiskManager) ReadPage(pid uint32) ([]byte, error) {
	if pid == InvalidPageID {
		return nil, fmt.Errorf("storage: read of invalid page id")
	}
	dm.mu.Lock()
	defer dm.mu.Unlock()

	buf := make([]byte, PageSize)
	n, err := dm.f.ReadAt(buf, pageOffset(pid))
	if err != nil && err != io.EOF {
		return nil, err
	}
	for i := n; i < PageSize; i++ {
		buf[i] = 0
	}
	return buf, nil
}

// WritePage writes exactly PageSize bytes for pid and flushes to disk.
func (dm *DiskManager) WritePage(pid uint32, data []byte) error {
	if pid == InvalidPageID {
		return fmt.Errorf("storage: write of invalid page id")
	}
	if len(data) != PageSize {
		return fmt.Errorf("storage: page buffer must be %d bytes, got %d", PageSize, len(data))
	}
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if _, err := dm.f.WriteAt(data, pageOffset(pid)); err != nil {
		return err
	}
	return dm.f.Sync()
}

// AllocatePage hands out a fresh page id and zero-fills its region.
func (dm *DiskManager) AllocatePage() (uint32, error) {
	dm.mu.Lock()
	pid := dm.nextPageID
	dm.nextPageID++
	dm.mu.Unlock()

	zero := make([]byte, PageSize)
	if err := dm.WritePage(pid, zero); err != nil {
		return 0, err
	}
	return pid, nil
}

// DeallocatePage zero-fills pid's slot. Correctness never depends on the
// id being reused.
func (dm *DiskManager) DeallocatePage(pid uint32) error {
	zero := make([]byte, PageSize)
	return dm.WritePage(pid, zero)
}

func (dm *DiskManager) Close() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	return dm.f.Close()
}
