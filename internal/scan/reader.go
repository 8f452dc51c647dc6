package scan

import "os"

// ReadStatus classifies one budgeted read.
type ReadStatus int

const (
	// ReadOK means the file was read and charged to the budget.
	ReadOK ReadStatus = iota
	// ReadSkip means the file was unreadable or not a regular file.
	ReadSkip
	// ReadOversize means the file alone is larger than the whole budget.
	ReadOversize
	// ReadStop means the file would overflow the running total; callers stop scanning.
	ReadStop
)

// Reader reads whole files against a running byte total.
// It is not safe for concurrent use; each scan owns its own Reader.
type Reader struct {
	max      int64
	used     int64
	oversize int
	stopped  bool
}

// NewReader creates a Reader allowing max bytes in total.
func NewReader(max int64) *Reader {
	return &Reader{max: max}
}

// ReadFile stats path and reads it if it fits the remaining budget.
func (r *Reader) ReadFile(path string) ([]byte, ReadStatus) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return nil, ReadSkip
	}
	size := info.Size()
	if size > r.max {
		r.oversize++
		return nil, ReadOversize
	}
	if r.used+size > r.max {
		r.stopped = true
		return nil, ReadStop
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ReadSkip
	}
	r.used += size
	return data, ReadOK
}

// Used returns the bytes charged so far.
func (r *Reader) Used() int64 { return r.used }

// Exhausted reports whether the running total reached the ceiling.
func (r *Reader) Exhausted() bool { return r.used >= r.max }

// Truncated reports whether the byte budget kept any file from being read,
// either because it overflowed the running total or was too large on its own.
// Files skipped as unreadable do not count.
func (r *Reader) Truncated() bool { return r.stopped || r.oversize > 0 }

// BudgetHit reports whether the scan ran into its byte ceiling at all.
func (r *Reader) BudgetHit() bool { return r.Truncated() || r.Exhausted() }
