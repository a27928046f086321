package iomgr

import "sync/atomic"

// Stats is a snapshot of the manager's counters.
type Stats struct {
	ReadsSubmitted  uint64
	WritesSubmitted uint64
	Completed       uint64
	Failed          uint64

	BytesRead         uint64 // from storage
	BytesWritten      uint64 // to storage
	BytesCompressed   uint64 // codec output of writes
	BytesDecompressed uint64 // codec output of reads
}

type stats struct {
	reads             atomic.Uint64
	writes            atomic.Uint64
	completedOK       atomic.Uint64
	failed            atomic.Uint64
	bytesRead         atomic.Uint64
	bytesWritten      atomic.Uint64
	bytesCompressed   atomic.Uint64
	bytesDecompressed atomic.Uint64
}

func (s *stats) submitted(op Op) {
	switch op {
	case OpRead:
		s.reads.Add(1)
	case OpWrite:
		s.writes.Add(1)
	}
}

func (s *stats) completed(err error) {
	if err != nil {
		s.failed.Add(1)
	} else {
		s.completedOK.Add(1)
	}
}

// Stats counts every completion, failed or not, in Completed.
func (m *IoMgr) Stats() Stats {
	failed := m.stats.failed.Load()
	return Stats{
		ReadsSubmitted:    m.stats.reads.Load(),
		WritesSubmitted:   m.stats.writes.Load(),
		Completed:         m.stats.completedOK.Load() + failed,
		Failed:            failed,
		BytesRead:         m.stats.bytesRead.Load(),
		BytesWritten:      m.stats.bytesWritten.Load(),
		BytesCompressed:   m.stats.bytesCompressed.Load(),
		BytesDecompressed: m.stats.bytesDecompressed.Load(),
	}
}
