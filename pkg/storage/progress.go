// File: pkg/storage/progress.go
package storage

import "io"

// WriteProgress is a snapshot of one transfer. TotalBytes is -1 when the
// source length is unknown.
type WriteProgress struct {
	Key          string
	BytesWritten int64
	TotalBytes   int64
}

// Percent returns the completed fraction in [0,1], or 0 when the total is unknown
func (p WriteProgress) Percent() float64 {
	if p.TotalBytes <= 0 {
		return 0
	}
	ratio := float64(p.BytesWritten) / float64(p.TotalBytes)
	if ratio > 1 {
		return 1
	}
	return ratio
}

// ProgressSink receives transfer snapshots synchronously from the writer's goroutine
type ProgressSink interface {
	Report(WriteProgress)
}

// ProgressFunc adapts a plain function to ProgressSink
type ProgressFunc func(WriteProgress)

func (f ProgressFunc) Report(p WriteProgress) {
	f(p)
}

type progressReader struct {
	r       io.Reader
	sink    ProgressSink
	key     string
	total   int64
	written int64
}

// NewProgressReader reports the cumulative byte count to sink after every read.
// A nil sink returns r unchanged. Seekable sources stay seekable, and a seek
// moves the reported count to the new offset.
func NewProgressReader(r io.Reader, key string, total int64, sink ProgressSink) io.Reader {
	if sink == nil {
		return r
	}
	pr := &progressReader{r: r, sink: sink, key: key, total: total}
	if seeker, ok := r.(io.Seeker); ok {
		return &progressReadSeeker{progressReader: pr, seeker: seeker}
	}
	return pr
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if n > 0 {
		p.written += int64(n)
		p.sink.Report(WriteProgress{Key: p.key, BytesWritten: p.written, TotalBytes: p.total})
	}
	return n, err
}

type progressReadSeeker struct {
	*progressReader
	seeker io.Seeker
}

func (p *progressReadSeeker) Seek(offset int64, whence int) (int64, error) {
	n, err := p.seeker.Seek(offset, whence)
	if err == nil {
		p.written = n
	}
	return n, err
}
