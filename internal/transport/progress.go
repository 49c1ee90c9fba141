package transport

import "io"

// progressReader reports bytes read as a percentage of the total. The
// callback granularity follows read granularity; duplicate percentages
// are suppressed.
type progressReader struct {
	r        io.Reader
	total    int64
	read     int64
	lastPct  int
	callback ProgressFunc
}

func newProgressReader(r io.Reader, total int64, callback ProgressFunc) *progressReader {
	return &progressReader{
		r:        r,
		total:    total,
		lastPct:  -1,
		callback: callback,
	}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.read += int64(n)
		pct := 100
		if p.total > 0 {
			pct = int(p.read * 100 / p.total)
		}
		if pct > 100 {
			pct = 100
		}
		if pct != p.lastPct {
			p.lastPct = pct
			p.callback(pct)
		}
	}
	return n, err
}
