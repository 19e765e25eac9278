package remote

import "io"

// copyWithProgress copies src to dst in fixed-size chunks, reporting the
// cumulative byte count after each chunk. The callback's error return is the
// cooperative cancellation point for transfers.
func copyWithProgress(dst io.Writer, src io.Reader, progress Progress) (int64, error) {
	buf := make([]byte, transferChunk)
	var total int64
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return total, werr
			}
			total += int64(n)
			if progress != nil {
				if cbErr := progress(total); cbErr != nil {
					return total, cbErr
				}
			}
		}
		if rerr == io.EOF {
			return total, nil
		}
		if rerr != nil {
			return total, rerr
		}
	}
}

// progressReader adapts the same per-chunk reporting for APIs that consume a
// reader (FTP STOR, SFTP ReadFrom).
type progressReader struct {
	r        io.Reader
	total    int64
	progress Progress
}

func (p *progressReader) Read(b []byte) (int, error) {
	if len(b) > transferChunk {
		b = b[:transferChunk]
	}
	n, err := p.r.Read(b)
	if n > 0 {
		p.total += int64(n)
		if p.progress != nil {
			if cbErr := p.progress(p.total); cbErr != nil {
				return n, cbErr
			}
		}
	}
	return n, err
}
