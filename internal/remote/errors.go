package remote

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/textproto"
	"strings"
	"syscall"

	"github.com/jlaffaye/ftp"
	"github.com/pkg/sftp"
)

// Category buckets low-level transport failures into the small taxonomy the
// session manager and UI surface to the user.
type Category int

const (
	CategoryUnclassified Category = iota
	CategoryValidation
	CategoryResolution
	CategoryTimeout
	CategoryRefused
	CategoryAuth
	CategoryPermTemp
)

func (c Category) String() string {
	switch c {
	case CategoryValidation:
		return "validation"
	case CategoryResolution:
		return "resolution"
	case CategoryTimeout:
		return "timeout"
	case CategoryRefused:
		return "refused"
	case CategoryAuth:
		return "auth"
	case CategoryPermTemp:
		return "permission"
	default:
		return "unclassified"
	}
}

// Classify maps an error to its category without rendering a message.
func Classify(err error) Category {
	if err == nil {
		return CategoryUnclassified
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return CategoryValidation
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return CategoryResolution
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CategoryTimeout
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return CategoryRefused
	}

	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		switch protoErr.Code {
		case ftp.StatusNotLoggedIn:
			return CategoryAuth
		default:
			if protoErr.Code >= 400 {
				return CategoryPermTemp
			}
		}
	}

	var statusErr *sftp.StatusError
	if errors.As(err, &statusErr) {
		return CategoryPermTemp
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "no such host") || strings.Contains(msg, "getaddrinfo"):
		return CategoryResolution
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out"):
		return CategoryTimeout
	case strings.Contains(msg, "connection refused"):
		return CategoryRefused
	case strings.Contains(msg, "unable to authenticate") ||
		strings.Contains(msg, "auth") && strings.Contains(msg, "fail") ||
		strings.Contains(msg, "permission denied") && strings.Contains(msg, "ssh"):
		return CategoryAuth
	}
	return CategoryUnclassified
}

// Describe classifies a connect-time failure and renders the user-facing
// message for it. Resolution failures name the host and suggest what to
// check; timeouts and refusals identify host:port.
func Describe(err error, host string, port int) (Category, string) {
	cat := Classify(err)
	switch cat {
	case CategoryValidation:
		return cat, err.Error()
	case CategoryResolution:
		return cat, fmt.Sprintf("cannot resolve hostname %q: check that the hostname is correct, the network is up and DNS is reachable", host)
	case CategoryTimeout:
		return cat, fmt.Sprintf("connection timeout: server %s:%d did not respond", host, port)
	case CategoryRefused:
		return cat, fmt.Sprintf("connection refused: server %s:%d is not accepting connections", host, port)
	case CategoryAuth:
		return cat, fmt.Sprintf("authentication failed: %v", err)
	case CategoryPermTemp:
		return cat, fmt.Sprintf("server error: %v", err)
	default:
		return cat, err.Error()
	}
}

// isNotEmpty reports whether a failed directory remove looks like the
// "directory not empty" family: the FTP permission-error code range or the
// message texts servers use for it. Consumed by the recursive delete.
func isNotEmpty(err error) bool {
	if err == nil {
		return false
	}
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) && protoErr.Code == ftp.StatusFileUnavailable {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "550") ||
		strings.Contains(msg, "not empty") ||
		strings.Contains(msg, "could not delete")
}

// IsFatal reports whether the error means the session itself is gone and a
// fresh connect is required.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, syscall.EPIPE) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection closed") ||
		strings.Contains(msg, "use of closed network connection") ||
		strings.Contains(msg, "connection reset by peer")
}
