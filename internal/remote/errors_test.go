package remote

import (
	"errors"
	"fmt"
	"net"
	"net/textproto"
	"strings"
	"syscall"
	"testing"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Category
	}{
		{"validation", &ValidationError{Field: "host", Reason: "host cannot be empty"}, CategoryValidation},
		{"wrapped validation", fmt.Errorf("connect: %w", &ValidationError{Reason: "bad port"}), CategoryValidation},
		{"dns", &net.DNSError{Err: "no such host", Name: "example.invalid"}, CategoryResolution},
		{"timeout", timeoutErr{}, CategoryTimeout},
		{"refused", &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}, CategoryRefused},
		{"ftp not logged in", &textproto.Error{Code: 530, Msg: "Login incorrect"}, CategoryAuth},
		{"ftp file unavailable", &textproto.Error{Code: 550, Msg: "No such file"}, CategoryPermTemp},
		{"ftp temporary", &textproto.Error{Code: 450, Msg: "Try again"}, CategoryPermTemp},
		{"ssh auth text", errors.New("ssh: unable to authenticate, attempted methods [password]"), CategoryAuth},
		{"unknown", errors.New("something odd"), CategoryUnclassified},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.err); got != tc.want {
				t.Errorf("Classify(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestDescribe_NamesHostAndPort(t *testing.T) {
	cat, msg := Describe(&net.DNSError{Err: "no such host", Name: "box.internal"}, "box.internal", 21)
	if cat != CategoryResolution {
		t.Fatalf("category = %v, want resolution", cat)
	}
	if !strings.Contains(msg, "box.internal") || !strings.Contains(msg, "DNS") {
		t.Errorf("resolution message should name the host and suggest DNS checks: %q", msg)
	}

	cat, msg = Describe(timeoutErr{}, "box.internal", 2121)
	if cat != CategoryTimeout {
		t.Fatalf("category = %v, want timeout", cat)
	}
	if !strings.Contains(msg, "box.internal:2121") {
		t.Errorf("timeout message should identify host:port: %q", msg)
	}
}

func TestIsNotEmpty(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{&textproto.Error{Code: 550, Msg: "Directory not empty"}, true},
		{errors.New("550 directory not empty"), true},
		{errors.New("could not delete dir"), true},
		{errors.New("permission denied"), false},
		{nil, false},
	}
	for _, tc := range tests {
		if got := isNotEmpty(tc.err); got != tc.want {
			t.Errorf("isNotEmpty(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestIsFatal(t *testing.T) {
	if !IsFatal(errors.New("ftp: connection closed")) {
		t.Error("closed connection should be fatal")
	}
	if !IsFatal(net.ErrClosed) {
		t.Error("net.ErrClosed should be fatal")
	}
	if IsFatal(errors.New("550 No such file")) {
		t.Error("plain server error should not be fatal")
	}
}
