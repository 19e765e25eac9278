package session

import (
	"fmt"
	"time"

	"github.com/ykushch/ferryman/internal/remote"
)

// NewAdapter builds the protocol adapter matching the profile's kind.
func NewAdapter(p Profile) (remote.Adapter, error) {
	switch p.Protocol {
	case remote.ProtocolFTP:
		return remote.NewFTP(p.Host, p.Port, p.Username, p.Password, false), nil
	case remote.ProtocolFTPS:
		return remote.NewFTP(p.Host, p.Port, p.Username, p.Password, true), nil
	case remote.ProtocolSFTP:
		return remote.NewSFTP(p.Host, p.Port, p.Username, p.Password), nil
	default:
		return nil, fmt.Errorf("no adapter available for protocol %q", p.Protocol)
	}
}

// FactoryWithTimeout returns an adapter factory that applies a configured
// dial timeout instead of the built-in default.
func FactoryWithTimeout(timeout time.Duration) func(Profile) (remote.Adapter, error) {
	return func(p Profile) (remote.Adapter, error) {
		a, err := NewAdapter(p)
		if err != nil {
			return nil, err
		}
		if setter, ok := a.(interface{ SetTimeout(time.Duration) }); ok {
			setter.SetTimeout(timeout)
		}
		return a, nil
	}
}
