package ftp

import (
	"context"

	"github.com/gobeaver/ferry"
)

func init() {
	factory := func(ctx context.Context, p ferry.Profile, opts ferry.DialOptions) (ferry.Session, error) {
		s, err := Dial(ctx, p, opts)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	ferry.RegisterDriver(ferry.ProtocolFTP, factory)
	ferry.RegisterDriver(ferry.ProtocolFTPS, factory)
}
