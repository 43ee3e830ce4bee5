package memory

import "github.com/gobeaver/ferry"

// Default is the server behind the registered "memory" protocol.
var Default = New()

func init() {
	ferry.RegisterDriver(ferry.ProtocolMemory, Default.Factory())
}
