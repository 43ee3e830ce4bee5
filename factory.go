package ferry

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// DriverFactory opens a session to the endpoint described by a profile.
// It must honour ctx cancellation where the transport allows it.
type DriverFactory func(ctx context.Context, p Profile, opts DialOptions) (Session, error)

var (
	driverFactories = make(map[Protocol]DriverFactory)
	factoryMutex    sync.RWMutex
)

// RegisterDriver registers a driver factory function for a protocol
func RegisterDriver(protocol Protocol, factory DriverFactory) {
	factoryMutex.Lock()
	defer factoryMutex.Unlock()
	driverFactories[protocol] = factory
}

// lookupDriver returns the factory registered for protocol
func lookupDriver(protocol Protocol) (DriverFactory, error) {
	factoryMutex.RLock()
	factory, exists := driverFactories[protocol]
	factoryMutex.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s (driver not registered)", ErrUnsupportedProtocol, protocol)
	}

	return factory, nil
}

// Drivers returns the protocols that currently have a registered driver.
func Drivers() []Protocol {
	factoryMutex.RLock()
	defer factoryMutex.RUnlock()

	protocols := make([]Protocol, 0, len(driverFactories))
	for p := range driverFactories {
		protocols = append(protocols, p)
	}
	sort.Slice(protocols, func(i, j int) bool { return protocols[i] < protocols[j] })
	return protocols
}
