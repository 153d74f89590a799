package jdi

import "sync"

// bootstrapManager is the default VirtualMachineManager. Transport
// packages register their connectors at startup through
// RegisterConnector.
type bootstrapManager struct {
	mu         sync.Mutex
	connectors []Connector
}

func (m *bootstrapManager) AttachingConnectors() []Connector {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := make([]Connector, len(m.connectors))
	copy(r, m.connectors)
	return r
}

var defaultManager = &bootstrapManager{}

// Bootstrap returns the process-wide VirtualMachineManager.
func Bootstrap() VirtualMachineManager {
	return defaultManager
}

// RegisterConnector adds an attaching connector to the manager returned
// by Bootstrap. Called by transport implementations from their init
// functions.
func RegisterConnector(c Connector) {
	defaultManager.mu.Lock()
	defer defaultManager.mu.Unlock()
	defaultManager.connectors = append(defaultManager.connectors, c)
}
