package wallet

import "fmt"

// Here we have no dependency on the actual SDK implementation

// Connectors is the global map of registered SDK connectors, filled during init
var Connectors = make(map[string]NewAPICall)

// RegisterConnector is called from a connector package init()
func RegisterConnector(name string, connect NewAPICall) {
	Connectors[name] = connect
}

// GetConnector resolves a registered connector by name
func GetConnector(name string) (NewAPICall, error) {
	connect, ok := Connectors[name]
	if !ok {
		return nil, fmt.Errorf("unknown sdk connector %q", name)
	}
	return connect, nil
}
