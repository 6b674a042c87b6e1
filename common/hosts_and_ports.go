package common

import (
	"fmt"
	"os"
	"strconv"
)

// TODO register/reserve default port with IANA
const defaultServerPort = 8795

// GetServerPort returns the port the operational HTTP API listens on.
func GetServerPort() int {
	port := os.Getenv("DAYFLOW_SERVER_PORT")
	if port == "" {
		return defaultServerPort
	}

	intPort, err := strconv.Atoi(port)
	if err != nil {
		panic(fmt.Sprintf("Failed to parse dayflow api server port: %s", port))
	}
	return intPort
}

const defaultGatewayAddress = "localhost:8796"

// GetGatewayAddress returns the host:port of the local skill gateway.
func GetGatewayAddress() string {
	addr := os.Getenv("DAYFLOW_GATEWAY_ADDRESS")
	if addr == "" {
		return defaultGatewayAddress
	}
	return addr
}
