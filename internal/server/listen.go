package server

import (
	"net"
	"strings"
)

// Listen opens addr. A "unix:", "tcp:", "tcp4:" or "tcp6:" prefix selects
// the network; anything else is a TCP address.
func Listen(addr string) (net.Listener, error) {
	protos := strings.SplitN(addr, ":", 2)
	if len(protos) == 2 {
		switch protos[0] {
		case "unix", "tcp", "tcp4", "tcp6":
			return net.Listen(protos[0], protos[1])
		}
	}
	return net.Listen("tcp", addr)
}
