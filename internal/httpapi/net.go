package httpapi

import "net"

func netSplitHostPort(addr string) (string, string, error) {
	return net.SplitHostPort(addr)
}
