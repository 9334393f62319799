package net

import (
	"fmt"
	"net"
)

// GetOutgoingIP finds the preferred local IP address to share. No packet is
// sent; dialing UDP only selects a route.
func GetOutgoingIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return firstIPv4().String()
	}
	defer conn.Close()
	if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
		return addr.IP.String()
	}
	return firstIPv4().String()
}

// ShareLink is the address other machines on the LAN open to reach a board
// served on port.
func ShareLink(port int) string {
	return fmt.Sprintf("http://%s/", net.JoinHostPort(GetOutgoingIP(), fmt.Sprint(port)))
}
