package utils

import (
	"net"
	"strings"
)

// GetLocalIPs returns all non-loopback IPv4 addresses with smart filtering
// It filters out Link-Local (169.254.x.x) addresses ONLY IF a better alternative exists.
func GetLocalIPs() []string {
	var allIPs []string
	var hasRoutableIP bool

	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return allIPs
	}
	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			if ipnet.IP.To4() != nil {
				ip := ipnet.IP.String()
				allIPs = append(allIPs, ip)
				if !strings.HasPrefix(ip, "169.254") {
					hasRoutableIP = true
				}
			}
		}
	}

	var finalIPs []string
	for _, ip := range allIPs {
		if hasRoutableIP && strings.HasPrefix(ip, "169.254") {
			continue
		}
		finalIPs = append(finalIPs, ip)
	}
	return finalIPs
}

// LocalWebhookURLs lists the webhook address on every local interface
func LocalWebhookURLs(port, pathPrefix string) []string {
	var urls []string
	for _, ip := range GetLocalIPs() {
		urls = append(urls, "http://"+ip+":"+port+pathPrefix+"/api/webhooks/wati")
	}
	return urls
}
