// Package main provides the entry point for the tunguard CLI.
//
// tunguard audits the tunnels registered in a reverse-tunnel admin system.
// It lists online tunnels through the admin API, probes the public address
// of every tunnel that may serve web content, flags prohibited keywords and
// unverified domains, and writes a timestamped report.
//
// Usage:
//
//	tunguard audit --api <admin-endpoint>
//	tunguard verify --api <admin-endpoint>
//
// See --help for all available options.
package main

// main is the entry point for tunguard.
func main() {
	Execute()
}
