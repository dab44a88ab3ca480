package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"os"
	"strings"
	"sync"
)

var (
	instanceOnce sync.Once
	instanceID   string
)

// InstanceID names this server process for lock ownership and status
// reporting, e.g. "node-A1B2C3D4". It hashes the first active MAC address
// together with the host name and is stable across restarts.
func InstanceID() string {
	instanceOnce.Do(func() {
		instanceID = "node-" + strings.ToUpper(fingerprint(hardwareAddr()+hostname())[:8])
	})
	return instanceID
}

func hardwareAddr() string {
	interfaces, err := net.Interfaces()
	if err != nil {
		return ""
	}
	for _, i := range interfaces {
		// first active physical interface
		if i.Flags&net.FlagUp != 0 && len(i.HardwareAddr) > 0 {
			return i.HardwareAddr.String()
		}
	}
	return ""
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil {
		return "unknown-host"
	}
	return name
}

func fingerprint(value string) string {
	hash := sha256.Sum256([]byte(value))
	return hex.EncodeToString(hash[:])
}
