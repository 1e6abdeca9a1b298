package vault

import (
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// DeviceFingerprint builds a deterministic identifier from stable host
// attributes. It is key-derivation input, not a secret: anyone with code
// execution on the host can recompute it. Binding vault keys to it means
// stored blobs are not portable across machines, which is the intended
// trade-off.
func DeviceFingerprint() string {
	parts := []string{machineID(), hostname(), runtime.GOOS, runtime.GOARCH}
	return strings.Join(parts, "|")
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil {
		return "unknown-host"
	}
	return name
}

// machineID returns a hardware or install identifier for the current
// platform, falling back to the empty string when none is available.
func machineID() string {
	switch runtime.GOOS {
	case "linux":
		return linuxMachineID()
	case "darwin":
		return darwinPlatformUUID()
	case "windows":
		return windowsProductUUID()
	default:
		return ""
	}
}

func linuxMachineID() string {
	for _, path := range []string{"/etc/machine-id", "/var/lib/dbus/machine-id"} {
		if data, err := os.ReadFile(path); err == nil {
			if id := strings.TrimSpace(string(data)); id != "" {
				return id
			}
		}
	}
	// DMI product UUID needs root on most distros, but try anyway.
	if data, err := os.ReadFile("/sys/class/dmi/id/product_uuid"); err == nil {
		return strings.TrimSpace(string(data))
	}
	return ""
}

func darwinPlatformUUID() string {
	out, err := exec.Command("ioreg", "-rd1", "-c", "IOPlatformExpertDevice").Output()
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(string(out), "\n") {
		if !strings.Contains(line, "IOPlatformUUID") {
			continue
		}
		parts := strings.Split(line, "\"")
		if len(parts) >= 4 {
			return parts[3]
		}
	}
	return ""
}

func windowsProductUUID() string {
	out, err := exec.Command("wmic", "csproduct", "get", "UUID").Output()
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(string(out), "\n") {
		str := strings.TrimSpace(line)
		if str != "" && !strings.EqualFold(str, "UUID") {
			return str
		}
	}
	return ""
}
