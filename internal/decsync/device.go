package decsync

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"strings"

	"github.com/shirou/gopsutil/v4/host"
)

// DeviceID derives the local device identifier from the hostname, the OS
// user and the application name. The result is not encoded; Layout encodes it
// when it is used as a path segment.
func DeviceID(appName string) (string, error) {
	if appName == "" {
		return "", errors.New("app name cannot be empty")
	}

	hostname, err := hostName()
	if err != nil {
		return "", fmt.Errorf("hostname: %w", err)
	}

	username := "unknown"
	if u, err := user.Current(); err == nil && u.Username != "" {
		username = u.Username
		// DOMAIN\user on windows
		if i := strings.LastIndex(username, `\`); i >= 0 {
			username = username[i+1:]
		}
	}

	return fmt.Sprintf("%s-%s-%s", hostname, username, appName), nil
}

func hostName() (string, error) {
	if info, err := host.Info(); err == nil && info.Hostname != "" {
		return info.Hostname, nil
	}
	return os.Hostname()
}
