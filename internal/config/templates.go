package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "kiosker":
		return kioskerTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const kioskerTemplate = `# control socket; ignored when a supervisor hands one down
address = "/tmp/kiosker.sock"
start_uri = "http://localhost/"

# optional status api on a unix stream socket, empty disables it
status_socket = ""

# datagrams per second, 0 disables limiting
rate_limit = 0.0
rate_burst = 8

history_limit = 32

# program run for every navigation, {uri} is replaced by the page
# render_command = ["browserctl", "open", "{uri}"]
`
