// Package service installs the portal as a systemd unit.
package service

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"text/template"
)

const unitName = "school-portal"

// UnitPath is where Install writes the unit file.
var UnitPath = "/etc/systemd/system/" + unitName + ".service"

var (
	ErrUnsupported = errors.New("systemd services are only supported on Linux with systemctl")
	ErrNotRoot     = errors.New("root privileges required to manage the service")
)

// Status reports the systemd state of the portal unit.
type Status struct {
	Installed   bool   `json:"installed"`
	Enabled     bool   `json:"enabled"`
	Running     bool   `json:"running"`
	ActiveState string `json:"active_state"`
}

// Unit holds the values rendered into the unit file.
type Unit struct {
	ExecPath   string
	ConfigPath string
	User       string
	WorkingDir string
	BackupDir  string
}

const unitTemplate = `[Unit]
Description=School Portal
After=network.target

[Service]
Type=simple
User={{.User}}
Group={{.User}}
WorkingDirectory={{.WorkingDir}}
ExecStart={{.ExecPath}} -config {{.ConfigPath}}
Restart=on-failure
RestartSec=5
StandardOutput=journal
StandardError=journal

NoNewPrivileges=true
ProtectSystem=strict
ProtectHome=read-only
ReadWritePaths={{.WorkingDir}}{{if .BackupDir}} {{.BackupDir}}{{end}}
PrivateTmp=true

[Install]
WantedBy=multi-user.target
`

// DefaultUnit describes the running binary with the given config file.
func DefaultUnit(configPath, backupDir string) Unit {
	execPath, _ := os.Executable()
	if resolved, err := filepath.EvalSymlinks(execPath); err == nil {
		execPath = resolved
	}
	if abs, err := filepath.Abs(configPath); err == nil {
		configPath = abs
	}
	if backupDir != "" {
		if abs, err := filepath.Abs(backupDir); err == nil {
			backupDir = abs
		}
	}

	return Unit{
		ExecPath:   execPath,
		ConfigPath: configPath,
		User:       "root",
		WorkingDir: filepath.Dir(configPath),
		BackupDir:  backupDir,
	}
}

// Render returns the unit file content.
func Render(u Unit) (string, error) {
	tmpl, err := template.New("unit").Parse(unitTemplate)
	if err != nil {
		return "", fmt.Errorf("parse unit template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, u); err != nil {
		return "", fmt.Errorf("render unit template: %w", err)
	}
	return buf.String(), nil
}

// Install writes the unit, enables it and starts it.
func Install(u Unit) error {
	if err := checkManageable(); err != nil {
		return err
	}

	content, err := Render(u)
	if err != nil {
		return err
	}
	if err := os.WriteFile(UnitPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("write unit file: %w", err)
	}

	for _, args := range [][]string{{"daemon-reload"}, {"enable", unitName}, {"start", unitName}} {
		if err := systemctl(args...); err != nil {
			return fmt.Errorf("systemctl %s: %w", args[0], err)
		}
	}
	return nil
}

// Uninstall stops the unit and removes its file.
func Uninstall() error {
	if err := checkManageable(); err != nil {
		return err
	}

	_ = systemctl("stop", unitName)
	_ = systemctl("disable", unitName)

	if err := os.Remove(UnitPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove unit file: %w", err)
	}
	return systemctl("daemon-reload")
}

// Query returns the unit state. Off Linux it reports an empty status.
func Query() Status {
	var st Status
	if !available() {
		return st
	}

	if _, err := os.Stat(UnitPath); err == nil {
		st.Installed = true
	}
	if out, err := exec.Command("systemctl", "show", unitName, "--property=ActiveState", "--value").Output(); err == nil {
		st.ActiveState = strings.TrimSpace(string(out))
		st.Running = st.ActiveState == "active"
	}
	if out, err := exec.Command("systemctl", "is-enabled", unitName).Output(); err == nil {
		st.Enabled = strings.TrimSpace(string(out)) == "enabled"
	}
	return st
}

// UnderSystemd reports whether this process was started by systemd.
func UnderSystemd() bool {
	return os.Getenv("INVOCATION_ID") != ""
}

func available() bool {
	if runtime.GOOS != "linux" {
		return false
	}
	_, err := exec.LookPath("systemctl")
	return err == nil
}

func checkManageable() error {
	if !available() {
		return ErrUnsupported
	}
	if os.Geteuid() != 0 {
		return ErrNotRoot
	}
	return nil
}

func systemctl(args ...string) error {
	out, err := exec.Command("systemctl", args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}
