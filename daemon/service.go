package daemon

import (
	_ "embed"
	"errors"
	"os"
	"os/exec"

	"github.com/rs/zerolog/log"
)

const ServicePath = "/etc/systemd/system/ddnswolf.service"

//go:embed ddnswolf.service
var ServiceFile []byte

// AddService installs the systemd unit and enables it. The binary is
// installed to /usr/sbin first if it is not already on the path.
func AddService() {
	_, err := exec.LookPath("ddnswolf")
	if err != nil {
		if !errors.Is(err, exec.ErrDot) {
			log.Warn().Msg("ddnswolf is not installed to path, installing it first")
			Install()
		}
	}
	if _, err := os.Stat(ServicePath); err == nil {
		if err := os.Remove(ServicePath); err != nil {
			log.Warn().Msgf("remove %s failed", ServicePath)
		}
	}
	if err := os.WriteFile(ServicePath, ServiceFile, 0644); err != nil {
		log.Fatal().Err(err).Msgf("write %s failed", ServicePath)
	}
	if out, err := exec.Command("systemctl", "daemon-reload").CombinedOutput(); err != nil {
		log.Warn().Err(err).Str("output", string(out)).Msg("systemctl daemon-reload failed")
	}
	if out, err := exec.Command("systemctl", "enable", "ddnswolf").CombinedOutput(); err != nil {
		log.Warn().Err(err).Str("output", string(out)).Msg("systemctl enable failed")
	}
	log.Info().Msgf("installed service unit to %s", ServicePath)
}

// RmService disables the unit and removes the file. Missing unit is fine.
func RmService() {
	if out, err := exec.Command("systemctl", "disable", "ddnswolf").CombinedOutput(); err != nil {
		log.Debug().Err(err).Str("output", string(out)).Msg("systemctl disable failed")
	}
	if err := os.Remove(ServicePath); err != nil {
		if os.IsNotExist(err) {
			return
		}
		log.Err(err).Msg("delete service unit failed")
		return
	}
	log.Info().Msgf("removed %s", ServicePath)
}
