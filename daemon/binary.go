package daemon

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

const installed = "/usr/sbin/ddnswolf"

// Install copies the running binary to /usr/sbin.
func Install() {
	file, err := exec.LookPath(os.Args[0])
	if err != nil && !errors.Is(err, exec.ErrDot) {
		log.Err(err).Msg("fetch current binary path failed")
		return
	}

	absFile, err := filepath.Abs(file)
	if err != nil {
		log.Err(err).Str("path", file).Msg("resolve binary path failed")
		return
	}
	log.Info().Msgf("current binary: %v", absFile)

	originFp, err := os.Open(absFile)
	if err != nil {
		log.Err(err).Msg("open current binary failed")
		return
	}
	defer originFp.Close()

	if _, err := os.Stat(installed); err != nil {
		if !os.IsNotExist(err) {
			log.Err(err).Msg("fetch binary stat failed")
			return
		}
	} else {
		if err := os.RemoveAll(installed); err != nil {
			log.Err(err).Msg("remove old binary failed")
			return
		}
	}

	fp, err := os.OpenFile(installed, os.O_CREATE|os.O_RDWR, 0755)
	if err != nil {
		log.Err(err).Msgf("write to %v", installed)
		return
	}
	defer fp.Close()
	if _, err := io.Copy(fp, originFp); err != nil {
		_ = os.RemoveAll(installed)
		log.Err(err).Msgf("copy binary to %s", installed)
		return
	}
	log.Info().Msgf("installed ddnswolf to %s", installed)
}

// Uninstall removes the installed binary.
func Uninstall() {
	file, err := exec.LookPath("ddnswolf")
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) || os.IsNotExist(err) {
			log.Info().Msg("ddnswolf binary not found in $PATH, nothing to do")
		} else {
			log.Err(err).Msg("find ddnswolf binary failed")
		}
		return
	}

	if err := os.RemoveAll(file); err != nil {
		log.Err(err).Str("path", file).Msg("remove ddnswolf binary failed")
		return
	}
	log.Info().Msgf("removed ddnswolf from %s", file)
}
