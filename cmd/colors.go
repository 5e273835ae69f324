package cmd

import (
	"github.com/fatih/color"

	"github.com/nvtrung/certprobe-cli/internal/probe"
)

var (
	colorSuccess = color.New(color.FgGreen).SprintFunc()
	colorInfo    = color.New(color.FgCyan).SprintFunc()
	colorWarn    = color.New(color.FgYellow).SprintFunc()
	colorError   = color.New(color.FgRed).SprintFunc()
)

func formatStatusWithColor(status probe.Status) string {
	switch status {
	case probe.StatusOK:
		return colorSuccess(string(status))
	case probe.StatusExpiringSoon, probe.StatusSelfSigned:
		return colorWarn(string(status))
	case probe.StatusExpired, probe.StatusUnreachable, probe.StatusHandshakeError, probe.StatusTimeout:
		return colorError(string(status))
	default:
		return string(status)
	}
}
