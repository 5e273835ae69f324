package cmd

import (
	"testing"

	"github.com/fatih/color"

	"github.com/nvtrung/certprobe-cli/internal/probe"
)

func TestFormatStatusWithColor(t *testing.T) {
	original := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = original }()

	cases := []struct {
		status probe.Status
		want   string
	}{
		{probe.StatusOK, "ok"},
		{probe.StatusExpiringSoon, "expiring_soon"},
		{probe.StatusExpired, "expired"},
		{probe.StatusSelfSigned, "self_signed"},
		{probe.StatusUnreachable, "unreachable"},
		{probe.StatusHandshakeError, "handshake_error"},
		{probe.StatusTimeout, "timeout"},
		{probe.Status("something_else"), "something_else"},
	}

	for _, tc := range cases {
		if got := formatStatusWithColor(tc.status); got != tc.want {
			t.Errorf("formatStatusWithColor(%s) = %q, want %q", tc.status, got, tc.want)
		}
	}
}
