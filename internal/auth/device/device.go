// Package device derives a human-readable device label from a User-Agent.
package device

import (
	"strings"

	"github.com/mssola/useragent"
)

const unknownDevice = "Unknown Device"

// maxDisplayNameLen caps labels built from attacker-controlled headers.
const maxDisplayNameLen = 120

// DisplayName returns "Browser on OS" (e.g. "Chrome on macOS"). Mobile
// clients report their platform instead of the OS string, and crawlers are
// labelled by bot name.
func DisplayName(userAgent string) string {
	userAgent = strings.TrimSpace(userAgent)
	if userAgent == "" {
		return unknownDevice
	}

	ua := useragent.New(userAgent)
	browser, _ := ua.Browser()

	if ua.Bot() {
		if browser == "" {
			return "Bot"
		}
		return truncate(browser + " (bot)")
	}

	os := ua.OS()
	if ua.Mobile() {
		if platform := ua.Platform(); platform != "" {
			os = platform
		}
	}

	if browser == "" {
		browser = "Unknown Browser"
	}
	if os == "" {
		os = "Unknown OS"
	}
	return truncate(strings.TrimSpace(browser + " on " + os))
}

func truncate(s string) string {
	if len(s) <= maxDisplayNameLen {
		return s
	}
	return strings.ToValidUTF8(s[:maxDisplayNameLen], "")
}
