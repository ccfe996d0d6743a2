package v1

import (
	"strings"

	"github.com/mssola/useragent"

	"github.com/duynhne/session-auth-service/internal/core/domain"
)

// DeviceInfo is the structured form of a User-Agent header.
type DeviceInfo struct {
	Browser domain.Browser
	OS      domain.OS
	Device  domain.Device
}

const unknown = "unknown"

// ParseDevice extracts browser, OS and device details from a User-Agent header.
// Fields the header does not reveal are reported as "unknown".
func ParseDevice(userAgent string) DeviceInfo {
	if strings.TrimSpace(userAgent) == "" {
		return DeviceInfo{
			Browser: domain.Browser{Name: unknown, Version: unknown},
			OS:      domain.OS{Name: unknown, Version: unknown},
			Device:  domain.Device{Type: unknown, Model: unknown, Vendor: unknown},
		}
	}

	ua := useragent.New(userAgent)
	name, version := ua.Browser()
	osInfo := ua.OSInfo()
	platform := ua.Platform()

	return DeviceInfo{
		Browser: domain.Browser{Name: orUnknown(name), Version: orUnknown(version)},
		OS:      domain.OS{Name: orUnknown(osInfo.Name), Version: orUnknown(osInfo.Version)},
		Device: domain.Device{
			Type:   deviceType(ua, platform),
			Model:  orUnknown(deviceModel(ua, platform)),
			Vendor: orUnknown(deviceVendor(platform, osInfo.Name)),
		},
	}
}

func deviceType(ua *useragent.UserAgent, platform string) string {
	switch {
	case ua.Bot():
		return "bot"
	case strings.Contains(platform, "iPad") || strings.Contains(strings.ToLower(ua.Model()), "tablet"):
		return "tablet"
	case ua.Mobile():
		return "mobile"
	default:
		return "desktop"
	}
}

func deviceModel(ua *useragent.UserAgent, platform string) string {
	if m := ua.Model(); m != "" {
		return m
	}
	switch {
	case strings.Contains(platform, "iPhone"), strings.Contains(platform, "iPad"):
		return strings.Fields(platform)[0]
	case strings.Contains(platform, "Macintosh"):
		return "Macintosh"
	}
	return ""
}

func deviceVendor(platform, osName string) string {
	switch {
	case strings.Contains(platform, "iPhone"), strings.Contains(platform, "iPad"),
		strings.Contains(platform, "Macintosh"), strings.Contains(osName, "Mac OS"):
		return "Apple"
	case strings.Contains(osName, "Windows"):
		return "Microsoft"
	}
	return ""
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return unknown
	}
	return s
}
