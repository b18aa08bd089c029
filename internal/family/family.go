// Package family holds the per-vendor quirk tables used by the device
// session engine: which prompt endings to expect, how to switch the pager
// off, how to pull the hostname out of the prompt, and which output patterns
// mean the device is asking a question instead of printing a result.
package family

import (
	"regexp"
	"strings"
)

type Family struct {
	Name string

	// Channels this family serves. The first entry is the canonical name.
	Channels []string

	// PromptSuffixes are the shell prompt endings, privileged first when the
	// family distinguishes modes.
	PromptSuffixes []string

	// HostnamePattern extracts the device's self-reported name from the
	// captured prompt. Group 1 is the hostname.
	HostnamePattern *regexp.Regexp

	// extractHostname overrides HostnamePattern for families whose prompt
	// format depends on the platform (IOS-XR, Brocade).
	extractHostname func(prompt string) string

	NoPagerCommands []string

	// ErrorSign marks failed commands in captured output. Empty means the
	// family reports no inline error marker.
	ErrorSign string

	// RiskyPatterns terminate an output read: confirmation prompts,
	// re-authentication requests, config-mode prompts.
	RiskyPatterns []string

	LogoutCommands []string
}

// Hostname parses the device name from a full prompt line such as
// "core-sw-1#" or "<AGG-RT-2>".
func (f Family) Hostname(prompt string) string {
	if f.extractHostname != nil {
		return f.extractHostname(prompt)
	}
	if f.HostnamePattern != nil {
		if m := f.HostnamePattern.FindStringSubmatch(prompt); len(m) > 1 {
			return m[1]
		}
	}
	if len(prompt) > 0 {
		return prompt[:len(prompt)-1]
	}
	return ""
}

// ciscoHostname handles the classic IOS prompt plus two platform quirks:
// IOS-XR prompts look like "RP/0/RSP0/CPU0:hostname#", Brocade prompts carry
// a "hostname:level>" form.
func ciscoHostname(prompt string) string {
	if prompt == "" {
		return ""
	}
	bare := prompt[:len(prompt)-1]
	switch {
	case strings.Contains(bare, ":") && strings.Contains(bare, "RP"):
		parts := strings.Split(bare, ":")
		return parts[len(parts)-1]
	case strings.Contains(bare, ":"):
		return strings.SplitN(bare, ":", 2)[0]
	default:
		return bare
	}
}

var Cisco = Family{
	Name:            "cisco",
	Channels:        []string{"cisco"},
	PromptSuffixes:  []string{"#", ">"},
	NoPagerCommands: []string{"terminal length 0"},
	ErrorSign:       " '^' ",
	RiskyPatterns: []string{
		`\)#`,
		`fex-\d+#`,
		`\[[yn]\]`,
		`[pP]assword:`,
		`\[confirm\]`,
		`\]\?`,
	},
	LogoutCommands:  []string{"end", "exit"},
	extractHostname: ciscoHostname,
}

// Brocade shares the Cisco login flow and prompt shapes but asks different
// questions mid-command, so it carries its own expectation set.
var Brocade = Family{
	Name:            "brocade",
	Channels:        []string{"brocade"},
	PromptSuffixes:  []string{"#", ">"},
	NoPagerCommands: []string{"terminal length 0"},
	ErrorSign:       " '^' ",
	RiskyPatterns: []string{
		`\): `,
		`Name: `,
		`Password: `,
		`Directory: `,
		` \[Y\]:`,
	},
	LogoutCommands:  []string{"end", "exit"},
	extractHostname: ciscoHostname,
}

var Huawei = Family{
	Name:            "huawei",
	Channels:        []string{"huawei", "h3c"},
	PromptSuffixes:  []string{">"},
	HostnamePattern: regexp.MustCompile(`<(.*?)>`),
	NoPagerCommands: []string{"screen-length 0 temporary"},
	ErrorSign:       " '^' ",
	RiskyPatterns:   []string{`\[Y/N\]:`},
	LogoutCommands:  []string{"quit"},
}

var F5 = Family{
	Name:            "f5",
	Channels:        []string{"f5"},
	PromptSuffixes:  []string{"#"},
	HostnamePattern: regexp.MustCompile(`.*@(.*)\(Active\)\(tmos\)#`),
	NoPagerCommands: []string{"tmsh modify cli preference pager disabled", "terminal length 0"},
	ErrorSign:       "",
	RiskyPatterns:   nil,
	LogoutCommands:  []string{"quit"},
}

var families = []Family{Cisco, Brocade, Huawei, F5}

// Detect refines the family once the login prompt is known: Brocade devices
// often sit on the cisco channel and only give themselves away by the
// "hostname:level>" prompt shape.
func Detect(f Family, prompt string) Family {
	if f.Name == Cisco.Name && strings.Contains(prompt, ":") && !strings.Contains(prompt, "RP") {
		return Brocade
	}
	return f
}

// ByChannel returns the family serving a channel name, defaulting to Cisco
// for unknown CLI channels, matching the broker's channel defaulting rule.
func ByChannel(channel string) Family {
	channel = strings.ToLower(channel)
	for _, f := range families {
		for _, c := range f.Channels {
			if c == channel {
				return f
			}
		}
	}
	return Cisco
}
