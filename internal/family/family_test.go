package family

import "testing"

func TestHostname(t *testing.T) {
	tests := map[string]struct {
		family Family
		prompt string
		want   string
	}{
		"classic ios":    {family: Cisco, prompt: "core-sw-1#", want: "core-sw-1"},
		"ios user mode":  {family: Cisco, prompt: "core-sw-1>", want: "core-sw-1"},
		"ios-xr rp path": {family: Cisco, prompt: "RP/0/RSP0/CPU0:agg-rt-1#", want: "agg-rt-1"},
		"brocade level":  {family: Cisco, prompt: "bdc-sw-1:FID128>", want: "bdc-sw-1"},
		"huawei":         {family: Huawei, prompt: "<AGG-RT-2>", want: "AGG-RT-2"},
		"f5 tmos":        {family: F5, prompt: "admin@lb-01(Active)(tmos)#", want: "lb-01"},
		"empty prompt":   {family: Cisco, prompt: "", want: ""},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := tt.family.Hostname(tt.prompt); got != tt.want {
				t.Errorf("Hostname(%q) = %q, want %q", tt.prompt, got, tt.want)
			}
		})
	}
}

func TestDetect(t *testing.T) {
	tests := map[string]struct {
		family Family
		prompt string
		want   string
	}{
		"brocade prompt on cisco channel": {family: Cisco, prompt: "bdc-sw-1:FID128>", want: "brocade"},
		"ios-xr keeps cisco":              {family: Cisco, prompt: "RP/0/RSP0/CPU0:agg-rt-1#", want: "cisco"},
		"plain ios keeps cisco":           {family: Cisco, prompt: "core-sw-1#", want: "cisco"},
		"huawei untouched":                {family: Huawei, prompt: "<AGG-RT-2>", want: "huawei"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := Detect(tt.family, tt.prompt); got.Name != tt.want {
				t.Errorf("Detect(%q, %q).Name = %q, want %q", tt.family.Name, tt.prompt, got.Name, tt.want)
			}
		})
	}
}

func TestByChannel(t *testing.T) {
	tests := map[string]struct {
		channel string
		want    string
	}{
		"cisco":            {channel: "cisco", want: "cisco"},
		"brocade":          {channel: "brocade", want: "brocade"},
		"case insensitive": {channel: "Huawei", want: "huawei"},
		"h3c uses huawei":  {channel: "h3c", want: "huawei"},
		"f5":               {channel: "f5", want: "f5"},
		"unknown defaults": {channel: "juniper", want: "cisco"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := ByChannel(tt.channel); got.Name != tt.want {
				t.Errorf("ByChannel(%q).Name = %q, want %q", tt.channel, got.Name, tt.want)
			}
		})
	}
}
