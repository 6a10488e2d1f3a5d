package empmos

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FileSettings is the YAML form of ConfigParams.
type FileSettings struct {
	Token             string            `yaml:"token"`
	GUID              string            `yaml:"guid"`
	UserAgent         string            `yaml:"user_agent"`
	DeviceUserAgent   string            `yaml:"device_user_agent"`
	DeviceAppVersion  string            `yaml:"device_app_version"`
	BaseURL           string            `yaml:"base_url"`
	TLSVerify         *bool             `yaml:"tls_verify"`
	Timeout           time.Duration     `yaml:"timeout"`
	Debug             *bool             `yaml:"debug"`
	Proxy             string            `yaml:"proxy"`
	Headers           map[string]string `yaml:"headers"`
	RequestsPerSecond float64           `yaml:"requests_per_second"`
	RateBurst         int               `yaml:"rate_burst"`
}

// Account is one entry of the accounts section: credentials plus settings
// that differ from the defaults.
type Account struct {
	FileSettings `yaml:",inline"`

	Login    string `yaml:"login"`
	Password string `yaml:"password"`
}

// FileConfig is the layout of an account file:
//
//	defaults:
//	  token: <application token>
//	  device_app_version: "3.8.1"
//	  timeout: 6s
//	accounts:
//	  home:
//	    login: "79990000000"
//	    password: secret
//	    guid: 0f6c...
type FileConfig struct {
	Defaults FileSettings       `yaml:"defaults"`
	Accounts map[string]Account `yaml:"accounts"`
}

// LoadFileConfig reads and parses an account file.
func LoadFileConfig(path string) (FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, fmt.Errorf("read config file: %w", err)
	}
	return ParseFileConfig(data)
}

// ParseFileConfig parses the YAML content of an account file.
func ParseFileConfig(data []byte) (FileConfig, error) {
	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return FileConfig{}, fmt.Errorf("parse config file: %w", err)
	}
	for name, acc := range fc.Accounts {
		if acc.Login == "" {
			return FileConfig{}, fmt.Errorf("account %q: login is required", name)
		}
	}
	return fc, nil
}

// Params converts the settings into ConfigParams.
func (s FileSettings) Params() ConfigParams {
	p := ConfigParams{
		AppToken:          s.Token,
		DeviceGUID:        s.GUID,
		UserAgent:         s.UserAgent,
		DeviceUserAgent:   s.DeviceUserAgent,
		DeviceAppVersion:  s.DeviceAppVersion,
		BaseURL:           s.BaseURL,
		TLSVerify:         s.TLSVerify,
		Timeout:           s.Timeout,
		Debug:             s.Debug,
		ProxyURL:          s.Proxy,
		RequestsPerSecond: s.RequestsPerSecond,
		RateBurst:         s.RateBurst,
	}
	if len(s.Headers) > 0 {
		p.ExtraHeaders = make(map[string][]string, len(s.Headers))
		for k, v := range s.Headers {
			p.ExtraHeaders.Set(k, v)
		}
	}
	return p
}

// NewRegistryFromFile builds a registry whose base parameters are the file
// defaults layered over extra (file values win). Accounts are returned so the
// caller can log each one in via the registry.
func NewRegistryFromFile(path string, extra ConfigParams) (*Registry, map[string]Account, error) {
	fc, err := LoadFileConfig(path)
	if err != nil {
		return nil, nil, err
	}
	reg, err := NewRegistry(extra.merge(fc.Defaults.Params()))
	if err != nil {
		return nil, nil, err
	}
	return reg, fc.Accounts, nil
}

// ClientFor returns the registry client of a file account, applying the
// account's own settings when it is created.
func (r *Registry) ClientFor(name string, acc Account) (*Client, error) {
	return r.Client(name, acc.Params())
}
