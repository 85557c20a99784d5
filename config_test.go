package main

import (
	"testing"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "complete config",
			cfg: Config{
				APIKey:      "key",
				SecretKey:   "secret",
				ExchangeURL: "http://localhost",
				Strategy:    "emacross",
			},
			wantErr: false,
		},
		{
			name:    "empty config",
			cfg:     Config{},
			wantErr: true,
		},
		{
			name: "missing api key",
			cfg: Config{
				SecretKey:   "secret",
				ExchangeURL: "http://localhost",
				Strategy:    "emacross",
			},
			wantErr: true,
		},
		{
			name: "missing secret key",
			cfg: Config{
				APIKey:      "key",
				ExchangeURL: "http://localhost",
				Strategy:    "emacross",
			},
			wantErr: true,
		},
		{
			name: "missing exchange url",
			cfg: Config{
				APIKey:    "key",
				SecretKey: "secret",
				Strategy:  "emacross",
			},
			wantErr: true,
		},
		{
			name: "missing strategy",
			cfg: Config{
				APIKey:      "key",
				SecretKey:   "secret",
				ExchangeURL: "http://localhost",
			},
			wantErr: true,
		},
	}

	for _, test := range tests {
		err := test.cfg.Validate()
		if (err != nil) != test.wantErr {
			t.Errorf("%s: wantErr %v, got %v", test.name, test.wantErr, err)
		}
	}
}
