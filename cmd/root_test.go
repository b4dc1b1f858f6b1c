package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    *Options
		wantErr bool
	}{
		{"nil options", nil, true},
		{"defaults", &Options{}, false},
		{"topology", &Options{ShowTopology: true}, false},
		{"topology json", &Options{ShowTopology: true, JSON: true}, false},
		{"json alone", &Options{JSON: true}, true},
		{"topology with plan", &Options{ShowTopology: true, Plan: true}, true},
		{"topology with command", &Options{ShowTopology: true, Command: []string{"ls"}}, true},
		{"plan", &Options{Plan: true}, false},
		{"plan with command", &Options{Plan: true, Command: []string{"ls"}}, true},
		{"dry run", &Options{DryRun: true}, false},
		{"dry run with command", &Options{DryRun: true, Command: []string{"ls"}}, true},
		{"command", &Options{Command: []string{"sleep", "1"}}, false},
		{"negative tasks", &Options{Tasks: -1}, true},
		{"negative threads", &Options{Threads: -2}, true},
		{"plan overrides", &Options{Plan: true, Tasks: 8, Threads: 2}, false},
		{"overrides with command", &Options{Tasks: 4, Command: []string{"ls"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.opts)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidArguments)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
