package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitModeArgs(t *testing.T) {
	cases := []struct {
		name     string
		args     []string
		wantMode []string
		wantRest []string
	}{
		{
			name:     "equals form",
			args:     []string{"--mode=order-hub", "--port=3000"},
			wantMode: []string{"--mode=order-hub"},
			wantRest: []string{"--port=3000"},
		},
		{
			name:     "space form",
			args:     []string{"--mode", "order-hub", "--port=3000"},
			wantMode: []string{"--mode", "order-hub"},
			wantRest: []string{"--port=3000"},
		},
		{
			name:     "single dash space form",
			args:     []string{"-mode", "ns", "--name=kitchen"},
			wantMode: []string{"-mode", "ns"},
			wantRest: []string{"--name=kitchen"},
		},
		{
			name:     "mode is the last argument",
			args:     []string{"--mode"},
			wantMode: []string{"--mode"},
			wantRest: []string{},
		},
		{
			name:     "no mode flag",
			args:     []string{"--port=3000"},
			wantMode: nil,
			wantRest: []string{"--port=3000"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gotMode, gotRest := splitModeArgs(tc.args)
			assert.Equal(t, tc.wantMode, gotMode)
			assert.Equal(t, tc.wantRest, gotRest)
		})
	}
}
