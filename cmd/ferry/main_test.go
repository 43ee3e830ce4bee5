package main

import (
	"bytes"
	"errors"
	"flag"
	"reflect"
	"strings"
	"testing"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		want      int
		wantPos   []string
		recursive bool
		dryRun    bool
		wantErr   bool
	}{
		{
			name:    "positional only",
			args:    []string{"prod", "./site", "/var/www"},
			want:    3,
			wantPos: []string{"prod", "./site", "/var/www"},
		},
		{
			name:      "flags after positionals",
			args:      []string{"prod", "./site", "/var/www", "-r", "-dry-run"},
			want:      3,
			wantPos:   []string{"prod", "./site", "/var/www"},
			recursive: true,
			dryRun:    true,
		},
		{
			name:      "flags interspersed",
			args:      []string{"-r", "prod", "./site", "-dry-run", "/var/www"},
			want:      3,
			wantPos:   []string{"prod", "./site", "/var/www"},
			recursive: true,
			dryRun:    true,
		},
		{
			name:    "missing positional",
			args:    []string{"prod", "./site"},
			want:    3,
			wantErr: true,
		},
		{
			name:    "unknown flag",
			args:    []string{"prod", "-x"},
			want:    1,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := flag.NewFlagSet("test", flag.ContinueOnError)
			recursive := fs.Bool("r", false, "")
			dryRun := fs.Bool("dry-run", false, "")

			pos, err := parseArgs(fs, tt.args, tt.want)
			if tt.wantErr {
				if !errors.Is(err, errUsage) {
					t.Errorf("expected usage error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseArgs() error = %v", err)
			}
			if !reflect.DeepEqual(pos, tt.wantPos) {
				t.Errorf("positional = %v, want %v", pos, tt.wantPos)
			}
			if *recursive != tt.recursive || *dryRun != tt.dryRun {
				t.Errorf("flags r=%v dry-run=%v", *recursive, *dryRun)
			}
		})
	}
}

func TestRun_Usage(t *testing.T) {
	var stderr bytes.Buffer
	if code := run(nil, &stderr); code != 2 {
		t.Errorf("exit code = %d, want 2", code)
	}
	if !strings.Contains(stderr.String(), "ferry upload") {
		t.Errorf("usage not printed: %q", stderr.String())
	}

	stderr.Reset()
	if code := run([]string{"frobnicate"}, &stderr); code != 2 {
		t.Errorf("exit code = %d, want 2", code)
	}
	if !strings.Contains(stderr.String(), `unknown command "frobnicate"`) {
		t.Errorf("unexpected output %q", stderr.String())
	}
}
