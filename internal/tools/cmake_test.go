package tools

import (
	"context"
	"reflect"
	"testing"

	"github.com/mo2build/mob/internal/config"
)

func TestCmakeConfigure(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.CmakeConfig
		defs     map[string]string
		wantArgs []string
	}{
		{
			name:     "bare",
			wantArgs: []string{"-S", "/src", "-B", "/build"},
		},
		{
			name: "generator and host",
			cfg:  config.CmakeConfig{Generator: "Ninja", Host: "x64"},
			wantArgs: []string{
				"-S", "/src", "-B", "/build", "-G", "Ninja", "-T", "host=x64",
			},
		},
		{
			name: "definitions are sorted",
			defs: map[string]string{"ZED": "1", "ALPHA": "2"},
			wantArgs: []string{
				"-S", "/src", "-B", "/build", "-DALPHA=2", "-DZED=1",
			},
		},
		{
			name: "install message from config",
			cfg:  config.CmakeConfig{InstallMessage: "never"},
			defs: map[string]string{"BUILD_TESTING": "OFF"},
			wantArgs: []string{
				"-S", "/src", "-B", "/build",
				"-DBUILD_TESTING=OFF", "-DCMAKE_INSTALL_MESSAGE=never",
			},
		},
		{
			name: "definitions override install message",
			cfg:  config.CmakeConfig{InstallMessage: "never"},
			defs: map[string]string{"CMAKE_INSTALL_MESSAGE": "always"},
			wantArgs: []string{
				"-S", "/src", "-B", "/build", "-DCMAKE_INSTALL_MESSAGE=always",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMockRunner()
			c := NewCmake(mock, "", tt.cfg)

			if err := c.Configure(context.Background(), "/src", "/build", tt.defs); err != nil {
				t.Fatalf("Configure() error = %v", err)
			}

			call := mock.lastCall()
			if call.name != "cmake" {
				t.Errorf("command = %q, want cmake", call.name)
			}
			if !reflect.DeepEqual(call.args, tt.wantArgs) {
				t.Errorf("args = %v, want %v", call.args, tt.wantArgs)
			}
		})
	}
}

func TestCmakeConfigurePreset(t *testing.T) {
	mock := newMockRunner()
	c := NewCmake(mock, "", config.CmakeConfig{})

	defs := map[string]string{"BUILD_TESTING": "OFF"}
	if err := c.ConfigurePreset(context.Background(), "/src", "vs2022-windows-x64", defs); err != nil {
		t.Fatalf("ConfigurePreset() error = %v", err)
	}

	call := mock.lastCall()
	if call.dir != "/src" {
		t.Errorf("dir = %q, want /src", call.dir)
	}
	want := []string{"--preset", "vs2022-windows-x64", "-DBUILD_TESTING=OFF"}
	if !reflect.DeepEqual(call.args, want) {
		t.Errorf("args = %v, want %v", call.args, want)
	}
}

func TestCmakeBuild(t *testing.T) {
	mock := newMockRunner()
	c := NewCmake(mock, "", config.CmakeConfig{})

	if err := c.Build(context.Background(), "/build", config.BuildRelease); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	want := []string{"--build", "/build", "--config", "Release", "--parallel"}
	if got := mock.lastCall().args; !reflect.DeepEqual(got, want) {
		t.Errorf("args = %v, want %v", got, want)
	}
}

func TestCmakeCleanTarget(t *testing.T) {
	mock := newMockRunner()
	c := NewCmake(mock, "", config.CmakeConfig{})

	if err := c.CleanTarget(context.Background(), "/build", config.BuildDebug); err != nil {
		t.Fatalf("CleanTarget() error = %v", err)
	}

	want := []string{"--build", "/build", "--config", "Debug", "--target", "clean"}
	if got := mock.lastCall().args; !reflect.DeepEqual(got, want) {
		t.Errorf("args = %v, want %v", got, want)
	}
}

func TestCmakeInstall(t *testing.T) {
	t.Run("with prefix", func(t *testing.T) {
		mock := newMockRunner()
		c := NewCmake(mock, "", config.CmakeConfig{})

		if err := c.Install(context.Background(), "/build", config.BuildRelWithDebInfo, "/install"); err != nil {
			t.Fatalf("Install() error = %v", err)
		}

		want := []string{"--install", "/build", "--config", "RelWithDebInfo", "--prefix", "/install"}
		if got := mock.lastCall().args; !reflect.DeepEqual(got, want) {
			t.Errorf("args = %v, want %v", got, want)
		}
	})

	t.Run("without prefix", func(t *testing.T) {
		mock := newMockRunner()
		c := NewCmake(mock, "", config.CmakeConfig{})

		if err := c.Install(context.Background(), "/build", config.BuildRelease, ""); err != nil {
			t.Fatalf("Install() error = %v", err)
		}

		want := []string{"--install", "/build", "--config", "Release"}
		if got := mock.lastCall().args; !reflect.DeepEqual(got, want) {
			t.Errorf("args = %v, want %v", got, want)
		}
	})
}
