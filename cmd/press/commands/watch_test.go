package commands

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/openfroyo/press/pkg/config"
)

func TestWatcher_RebuildsAfterChange(t *testing.T) {
	root := writeSite(t, map[string]string{
		"input/index.md": "Welcome",
	})
	s := config.DefaultSettings()
	s.RootFolder = root

	builds := make(chan struct{}, 10)
	w := &watcher{
		settings: s,
		delay:    20 * time.Millisecond,
		rebuild: func(context.Context, *config.Settings, string) {
			builds <- struct{}{}
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.run(ctx) }()

	waitBuild := func(what string) {
		t.Helper()
		select {
		case <-builds:
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for %s", what)
		}
	}

	waitBuild("initial build")

	if err := os.WriteFile(filepath.Join(root, "input", "index.md"), []byte("Changed"), 0644); err != nil {
		t.Fatal(err)
	}
	waitBuild("rebuild")

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcher_Relevant(t *testing.T) {
	w := &watcher{}
	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{name: "write", event: fsnotify.Event{Name: "/site/input/a.md", Op: fsnotify.Write}, want: true},
		{name: "create", event: fsnotify.Event{Name: "/site/input/new", Op: fsnotify.Create}, want: true},
		{name: "chmod only", event: fsnotify.Event{Name: "/site/input/a.md", Op: fsnotify.Chmod}, want: false},
		{name: "hidden file", event: fsnotify.Event{Name: "/site/input/.index.md.swp", Op: fsnotify.Write}, want: false},
		{name: "hidden folder", event: fsnotify.Event{Name: "/site/.press", Op: fsnotify.Create}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := w.relevant(tt.event); got != tt.want {
				t.Errorf("relevant(%v) = %v, want %v", tt.event, got, tt.want)
			}
		})
	}
}
