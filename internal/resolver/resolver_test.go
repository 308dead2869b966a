package resolver

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestStaticResolve(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "yt-dlp")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatal(err)
	}

	path, err := Static{Path: bin}.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if path != bin {
		t.Errorf("path = %q, expected %q", path, bin)
	}

	if _, err := (Static{Path: filepath.Join(dir, "missing")}).Resolve(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing file: err = %v, expected ErrNotFound", err)
	}
	if _, err := (Static{Path: dir}).Resolve(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Errorf("directory: err = %v, expected ErrNotFound", err)
	}
}

func TestPathLookupMiss(t *testing.T) {
	_, err := PathLookup{Name: "mediaflow-no-such-binary"}.Resolve(context.Background())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, expected ErrNotFound", err)
	}
}

// stubResolver scripts one resolution result and counts calls
type stubResolver struct {
	path  string
	err   error
	calls int
}

func (s *stubResolver) Resolve(ctx context.Context) (string, error) {
	s.calls++
	return s.path, s.err
}

func TestChainReturnsFirstSuccess(t *testing.T) {
	first := &stubResolver{err: ErrNotFound}
	second := &stubResolver{path: "/opt/tools/yt-dlp"}
	third := &stubResolver{path: "/never/reached"}

	path, err := Chain{first, second, third}.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if path != "/opt/tools/yt-dlp" {
		t.Errorf("path = %q", path)
	}
	if third.calls != 0 {
		t.Error("chain must stop at the first success")
	}
}

func TestChainSurfacesLastError(t *testing.T) {
	boom := errors.New("install failed")
	_, err := Chain{&stubResolver{err: ErrNotFound}, &stubResolver{err: boom}}.Resolve(context.Background())
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, expected the last failure", err)
	}

	if _, err := (Chain{}).Resolve(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Errorf("empty chain: err = %v, expected ErrNotFound", err)
	}
}
