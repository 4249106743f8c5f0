// docrag CI
//
// Package main provides reproducible builds and tests locally and in GitHub actions.
package main

import (
	"context"

	"dagger/docrag/internal/dagger"
)

// Docrag is the main module for the docrag CI pipeline
type Docrag struct {
	// Project source directory
	//
	// +private
	Source *dagger.Directory
}

// New creates a new docrag CI module instance
func New(
	// Project source directory.
	//
	// +defaultPath="/"
	// +ignore=[".git", ".docrag", "build", "tmp"]
	source *dagger.Directory,
) *Docrag {
	return &Docrag{
		Source: source,
	}
}

// goContainer returns a Debian Bookworm-based Go container with the sqlite
// and tesseract development headers, CGO enabled, and the project source
// mounted.
//
// It is the shared foundation for tests, builds, and linting.
func (d *Docrag) goContainer() *dagger.Container {
	return dag.Container().
		From("golang:1.25-bookworm").
		WithExec([]string{"apt-get", "update"}).
		WithExec([]string{
			"apt-get", "install", "-y",
			"gcc", "libsqlite3-dev", "libtesseract-dev", "libleptonica-dev", "tesseract-ocr-eng",
		}).
		WithEnvVariable("CGO_ENABLED", "1").
		WithEnvVariable("PATH", "/go/bin:$PATH", dagger.ContainerWithEnvVariableOpts{Expand: true}).
		WithMountedCache("/go/pkg/mod", dag.CacheVolume("go-mod")).
		WithMountedCache("/root/.cache/go-build", dag.CacheVolume("go-build")).
		WithWorkdir("/src").
		WithDirectory("/src", d.Source)
}

// Test runs the docrag unit tests via "go test"
func (d *Docrag) Test(ctx context.Context) (string, error) {
	return d.goContainer().
		WithExec([]string{"go", "test", "-v", "./..."}).
		Stdout(ctx)
}
