package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dagger/docrag/internal/dagger"
)

// Build returns a directory holding the docrag binary for the container's
// platform. The sqlite and tesseract bindings need CGO, so there is no
// cross-compilation matrix.
func (d *Docrag) Build(
	ctx context.Context,

	// Linker flags for go build
	// +optional
	// +default="-s -w"
	ldflags string,
) *dagger.Directory {
	return d.goContainer().
		WithExec([]string{"go", "build", "-ldflags", ldflags, "-o", "/out/", "./cli/docrag"}).
		Directory("/out")
}

// BuildRelease compiles a versioned binary with embedded version info
func (d *Docrag) BuildRelease(
	ctx context.Context,

	// Version string of build
	version string,

	// Git commit SHA of build
	commit string,
) *dagger.Directory {
	buildtime := time.Now()

	ldflags := []string{
		"-s",
		"-w",
		fmt.Sprintf("-X 'github.com/papercomputeco/docrag/pkg/utils.Version=%s'", version),
		fmt.Sprintf("-X 'github.com/papercomputeco/docrag/pkg/utils.Sha=%s'", commit),
		fmt.Sprintf("-X 'github.com/papercomputeco/docrag/pkg/utils.Buildtime=%s'", buildtime),
	}

	return d.Build(ctx, strings.Join(ldflags, " "))
}
