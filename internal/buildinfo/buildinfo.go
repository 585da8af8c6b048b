package buildinfo

import "fmt"

const Graffiti = " ____   ___  ____    _____ _ _ _            \n/ ___| / _ \\|  _ \\  |  ___(_) | |_ ___ _ __ \n\\___ \\| | | | | | | | |_  | | | __/ _ \\ '__|\n ___) | |_| | |_| | |  _| | | | ||  __/ |   \n|____/ \\___/|____/  |_|   |_|_|\\__\\___|_|   \n\n"

// Set through -ldflags "-X github.com/go-sod/sodfilter/internal/buildinfo.BuildTag=..."
var (
	BuildTag = "v0.0.0"
	Name     = "SOD-FILTER"
	Time     = "unknown"
)

type buildinfo struct{}

func (buildinfo) Tag() string  { return BuildTag }
func (buildinfo) Name() string { return Name }
func (buildinfo) Time() string { return Time }

// Banner is the first line written by the binaries.
func (b buildinfo) Banner() string {
	return fmt.Sprintf("%s%s: %s, %s\n", Graffiti, b.Name(), b.Time(), b.Tag())
}

var Info buildinfo
