package commands

import (
	"fmt"

	"git.home.luguber.info/inful/modjar/internal/version"
)

// VersionCmd prints build metadata.
type VersionCmd struct{}

func (v *VersionCmd) Run(g *Global) error {
	_, _ = fmt.Fprintln(g.out(), version.Summary())
	return nil
}
