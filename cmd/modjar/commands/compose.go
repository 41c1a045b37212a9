package commands

import (
	"fmt"
	"strings"

	"git.home.luguber.info/inful/modjar/internal/compiler"
	"git.home.luguber.info/inful/modjar/internal/compose"
	"git.home.luguber.info/inful/modjar/internal/foundation/errors"
)

// ComposeCmd prints the compiler invocations of one project as the build
// would run them.
type ComposeCmd struct {
	Project string `arg:"" help:"Project identifier"`
}

func (c *ComposeCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	graph, err := cfg.Graph()
	if err != nil {
		return err
	}
	p, ok := graph.Project(c.Project)
	if !ok {
		return errors.ConfigError(fmt.Sprintf("unknown project %q", c.Project)).
			WithContext(errors.ContextProject, c.Project).
			Build()
	}

	composer := compose.New(graph)
	if err := composer.Validate(); err != nil {
		return err
	}
	invs := make([]compiler.Invocation, 0, len(p.Layers)+2)
	base, err := composer.BaseInvocation(p.ID)
	if err != nil {
		return err
	}
	invs = append(invs, base)
	for _, l := range p.SortedLayers() {
		inv, err := composer.LayerInvocation(p.ID, l.Baseline)
		if err != nil {
			return err
		}
		invs = append(invs, inv)
	}
	if p.HasDescriptor() {
		inv, err := composer.DescriptorInvocation(p.ID)
		if err != nil {
			return err
		}
		invs = append(invs, inv)
	}

	w := g.out()
	_, _ = fmt.Fprintf(w, "# %s (%s, %s)\n", p.ID, graph.ModuleName(p.ID), p.Kind)
	for _, inv := range invs {
		_, _ = fmt.Fprintf(w, "%s: javac %s\n", inv.Name(), strings.Join(inv.Args(), " "))
	}
	return nil
}
