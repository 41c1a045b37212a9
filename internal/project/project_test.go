package project

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/modjar/internal/foundation/errors"
)

func TestParseBaseline(t *testing.T) {
	b, err := ParseBaseline("1.8")
	require.NoError(t, err)
	assert.Equal(t, Baseline(8), b)

	b, err = ParseBaseline("17")
	require.NoError(t, err)
	assert.Equal(t, Baseline(17), b)

	_, err = ParseBaseline("next")
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Project {
		return &Project{
			ID:   "api",
			Kind: Modular,
			Base: SourceLayer{Baseline: 8, SourceRoots: []string{"src/main/java"}},
			Layers: []SourceLayer{
				{Baseline: 11},
				{Baseline: 17},
			},
			Descriptor: &DescriptorLayer{Root: "src/module/org.api"},
		}
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(p *Project)
	}{
		{"empty id", func(p *Project) { p.ID = "" }},
		{"missing base baseline", func(p *Project) { p.Base.Baseline = 0 }},
		{"layer not above base", func(p *Project) { p.Layers[0].Baseline = 8 }},
		{"layers not increasing", func(p *Project) { p.Layers[1].Baseline = 11 }},
		{"descriptor on non-modular", func(p *Project) { p.Kind = NonModular }},
		{"javadoc artifact on non-modular", func(p *Project) {
			p.Kind, p.Descriptor, p.JavadocArtifact = NonModular, nil, true
		}},
		{"self dependency", func(p *Project) { p.Dependencies = []string{"api"} }},
		{"embedded without artifact", func(p *Project) { p.Embedded = []EmbeddedDependency{{}} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid()
			tt.mutate(p)
			err := p.Validate()
			require.Error(t, err)
			assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
		})
	}
}

func TestModularWithoutDescriptorIsValid(t *testing.T) {
	p := &Project{ID: "core", Kind: Modular, Base: SourceLayer{Baseline: 8}}
	require.NoError(t, p.Validate())
	assert.True(t, p.IsModular())
	assert.False(t, p.HasDescriptor())
}

func TestSortedLayersAndRoots(t *testing.T) {
	p := &Project{
		ID:         "api",
		Base:       SourceLayer{Baseline: 8, SourceRoots: []string{"main"}},
		Layers:     []SourceLayer{{Baseline: 17, SourceRoots: []string{"r17"}}, {Baseline: 11, SourceRoots: []string{"r11"}}},
		Descriptor: &DescriptorLayer{Root: "module"},
	}
	layers := p.SortedLayers()
	assert.Equal(t, Baseline(11), layers[0].Baseline)
	assert.Equal(t, Baseline(17), layers[1].Baseline)
	assert.Equal(t, []string{"main", "r11", "r17"}, p.MainSourceRoots())
	assert.Equal(t, filepath.Join("module", "org.api"), p.Descriptor.SourceDir("org.api"))
	assert.Equal(t, Baseline(17), p.Layers[0].Baseline, "original order untouched")
}

func TestLayout(t *testing.T) {
	l := Layout{OutputDir: "/out", Version: "1.2.0"}
	assert.Equal(t, filepath.Join("/out", "api", "classes", "main"), l.BaseOutputDir("api"))
	assert.Equal(t, filepath.Join("/out", "api", "classes", "release17"), l.LayerOutputDir("api", 17))
	assert.Equal(t, filepath.Join("/out", "api", "classes", "module"), l.DescriptorOutputDir("api"))
	assert.Equal(t, filepath.Join("/out", "api", "libs", "api-1.2.0.jar"), l.ArtifactPath("api"))
	assert.Equal(t, filepath.Join("/out", "api", "libs", "api-1.2.0-sources.jar"), l.SourcesArtifactPath("api"))
	assert.Equal(t, filepath.Join("/out", "api", "libs", "api-1.2.0-javadoc.jar"), l.JavadocArtifactPath("api"))

	assert.Equal(t, filepath.Join("/out", "api", "libs", "api.jar"), Layout{OutputDir: "/out"}.ArtifactPath("api"))
}
