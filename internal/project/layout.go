package project

import (
	"path/filepath"
)

// Layout decides where compiled outputs and artifacts of each project live.
//
//	<output>/<id>/classes/main
//	<output>/<id>/classes/release<N>
//	<output>/<id>/classes/module
//	<output>/<id>/libs/<id>-<version>.jar
type Layout struct {
	OutputDir string
	Version   string
}

func (l Layout) projectDir(id string) string {
	return filepath.Join(l.OutputDir, id)
}

// BaseOutputDir is the compiled output of the base layer.
func (l Layout) BaseOutputDir(id string) string {
	return filepath.Join(l.projectDir(id), "classes", "main")
}

// LayerOutputDir is the compiled output of a higher-baseline layer.
func (l Layout) LayerOutputDir(id string, b Baseline) string {
	return filepath.Join(l.projectDir(id), "classes", "release"+b.String())
}

// DescriptorOutputDir is the compiled output of the descriptor layer.
func (l Layout) DescriptorOutputDir(id string) string {
	return filepath.Join(l.projectDir(id), "classes", "module")
}

// ArtifactPath is the published artifact of a project.
func (l Layout) ArtifactPath(id string) string {
	return filepath.Join(l.projectDir(id), "libs", l.artifactBase(id)+".jar")
}

// SourcesArtifactPath is the optional sources artifact of a project.
func (l Layout) SourcesArtifactPath(id string) string {
	return filepath.Join(l.projectDir(id), "libs", l.artifactBase(id)+"-sources.jar")
}

// JavadocArtifactPath is the optional documentation artifact of a project.
func (l Layout) JavadocArtifactPath(id string) string {
	return filepath.Join(l.projectDir(id), "libs", l.artifactBase(id)+"-javadoc.jar")
}

func (l Layout) artifactBase(id string) string {
	if l.Version == "" {
		return id
	}
	return id + "-" + l.Version
}
