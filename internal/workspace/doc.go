// Package workspace provides per-run scratch directories.
//
// The documentation generator writes into a scratch directory such as
// modjar-docs-20261019-101500-1234; links are fixed there before the tree is
// published to the output directory, so a failed run never leaves a half
// written site behind.
package workspace
