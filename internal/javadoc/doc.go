// Package javadoc produces one aggregated API documentation tree for every
// modular project in the graph.
//
// External modules that publish no modular documentation are linked through
// a LinkTable: their element lists are fetched once into a local cache and
// passed to the generator as offline links. The generator then renders links
// of the form <baseUrl><module>/<package>/... which FixLinks rewrites, in
// .html files only, back to <baseUrl><package>/....
package javadoc
