// Package dirindex parses and models the ".dirindex" manifests a TerraSync
// server publishes for every directory of the scenery tree. A manifest lists
// the directory's subdirectories, plain files and tarball archives together
// with their content hashes and, for files and tarballs, their sizes.
//
// Parsing is pure: it turns text that was already fetched into an immutable
// DirIndex, or fails with a typed error and returns nothing. The package does
// no I/O of its own apart from the Document helpers used by the CLI.
package dirindex
