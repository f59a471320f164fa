// Package syncer mirrors a remote TerraSync tree into a local directory. It
// walks the tree index by index, compares every remote index with the one
// stored locally by the previous run, downloads what changed, verifies each
// download against the published hash and size, and removes what the server
// no longer lists.
package syncer
