// Package gen builds directory indexes for a local tree so it can be served
// to TerraSync clients. Indexes are generated bottom-up because a parent
// lists the digest of each child's index.
package gen
