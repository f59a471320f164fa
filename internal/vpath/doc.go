// Package vpath implements virtual paths: immutable, OS-independent
// locations inside the synchronized scenery tree. A Path is a comparable
// value, so it can be used directly as a map key, and every operation that
// derives a new path returns a fresh value instead of mutating the receiver.
package vpath
