// Package updater tells users when a newer terrasync release exists. It asks
// GitHub Releases for the latest tag, compares it with the running version,
// and caches the answer for a day so the startup banner never waits on the
// network.
package updater
