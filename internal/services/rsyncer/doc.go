// Package rsyncer shells out to rsync for archive mirroring.
package rsyncer
