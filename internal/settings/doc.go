// Package settings holds the user-adjustable client settings.
//
// A Store is built once at startup from a Backend, applies defaults for
// missing keys, persists every mutation before publishing it, and notifies
// subscribers after each successful change.
package settings
