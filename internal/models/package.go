package models

// Package represents an RPM package with the metadata needed for
// repository indexing
type Package struct {
	// Core metadata from the RPM header
	Name         string
	Epoch        string
	Version      string
	Release      string
	Architecture string
	Summary      string
	Packager     string
	Homepage     string
	License      string
	Group        string
	BuildTime    int64

	// File information
	Filename  string
	Size      int64
	SHA256Sum string
}
