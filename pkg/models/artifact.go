// Package models defines the domain models shared by the pipeline binaries
package models

import (
	"time"
)

// ArtifactState reports whether a version is durable yet
type ArtifactState string

const (
	ArtifactStatePending   ArtifactState = "pending"
	ArtifactStateCommitted ArtifactState = "committed"
)

// ArtifactFile describes one file stored in an artifact version
type ArtifactFile struct {
	Name   string `json:"name" yaml:"name"`
	Size   int64  `json:"size" yaml:"size"`
	Digest string `json:"digest" yaml:"digest"`
}

// ArtifactSpec is what a producer supplies when publishing a new version.
type ArtifactSpec struct {
	Name        string            `json:"name"`
	Type        string            `json:"type"`
	Description string            `json:"description"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Inputs      []string          `json:"inputs,omitempty"`
}

// ArtifactVersion is an immutable, versioned bundle of files tracked by the store.
type ArtifactVersion struct {
	ID          string            `json:"id" yaml:"id"`
	Name        string            `json:"name" yaml:"name"`
	Type        string            `json:"type" yaml:"type"`
	Description string            `json:"description" yaml:"description"`
	Version     int               `json:"version" yaml:"version"`
	Alias       string            `json:"alias" yaml:"alias"` // "v<Version>"
	Digest      string            `json:"digest" yaml:"digest"`
	Metadata    map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Inputs      []string          `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	Files       []ArtifactFile    `json:"files" yaml:"files"`
	State       ArtifactState     `json:"state" yaml:"state"`
	CreatedAt   time.Time         `json:"created_at" yaml:"created_at"`
}

// Ref returns the fully qualified "name:vN" reference of the version.
func (v *ArtifactVersion) Ref() string {
	return v.Name + ":" + v.Alias
}

// File looks up a file of the version by name.
func (v *ArtifactVersion) File(name string) (ArtifactFile, bool) {
	for _, f := range v.Files {
		if f.Name == name {
			return f, true
		}
	}
	return ArtifactFile{}, false
}
