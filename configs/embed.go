// Package configs provides the configuration templates written by
// `docindex config init`.
//
// Templates are embedded at build time so they ship with every binary.
package configs

import _ "embed"

// ConfigTemplate is the commented .docindex.yaml written by `docindex config init`.
// Its values match the built-in defaults.
//
//go:embed docindex.example.yaml
var ConfigTemplate string

// EnvTemplate is the .env skeleton written by `docindex config init --env`.
//
//go:embed env.example
var EnvTemplate string
