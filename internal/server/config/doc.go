// Package config defines the mesh node configuration.
//
//   - spec.go: NodeConfig struct definition
//   - default.go: default values
//   - verify.go: validation
//   - sanitize.go: log-safe copy with secrets masked
//   - mesh.go: conversion into component configs
//
// Configuration is loaded via internal/infra/confloader from a YAML file,
// MESHP2P_ environment variables and flags.
package config
