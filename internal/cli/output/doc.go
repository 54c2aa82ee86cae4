// Package output provides output formatting for meshp2p-cli.
//
//   - formatter.go: Formatter interface and factory
//   - table.go: aligned table rendering
//   - json.go: JSON output
//   - yaml.go: YAML output
//
// Values that know how to lay themselves out as rows implement Tabular;
// anything else falls back to JSON in table mode.
package output
