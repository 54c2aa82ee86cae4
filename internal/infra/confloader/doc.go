// Package confloader loads node configuration with koanf.
//
// Sources, highest priority first:
//
//  1. Overrides given with WithOverrides (command-line flags)
//  2. Environment variables (MESHP2P_SECTION_KEY)
//  3. The YAML configuration file
//  4. Defaults already present in the target struct
//
// Watcher reports changes to the configuration file so a running node
// can pick up reloadable settings such as the log level.
package confloader
