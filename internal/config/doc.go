// Package config provides configuration types for procpipe: the process
// to run (Command), the run options, and the YAML file format read by
// the procpipe command.
package config
