// Package config provides configuration structures and utilities for fipecrawler.
// It defines the API endpoints, request pacing, traversal filters and output
// destinations, loads them from a YAML file and validates them before a run.
package config
