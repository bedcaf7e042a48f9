package db

import (
	_ "embed"
)

// DemoSeed populates an empty database with a small demo instance
//
//go:embed seed/demo.sql
var DemoSeed string
