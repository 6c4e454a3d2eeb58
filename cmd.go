package main

import (
	"github.com/stupid-simple/jpf/config"
	"github.com/stupid-simple/jpf/fingerprint"
)

type Command struct {
	Version struct{} `cmd:"" help:"Print version information."`
	Pack    struct {
		Inputs      []string              `arg:"" optional:"" help:"asset files or directories, directories are packed recursively"`
		Output      string                `help:"archive output path" short:"o"`
		Config      string                `help:"build the packages of a config file instead of the given inputs" short:"c"`
		Package     string                `help:"only build the config package with this name" short:"p"`
		Fingerprint fingerprint.Algorithm `help:"name fingerprint algorithm, city64 or xxh64" default:"city64"`
		Concurrency int                   `help:"maximum number of files loaded at the same time, defaults to one per CPU"`
		MaxSize     config.SizeArgument   `help:"skip assets larger than this size"`
		Overwrite   bool                  `help:"replace the output archive if it exists"`
		Database    string                `help:"database path, records the build when set" short:"d"`
		DryRun      bool                  `help:"don't write any files, just print the output"`
	} `cmd:"" help:"Pack assets into a JPF archive."`
	List struct {
		Archive string `arg:"" help:"archive path"`
		JSON    bool   `help:"print records as JSON lines" name:"json"`
	} `cmd:"" help:"List the records of a JPF archive."`
	Unpack struct {
		Archive  string `arg:"" help:"archive path"`
		Dest     string `help:"destination directory path" short:"D" required:""`
		Database string `help:"database path, used to restore asset names" short:"d"`
		DryRun   bool   `help:"don't write any files, just print the output"`
	} `cmd:"" help:"Write the payloads of a JPF archive back to files."`
	History struct {
		Database string `help:"database path" short:"d" required:""`
		Output   string `help:"archive output path" short:"o" required:""`
		Limit    int    `help:"maximum number of builds to print, 0 for all" default:"20"`
	} `cmd:"" help:"Print the recorded builds of an archive."`
	Lookup struct {
		Database    string `help:"database path" short:"d" required:""`
		Fingerprint string `arg:"" help:"fingerprint in hex, as printed by list"`
	} `cmd:"" help:"Find the asset names recorded for a fingerprint."`
	Prune struct {
		Database string `help:"database path" short:"d" required:""`
		Output   string `help:"archive output path" short:"o" required:""`
		Keep     int    `help:"number of newest builds to keep" required:""`
		DryRun   bool   `help:"don't delete anything, just print the output"`
	} `cmd:"" help:"Delete old build records of an archive."`
	Daemon struct {
		Config   string `help:"config file path" short:"c" required:""`
		Database string `help:"database path" short:"d" required:""`
		DryRun   bool   `help:"don't write any files, just print the output"`
	} `cmd:"" help:"Rebuild the config packages on their schedules."`
}
