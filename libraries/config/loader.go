// Package config fills a tagged struct from defaults, an INI file and
// command line flags, in that order of precedence.
//
//	type Config struct {
//		Listen  string        `name:"http-listen" default:"localhost:8080" help:"HTTP listen address"`
//		Timeout time.Duration `name:"lookup-timeout" default:"10s"`
//		RPC     RPCConfig     `section:"rpc"`
//	}
//
// Tags: name, alias (comma separated), default, help, required:"true",
// section (a struct filled from one [section]) and sections (a slice of
// structs, one element per [prefix] or [prefix.anything] header).
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"reflect"
	"strings"
)

// CheckVersion prints version and exits when --version is on the command line.
func CheckVersion(version string) {
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" {
			fmt.Println(version)
			os.Exit(0)
		}
	}
}

type LoadOptions struct {
	ConfigFlag     string
	DefaultConfig  string
	StrictINI      bool
	SkipAutoConfig bool
}

func defaultOptions() *LoadOptions {
	return &LoadOptions{
		ConfigFlag:    "config",
		DefaultConfig: "./config.ini",
	}
}

func Load(cfg interface{}, args []string) error {
	return LoadWithOptions(cfg, args, nil)
}

func LoadWithOptions(cfg interface{}, args []string, opts *LoadOptions) error {
	if opts == nil {
		opts = defaultOptions()
	}
	if opts.ConfigFlag == "" {
		opts.ConfigFlag = "config"
	}

	v := reflect.ValueOf(cfg)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("cfg must be a pointer to a struct")
	}

	fields := collectFields(v.Elem())

	for _, f := range fields {
		if f.def == "" {
			continue
		}
		if err := setValue(f.value, f.def); err != nil {
			return fmt.Errorf("failed to apply defaults: invalid default for %s: %w", f.name, err)
		}
	}

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	configPath := fs.String(opts.ConfigFlag, "", "Path to config file")

	pending := make([]*flagValue, 0, len(fields))
	for _, f := range fields {
		if !f.flaggable() {
			continue
		}
		fv := &flagValue{field: f}
		pending = append(pending, fv)
		fs.Var(fv, f.name, f.usage())
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		return err
	}

	path := *configPath
	if path == "" && !opts.SkipAutoConfig && opts.DefaultConfig != "" {
		if _, err := os.Stat(opts.DefaultConfig); err == nil {
			path = opts.DefaultConfig
		}
	}
	if path != "" {
		if err := readINI(path, fields, opts.StrictINI); err != nil {
			return fmt.Errorf("failed to load config file: %w", err)
		}
	}

	for _, fv := range pending {
		if !fv.set {
			continue
		}
		if err := setValue(fv.field.value, fv.raw); err != nil {
			return fmt.Errorf("invalid value for -%s: %w", fv.field.name, err)
		}
	}

	var missing []string
	for _, f := range fields {
		if f.required && isZeroValue(f.value) {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}
	return nil
}

// flagValue holds a command line value until the INI file has been applied.
type flagValue struct {
	field *field
	raw   string
	set   bool
}

func (f *flagValue) String() string {
	return f.raw
}

func (f *flagValue) Set(s string) error {
	if err := checkValue(f.field.value.Type(), s); err != nil {
		return err
	}
	f.raw = s
	f.set = true
	return nil
}

// IsBoolFlag lets "-name" stand for "-name=true" on bool fields.
func (f *flagValue) IsBoolFlag() bool {
	return f.field.value.Kind() == reflect.Bool
}
