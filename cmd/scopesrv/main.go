package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	yml "gopkg.in/yaml.v2"

	"github.com/aics-microscopy/goscope/setup"
)

var (
	// Version is the version number.  Typically injected via ldflags with git build
	Version = "1"

	// ConfigFileName is what it sounds like
	ConfigFileName = "scopesrv.yml"
)

func root() {
	str := `scopesrv drives an automated microscope and exposes an HTTP interface to it.
The sample tree (plate holder, plates, wells) is declared in the config file;
clients address objects by name and work in their local coordinates.

Usage:
	scopesrv <command>

Commands:
	run
	help
	mkconf
	conf
	version`
	fmt.Println(str)
}

func help() {
	str := `scopesrv is amenable to configuration via its .yaml file.  For a primer on YAML, see
https://yaml.org/start.html

Without a configuration, the server runs a simulated microscope with a single
96 well plate, which is useful for developing clients against.

The Holder section names the hardware components: the stage, the focus drive,
the objective changer, the autofocus and the safety area.  Wells inherit these
ids through the tree, so they are declared once.

Plates are declared with a standard format ("96", "24" or "12") and the
position of their upper-left corner on the holder in um.

Set Mock: false and provide a vendor backend to drive real hardware.`
	fmt.Println(str)
}

func mkconf() {
	c := setup.Default()
	f, err := os.Create(ConfigFileName)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	if err := yml.NewEncoder(f).Encode(c); err != nil {
		log.Fatal(err)
	}
}

func printconf() {
	c, err := setup.Load(ConfigFileName)
	if err != nil {
		log.Fatal(err)
	}
	if err := yml.NewEncoder(os.Stdout).Encode(c); err != nil {
		log.Fatal(err)
	}
}

func pversion() {
	fmt.Printf("scopesrv version %v\n", Version)
}

func run() {
	c, err := setup.Load(ConfigFileName)
	if err != nil {
		log.Fatal(err)
	}
	tree, ctl, err := setup.Build(c, nil, stdinPrompter{})
	if err != nil {
		log.Fatal(err)
	}
	if err := initialSweep(tree, ctl); err != nil {
		log.Fatal(err)
	}
	mux := BuildMux(tree)
	log.Println("now listening for requests at", c.Addr)
	log.Fatal(http.ListenAndServe(c.Addr, mux))
}

func main() {
	args := os.Args
	if len(args) == 1 {
		root()
		return
	}
	switch strings.ToLower(args[1]) {
	case "help":
		help()
	case "mkconf":
		mkconf()
	case "conf":
		printconf()
	case "run":
		run()
	case "version":
		pversion()
	default:
		log.Fatal("unknown command")
	}
}
