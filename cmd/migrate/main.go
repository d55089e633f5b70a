package main

import (
	"log"
	"os"
	"strconv"
	"thakajabe/config"
	"thakajabe/helper"
)

const (
	argLength      = 2
	forceArgLength = 3
)

func main() {
	if len(os.Args) < argLength {
		log.Fatal("Migration direction (up/down) is required")
	}

	cfg := config.Get()

	switch os.Args[1] {
	case "up":
		if err := helper.Up(cfg); err != nil {
			log.Fatal(err)
		}
	case "down":
		if err := helper.Down(cfg); err != nil {
			log.Fatal(err)
		}
	case "drop":
		if err := helper.Drop(cfg); err != nil {
			log.Fatal(err)
		}
	case "step-up":
		if err := helper.StepUp(cfg); err != nil {
			log.Fatal(err)
		}
	case "version":
		version, dirty, err := helper.Version(cfg)
		if err != nil {
			log.Fatal(err)
		}

		log.Printf("version %d (dirty: %t)", version, dirty)
	case "force":
		if len(os.Args) < forceArgLength {
			log.Fatal("force needs the version to mark as applied")
		}

		version, err := strconv.Atoi(os.Args[2])
		if err != nil {
			log.Fatalf("invalid version %q: %v", os.Args[2], err)
		}

		if err = helper.Force(cfg, version); err != nil {
			log.Fatal(err)
		}
	default:
		log.Fatal("Invalid direction. Use 'up', 'down', 'drop', 'step-up', 'version' or 'force <version>'")
	}
}
